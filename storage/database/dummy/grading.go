package dummydb

import (
	"context"

	"github.com/chuoapp/chuo/core/assessment"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/grading"
)

type gradingRepository struct {
	db *DB
}

var _ grading.Repository = (*gradingRepository)(nil)

func NewGradingRepository(db *DB) grading.Repository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) GetScale(ctx context.Context) (grading.Scale, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	scale := make(grading.Scale, len(repo.db.scale))
	copy(scale, repo.db.scale)
	return scale, nil
}

func (repo *gradingRepository) ReplaceScale(ctx context.Context, scale grading.Scale) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.scale = make(grading.Scale, len(scale))
	copy(repo.db.scale, scale)
	return nil
}

func (repo *gradingRepository) GetApprovedCATotal(ctx context.Context, studentID, courseID, semesterID string) (float64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var total float64
	for _, ca := range repo.db.cas {
		if ca.StudentID == studentID && ca.CourseID == courseID && ca.SemesterID == semesterID &&
			ca.ApprovalStatus == assessment.ApprovalApproved {
			total += ca.WeightedScore()
		}
	}
	return total, nil
}

func (repo *gradingRepository) GetPublishedExamScore(ctx context.Context, studentID, courseID, semesterID string) (float64, bool, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, ex := range repo.db.exams {
		if ex.StudentID == studentID && ex.CourseID == courseID && ex.SemesterID == semesterID && ex.IsPublished() {
			return ex.Score, true, nil
		}
	}
	return 0, false, nil
}

func (repo *gradingRepository) listCourses(match func(*enrollment.Enrollment) bool) []grading.EnrolledCourse {
	var courses []grading.EnrolledCourse
	for _, enr := range repo.db.enrollments {
		if !match(enr) {
			continue
		}
		course := grading.EnrolledCourse{
			CourseID:   enr.CourseID,
			SemesterID: enr.SemesterID,
		}
		if crs, ok := repo.db.courses[enr.CourseID]; ok {
			course.CourseCode = crs.Code
			course.CreditUnits = crs.CreditUnits
		}
		courses = append(courses, course)
	}
	return courses
}

func (repo *gradingRepository) ListCompletedCourses(ctx context.Context, studentID string) ([]grading.EnrolledCourse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.listCourses(func(enr *enrollment.Enrollment) bool {
		return enr.StudentID == studentID && enr.Status == enrollment.StatusCompleted
	}), nil
}

func (repo *gradingRepository) ListSemesterCourses(ctx context.Context, studentID, semesterID string) ([]grading.EnrolledCourse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	return repo.listCourses(func(enr *enrollment.Enrollment) bool {
		return enr.StudentID == studentID && enr.SemesterID == semesterID &&
			(enr.Status == enrollment.StatusActive || enr.Status == enrollment.StatusCompleted)
	}), nil
}

func (repo *gradingRepository) GetSummary(ctx context.Context, studentID, semesterID string) (grading.SemesterSummary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if summary, ok := repo.db.summaries[pairKey(studentID, semesterID)]; ok {
		return *summary, nil
	}
	return grading.SemesterSummary{}, grading.ErrSummaryNotFound
}

func (repo *gradingRepository) GetLatestSummary(ctx context.Context, studentID string) (grading.SemesterSummary, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var latest *grading.SemesterSummary
	for _, summary := range repo.db.summaries {
		if summary.StudentID != studentID {
			continue
		}
		if latest == nil || summary.ComputedAt.After(latest.ComputedAt) {
			latest = summary
		}
	}
	if latest == nil {
		return grading.SemesterSummary{}, grading.ErrSummaryNotFound
	}
	return *latest, nil
}

func (repo *gradingRepository) UpsertSummary(ctx context.Context, summary grading.SemesterSummary) (grading.SemesterSummary, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.summaries[pairKey(summary.StudentID, summary.SemesterID)] = &summary
	return summary, nil
}
