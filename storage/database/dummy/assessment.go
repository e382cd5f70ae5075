package dummydb

import (
	"context"
	"sort"

	"github.com/chuoapp/chuo/core/assessment"
)

type assessmentRepository struct {
	db *DB
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

func (repo *assessmentRepository) CreateCA(ctx context.Context, ca assessment.ContinuousAssessment) (assessment.ContinuousAssessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.cas[ca.ID] = &ca
	return ca, nil
}

func (repo *assessmentRepository) GetCAByID(ctx context.Context, id string) (assessment.ContinuousAssessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ca, ok := repo.db.cas[id]; ok {
		return *ca, nil
	}
	return assessment.ContinuousAssessment{}, assessment.ErrCANotFound
}

func (repo *assessmentRepository) GetCAsByID(ctx context.Context, ids ...string) ([]assessment.ContinuousAssessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var cas []assessment.ContinuousAssessment
	for _, id := range ids {
		if ca, ok := repo.db.cas[id]; ok {
			cas = append(cas, *ca)
		}
	}
	return cas, nil
}

func (repo *assessmentRepository) FilterCAs(ctx context.Context, filter assessment.CAFilter) ([]assessment.ContinuousAssessment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var cas []assessment.ContinuousAssessment
	for _, ca := range repo.db.cas {
		if filter.StudentID != "" && ca.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && ca.CourseID != filter.CourseID {
			continue
		}
		if filter.SemesterID != "" && ca.SemesterID != filter.SemesterID {
			continue
		}
		if filter.LecturerID != "" && ca.LecturerID != filter.LecturerID {
			continue
		}
		if filter.Status != "" && ca.ApprovalStatus != filter.Status {
			continue
		}
		cas = append(cas, *ca)
	}
	sort.Slice(cas, func(i, j int) bool { return cas[i].CreatedAt.Before(cas[j].CreatedAt) })
	return cas, nil
}

func (repo *assessmentRepository) SumCAWeights(ctx context.Context, studentID, courseID, semesterID string, excludedIDs ...string) (float64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]bool, len(excludedIDs))
	for _, id := range excludedIDs {
		excluded[id] = true
	}
	var sum float64
	for _, ca := range repo.db.cas {
		if ca.StudentID == studentID && ca.CourseID == courseID && ca.SemesterID == semesterID && !excluded[ca.ID] {
			sum += ca.Weight
		}
	}
	return sum, nil
}

func (repo *assessmentRepository) saveCA(ca assessment.ContinuousAssessment) (assessment.ContinuousAssessment, error) {
	stored, ok := repo.db.cas[ca.ID]
	if !ok {
		return assessment.ContinuousAssessment{}, assessment.ErrCANotFound
	}
	if stored.Version != ca.Version {
		return assessment.ContinuousAssessment{}, assessment.ErrVersionConflict
	}
	ca.Version++
	repo.db.cas[ca.ID] = &ca
	return ca, nil
}

func (repo *assessmentRepository) SaveCA(ctx context.Context, ca assessment.ContinuousAssessment) (assessment.ContinuousAssessment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.saveCA(ca)
}

func (repo *assessmentRepository) SaveCAs(ctx context.Context, cas []assessment.ContinuousAssessment) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, ca := range cas {
		if _, err := repo.saveCA(ca); err != nil {
			return err
		}
	}
	return nil
}

func (repo *assessmentRepository) CreateExam(ctx context.Context, ex assessment.FinalExam) (assessment.FinalExam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.exams[ex.ID] = &ex
	return ex, nil
}

func (repo *assessmentRepository) GetExamByID(ctx context.Context, id string) (assessment.FinalExam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if ex, ok := repo.db.exams[id]; ok {
		return *ex, nil
	}
	return assessment.FinalExam{}, assessment.ErrExamNotFound
}

func (repo *assessmentRepository) GetExamsByID(ctx context.Context, ids ...string) ([]assessment.FinalExam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var exams []assessment.FinalExam
	for _, id := range ids {
		if ex, ok := repo.db.exams[id]; ok {
			exams = append(exams, *ex)
		}
	}
	return exams, nil
}

func (repo *assessmentRepository) FilterExams(ctx context.Context, filter assessment.ExamFilter) ([]assessment.FinalExam, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var exams []assessment.FinalExam
	for _, ex := range repo.db.exams {
		if filter.StudentID != "" && ex.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && ex.CourseID != filter.CourseID {
			continue
		}
		if filter.SemesterID != "" && ex.SemesterID != filter.SemesterID {
			continue
		}
		if filter.LecturerID != "" && ex.LecturerID != filter.LecturerID {
			continue
		}
		if filter.Status != "" && ex.ModerationStatus != filter.Status {
			continue
		}
		if filter.PublishedOnly && !ex.IsPublished() {
			continue
		}
		exams = append(exams, *ex)
	}
	sort.Slice(exams, func(i, j int) bool { return exams[i].CreatedAt.Before(exams[j].CreatedAt) })
	return exams, nil
}

func (repo *assessmentRepository) saveExam(ex assessment.FinalExam) (assessment.FinalExam, error) {
	stored, ok := repo.db.exams[ex.ID]
	if !ok {
		return assessment.FinalExam{}, assessment.ErrExamNotFound
	}
	if stored.Version != ex.Version {
		return assessment.FinalExam{}, assessment.ErrVersionConflict
	}
	ex.Version++
	repo.db.exams[ex.ID] = &ex
	return ex, nil
}

func (repo *assessmentRepository) SaveExam(ctx context.Context, ex assessment.FinalExam) (assessment.FinalExam, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	return repo.saveExam(ex)
}

func (repo *assessmentRepository) SaveExams(ctx context.Context, exams []assessment.FinalExam) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, ex := range exams {
		if _, err := repo.saveExam(ex); err != nil {
			return err
		}
	}
	return nil
}
