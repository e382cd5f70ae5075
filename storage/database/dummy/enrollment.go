package dummydb

import (
	"context"
	"sort"

	"github.com/chuoapp/chuo/core/enrollment"
)

type enrollmentRepository struct {
	db *DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateCourse(ctx context.Context, crs enrollment.Course) (enrollment.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.courses[crs.ID] = &crs
	return crs, nil
}

func (repo *enrollmentRepository) GetCourseByID(ctx context.Context, id string) (enrollment.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if crs, ok := repo.db.courses[id]; ok {
		return *crs, nil
	}
	return enrollment.Course{}, enrollment.ErrCourseNotFound
}

func (repo *enrollmentRepository) GetCourseByCode(ctx context.Context, code string) (enrollment.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, crs := range repo.db.courses {
		if crs.Code == code {
			return *crs, nil
		}
	}
	return enrollment.Course{}, enrollment.ErrCourseNotFound
}

func (repo *enrollmentRepository) QueryAllCourses(ctx context.Context) ([]enrollment.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	courses := make([]enrollment.Course, 0, len(repo.db.courses))
	for _, crs := range repo.db.courses {
		courses = append(courses, *crs)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].Code < courses[j].Code })
	return courses, nil
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.enrollments[enr.ID] = &enr
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if enr, ok := repo.db.enrollments[id]; ok {
		return *enr, nil
	}
	return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
}

func (repo *enrollmentRepository) FilterEnrollments(ctx context.Context, filter enrollment.Filter) ([]enrollment.Enrollment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var enrs []enrollment.Enrollment
	for _, enr := range repo.db.enrollments {
		if filter.StudentID != "" && enr.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && enr.CourseID != filter.CourseID {
			continue
		}
		if filter.SemesterID != "" && enr.SemesterID != filter.SemesterID {
			continue
		}
		if filter.Status != "" && enr.Status != filter.Status {
			continue
		}
		enrs = append(enrs, *enr)
	}
	sort.Slice(enrs, func(i, j int) bool { return enrs[i].CreatedAt.Before(enrs[j].CreatedAt) })
	return enrs, nil
}

func (repo *enrollmentRepository) SaveEnrollmentWithAudit(ctx context.Context, enr enrollment.Enrollment, entry enrollment.AuditEntry) (enrollment.Enrollment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[enr.ID]; !ok {
		return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
	}
	repo.db.enrollments[enr.ID] = &enr
	repo.db.enrollmentAudit = append(repo.db.enrollmentAudit, entry)
	return enr, nil
}

func (repo *enrollmentRepository) ListAuditEntries(ctx context.Context, enrollmentID string) ([]enrollment.AuditEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []enrollment.AuditEntry
	for _, entry := range repo.db.enrollmentAudit {
		if entry.EnrollmentID == enrollmentID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (repo *enrollmentRepository) CreatePrerequisite(ctx context.Context, pre enrollment.Prerequisite) (enrollment.Prerequisite, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.prereqs = append(repo.db.prereqs, pre)
	return pre, nil
}

func (repo *enrollmentRepository) ListPrerequisites(ctx context.Context, courseID string) ([]enrollment.Prerequisite, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var pres []enrollment.Prerequisite
	for _, pre := range repo.db.prereqs {
		if pre.CourseID == courseID {
			pres = append(pres, pre)
		}
	}
	return pres, nil
}

func (repo *enrollmentRepository) CreateTimeSlot(ctx context.Context, ts enrollment.TimeSlot) (enrollment.TimeSlot, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.slots = append(repo.db.slots, ts)
	return ts, nil
}

func (repo *enrollmentRepository) ListTimeSlots(ctx context.Context, semesterID string, courseIDs ...string) ([]enrollment.TimeSlot, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	wanted := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		wanted[id] = true
	}
	var slots []enrollment.TimeSlot
	for _, ts := range repo.db.slots {
		if ts.SemesterID != semesterID {
			continue
		}
		if len(courseIDs) > 0 && !wanted[ts.CourseID] {
			continue
		}
		slots = append(slots, ts)
	}
	return slots, nil
}
