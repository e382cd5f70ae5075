package dummydb

import (
	"context"

	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/registration"
)

type registrationRepository struct {
	db *DB
}

var _ registration.Repository = (*registrationRepository)(nil)

func NewRegistrationRepository(db *DB) registration.Repository {
	return &registrationRepository{db: db}
}

func (repo *registrationRepository) GetRegistration(ctx context.Context, studentID, semesterID string) (registration.Registration, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if reg, ok := repo.db.registrations[pairKey(studentID, semesterID)]; ok {
		return *reg, nil
	}
	return registration.Registration{}, registration.ErrNotFound
}

func (repo *registrationRepository) CreateRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.registrations[pairKey(reg.StudentID, reg.SemesterID)] = &reg
	return reg, nil
}

func (repo *registrationRepository) SaveRegistrationWithAudit(ctx context.Context, reg registration.Registration, entry registration.AuditEntry) (registration.Registration, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	key := pairKey(reg.StudentID, reg.SemesterID)
	if _, ok := repo.db.registrations[key]; !ok {
		return registration.Registration{}, registration.ErrNotFound
	}
	repo.db.registrations[key] = &reg
	repo.db.registrationAudit = append(repo.db.registrationAudit, entry)
	return reg, nil
}

func (repo *registrationRepository) ListAuditEntries(ctx context.Context, registrationID string) ([]registration.AuditEntry, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var entries []registration.AuditEntry
	for _, entry := range repo.db.registrationAudit {
		if entry.RegistrationID == registrationID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (repo *registrationRepository) GetInsuranceConfig(ctx context.Context) (registration.InsuranceConfig, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.insurance == nil {
		return registration.InsuranceConfig{Requirement: registration.InsuranceOptional}, nil
	}
	return *repo.db.insurance, nil
}

func (repo *registrationRepository) SetInsuranceConfig(ctx context.Context, cfg registration.InsuranceConfig) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.insurance = &cfg
	return nil
}

func (repo *registrationRepository) GetProgramForStudent(ctx context.Context, studentID string) (registration.Program, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	programID, ok := repo.db.studentPrograms[studentID]
	if !ok {
		return registration.Program{}, registration.ErrProgramNotFound
	}
	program, ok := repo.db.programs[programID]
	if !ok {
		return registration.Program{}, registration.ErrProgramNotFound
	}
	return *program, nil
}

func (repo *registrationRepository) ListCompletedCourses(ctx context.Context, studentID string) ([]registration.CompletedCourse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []registration.CompletedCourse
	for _, enr := range repo.db.enrollments {
		if enr.StudentID != studentID || enr.Status != enrollment.StatusCompleted {
			continue
		}
		course := registration.CompletedCourse{CourseID: enr.CourseID}
		if crs, ok := repo.db.courses[enr.CourseID]; ok {
			course.CourseCode = crs.Code
			course.CreditUnits = crs.CreditUnits
		}
		courses = append(courses, course)
	}
	return courses, nil
}

func (repo *registrationRepository) ListRequestedCourses(ctx context.Context, studentID, semesterID string) ([]registration.RequestedCourse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var courses []registration.RequestedCourse
	for _, enr := range repo.db.enrollments {
		if enr.StudentID != studentID || enr.SemesterID != semesterID {
			continue
		}
		if enr.Status != enrollment.StatusPendingApproval && enr.Status != enrollment.StatusActive {
			continue
		}
		course := registration.RequestedCourse{CourseID: enr.CourseID}
		if crs, ok := repo.db.courses[enr.CourseID]; ok {
			course.CourseCode = crs.Code
		}
		courses = append(courses, course)
	}
	return courses, nil
}
