package enrollment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/grading"
)

var (
	// errors
	ErrCourseNotFound     = errors.New("course not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrCourseCodeExists   = errors.New("a course with this code exists")
	ErrAlreadyEnrolled    = errors.New("student is already enrolled in this course")

	errNotPending = core.NewPreconditionError("enrollment is not pending approval")
	errNotActive  = core.NewPreconditionError("enrollment is not active")
)

var nowFunc = time.Now // mockable

type (
	Filter struct {
		StudentID  string `query:"student_id"`
		CourseID   string `query:"course_id"`
		SemesterID string `query:"semester_id"`
		Status     string `query:"status"`
	}

	Repository interface {
		CreateCourse(ctx context.Context, crs Course) (Course, error)
		GetCourseByID(ctx context.Context, id string) (Course, error)
		GetCourseByCode(ctx context.Context, code string) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)

		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
		FilterEnrollments(ctx context.Context, filter Filter) ([]Enrollment, error)
		// SaveEnrollmentWithAudit persists the transition and appends the
		// audit row in one transaction.
		SaveEnrollmentWithAudit(ctx context.Context, enr Enrollment, entry AuditEntry) (Enrollment, error)
		ListAuditEntries(ctx context.Context, enrollmentID string) ([]AuditEntry, error)

		CreatePrerequisite(ctx context.Context, pre Prerequisite) (Prerequisite, error)
		ListPrerequisites(ctx context.Context, courseID string) ([]Prerequisite, error)

		CreateTimeSlot(ctx context.Context, ts TimeSlot) (TimeSlot, error)
		ListTimeSlots(ctx context.Context, semesterID string, courseIDs ...string) ([]TimeSlot, error)
	}

	Service interface {
		CreateCourse(ctx context.Context, nc NewCourse) (Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		QueryAllCourses(ctx context.Context) ([]Course, error)

		Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error)
		Get(ctx context.Context, id string) (Enrollment, error)
		Filter(ctx context.Context, filter Filter) ([]Enrollment, error)
		Approve(ctx context.Context, id, adminID string) (Enrollment, error)
		Reject(ctx context.Context, id, reason, adminID string) (Enrollment, error)
		Complete(ctx context.Context, id, actorID string) (Enrollment, error)
		Withdraw(ctx context.Context, id, actorID string) (Enrollment, error)
		AuditTrail(ctx context.Context, id string) ([]AuditEntry, error)

		AddPrerequisite(ctx context.Context, np NewPrerequisite) (Prerequisite, error)
		Prerequisites(ctx context.Context, courseID string) ([]Prerequisite, error)
		AddTimeSlot(ctx context.Context, nts NewTimeSlot) (TimeSlot, error)
		TimeSlots(ctx context.Context, semesterID string, courseIDs ...string) ([]TimeSlot, error)
	}

	service struct {
		repo       Repository
		gradingSvc grading.Service
		notifSvc   core.NotificationService
		logger     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, gradingSvc grading.Service, notifSvc core.NotificationService, logger core.Logger) Service {
	return &service{
		repo:       repo,
		gradingSvc: gradingSvc,
		notifSvc:   notifSvc,
		logger:     logger,
	}
}

func (svc *service) CreateCourse(ctx context.Context, nc NewCourse) (Course, error) {
	if _, err := svc.repo.GetCourseByCode(ctx, nc.Code); err == nil {
		return Course{}, core.NewValidationError(ErrCourseCodeExists,
			core.FieldError{Field: "code", Error: ErrCourseCodeExists.Error()})
	} else if !errors.Is(err, ErrCourseNotFound) {
		return Course{}, err
	}

	now := nowFunc().UTC()
	crs := Course{
		ID:          uuid.NewString(),
		Code:        nc.Code,
		Title:       nc.Title,
		CreditUnits: nc.CreditUnits,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return svc.repo.CreateCourse(ctx, crs)
}

func (svc *service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

func (svc *service) QueryAllCourses(ctx context.Context) ([]Course, error) {
	return svc.repo.QueryAllCourses(ctx)
}

func (svc *service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	existing, err := svc.repo.FilterEnrollments(ctx, Filter{
		StudentID:  ne.StudentID,
		CourseID:   ne.CourseID,
		SemesterID: ne.SemesterID,
	})
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "checking existing enrollments")
	}
	for _, enr := range existing {
		if enr.IsPending() || enr.IsActive() {
			return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled,
				core.FieldError{Field: "course_id", Error: ErrAlreadyEnrolled.Error()})
		}
	}

	status := StatusActive
	if ne.RequiresApproval {
		status = StatusPendingApproval
	}
	now := nowFunc().UTC()
	enr := Enrollment{
		ID:               uuid.NewString(),
		StudentID:        ne.StudentID,
		CourseID:         ne.CourseID,
		SemesterID:       ne.SemesterID,
		Status:           status,
		RequiresApproval: ne.RequiresApproval,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreateEnrollment(ctx, enr)
}

func (svc *service) Get(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

func (svc *service) Filter(ctx context.Context, filter Filter) ([]Enrollment, error) {
	return svc.repo.FilterEnrollments(ctx, filter)
}

func (svc *service) Approve(ctx context.Context, id, adminID string) (Enrollment, error) {
	enr, err := svc.transition(ctx, id, adminID, ActionApprove, "",
		StatusPendingApproval, StatusActive, errNotPending)
	if err != nil {
		return Enrollment{}, err
	}
	svc.notify(ctx, enr.StudentID, core.NotifyEnrollmentApproved, "Enrollment approved",
		"Your course enrollment has been approved.")
	return enr, nil
}

func (svc *service) Reject(ctx context.Context, id, reason, adminID string) (Enrollment, error) {
	enr, err := svc.transition(ctx, id, adminID, ActionReject, reason,
		StatusPendingApproval, StatusRejected, errNotPending)
	if err != nil {
		return Enrollment{}, err
	}
	svc.notify(ctx, enr.StudentID, core.NotifyEnrollmentRejected, "Enrollment rejected",
		fmt.Sprintf("Your course enrollment was rejected: %s", reason))
	return enr, nil
}

func (svc *service) Complete(ctx context.Context, id, actorID string) (Enrollment, error) {
	enr, err := svc.transition(ctx, id, actorID, ActionComplete, "",
		StatusActive, StatusCompleted, errNotActive)
	if err != nil {
		return Enrollment{}, err
	}
	// Completion feeds the CGPA; a failed refresh only degrades the cache.
	if _, err := svc.gradingSvc.RefreshSummary(ctx, enr.StudentID, enr.SemesterID); err != nil {
		svc.logger.Warn("refreshing semester summary", errors.Wrap(err, "refreshing semester summary"))
	}
	return enr, nil
}

func (svc *service) Withdraw(ctx context.Context, id, actorID string) (Enrollment, error) {
	return svc.transition(ctx, id, actorID, ActionWithdraw, "",
		StatusActive, StatusWithdrawn, errNotActive)
}

// transition moves an enrollment from one status to another, appending the
// audit row atomically with the status change.
func (svc *service) transition(
	ctx context.Context, id, actorID, action, reason, from, to string, notIn error,
) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if enr.Status != from {
		return Enrollment{}, notIn
	}

	now := nowFunc().UTC()
	entry := AuditEntry{
		ID:           uuid.NewString(),
		EnrollmentID: enr.ID,
		Action:       action,
		ActorID:      actorID,
		OldStatus:    enr.Status,
		NewStatus:    to,
		CreatedAt:    now,
	}
	if reason != "" {
		entry.Reason = null.StringFrom(reason)
	}

	enr.Status = to
	if action == ActionReject {
		enr.RejectReason = null.StringFrom(reason)
	}
	enr.UpdatedAt = now
	return svc.repo.SaveEnrollmentWithAudit(ctx, enr, entry)
}

func (svc *service) AuditTrail(ctx context.Context, id string) ([]AuditEntry, error) {
	if _, err := svc.repo.GetEnrollmentByID(ctx, id); err != nil {
		return nil, err
	}
	return svc.repo.ListAuditEntries(ctx, id)
}

func (svc *service) AddPrerequisite(ctx context.Context, np NewPrerequisite) (Prerequisite, error) {
	pre := Prerequisite{
		ID:               uuid.NewString(),
		CourseID:         np.CourseID,
		RequiredCourseID: np.RequiredCourseID,
		Kind:             np.Kind,
	}
	return svc.repo.CreatePrerequisite(ctx, pre)
}

func (svc *service) Prerequisites(ctx context.Context, courseID string) ([]Prerequisite, error) {
	return svc.repo.ListPrerequisites(ctx, courseID)
}

func (svc *service) AddTimeSlot(ctx context.Context, nts NewTimeSlot) (TimeSlot, error) {
	ts := TimeSlot{
		ID:           uuid.NewString(),
		CourseID:     nts.CourseID,
		SemesterID:   nts.SemesterID,
		DayOfWeek:    nts.DayOfWeek,
		StartMinutes: nts.StartMinutes,
		EndMinutes:   nts.EndMinutes,
	}
	return svc.repo.CreateTimeSlot(ctx, ts)
}

func (svc *service) TimeSlots(ctx context.Context, semesterID string, courseIDs ...string) ([]TimeSlot, error) {
	return svc.repo.ListTimeSlots(ctx, semesterID, courseIDs...)
}

func (svc *service) notify(ctx context.Context, userID, kind, title, message string) {
	if err := svc.notifSvc.Notify(ctx, userID, kind, title, message, ""); err != nil {
		svc.logger.Warn("sending notification", errors.Wrap(err, "sending notification"))
	}
}
