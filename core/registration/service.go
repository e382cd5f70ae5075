package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/grading"
)

var (
	// errors
	ErrNotFound        = errors.New("registration not found")
	ErrProgramNotFound = errors.New("program not found")

	errNotBlocked     = core.NewPreconditionError("registration is not blocked")
	errAlreadyBlocked = core.NewPreconditionError("registration is already blocked")
)

var nowFunc = time.Now // mockable

type (
	Repository interface {
		// GetRegistration fails with ErrNotFound when the student has no
		// row for the semester yet.
		GetRegistration(ctx context.Context, studentID, semesterID string) (Registration, error)
		CreateRegistration(ctx context.Context, reg Registration) (Registration, error)
		// SaveRegistrationWithAudit persists the change and appends the
		// audit row in one transaction.
		SaveRegistrationWithAudit(ctx context.Context, reg Registration, entry AuditEntry) (Registration, error)
		ListAuditEntries(ctx context.Context, registrationID string) ([]AuditEntry, error)

		GetInsuranceConfig(ctx context.Context) (InsuranceConfig, error)
		SetInsuranceConfig(ctx context.Context, cfg InsuranceConfig) error
		// GetProgramForStudent loads the student's program with its
		// requirements.
		GetProgramForStudent(ctx context.Context, studentID string) (Program, error)
		ListCompletedCourses(ctx context.Context, studentID string) ([]CompletedCourse, error)
		ListRequestedCourses(ctx context.Context, studentID, semesterID string) ([]RequestedCourse, error)
	}

	Service interface {
		Get(ctx context.Context, studentID, semesterID string) (Registration, error)
		Block(ctx context.Context, studentID, semesterID, reason, adminID string) (Registration, error)
		Unblock(ctx context.Context, studentID, semesterID, adminID string) (Registration, error)
		Override(ctx context.Context, studentID, semesterID, reason, adminID string) (Registration, error)
		VerifyFees(ctx context.Context, studentID, semesterID, adminID string) (Registration, error)
		VerifyInsurance(ctx context.Context, studentID, semesterID, adminID string) (Registration, error)
		AuditTrail(ctx context.Context, studentID, semesterID string) ([]AuditEntry, error)
		SetInsuranceConfig(ctx context.Context, nic NewInsuranceConfig) (InsuranceConfig, error)

		// CanRegister runs every eligibility check and accumulates the
		// failures; it never stops at the first one.
		CanRegister(ctx context.Context, studentID, semesterID string) (Decision, error)
	}

	service struct {
		repo       Repository
		gradingSvc grading.Service
		enrollSvc  enrollment.Service
		notifSvc   core.NotificationService
		logger     core.Logger
	}
)

var _ Service = (*service)(nil)

func NewService(
	repo Repository,
	gradingSvc grading.Service,
	enrollSvc enrollment.Service,
	notifSvc core.NotificationService,
	logger core.Logger,
) Service {
	return &service{
		repo:       repo,
		gradingSvc: gradingSvc,
		enrollSvc:  enrollSvc,
		notifSvc:   notifSvc,
		logger:     logger,
	}
}

func (svc *service) Get(ctx context.Context, studentID, semesterID string) (Registration, error) {
	return svc.repo.GetRegistration(ctx, studentID, semesterID)
}

// getOrCreate returns the student's registration row for the semester,
// creating an empty one on first touch.
func (svc *service) getOrCreate(ctx context.Context, studentID, semesterID string) (Registration, error) {
	reg, err := svc.repo.GetRegistration(ctx, studentID, semesterID)
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Registration{}, err
	}

	now := nowFunc().UTC()
	reg = Registration{
		ID:         uuid.NewString(),
		StudentID:  studentID,
		SemesterID: semesterID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateRegistration(ctx, reg)
}

func (svc *service) Block(ctx context.Context, studentID, semesterID, reason, adminID string) (Registration, error) {
	reg, err := svc.getOrCreate(ctx, studentID, semesterID)
	if err != nil {
		return Registration{}, err
	}
	if reg.RegistrationBlocked {
		return Registration{}, errAlreadyBlocked
	}

	reg.RegistrationBlocked = true
	reg.BlockOverridden = false
	reg.BlockReason = null.StringFrom(reason)
	reg.OverrideReason = null.String{}
	reg, err = svc.save(ctx, reg, ActionBlock, reason, adminID)
	if err != nil {
		return Registration{}, err
	}
	svc.notify(ctx, reg.StudentID, core.NotifyRegistrationBlock, "Registration blocked",
		fmt.Sprintf("Your semester registration has been blocked: %s", reason))
	return reg, nil
}

func (svc *service) Unblock(ctx context.Context, studentID, semesterID, adminID string) (Registration, error) {
	reg, err := svc.repo.GetRegistration(ctx, studentID, semesterID)
	if err != nil {
		return Registration{}, err
	}
	if !reg.RegistrationBlocked {
		return Registration{}, errNotBlocked
	}

	reg.RegistrationBlocked = false
	reg.BlockOverridden = false
	reg.BlockReason = null.String{}
	reg.OverrideReason = null.String{}
	return svc.save(ctx, reg, ActionUnblock, "", adminID)
}

// Override leaves the block in place but stops it from gating the student.
func (svc *service) Override(ctx context.Context, studentID, semesterID, reason, adminID string) (Registration, error) {
	reg, err := svc.repo.GetRegistration(ctx, studentID, semesterID)
	if err != nil {
		return Registration{}, err
	}
	if !reg.RegistrationBlocked {
		return Registration{}, errNotBlocked
	}

	reg.BlockOverridden = true
	reg.OverrideReason = null.StringFrom(reason)
	return svc.save(ctx, reg, ActionOverride, reason, adminID)
}

func (svc *service) VerifyFees(ctx context.Context, studentID, semesterID, adminID string) (Registration, error) {
	reg, err := svc.getOrCreate(ctx, studentID, semesterID)
	if err != nil {
		return Registration{}, err
	}
	reg.FeesVerified = true
	return svc.save(ctx, reg, ActionVerifyFees, "", adminID)
}

func (svc *service) VerifyInsurance(ctx context.Context, studentID, semesterID, adminID string) (Registration, error) {
	reg, err := svc.getOrCreate(ctx, studentID, semesterID)
	if err != nil {
		return Registration{}, err
	}
	reg.InsuranceVerified = true
	return svc.save(ctx, reg, ActionVerifyInsurance, "", adminID)
}

func (svc *service) save(ctx context.Context, reg Registration, action, reason, actorID string) (Registration, error) {
	now := nowFunc().UTC()
	entry := AuditEntry{
		ID:             uuid.NewString(),
		RegistrationID: reg.ID,
		Action:         action,
		ActorID:        actorID,
		CreatedAt:      now,
	}
	if reason != "" {
		entry.Reason = null.StringFrom(reason)
	}
	reg.UpdatedAt = now
	return svc.repo.SaveRegistrationWithAudit(ctx, reg, entry)
}

func (svc *service) AuditTrail(ctx context.Context, studentID, semesterID string) ([]AuditEntry, error) {
	reg, err := svc.repo.GetRegistration(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	return svc.repo.ListAuditEntries(ctx, reg.ID)
}

func (svc *service) SetInsuranceConfig(ctx context.Context, nic NewInsuranceConfig) (InsuranceConfig, error) {
	cfg := InsuranceConfig{
		Requirement:        nic.Requirement,
		BlocksRegistration: nic.BlocksRegistration,
	}
	if err := svc.repo.SetInsuranceConfig(ctx, cfg); err != nil {
		return InsuranceConfig{}, err
	}
	return cfg, nil
}

func (svc *service) CanRegister(ctx context.Context, studentID, semesterID string) (Decision, error) {
	var reasons []string

	program, err := svc.repo.GetProgramForStudent(ctx, studentID)
	if err != nil {
		return Decision{}, errors.Wrap(err, "loading program")
	}
	completed, err := svc.repo.ListCompletedCourses(ctx, studentID)
	if err != nil {
		return Decision{}, errors.Wrap(err, "loading completed courses")
	}
	requested, err := svc.repo.ListRequestedCourses(ctx, studentID, semesterID)
	if err != nil {
		return Decision{}, errors.Wrap(err, "loading requested courses")
	}

	completedIDs := make(map[string]bool, len(completed))
	completedUnits := 0
	for _, cc := range completed {
		completedIDs[cc.CourseID] = true
		completedUnits += cc.CreditUnits
	}

	// credit threshold
	if completedUnits < program.CreditThreshold {
		reasons = append(reasons, fmt.Sprintf(
			"completed credit units %d below the required %d", completedUnits, program.CreditThreshold))
	}

	// CGPA minimum
	if program.MinCGPA.Valid {
		cgpa, err := svc.gradingSvc.CumulativeGPA(ctx, studentID)
		if err != nil {
			return Decision{}, errors.Wrap(err, "computing CGPA")
		}
		if cgpa < program.MinCGPA.Float64 {
			reasons = append(reasons, fmt.Sprintf(
				"CGPA %.2f below the program minimum %.2f", cgpa, program.MinCGPA.Float64))
		}
	}

	// mandatory program requirements
	for _, req := range program.Requirements {
		if req.Mandatory && !completedIDs[req.CourseID] {
			reasons = append(reasons, fmt.Sprintf(
				"mandatory %s course %s not completed", req.Type, req.CourseCode))
		}
	}

	// required prerequisites of every requested course
	for _, rc := range requested {
		prereqs, err := svc.enrollSvc.Prerequisites(ctx, rc.CourseID)
		if err != nil {
			return Decision{}, errors.Wrapf(err, "loading prerequisites for %s", rc.CourseCode)
		}
		for _, pre := range prereqs {
			if pre.Blocks() && !completedIDs[pre.RequiredCourseID] {
				reasons = append(reasons, fmt.Sprintf(
					"prerequisite of %s not completed", rc.CourseCode))
			}
		}
	}

	// timetable conflicts among requested courses
	reasons = append(reasons, svc.timetableConflicts(ctx, semesterID, requested)...)

	// administrative block
	reg, err := svc.repo.GetRegistration(ctx, studentID, semesterID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Decision{}, err
	}
	if err == nil && reg.IsBlocked() {
		reasons = append(reasons, fmt.Sprintf(
			"registration blocked by administration: %s", reg.BlockReason.String))
	}

	// fees
	if err != nil || !reg.FeesVerified {
		reasons = append(reasons, "fee payment not verified")
	}

	// insurance
	cfg, cfgErr := svc.repo.GetInsuranceConfig(ctx)
	if cfgErr != nil {
		return Decision{}, errors.Wrap(cfgErr, "loading insurance config")
	}
	if cfg.IsBlocking() && (err != nil || !reg.InsuranceVerified) {
		reasons = append(reasons, "mandatory health insurance not verified")
	}

	return Decision{Eligible: len(reasons) == 0, Reasons: reasons}, nil
}

func (svc *service) timetableConflicts(ctx context.Context, semesterID string, requested []RequestedCourse) []string {
	if len(requested) < 2 {
		return nil
	}
	courseIDs := make([]string, 0, len(requested))
	codeByID := make(map[string]string, len(requested))
	for _, rc := range requested {
		courseIDs = append(courseIDs, rc.CourseID)
		codeByID[rc.CourseID] = rc.CourseCode
	}

	slots, err := svc.enrollSvc.TimeSlots(ctx, semesterID, courseIDs...)
	if err != nil {
		// a failed lookup must not wave the student through silently
		svc.logger.Warn("loading timetable", errors.Wrap(err, "loading timetable"))
		return []string{"timetable could not be checked"}
	}

	var reasons []string
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if slots[i].CourseID == slots[j].CourseID {
				continue
			}
			if slots[i].Overlaps(slots[j]) {
				reasons = append(reasons, fmt.Sprintf(
					"timetable conflict between %s and %s",
					codeByID[slots[i].CourseID], codeByID[slots[j].CourseID]))
			}
		}
	}
	return reasons
}

func (svc *service) notify(ctx context.Context, userID, kind, title, message string) {
	if err := svc.notifSvc.Notify(ctx, userID, kind, title, message, ""); err != nil {
		svc.logger.Warn("sending notification", errors.Wrap(err, "sending notification"))
	}
}
