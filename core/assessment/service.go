package assessment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/grading"
)

var (
	// errors
	ErrCANotFound      = errors.New("continuous assessment not found")
	ErrExamNotFound    = errors.New("final exam not found")
	ErrNotOwner        = errors.New("not the owning lecturer")
	ErrVersionConflict = errors.New("row was modified by someone else, reload and retry")
	ErrRowLocked       = core.NewPreconditionError("scores are locked")
	ErrWeightOverflow  = errors.New("course CA weights cannot exceed the CA total")
)

type (
	CAFilter struct {
		StudentID  string `query:"student_id"`
		CourseID   string `query:"course_id"`
		SemesterID string `query:"semester_id"`
		LecturerID string `query:"lecturer_id"`
		Status     string `query:"status"`
	}

	ExamFilter struct {
		StudentID     string `query:"student_id"`
		CourseID      string `query:"course_id"`
		SemesterID    string `query:"semester_id"`
		LecturerID    string `query:"lecturer_id"`
		Status        string `query:"status"`
		PublishedOnly bool   `query:"published_only"`
	}

	Repository interface {
		CreateCA(ctx context.Context, ca ContinuousAssessment) (ContinuousAssessment, error)
		GetCAByID(ctx context.Context, id string) (ContinuousAssessment, error)
		GetCAsByID(ctx context.Context, ids ...string) ([]ContinuousAssessment, error)
		FilterCAs(ctx context.Context, filter CAFilter) ([]ContinuousAssessment, error)
		// SumCAWeights totals the configured weights over a (student, course,
		// semester), excluding the given row IDs.
		SumCAWeights(ctx context.Context, studentID, courseID, semesterID string, excludedIDs ...string) (float64, error)
		// SaveCA persists the row and bumps Version; a stale Version fails
		// with ErrVersionConflict.
		SaveCA(ctx context.Context, ca ContinuousAssessment) (ContinuousAssessment, error)
		// SaveCAs persists all rows in one transaction.
		SaveCAs(ctx context.Context, cas []ContinuousAssessment) error

		CreateExam(ctx context.Context, ex FinalExam) (FinalExam, error)
		GetExamByID(ctx context.Context, id string) (FinalExam, error)
		GetExamsByID(ctx context.Context, ids ...string) ([]FinalExam, error)
		FilterExams(ctx context.Context, filter ExamFilter) ([]FinalExam, error)
		SaveExam(ctx context.Context, ex FinalExam) (FinalExam, error)
		SaveExams(ctx context.Context, exams []FinalExam) error
	}

	Service interface {
		CreateCA(ctx context.Context, nca NewContinuousAssessment, lecturerID string) (ContinuousAssessment, error)
		GetCA(ctx context.Context, id string) (ContinuousAssessment, error)
		FilterCAs(ctx context.Context, filter CAFilter) ([]ContinuousAssessment, error)
		UpdateCAScore(ctx context.Context, id string, us UpdateScore, actorID string) (ContinuousAssessment, error)
		LockCA(ctx context.Context, id, actorID string) (ContinuousAssessment, error)
		SubmitCAForApproval(ctx context.Context, id, actorID string) (ContinuousAssessment, error)
		ApproveCA(ctx context.Context, id, adminID string) (ContinuousAssessment, error)
		RejectCA(ctx context.Context, id, reason, adminID string) (ContinuousAssessment, error)
		BulkApproveCA(ctx context.Context, ids []string, adminID string) (BulkReport, error)
		BulkRejectCA(ctx context.Context, ids []string, reason, adminID string) (BulkReport, error)

		CreateExam(ctx context.Context, nfe NewFinalExam, lecturerID string) (FinalExam, error)
		GetExam(ctx context.Context, id string) (FinalExam, error)
		FilterExams(ctx context.Context, filter ExamFilter) ([]FinalExam, error)
		UpdateExamScore(ctx context.Context, id string, us UpdateScore, actorID string) (FinalExam, error)
		LockExam(ctx context.Context, id, actorID string) (FinalExam, error)
		SubmitExamForModeration(ctx context.Context, id, actorID string) (FinalExam, error)
		ApproveExamModeration(ctx context.Context, id, adminID string) (FinalExam, error)
		RequestExamChanges(ctx context.Context, id, notes, adminID string) (FinalExam, error)
		PublishExam(ctx context.Context, id, adminID string) (FinalExam, error)
		BulkPublishExams(ctx context.Context, ids []string, adminID string) (BulkReport, error)
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

// Continuous assessment

func (svc *service) CreateCA(ctx context.Context, nca NewContinuousAssessment, lecturerID string) (ContinuousAssessment, error) {
	sum, err := svc.repo.SumCAWeights(ctx, nca.StudentID, nca.CourseID, nca.SemesterID)
	if err != nil {
		return ContinuousAssessment{}, errors.Wrap(err, "summing CA weights")
	}
	if sum+nca.Weight > grading.CAMaxTotal {
		return ContinuousAssessment{}, core.NewValidationError(ErrWeightOverflow,
			core.FieldError{Field: "weight", Error: fmt.Sprintf("total CA weight cannot exceed %.0f", grading.CAMaxTotal)})
	}

	now := nowFunc().UTC()
	ca := ContinuousAssessment{
		ID:             uuid.NewString(),
		StudentID:      nca.StudentID,
		CourseID:       nca.CourseID,
		SemesterID:     nca.SemesterID,
		LecturerID:     lecturerID,
		Type:           nca.Type,
		Number:         nca.Number,
		Score:          nca.Score,
		MaxScore:       nca.MaxScore,
		Weight:         nca.Weight,
		ApprovalStatus: ApprovalPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateCA(ctx, ca)
}

func (svc *service) GetCA(ctx context.Context, id string) (ContinuousAssessment, error) {
	return svc.repo.GetCAByID(ctx, id)
}

func (svc *service) FilterCAs(ctx context.Context, filter CAFilter) ([]ContinuousAssessment, error) {
	return svc.repo.FilterCAs(ctx, filter)
}

func (svc *service) UpdateCAScore(ctx context.Context, id string, us UpdateScore, actorID string) (ContinuousAssessment, error) {
	ca, err := svc.repo.GetCAByID(ctx, id)
	if err != nil {
		return ContinuousAssessment{}, err
	}
	if ca.LecturerID != actorID {
		return ContinuousAssessment{}, ErrNotOwner
	}
	if ca.IsLocked() {
		return ContinuousAssessment{}, ErrRowLocked
	}
	if us.Score > ca.MaxScore {
		return ContinuousAssessment{}, core.NewValidationError(nil,
			core.FieldError{Field: "score", Error: fmt.Sprintf("score cannot exceed max score %.2f", ca.MaxScore)})
	}
	ca.Score = us.Score
	ca.Version = us.Version
	ca.UpdatedAt = nowFunc().UTC()
	return svc.repo.SaveCA(ctx, ca)
}

func (svc *service) LockCA(ctx context.Context, id, actorID string) (ContinuousAssessment, error) {
	ca, err := svc.repo.GetCAByID(ctx, id)
	if err != nil {
		return ContinuousAssessment{}, err
	}
	if ca.LecturerID != actorID {
		return ContinuousAssessment{}, ErrNotOwner
	}
	ca.Lock(actorID)
	ca.UpdatedAt = nowFunc().UTC()
	return svc.repo.SaveCA(ctx, ca)
}

func (svc *service) SubmitCAForApproval(ctx context.Context, id, actorID string) (ContinuousAssessment, error) {
	ca, err := svc.repo.GetCAByID(ctx, id)
	if err != nil {
		return ContinuousAssessment{}, err
	}
	if ca.LecturerID != actorID {
		return ContinuousAssessment{}, ErrNotOwner
	}
	if err := ca.SubmitForApproval(actorID); err != nil {
		return ContinuousAssessment{}, err
	}
	ca.UpdatedAt = nowFunc().UTC()
	return svc.repo.SaveCA(ctx, ca)
}

func (svc *service) ApproveCA(ctx context.Context, id, adminID string) (ContinuousAssessment, error) {
	ca, err := svc.repo.GetCAByID(ctx, id)
	if err != nil {
		return ContinuousAssessment{}, err
	}
	if err := ca.Approve(adminID); err != nil {
		return ContinuousAssessment{}, err
	}
	ca.UpdatedAt = nowFunc().UTC()
	ca, err = svc.repo.SaveCA(ctx, ca)
	if err != nil {
		return ContinuousAssessment{}, err
	}
	svc.afterGradeChange(ctx, ca.StudentID, ca.SemesterID)
	svc.notify(ctx, ca.LecturerID, core.NotifyScoresApproved, "CA scores approved",
		fmt.Sprintf("Continuous assessment %s/%d has been approved.", ca.Type, ca.Number))
	return ca, nil
}

func (svc *service) RejectCA(ctx context.Context, id, reason, adminID string) (ContinuousAssessment, error) {
	ca, err := svc.repo.GetCAByID(ctx, id)
	if err != nil {
		return ContinuousAssessment{}, err
	}
	if err := ca.Reject(reason, adminID); err != nil {
		return ContinuousAssessment{}, err
	}
	ca.UpdatedAt = nowFunc().UTC()
	ca, err = svc.repo.SaveCA(ctx, ca)
	if err != nil {
		return ContinuousAssessment{}, err
	}
	svc.notify(ctx, ca.LecturerID, core.NotifyScoresRejected, "CA scores rejected",
		fmt.Sprintf("Continuous assessment %s/%d was rejected: %s", ca.Type, ca.Number, reason))
	return ca, nil
}

func (svc *service) BulkApproveCA(ctx context.Context, ids []string, adminID string) (BulkReport, error) {
	cas, err := svc.repo.GetCAsByID(ctx, ids...)
	if err != nil {
		return BulkReport{}, err
	}

	var report BulkReport
	saved := make([]ContinuousAssessment, 0, len(cas))
	for _, ca := range cas {
		if err := ca.Approve(adminID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", ca.ID, err))
			continue
		}
		ca.UpdatedAt = nowFunc().UTC()
		saved = append(saved, ca)
	}
	if missing := len(ids) - len(cas); missing > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("%d row(s) not found", missing))
	}

	if len(saved) > 0 {
		if err := svc.repo.SaveCAs(ctx, saved); err != nil {
			return BulkReport{}, err
		}
	}
	report.Succeeded = len(saved)

	for _, ca := range saved {
		svc.afterGradeChange(ctx, ca.StudentID, ca.SemesterID)
		svc.notify(ctx, ca.LecturerID, core.NotifyScoresApproved, "CA scores approved",
			fmt.Sprintf("Continuous assessment %s/%d has been approved.", ca.Type, ca.Number))
	}
	return report, nil
}

func (svc *service) BulkRejectCA(ctx context.Context, ids []string, reason, adminID string) (BulkReport, error) {
	cas, err := svc.repo.GetCAsByID(ctx, ids...)
	if err != nil {
		return BulkReport{}, err
	}

	var report BulkReport
	saved := make([]ContinuousAssessment, 0, len(cas))
	for _, ca := range cas {
		if err := ca.Reject(reason, adminID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", ca.ID, err))
			continue
		}
		ca.UpdatedAt = nowFunc().UTC()
		saved = append(saved, ca)
	}
	if missing := len(ids) - len(cas); missing > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("%d row(s) not found", missing))
	}

	if len(saved) > 0 {
		if err := svc.repo.SaveCAs(ctx, saved); err != nil {
			return BulkReport{}, err
		}
	}
	report.Succeeded = len(saved)

	for _, ca := range saved {
		svc.notify(ctx, ca.LecturerID, core.NotifyScoresRejected, "CA scores rejected",
			fmt.Sprintf("Continuous assessment %s/%d was rejected: %s", ca.Type, ca.Number, reason))
	}
	return report, nil
}

// Final exams

func (svc *service) CreateExam(ctx context.Context, nfe NewFinalExam, lecturerID string) (FinalExam, error) {
	now := nowFunc().UTC()
	ex := FinalExam{
		ID:               uuid.NewString(),
		StudentID:        nfe.StudentID,
		CourseID:         nfe.CourseID,
		SemesterID:       nfe.SemesterID,
		LecturerID:       lecturerID,
		Score:            nfe.Score,
		MaxScore:         nfe.MaxScore,
		ModerationStatus: ModerationPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	return svc.repo.CreateExam(ctx, ex)
}

func (svc *service) GetExam(ctx context.Context, id string) (FinalExam, error) {
	return svc.repo.GetExamByID(ctx, id)
}

func (svc *service) FilterExams(ctx context.Context, filter ExamFilter) ([]FinalExam, error) {
	return svc.repo.FilterExams(ctx, filter)
}

func (svc *service) UpdateExamScore(ctx context.Context, id string, us UpdateScore, actorID string) (FinalExam, error) {
	ex, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return FinalExam{}, err
	}
	if ex.LecturerID != actorID {
		return FinalExam{}, ErrNotOwner
	}
	if ex.IsLocked() {
		return FinalExam{}, ErrRowLocked
	}
	if us.Score > ex.MaxScore {
		return FinalExam{}, core.NewValidationError(nil,
			core.FieldError{Field: "score", Error: fmt.Sprintf("score cannot exceed max score %.2f", ex.MaxScore)})
	}
	ex.Score = us.Score
	ex.Version = us.Version
	ex.UpdatedAt = nowFunc().UTC()
	return svc.repo.SaveExam(ctx, ex)
}

func (svc *service) LockExam(ctx context.Context, id, actorID string) (FinalExam, error) {
	ex, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return FinalExam{}, err
	}
	if ex.LecturerID != actorID {
		return FinalExam{}, ErrNotOwner
	}
	ex.Lock(actorID)
	ex.UpdatedAt = nowFunc().UTC()
	return svc.repo.SaveExam(ctx, ex)
}

func (svc *service) SubmitExamForModeration(ctx context.Context, id, actorID string) (FinalExam, error) {
	ex, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return FinalExam{}, err
	}
	if ex.LecturerID != actorID {
		return FinalExam{}, ErrNotOwner
	}
	if err := ex.SubmitForModeration(actorID); err != nil {
		return FinalExam{}, err
	}
	ex.UpdatedAt = nowFunc().UTC()
	return svc.repo.SaveExam(ctx, ex)
}

func (svc *service) ApproveExamModeration(ctx context.Context, id, adminID string) (FinalExam, error) {
	ex, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return FinalExam{}, err
	}
	if err := ex.ApproveModeration(adminID); err != nil {
		return FinalExam{}, err
	}
	ex.UpdatedAt = nowFunc().UTC()
	return svc.repo.SaveExam(ctx, ex)
}

func (svc *service) RequestExamChanges(ctx context.Context, id, notes, adminID string) (FinalExam, error) {
	ex, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return FinalExam{}, err
	}
	if err := ex.RequestChanges(notes, adminID); err != nil {
		return FinalExam{}, err
	}
	ex.UpdatedAt = nowFunc().UTC()
	ex, err = svc.repo.SaveExam(ctx, ex)
	if err != nil {
		return FinalExam{}, err
	}
	svc.notify(ctx, ex.LecturerID, core.NotifyScoresRejected, "Exam scores need changes",
		fmt.Sprintf("Final exam scores were sent back for changes: %s", notes))
	return ex, nil
}

func (svc *service) PublishExam(ctx context.Context, id, adminID string) (FinalExam, error) {
	ex, err := svc.repo.GetExamByID(ctx, id)
	if err != nil {
		return FinalExam{}, err
	}
	if err := ex.Publish(adminID); err != nil {
		return FinalExam{}, err
	}
	ex.UpdatedAt = nowFunc().UTC()
	ex, err = svc.repo.SaveExam(ctx, ex)
	if err != nil {
		return FinalExam{}, err
	}
	svc.afterGradeChange(ctx, ex.StudentID, ex.SemesterID)
	svc.notify(ctx, ex.StudentID, core.NotifyResultPublished, "Result published",
		"A course result has been published to your transcript.")
	return ex, nil
}

func (svc *service) BulkPublishExams(ctx context.Context, ids []string, adminID string) (BulkReport, error) {
	exams, err := svc.repo.GetExamsByID(ctx, ids...)
	if err != nil {
		return BulkReport{}, err
	}

	var report BulkReport
	saved := make([]FinalExam, 0, len(exams))
	for _, ex := range exams {
		if err := ex.Publish(adminID); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", ex.ID, err))
			continue
		}
		ex.UpdatedAt = nowFunc().UTC()
		saved = append(saved, ex)
	}
	if missing := len(ids) - len(exams); missing > 0 {
		report.Errors = append(report.Errors, fmt.Sprintf("%d row(s) not found", missing))
	}

	if len(saved) > 0 {
		if err := svc.repo.SaveExams(ctx, saved); err != nil {
			return BulkReport{}, err
		}
	}
	report.Succeeded = len(saved)

	for _, ex := range saved {
		svc.afterGradeChange(ctx, ex.StudentID, ex.SemesterID)
		svc.notify(ctx, ex.StudentID, core.NotifyResultPublished, "Result published",
			"A course result has been published to your transcript.")
	}
	return report, nil
}

// afterGradeChange refreshes the cached semester summary; a failed refresh
// only degrades the cache, reads fall back to live computation.
func (svc *service) afterGradeChange(ctx context.Context, studentID, semesterID string) {
	if _, err := svc.gradingSvc.RefreshSummary(ctx, studentID, semesterID); err != nil {
		svc.logger.Warn("refreshing semester summary", errors.Wrap(err, "refreshing semester summary"))
	}
}

func (svc *service) notify(ctx context.Context, userID, kind, title, message string) {
	if err := svc.notifSvc.Notify(ctx, userID, kind, title, message, ""); err != nil {
		svc.logger.Warn("sending notification", errors.Wrap(err, "sending notification"))
	}
}
