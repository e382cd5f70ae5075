package assessment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/chuoapp/chuo/core"
)

// Assessment types
const (
	TypeQuiz       = "quiz"
	TypeAssignment = "assignment"
	TypeTest       = "test"
	TypePractical  = "practical"
)

// Approval statuses (continuous assessment)
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// Moderation statuses (final exam)
const (
	ModerationPending      = "pending"
	ModerationApproved     = "approved"
	ModerationNeedsChanges = "needs_changes"
)

// ContinuousAssessment is one scored piece of in-semester work for a
// (student, course, semester, type, number). The owning lecturer may edit
// it until locked; from then on only admins transition its state.
type ContinuousAssessment struct {
	ID         string  `json:"id" db:"id"`
	StudentID  string  `json:"student_id" db:"student_id"`
	CourseID   string  `json:"course_id" db:"course_id"`
	SemesterID string  `json:"semester_id" db:"semester_id"`
	LecturerID string  `json:"lecturer_id" db:"lecturer_id"`
	Type       string  `json:"type" db:"type"`
	Number     int     `json:"number" db:"number"`
	Score      float64 `json:"score" db:"score"`
	MaxScore   float64 `json:"max_score" db:"max_score"`
	Weight     float64 `json:"weight" db:"weight"`

	LockedAt               null.Time   `json:"locked_at" db:"locked_at"`
	SubmittedForApprovalAt null.Time   `json:"submitted_for_approval_at" db:"submitted_for_approval_at"`
	ApprovalStatus         string      `json:"approval_status" db:"approval_status"`
	ApprovedBy             null.String `json:"approved_by" db:"approved_by"`
	RejectReason           null.String `json:"reject_reason" db:"reject_reason"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// WeightedScore is the contribution of this row to the CA total.
func (ca *ContinuousAssessment) WeightedScore() float64 {
	if ca.MaxScore == 0 {
		return 0
	}
	return ca.Score / ca.MaxScore * ca.Weight
}

func (ca *ContinuousAssessment) IsLocked() bool { return ca.LockedAt.Valid }

// FinalExam is the end-of-semester exam score for a (student, course,
// semester). The score stays invisible to students until published.
type FinalExam struct {
	ID         string  `json:"id" db:"id"`
	StudentID  string  `json:"student_id" db:"student_id"`
	CourseID   string  `json:"course_id" db:"course_id"`
	SemesterID string  `json:"semester_id" db:"semester_id"`
	LecturerID string  `json:"lecturer_id" db:"lecturer_id"`
	Score      float64 `json:"score" db:"score"`
	MaxScore   float64 `json:"max_score" db:"max_score"`

	LockedAt                 null.Time   `json:"locked_at" db:"locked_at"`
	SubmittedForModerationAt null.Time   `json:"submitted_for_moderation_at" db:"submitted_for_moderation_at"`
	ModerationStatus         string      `json:"moderation_status" db:"moderation_status"`
	ModeratedBy              null.String `json:"moderated_by" db:"moderated_by"`
	ModerationNotes          null.String `json:"moderation_notes" db:"moderation_notes"`
	PublishedAt              null.Time   `json:"published_at" db:"published_at"`
	PublishedBy              null.String `json:"published_by" db:"published_by"`

	Version   int       `json:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

func (ex *FinalExam) IsLocked() bool    { return ex.LockedAt.Valid }
func (ex *FinalExam) IsPublished() bool { return ex.PublishedAt.Valid }

// NewContinuousAssessment contains information needed to record a CA score.
type NewContinuousAssessment struct {
	StudentID  string  `json:"student_id" validate:"required,uuid4"`
	CourseID   string  `json:"course_id" validate:"required,uuid4"`
	SemesterID string  `json:"semester_id" validate:"required,uuid4"`
	Type       string  `json:"type" validate:"required,oneof=quiz assignment test practical"`
	Number     int     `json:"number" validate:"required,min=1"`
	Score      float64 `json:"score" validate:"min=0,ltefield=MaxScore"`
	MaxScore   float64 `json:"max_score" validate:"required,gt=0"`
	Weight     float64 `json:"weight" validate:"required,gt=0,max=30"`
}

func (nca *NewContinuousAssessment) Validate() error {
	nca.Type = core.CleanString(nca.Type, true /* lower */)
	return core.Validate.Struct(nca)
}

// NewFinalExam contains information needed to record a final exam score.
type NewFinalExam struct {
	StudentID  string  `json:"student_id" validate:"required,uuid4"`
	CourseID   string  `json:"course_id" validate:"required,uuid4"`
	SemesterID string  `json:"semester_id" validate:"required,uuid4"`
	Score      float64 `json:"score" validate:"min=0,ltefield=MaxScore"`
	MaxScore   float64 `json:"max_score" validate:"required,gt=0,max=70"`
}

func (nfe *NewFinalExam) Validate() error { return core.Validate.Struct(nfe) }

// UpdateScore modifies an unlocked row's score.
type UpdateScore struct {
	Score   float64 `json:"score" validate:"min=0"`
	Version int     `json:"version" validate:"min=0"`
}

func (us UpdateScore) Validate() error { return core.Validate.Struct(us) }

// BulkReport accumulates per-row outcomes of a bulk transition: expected
// precondition failures are collected, not raised.
type BulkReport struct {
	Succeeded int      `json:"succeeded"`
	Errors    []string `json:"errors"`
}
