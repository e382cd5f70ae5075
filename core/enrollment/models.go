package enrollment

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/chuoapp/chuo/core"
)

// Enrollment statuses
const (
	StatusPendingApproval = "pending_approval"
	StatusActive          = "active"
	StatusRejected        = "rejected"
	StatusCompleted       = "completed"
	StatusWithdrawn       = "withdrawn"
)

// Prerequisite kinds. Only a required prerequisite blocks registration.
const (
	KindRequired    = "required"
	KindRecommended = "recommended"
	KindCorequisite = "corequisite"
)

// Audit actions
const (
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionComplete = "complete"
	ActionWithdraw = "withdraw"
)

// Course is a catalog row.
type Course struct {
	ID          string    `json:"id" db:"id"`
	Code        string    `json:"code" db:"code"`
	Title       string    `json:"title" db:"title"`
	CreditUnits int       `json:"credit_units" db:"credit_units"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Enrollment ties a student to a course for a semester.
type Enrollment struct {
	ID               string      `json:"id" db:"id"`
	StudentID        string      `json:"student_id" db:"student_id"`
	CourseID         string      `json:"course_id" db:"course_id"`
	SemesterID       string      `json:"semester_id" db:"semester_id"`
	Status           string      `json:"status" db:"status"`
	RequiresApproval bool        `json:"requires_approval" db:"requires_approval"`
	RejectReason     null.String `json:"reject_reason" db:"reject_reason"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt        time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

func (e *Enrollment) IsPending() bool { return e.Status == StatusPendingApproval }
func (e *Enrollment) IsActive() bool  { return e.Status == StatusActive }

// AuditEntry records one admin transition on an enrollment. Rows are
// append-only, never updated or deleted.
type AuditEntry struct {
	ID           string      `json:"id" db:"id"`
	EnrollmentID string      `json:"enrollment_id" db:"enrollment_id"`
	Action       string      `json:"action" db:"action"`
	ActorID      string      `json:"actor_id" db:"actor_id"`
	OldStatus    string      `json:"old_status" db:"old_status"`
	NewStatus    string      `json:"new_status" db:"new_status"`
	Reason       null.String `json:"reason" db:"reason"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"` // UTC
}

// Prerequisite declares that taking Course requires (or suggests) having
// completed RequiredCourse first.
type Prerequisite struct {
	ID               string `json:"id" db:"id"`
	CourseID         string `json:"course_id" db:"course_id"`
	RequiredCourseID string `json:"required_course_id" db:"required_course_id"`
	Kind             string `json:"kind" db:"kind"`
}

// Blocks reports whether an unmet prerequisite prevents registration.
func (p *Prerequisite) Blocks() bool { return p.Kind == KindRequired }

// TimeSlot is one weekly timetable block for a course offering.
type TimeSlot struct {
	ID           string `json:"id" db:"id"`
	CourseID     string `json:"course_id" db:"course_id"`
	SemesterID   string `json:"semester_id" db:"semester_id"`
	DayOfWeek    int    `json:"day_of_week" db:"day_of_week"` // time.Weekday
	StartMinutes int    `json:"start_minutes" db:"start_minutes"`
	EndMinutes   int    `json:"end_minutes" db:"end_minutes"`
}

// Overlaps is an inclusive interval test: back-to-back slots sharing a
// boundary minute conflict.
func (ts *TimeSlot) Overlaps(other TimeSlot) bool {
	if ts.DayOfWeek != other.DayOfWeek {
		return false
	}
	return ts.StartMinutes <= other.EndMinutes && other.StartMinutes <= ts.EndMinutes
}

// NewCourse contains information needed to add a catalog row.
type NewCourse struct {
	Code        string `json:"code" validate:"required,alphanum_,max=16"`
	Title       string `json:"title" validate:"required,max=255"`
	CreditUnits int    `json:"credit_units" validate:"required,min=1,max=12"`
}

func (nc *NewCourse) Validate() error {
	nc.Code = core.CleanString(nc.Code, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	return core.Validate.Struct(nc)
}

// NewEnrollment contains information needed to enroll a student.
type NewEnrollment struct {
	StudentID        string `json:"student_id" validate:"required,uuid4"`
	CourseID         string `json:"course_id" validate:"required,uuid4"`
	SemesterID       string `json:"semester_id" validate:"required,uuid4"`
	RequiresApproval bool   `json:"requires_approval"`
}

func (ne *NewEnrollment) Validate() error { return core.Validate.Struct(ne) }

// NewPrerequisite contains information needed to declare a prerequisite.
type NewPrerequisite struct {
	CourseID         string `json:"course_id" validate:"required,uuid4"`
	RequiredCourseID string `json:"required_course_id" validate:"required,uuid4,necsfield=CourseID"`
	Kind             string `json:"kind" validate:"required,oneof=required recommended corequisite"`
}

func (np *NewPrerequisite) Validate() error {
	np.Kind = core.CleanString(np.Kind, true /* lower */)
	return core.Validate.Struct(np)
}

// NewTimeSlot contains information needed to add a timetable block.
type NewTimeSlot struct {
	CourseID     string `json:"course_id" validate:"required,uuid4"`
	SemesterID   string `json:"semester_id" validate:"required,uuid4"`
	DayOfWeek    int    `json:"day_of_week" validate:"min=0,max=6"`
	StartMinutes int    `json:"start_minutes" validate:"min=0,max=1439"`
	EndMinutes   int    `json:"end_minutes" validate:"max=1439,gtfield=StartMinutes"`
}

func (nts *NewTimeSlot) Validate() error { return core.Validate.Struct(nts) }
