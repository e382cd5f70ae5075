package registration

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/chuoapp/chuo/core"
)

// Audit actions
const (
	ActionBlock           = "block"
	ActionUnblock         = "unblock"
	ActionOverride        = "override"
	ActionVerifyFees      = "verify_fees"
	ActionVerifyInsurance = "verify_insurance"
)

// Insurance requirement levels
const (
	InsuranceOptional    = "optional"
	InsuranceRecommended = "recommended"
	InsuranceMandatory   = "mandatory"
)

// Program requirement types
const (
	RequirementCore       = "core"
	RequirementMajor      = "major"
	RequirementMinor      = "minor"
	RequirementElective   = "elective"
	RequirementGeneralEdu = "general_education"
)

// Registration is the per-(student, semester) administrative aggregate the
// eligibility gate consults.
type Registration struct {
	ID                  string      `json:"id" db:"id"`
	StudentID           string      `json:"student_id" db:"student_id"`
	SemesterID          string      `json:"semester_id" db:"semester_id"`
	FeesVerified        bool        `json:"fees_verified" db:"fees_verified"`
	InsuranceVerified   bool        `json:"insurance_verified" db:"insurance_verified"`
	RegistrationBlocked bool        `json:"registration_blocked" db:"registration_blocked"`
	BlockOverridden     bool        `json:"block_overridden" db:"block_overridden"`
	BlockReason         null.String `json:"block_reason" db:"block_reason"`
	OverrideReason      null.String `json:"override_reason" db:"override_reason"`
	CreatedAt           time.Time   `json:"created_at" db:"created_at"` // UTC
	UpdatedAt           time.Time   `json:"updated_at" db:"updated_at"` // UTC
}

// IsBlocked reports whether the administrative block currently applies.
func (r *Registration) IsBlocked() bool {
	return r.RegistrationBlocked && !r.BlockOverridden
}

// AuditEntry records one admin action on a registration. Rows are
// append-only, never updated or deleted.
type AuditEntry struct {
	ID             string      `json:"id" db:"id"`
	RegistrationID string      `json:"registration_id" db:"registration_id"`
	Action         string      `json:"action" db:"action"`
	ActorID        string      `json:"actor_id" db:"actor_id"`
	Reason         null.String `json:"reason" db:"reason"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"` // UTC
}

// InsuranceConfig is the institution-wide health insurance policy.
type InsuranceConfig struct {
	Requirement        string `json:"requirement" db:"requirement"`
	BlocksRegistration bool   `json:"blocks_registration" db:"blocks_registration"`
}

// IsBlocking reports whether missing insurance keeps a student from
// registering.
func (c InsuranceConfig) IsBlocking() bool {
	return c.Requirement == InsuranceMandatory && c.BlocksRegistration
}

// Program is a degree program with its progression rules.
type Program struct {
	ID              string       `json:"id" db:"id"`
	Name            string       `json:"name" db:"name"`
	MinCGPA         null.Float64 `json:"min_cgpa" db:"min_cgpa"`
	CreditThreshold int          `json:"credit_threshold" db:"credit_threshold"`

	Requirements []ProgramRequirement `json:"requirements" db:"-"`
}

// ProgramRequirement names one course a program requires. Only mandatory
// requirements block registration.
type ProgramRequirement struct {
	ID         string `json:"id" db:"id"`
	ProgramID  string `json:"program_id" db:"program_id"`
	CourseID   string `json:"course_id" db:"course_id"`
	CourseCode string `json:"course_code" db:"course_code"`
	Type       string `json:"type" db:"type"`
	Mandatory  bool   `json:"mandatory" db:"mandatory"`
}

// CompletedCourse is a course the student passed in a prior semester.
type CompletedCourse struct {
	CourseID    string `json:"course_id" db:"course_id"`
	CourseCode  string `json:"course_code" db:"course_code"`
	CreditUnits int    `json:"credit_units" db:"credit_units"`
}

// RequestedCourse is a course the student wants for the semester being
// registered (a pending or active enrollment).
type RequestedCourse struct {
	CourseID   string `json:"course_id" db:"course_id"`
	CourseCode string `json:"course_code" db:"course_code"`
}

// Decision is the gate's verdict. Reasons lists every failed check, an
// empty list means eligible.
type Decision struct {
	Eligible bool     `json:"eligible"`
	Reasons  []string `json:"reasons"`
}

// NewInsuranceConfig contains information needed to set the insurance policy.
type NewInsuranceConfig struct {
	Requirement        string `json:"requirement" validate:"required,oneof=optional recommended mandatory"`
	BlocksRegistration bool   `json:"blocks_registration"`
}

func (nic *NewInsuranceConfig) Validate() error {
	nic.Requirement = core.CleanString(nic.Requirement, true /* lower */)
	return core.Validate.Struct(nic)
}
