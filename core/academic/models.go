package academic

import (
	"time"

	"github.com/chuoapp/chuo/core"
)

type AcademicYear struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"` // e.g. "2025/2026"
	StartDate time.Time `json:"start_date" db:"start_date"`
	EndDate   time.Time `json:"end_date" db:"end_date"`
	IsActive  bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// Semester belongs to an AcademicYear; at most one Semester is current at a
// time and every other module resolves "current semester" through it.
type Semester struct {
	ID             string    `json:"id" db:"id"`
	AcademicYearID string    `json:"academic_year_id" db:"academic_year_id"`
	Name           string    `json:"name" db:"name"` // e.g. "2025-2"
	Number         int       `json:"number" db:"number"`
	StartDate      time.Time `json:"start_date" db:"start_date"`
	EndDate        time.Time `json:"end_date" db:"end_date"`
	IsCurrent      bool      `json:"is_current" db:"is_current"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"` // UTC
}

// NewSemester contains information needed to create a new Semester.
type NewSemester struct {
	AcademicYearID string    `json:"academic_year_id" validate:"required,uuid4"`
	Name           string    `json:"name" validate:"required"`
	Number         int       `json:"number" validate:"required,min=1,max=3"`
	StartDate      time.Time `json:"start_date" validate:"required"`
	EndDate        time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
}

func (ns *NewSemester) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	return core.Validate.Struct(ns)
}
