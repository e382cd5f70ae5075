package grading

import (
	"time"
)

// Scoring scheme: continuous assessment contributes up to 30 of the total
// course score, the final exam the remaining 70.
const (
	CAMaxTotal   = 30.0
	ExamMaxScore = 70.0
)

// Semester standing derived from the semester GPA.
const (
	StatusGoodStanding = "good_standing"
	StatusProbation    = "probation"
)

// CourseGrade is the computed grade for one (student, course, semester).
// Only approved CA rows and published exam rows contribute.
type CourseGrade struct {
	StudentID   string  `json:"student_id"`
	CourseID    string  `json:"course_id"`
	SemesterID  string  `json:"semester_id"`
	CATotal     float64 `json:"ca_total"`
	ExamScore   float64 `json:"exam_score"`
	TotalScore  float64 `json:"total_score"`
	Letter      string  `json:"letter"`
	GradePoint  float64 `json:"grade_point"`
	IsPassing   bool    `json:"is_passing"`
	CreditUnits int     `json:"credit_units"`
}

// EnrolledCourse is what the grade computation needs to know about one
// completed or active enrollment.
type EnrolledCourse struct {
	CourseID    string `json:"course_id" db:"course_id"`
	CourseCode  string `json:"course_code" db:"course_code"`
	SemesterID  string `json:"semester_id" db:"semester_id"`
	CreditUnits int    `json:"credit_units" db:"credit_units"`
}

// SemesterSummary is the denormalized per-(student, semester) cache of the
// GPA figures. It is never authoritative: it is recomputed on every
// grade-affecting write and read paths fall back to live computation.
type SemesterSummary struct {
	ID             string    `json:"id" db:"id"`
	StudentID      string    `json:"student_id" db:"student_id"`
	SemesterID     string    `json:"semester_id" db:"semester_id"`
	SemesterGPA    float64   `json:"semester_gpa" db:"semester_gpa"`
	CumulativeGPA  float64   `json:"cumulative_gpa" db:"cumulative_gpa"`
	TotalUnits     int       `json:"total_units" db:"total_units"`
	SemesterStatus string    `json:"semester_status" db:"semester_status"`
	ComputedAt     time.Time `json:"computed_at" db:"computed_at"` // UTC
}

// TranscriptEntry is one course line of a student transcript.
type TranscriptEntry struct {
	SemesterID  string  `json:"semester_id"`
	CourseID    string  `json:"course_id"`
	CourseCode  string  `json:"course_code"`
	CreditUnits int     `json:"credit_units"`
	CATotal     float64 `json:"ca_total"`
	ExamScore   float64 `json:"exam_score"`
	TotalScore  float64 `json:"total_score"`
	Letter      string  `json:"letter"`
	GradePoint  float64 `json:"grade_point"`
}

// Transcript groups a student's published results with the running figures.
type Transcript struct {
	StudentID     string            `json:"student_id"`
	Entries       []TranscriptEntry `json:"entries"`
	CumulativeGPA float64           `json:"cumulative_gpa"`
	TotalUnits    int               `json:"total_units"`
}
