package grading

import (
	"math"
	"sort"
)

// CourseResult is the (grade point, credit units) pair GPA aggregation
// consumes; where it came from (live computation or a stored summary) is
// the caller's concern.
type CourseResult struct {
	GradePoint  float64 `json:"grade_point"`
	CreditUnits int     `json:"credit_units"`
}

// Ranking is one row of a CGPA ranking.
type Ranking struct {
	StudentID     string  `json:"student_id"`
	CumulativeGPA float64 `json:"cumulative_gpa"`
	Position      int     `json:"position"`
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// SemesterGPA computes the credit-weighted GPA over the given results,
// rounded to 2 decimal places. Zero total credits yields 0.0.
func SemesterGPA(results []CourseResult) float64 {
	var points float64
	var units int
	for _, res := range results {
		points += res.GradePoint * float64(res.CreditUnits)
		units += res.CreditUnits
	}
	if units == 0 {
		return 0.0
	}
	return round2(points / float64(units))
}

// TotalUnits sums the credit units over the given results.
func TotalUnits(results []CourseResult) int {
	var units int
	for _, res := range results {
		units += res.CreditUnits
	}
	return units
}

// SortRankings orders rankings by CGPA descending, ties broken by student ID
// ascending, and assigns 1-based positions.
func SortRankings(rankings []Ranking) {
	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].CumulativeGPA != rankings[j].CumulativeGPA {
			return rankings[i].CumulativeGPA > rankings[j].CumulativeGPA
		}
		return rankings[i].StudentID < rankings[j].StudentID
	})
	for i := range rankings {
		rankings[i].Position = i + 1
	}
}
