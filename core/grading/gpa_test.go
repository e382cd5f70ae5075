package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSemesterGPA(t *testing.T) {
	tests := []struct {
		name    string
		results []CourseResult
		want    float64
	}{
		{name: "no courses", results: nil, want: 0.0},
		{name: "zero credits", results: []CourseResult{{GradePoint: 4, CreditUnits: 0}}, want: 0.0},
		{
			name: "weighted average",
			results: []CourseResult{
				{GradePoint: 4.0, CreditUnits: 3},
				{GradePoint: 3.0, CreditUnits: 2},
			},
			want: 3.60,
		},
		{name: "single course", results: []CourseResult{{GradePoint: 5, CreditUnits: 4}}, want: 5.0},
		{
			name: "rounding to 2 places",
			results: []CourseResult{
				{GradePoint: 5, CreditUnits: 1},
				{GradePoint: 4, CreditUnits: 1},
				{GradePoint: 4, CreditUnits: 1},
			},
			want: 4.33,
		},
		{
			name: "all failed",
			results: []CourseResult{
				{GradePoint: 0, CreditUnits: 3},
				{GradePoint: 0, CreditUnits: 3},
			},
			want: 0.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SemesterGPA(tt.results))
		})
	}
}

func TestSortRankings(t *testing.T) {
	rankings := []Ranking{
		{StudentID: "s3", CumulativeGPA: 3.2},
		{StudentID: "s2", CumulativeGPA: 4.5},
		{StudentID: "s1", CumulativeGPA: 3.2},
		{StudentID: "s4", CumulativeGPA: 0.0},
	}
	SortRankings(rankings)

	wantOrder := []string{"s2", "s1", "s3", "s4"} // ties broken by student ID ascending
	for i, want := range wantOrder {
		assert.Equal(t, want, rankings[i].StudentID)
		assert.Equal(t, i+1, rankings[i].Position)
	}
}
