package grading

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// repoStub serves canned CA totals, exam scores and enrollments.
type repoStub struct {
	scale     Scale
	caTotals  map[string]float64 // key: student|course|semester
	examRows  map[string]float64
	completed map[string][]EnrolledCourse
	semester  map[string][]EnrolledCourse // key: student|semester
	summaries map[string]SemesterSummary  // key: student (latest)
	upserted  []SemesterSummary
}

func key(parts ...string) string {
	k := parts[0]
	for _, p := range parts[1:] {
		k += "|" + p
	}
	return k
}

func (r *repoStub) GetScale(ctx context.Context) (Scale, error) { return r.scale, nil }
func (r *repoStub) ReplaceScale(ctx context.Context, scale Scale) error {
	r.scale = scale
	return nil
}

func (r *repoStub) GetApprovedCATotal(ctx context.Context, studentID, courseID, semesterID string) (float64, error) {
	return r.caTotals[key(studentID, courseID, semesterID)], nil
}

func (r *repoStub) GetPublishedExamScore(ctx context.Context, studentID, courseID, semesterID string) (float64, bool, error) {
	score, ok := r.examRows[key(studentID, courseID, semesterID)]
	return score, ok, nil
}

func (r *repoStub) ListCompletedCourses(ctx context.Context, studentID string) ([]EnrolledCourse, error) {
	return r.completed[studentID], nil
}

func (r *repoStub) ListSemesterCourses(ctx context.Context, studentID, semesterID string) ([]EnrolledCourse, error) {
	return r.semester[key(studentID, semesterID)], nil
}

func (r *repoStub) GetSummary(ctx context.Context, studentID, semesterID string) (SemesterSummary, error) {
	return SemesterSummary{}, ErrSummaryNotFound
}

func (r *repoStub) GetLatestSummary(ctx context.Context, studentID string) (SemesterSummary, error) {
	if s, ok := r.summaries[studentID]; ok {
		return s, nil
	}
	return SemesterSummary{}, ErrSummaryNotFound
}

func (r *repoStub) UpsertSummary(ctx context.Context, summary SemesterSummary) (SemesterSummary, error) {
	r.upserted = append(r.upserted, summary)
	return summary, nil
}

func newRepoStub() *repoStub {
	return &repoStub{
		scale:     DefaultScale(),
		caTotals:  make(map[string]float64),
		examRows:  make(map[string]float64),
		completed: make(map[string][]EnrolledCourse),
		semester:  make(map[string][]EnrolledCourse),
		summaries: make(map[string]SemesterSummary),
	}
}

func TestServiceCourseGrade(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		caTotal    float64
		examScore  float64
		hasExam    bool
		wantTotal  float64
		wantLetter string
		wantPoint  float64
	}{
		{name: "straight A", caTotal: 28, examScore: 60, hasExam: true, wantTotal: 88, wantLetter: "A", wantPoint: 5},
		{name: "boundary B", caTotal: 25, examScore: 44, hasExam: true, wantTotal: 69, wantLetter: "B", wantPoint: 4},
		{name: "fail", caTotal: 10, examScore: 20, hasExam: true, wantTotal: 30, wantLetter: "F", wantPoint: 0},
		{name: "no published exam counts as 0", caTotal: 30, wantTotal: 30, wantLetter: "F", wantPoint: 0},
		{name: "CA capped at 30", caTotal: 42, examScore: 40, hasExam: true, wantTotal: 70, wantLetter: "A", wantPoint: 5},
		{name: "exam capped at 70", caTotal: 20, examScore: 75, hasExam: true, wantTotal: 90, wantLetter: "A", wantPoint: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newRepoStub()
			repo.caTotals[key("s1", "c1", "sem1")] = tt.caTotal
			if tt.hasExam {
				repo.examRows[key("s1", "c1", "sem1")] = tt.examScore
			}
			svc := NewService(repo)

			cg, err := svc.CourseGrade(ctx, "s1", "c1", "sem1")
			assert.NoError(t, err)
			assert.Equal(t, tt.wantTotal, cg.TotalScore)
			assert.Equal(t, tt.wantLetter, cg.Letter)
			assert.Equal(t, tt.wantPoint, cg.GradePoint)
		})
	}
}

func TestServiceStudentSemesterGPA(t *testing.T) {
	ctx := context.Background()
	repo := newRepoStub()
	repo.semester[key("s1", "sem1")] = []EnrolledCourse{
		{CourseID: "c1", CourseCode: "MTH101", SemesterID: "sem1", CreditUnits: 3},
		{CourseID: "c2", CourseCode: "PHY101", SemesterID: "sem1", CreditUnits: 2},
	}
	// MTH101: 25 + 40 = 65 -> B (4); PHY101: 20 + 35 = 55 -> C (3)
	repo.caTotals[key("s1", "c1", "sem1")] = 25
	repo.examRows[key("s1", "c1", "sem1")] = 40
	repo.caTotals[key("s1", "c2", "sem1")] = 20
	repo.examRows[key("s1", "c2", "sem1")] = 35

	svc := NewService(repo)
	gpa, err := svc.StudentSemesterGPA(ctx, "s1", "sem1")
	assert.NoError(t, err)
	assert.Equal(t, 3.60, gpa)
}

func TestServiceRefreshSummary(t *testing.T) {
	ctx := context.Background()
	repo := newRepoStub()
	courses := []EnrolledCourse{
		{CourseID: "c1", CourseCode: "MTH101", SemesterID: "sem1", CreditUnits: 3},
	}
	repo.semester[key("s1", "sem1")] = courses
	repo.completed["s1"] = courses
	repo.caTotals[key("s1", "c1", "sem1")] = 30
	repo.examRows[key("s1", "c1", "sem1")] = 55 // 85 -> A (5)

	svc := NewService(repo)
	summary, err := svc.RefreshSummary(ctx, "s1", "sem1")
	assert.NoError(t, err)
	assert.Equal(t, 5.0, summary.SemesterGPA)
	assert.Equal(t, 5.0, summary.CumulativeGPA)
	assert.Equal(t, 3, summary.TotalUnits)
	assert.Equal(t, StatusGoodStanding, summary.SemesterStatus)
	assert.Len(t, repo.upserted, 1)
}

func TestServiceRefreshSummaryProbation(t *testing.T) {
	ctx := context.Background()
	repo := newRepoStub()
	courses := []EnrolledCourse{
		{CourseID: "c1", CourseCode: "MTH101", SemesterID: "sem1", CreditUnits: 3},
	}
	repo.semester[key("s1", "sem1")] = courses
	repo.completed["s1"] = courses
	repo.caTotals[key("s1", "c1", "sem1")] = 5
	repo.examRows[key("s1", "c1", "sem1")] = 10 // 15 -> F (0)

	svc := NewService(repo)
	summary, err := svc.RefreshSummary(ctx, "s1", "sem1")
	assert.NoError(t, err)
	assert.Equal(t, 0.0, summary.SemesterGPA)
	assert.Equal(t, StatusProbation, summary.SemesterStatus)
}

func TestServiceRank(t *testing.T) {
	ctx := context.Background()
	repo := newRepoStub()

	// s1 has a cached summary; s2 is computed live
	repo.summaries["s1"] = SemesterSummary{StudentID: "s1", CumulativeGPA: 3.1}
	repo.completed["s2"] = []EnrolledCourse{
		{CourseID: "c1", CourseCode: "MTH101", SemesterID: "sem1", CreditUnits: 2},
	}
	repo.caTotals[key("s2", "c1", "sem1")] = 30
	repo.examRows[key("s2", "c1", "sem1")] = 45 // 75 -> A (5)

	svc := NewService(repo)
	rankings, err := svc.Rank(ctx, []string{"s1", "s2"})
	assert.NoError(t, err)
	assert.Equal(t, "s2", rankings[0].StudentID)
	assert.Equal(t, 5.0, rankings[0].CumulativeGPA)
	assert.Equal(t, 1, rankings[0].Position)
	assert.Equal(t, "s1", rankings[1].StudentID)
	assert.Equal(t, 2, rankings[1].Position)
}

func TestServiceReplaceScaleValidates(t *testing.T) {
	ctx := context.Background()
	repo := newRepoStub()
	svc := NewService(repo)

	err := svc.ReplaceScale(ctx, Scale{
		{Letter: "A", MinPercent: 50, MaxPercent: 100, GradePoint: 5, IsPassing: true, Order: 1},
		{Letter: "B", MinPercent: 0, MaxPercent: 55, GradePoint: 4, IsPassing: true, Order: 2},
	})
	assert.Error(t, err)

	err = svc.ReplaceScale(ctx, DefaultScale())
	assert.NoError(t, err)
}
