package grading

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// errors
	ErrSummaryNotFound = errors.New("semester summary not found")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		GetScale(ctx context.Context) (Scale, error)
		// ReplaceScale swaps the whole band list in one transaction.
		ReplaceScale(ctx context.Context, scale Scale) error

		// GetApprovedCATotal sums the weighted scores of approved CA rows
		// for the triple; no rows is a 0 total, not an error.
		GetApprovedCATotal(ctx context.Context, studentID, courseID, semesterID string) (float64, error)
		// GetPublishedExamScore returns the published exam score for the
		// triple; ok is false when no published row exists.
		GetPublishedExamScore(ctx context.Context, studentID, courseID, semesterID string) (score float64, ok bool, err error)

		ListCompletedCourses(ctx context.Context, studentID string) ([]EnrolledCourse, error)
		ListSemesterCourses(ctx context.Context, studentID, semesterID string) ([]EnrolledCourse, error)

		GetSummary(ctx context.Context, studentID, semesterID string) (SemesterSummary, error)
		GetLatestSummary(ctx context.Context, studentID string) (SemesterSummary, error)
		// UpsertSummary replaces the (student, semester) summary row.
		UpsertSummary(ctx context.Context, summary SemesterSummary) (SemesterSummary, error)
	}

	Service interface {
		GetScale(ctx context.Context) (Scale, error)
		ReplaceScale(ctx context.Context, scale Scale) error
		CourseGrade(ctx context.Context, studentID, courseID, semesterID string) (CourseGrade, error)
		StudentSemesterGPA(ctx context.Context, studentID, semesterID string) (float64, error)
		CumulativeGPA(ctx context.Context, studentID string) (float64, error)
		Transcript(ctx context.Context, studentID string) (Transcript, error)
		Rank(ctx context.Context, studentIDs []string) ([]Ranking, error)
		// RefreshSummary recomputes the cached summary row; it must be called
		// after every grade-affecting write.
		RefreshSummary(ctx context.Context, studentID, semesterID string) (SemesterSummary, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) GetScale(ctx context.Context) (Scale, error) {
	scale, err := svc.repo.GetScale(ctx)
	if err != nil {
		return nil, err
	}
	if len(scale) == 0 {
		return DefaultScale(), nil
	}
	return scale, nil
}

func (svc *service) ReplaceScale(ctx context.Context, scale Scale) error {
	if err := scale.Validate(); err != nil {
		return err
	}
	return svc.repo.ReplaceScale(ctx, scale)
}

// CourseGrade computes the grade for one (student, course, semester) from
// approved CA rows and the published exam score. Pure read; recomputed per
// request.
func (svc *service) CourseGrade(ctx context.Context, studentID, courseID, semesterID string) (CourseGrade, error) {
	scale, err := svc.GetScale(ctx)
	if err != nil {
		return CourseGrade{}, errors.Wrap(err, "loading grading scale")
	}

	caTotal, err := svc.repo.GetApprovedCATotal(ctx, studentID, courseID, semesterID)
	if err != nil {
		return CourseGrade{}, errors.Wrap(err, "summing CA scores")
	}
	if caTotal > CAMaxTotal {
		caTotal = CAMaxTotal
	}

	examScore, _, err := svc.repo.GetPublishedExamScore(ctx, studentID, courseID, semesterID)
	if err != nil {
		return CourseGrade{}, errors.Wrap(err, "fetching exam score")
	}
	if examScore > ExamMaxScore {
		examScore = ExamMaxScore
	}

	total := caTotal + examScore
	band, err := scale.GradeFor(total)
	if err != nil {
		return CourseGrade{}, errors.Wrapf(err, "grading total score %.2f", total)
	}

	return CourseGrade{
		StudentID:  studentID,
		CourseID:   courseID,
		SemesterID: semesterID,
		CATotal:    caTotal,
		ExamScore:  examScore,
		TotalScore: total,
		Letter:     band.Letter,
		GradePoint: band.GradePoint,
		IsPassing:  band.IsPassing,
	}, nil
}

func (svc *service) semesterResults(ctx context.Context, studentID, semesterID string) ([]CourseResult, error) {
	courses, err := svc.repo.ListSemesterCourses(ctx, studentID, semesterID)
	if err != nil {
		return nil, err
	}
	return svc.resultsFor(ctx, studentID, courses)
}

func (svc *service) resultsFor(ctx context.Context, studentID string, courses []EnrolledCourse) ([]CourseResult, error) {
	results := make([]CourseResult, 0, len(courses))
	for _, c := range courses {
		cg, err := svc.CourseGrade(ctx, studentID, c.CourseID, c.SemesterID)
		if err != nil {
			return nil, errors.Wrapf(err, "grading course %s", c.CourseCode)
		}
		results = append(results, CourseResult{GradePoint: cg.GradePoint, CreditUnits: c.CreditUnits})
	}
	return results, nil
}

func (svc *service) StudentSemesterGPA(ctx context.Context, studentID, semesterID string) (float64, error) {
	results, err := svc.semesterResults(ctx, studentID, semesterID)
	if err != nil {
		return 0, err
	}
	return SemesterGPA(results), nil
}

// CumulativeGPA is a pure function of the student's completed enrollment
// history; the cached summaries never feed it.
func (svc *service) CumulativeGPA(ctx context.Context, studentID string) (float64, error) {
	courses, err := svc.repo.ListCompletedCourses(ctx, studentID)
	if err != nil {
		return 0, err
	}
	results, err := svc.resultsFor(ctx, studentID, courses)
	if err != nil {
		return 0, err
	}
	return SemesterGPA(results), nil
}

func (svc *service) Transcript(ctx context.Context, studentID string) (Transcript, error) {
	courses, err := svc.repo.ListCompletedCourses(ctx, studentID)
	if err != nil {
		return Transcript{}, err
	}

	tr := Transcript{StudentID: studentID, Entries: make([]TranscriptEntry, 0, len(courses))}
	results := make([]CourseResult, 0, len(courses))
	for _, c := range courses {
		cg, err := svc.CourseGrade(ctx, studentID, c.CourseID, c.SemesterID)
		if err != nil {
			return Transcript{}, errors.Wrapf(err, "grading course %s", c.CourseCode)
		}
		tr.Entries = append(tr.Entries, TranscriptEntry{
			SemesterID:  c.SemesterID,
			CourseID:    c.CourseID,
			CourseCode:  c.CourseCode,
			CreditUnits: c.CreditUnits,
			CATotal:     cg.CATotal,
			ExamScore:   cg.ExamScore,
			TotalScore:  cg.TotalScore,
			Letter:      cg.Letter,
			GradePoint:  cg.GradePoint,
		})
		results = append(results, CourseResult{GradePoint: cg.GradePoint, CreditUnits: c.CreditUnits})
	}
	tr.CumulativeGPA = SemesterGPA(results)
	tr.TotalUnits = TotalUnits(results)
	return tr, nil
}

// Rank batch-computes CGPAs for the given students, preferring the latest
// cached summary and recomputing live when none exists.
func (svc *service) Rank(ctx context.Context, studentIDs []string) ([]Ranking, error) {
	rankings := make([]Ranking, 0, len(studentIDs))
	for _, id := range studentIDs {
		var cgpa float64
		summary, err := svc.repo.GetLatestSummary(ctx, id)
		switch err {
		case nil:
			cgpa = summary.CumulativeGPA
		case ErrSummaryNotFound:
			if cgpa, err = svc.CumulativeGPA(ctx, id); err != nil {
				return nil, errors.Wrapf(err, "computing CGPA for student %s", id)
			}
		default:
			return nil, err
		}
		rankings = append(rankings, Ranking{StudentID: id, CumulativeGPA: cgpa})
	}
	SortRankings(rankings)
	return rankings, nil
}

func (svc *service) RefreshSummary(ctx context.Context, studentID, semesterID string) (SemesterSummary, error) {
	results, err := svc.semesterResults(ctx, studentID, semesterID)
	if err != nil {
		return SemesterSummary{}, err
	}
	cgpa, err := svc.CumulativeGPA(ctx, studentID)
	if err != nil {
		return SemesterSummary{}, err
	}

	gpa := SemesterGPA(results)
	status := StatusGoodStanding
	if gpa < 1.0 {
		status = StatusProbation
	}

	summary := SemesterSummary{
		ID:             uuid.NewString(),
		StudentID:      studentID,
		SemesterID:     semesterID,
		SemesterGPA:    gpa,
		CumulativeGPA:  cgpa,
		TotalUnits:     TotalUnits(results),
		SemesterStatus: status,
		ComputedAt:     nowFunc().UTC(),
	}
	return svc.repo.UpsertSummary(ctx, summary)
}
