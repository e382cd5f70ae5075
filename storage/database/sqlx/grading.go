package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/grading"
)

type gradingRepository struct {
	db *sqlx.DB
}

var _ grading.Repository = (*gradingRepository)(nil)

func NewGradingRepository(db *sqlx.DB) grading.Repository {
	return &gradingRepository{db: db}
}

func (repo *gradingRepository) GetScale(ctx context.Context) (grading.Scale, error) {
	var scale grading.Scale
	query := `SELECT letter, min_percent, max_percent, grade_point, is_passing, ord FROM grade_band ORDER BY ord`
	if err := repo.db.SelectContext(ctx, &scale, query); err != nil {
		return nil, errors.Wrap(err, "getting grading scale")
	}
	return scale, nil
}

func (repo *gradingRepository) ReplaceScale(ctx context.Context, scale grading.Scale) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `DELETE FROM grade_band`); err != nil {
		return errors.Wrap(err, "clearing grading scale")
	}
	query := `
	INSERT INTO grade_band (letter, min_percent, max_percent, grade_point, is_passing, ord)
	VALUES (:letter, :min_percent, :max_percent, :grade_point, :is_passing, :ord)`
	for _, band := range scale {
		if _, err = tx.NamedExecContext(ctx, query, band); err != nil {
			return errors.Wrapf(err, "inserting band %s", band.Letter)
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}

func (repo *gradingRepository) GetApprovedCATotal(ctx context.Context, studentID, courseID, semesterID string) (float64, error) {
	var total float64
	query := `
	SELECT COALESCE(SUM(CASE WHEN max_score > 0 THEN score / max_score * weight ELSE 0 END), 0)
	FROM continuous_assessment
	WHERE student_id = $1 AND course_id = $2 AND semester_id = $3 AND approval_status = 'approved'`
	if err := repo.db.GetContext(ctx, &total, query, studentID, courseID, semesterID); err != nil {
		return 0, errors.Wrap(err, "totaling approved CA scores")
	}
	return total, nil
}

func (repo *gradingRepository) GetPublishedExamScore(ctx context.Context, studentID, courseID, semesterID string) (float64, bool, error) {
	var score float64
	query := `
	SELECT score FROM final_exam
	WHERE student_id = $1 AND course_id = $2 AND semester_id = $3 AND published_at IS NOT NULL`
	if err := repo.db.GetContext(ctx, &score, query, studentID, courseID, semesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, errors.Wrap(err, "getting published exam score")
	}
	return score, true, nil
}

func (repo *gradingRepository) listCourses(ctx context.Context, where string, args ...interface{}) ([]grading.EnrolledCourse, error) {
	var courses []grading.EnrolledCourse
	query := `
	SELECT e.course_id, c.code AS course_code, e.semester_id, c.credit_units
	FROM enrollment e
	JOIN course c ON c.id = e.course_id
	WHERE ` + where + `
	ORDER BY c.code`
	if err := repo.db.SelectContext(ctx, &courses, query, args...); err != nil {
		return nil, errors.Wrap(err, "listing enrolled courses")
	}
	return courses, nil
}

func (repo *gradingRepository) ListCompletedCourses(ctx context.Context, studentID string) ([]grading.EnrolledCourse, error) {
	return repo.listCourses(ctx, `e.student_id = $1 AND e.status = 'completed'`, studentID)
}

func (repo *gradingRepository) ListSemesterCourses(ctx context.Context, studentID, semesterID string) ([]grading.EnrolledCourse, error) {
	return repo.listCourses(ctx,
		`e.student_id = $1 AND e.semester_id = $2 AND e.status IN ('active', 'completed')`,
		studentID, semesterID)
}

const summaryColumns = `id, student_id, semester_id, semester_gpa, cumulative_gpa, total_units, semester_status, computed_at`

func (repo *gradingRepository) getSummary(ctx context.Context, where string, args ...interface{}) (grading.SemesterSummary, error) {
	var summary grading.SemesterSummary
	query := `SELECT ` + summaryColumns + ` FROM semester_summary WHERE ` + where
	if err := repo.db.GetContext(ctx, &summary, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return grading.SemesterSummary{}, grading.ErrSummaryNotFound
		}
		return grading.SemesterSummary{}, errors.Wrap(err, "getting semester summary")
	}
	return summary, nil
}

func (repo *gradingRepository) GetSummary(ctx context.Context, studentID, semesterID string) (grading.SemesterSummary, error) {
	return repo.getSummary(ctx, `student_id = $1 AND semester_id = $2`, studentID, semesterID)
}

func (repo *gradingRepository) GetLatestSummary(ctx context.Context, studentID string) (grading.SemesterSummary, error) {
	return repo.getSummary(ctx, `student_id = $1 ORDER BY computed_at DESC LIMIT 1`, studentID)
}

func (repo *gradingRepository) UpsertSummary(ctx context.Context, summary grading.SemesterSummary) (grading.SemesterSummary, error) {
	query := `
	INSERT INTO semester_summary (` + summaryColumns + `)
	VALUES (:id, :student_id, :semester_id, :semester_gpa, :cumulative_gpa, :total_units, :semester_status, :computed_at)
	ON CONFLICT (student_id, semester_id) DO UPDATE
	SET semester_gpa = EXCLUDED.semester_gpa, cumulative_gpa = EXCLUDED.cumulative_gpa,
	    total_units = EXCLUDED.total_units, semester_status = EXCLUDED.semester_status,
	    computed_at = EXCLUDED.computed_at`
	if _, err := repo.db.NamedExecContext(ctx, query, summary); err != nil {
		return grading.SemesterSummary{}, errors.Wrap(err, "upserting semester summary")
	}
	return repo.GetSummary(ctx, summary.StudentID, summary.SemesterID)
}
