package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/assessment"
)

type assessmentRepository struct {
	db *sqlx.DB
}

var _ assessment.Repository = (*assessmentRepository)(nil)

func NewAssessmentRepository(db *sqlx.DB) assessment.Repository {
	return &assessmentRepository{db: db}
}

const caColumns = `id, student_id, course_id, semester_id, lecturer_id, type, number,
	score, max_score, weight, locked_at, submitted_for_approval_at, approval_status,
	approved_by, reject_reason, version, created_at, updated_at`

func (repo *assessmentRepository) CreateCA(ctx context.Context, ca assessment.ContinuousAssessment) (assessment.ContinuousAssessment, error) {
	query := `
	INSERT INTO continuous_assessment (` + caColumns + `)
	VALUES (:id, :student_id, :course_id, :semester_id, :lecturer_id, :type, :number,
	        :score, :max_score, :weight, :locked_at, :submitted_for_approval_at, :approval_status,
	        :approved_by, :reject_reason, :version, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, ca); err != nil {
		return assessment.ContinuousAssessment{}, errors.Wrap(err, "creating continuous assessment")
	}
	return ca, nil
}

func (repo *assessmentRepository) GetCAByID(ctx context.Context, id string) (assessment.ContinuousAssessment, error) {
	var ca assessment.ContinuousAssessment
	query := `SELECT ` + caColumns + ` FROM continuous_assessment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &ca, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return assessment.ContinuousAssessment{}, assessment.ErrCANotFound
		}
		return assessment.ContinuousAssessment{}, errors.Wrap(err, "getting continuous assessment")
	}
	return ca, nil
}

func (repo *assessmentRepository) GetCAsByID(ctx context.Context, ids ...string) ([]assessment.ContinuousAssessment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+caColumns+` FROM continuous_assessment WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var cas []assessment.ContinuousAssessment
	if err = repo.db.SelectContext(ctx, &cas, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "getting continuous assessments")
	}
	return cas, nil
}

func (repo *assessmentRepository) FilterCAs(ctx context.Context, filter assessment.CAFilter) ([]assessment.ContinuousAssessment, error) {
	query := `SELECT ` + caColumns + ` FROM continuous_assessment WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		query += ` AND student_id = ?`
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		query += ` AND course_id = ?`
		args = append(args, filter.CourseID)
	}
	if filter.SemesterID != "" {
		query += ` AND semester_id = ?`
		args = append(args, filter.SemesterID)
	}
	if filter.LecturerID != "" {
		query += ` AND lecturer_id = ?`
		args = append(args, filter.LecturerID)
	}
	if filter.Status != "" {
		query += ` AND approval_status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at`

	var cas []assessment.ContinuousAssessment
	if err := repo.db.SelectContext(ctx, &cas, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering continuous assessments")
	}
	return cas, nil
}

func (repo *assessmentRepository) SumCAWeights(ctx context.Context, studentID, courseID, semesterID string, excludedIDs ...string) (float64, error) {
	query := `
	SELECT COALESCE(SUM(weight), 0) FROM continuous_assessment
	WHERE student_id = ? AND course_id = ? AND semester_id = ?`
	args := []interface{}{studentID, courseID, semesterID}
	if len(excludedIDs) > 0 {
		query += ` AND id NOT IN (?)`
		var err error
		if query, args, err = sqlx.In(query, studentID, courseID, semesterID, excludedIDs); err != nil {
			return 0, errors.Wrap(err, "building query")
		}
	}
	var sum float64
	if err := repo.db.GetContext(ctx, &sum, repo.db.Rebind(query), args...); err != nil {
		return 0, errors.Wrap(err, "summing CA weights")
	}
	return sum, nil
}

func saveCA(ctx context.Context, e sqlx.ExtContext, ca assessment.ContinuousAssessment) (assessment.ContinuousAssessment, error) {
	query := `
	UPDATE continuous_assessment
	SET score = :score, locked_at = :locked_at,
	    submitted_for_approval_at = :submitted_for_approval_at,
	    approval_status = :approval_status, approved_by = :approved_by,
	    reject_reason = :reject_reason, version = version + 1, updated_at = :updated_at
	WHERE id = :id AND version = :version`
	res, err := sqlx.NamedExecContext(ctx, e, query, ca)
	if err != nil {
		return assessment.ContinuousAssessment{}, errors.Wrap(err, "saving continuous assessment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assessment.ContinuousAssessment{}, assessment.ErrVersionConflict
	}
	ca.Version++
	return ca, nil
}

func (repo *assessmentRepository) SaveCA(ctx context.Context, ca assessment.ContinuousAssessment) (assessment.ContinuousAssessment, error) {
	return saveCA(ctx, repo.db, ca)
}

func (repo *assessmentRepository) SaveCAs(ctx context.Context, cas []assessment.ContinuousAssessment) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	for _, ca := range cas {
		if _, err = saveCA(ctx, tx, ca); err != nil {
			return err
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}

const examColumns = `id, student_id, course_id, semester_id, lecturer_id, score, max_score,
	locked_at, submitted_for_moderation_at, moderation_status, moderated_by,
	moderation_notes, published_at, published_by, version, created_at, updated_at`

func (repo *assessmentRepository) CreateExam(ctx context.Context, ex assessment.FinalExam) (assessment.FinalExam, error) {
	query := `
	INSERT INTO final_exam (` + examColumns + `)
	VALUES (:id, :student_id, :course_id, :semester_id, :lecturer_id, :score, :max_score,
	        :locked_at, :submitted_for_moderation_at, :moderation_status, :moderated_by,
	        :moderation_notes, :published_at, :published_by, :version, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, ex); err != nil {
		return assessment.FinalExam{}, errors.Wrap(err, "creating final exam")
	}
	return ex, nil
}

func (repo *assessmentRepository) GetExamByID(ctx context.Context, id string) (assessment.FinalExam, error) {
	var ex assessment.FinalExam
	query := `SELECT ` + examColumns + ` FROM final_exam WHERE id = $1`
	if err := repo.db.GetContext(ctx, &ex, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return assessment.FinalExam{}, assessment.ErrExamNotFound
		}
		return assessment.FinalExam{}, errors.Wrap(err, "getting final exam")
	}
	return ex, nil
}

func (repo *assessmentRepository) GetExamsByID(ctx context.Context, ids ...string) ([]assessment.FinalExam, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT `+examColumns+` FROM final_exam WHERE id IN (?)`, ids)
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var exams []assessment.FinalExam
	if err = repo.db.SelectContext(ctx, &exams, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "getting final exams")
	}
	return exams, nil
}

func (repo *assessmentRepository) FilterExams(ctx context.Context, filter assessment.ExamFilter) ([]assessment.FinalExam, error) {
	query := `SELECT ` + examColumns + ` FROM final_exam WHERE 1=1`
	var args []interface{}
	if filter.StudentID != "" {
		query += ` AND student_id = ?`
		args = append(args, filter.StudentID)
	}
	if filter.CourseID != "" {
		query += ` AND course_id = ?`
		args = append(args, filter.CourseID)
	}
	if filter.SemesterID != "" {
		query += ` AND semester_id = ?`
		args = append(args, filter.SemesterID)
	}
	if filter.LecturerID != "" {
		query += ` AND lecturer_id = ?`
		args = append(args, filter.LecturerID)
	}
	if filter.Status != "" {
		query += ` AND moderation_status = ?`
		args = append(args, filter.Status)
	}
	if filter.PublishedOnly {
		query += ` AND published_at IS NOT NULL`
	}
	query += ` ORDER BY created_at`

	var exams []assessment.FinalExam
	if err := repo.db.SelectContext(ctx, &exams, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering final exams")
	}
	return exams, nil
}

func saveExam(ctx context.Context, e sqlx.ExtContext, ex assessment.FinalExam) (assessment.FinalExam, error) {
	query := `
	UPDATE final_exam
	SET score = :score, locked_at = :locked_at,
	    submitted_for_moderation_at = :submitted_for_moderation_at,
	    moderation_status = :moderation_status, moderated_by = :moderated_by,
	    moderation_notes = :moderation_notes, published_at = :published_at,
	    published_by = :published_by, version = version + 1, updated_at = :updated_at
	WHERE id = :id AND version = :version`
	res, err := sqlx.NamedExecContext(ctx, e, query, ex)
	if err != nil {
		return assessment.FinalExam{}, errors.Wrap(err, "saving final exam")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return assessment.FinalExam{}, assessment.ErrVersionConflict
	}
	ex.Version++
	return ex, nil
}

func (repo *assessmentRepository) SaveExam(ctx context.Context, ex assessment.FinalExam) (assessment.FinalExam, error) {
	return saveExam(ctx, repo.db, ex)
}

func (repo *assessmentRepository) SaveExams(ctx context.Context, exams []assessment.FinalExam) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	for _, ex := range exams {
		if _, err = saveExam(ctx, tx, ex); err != nil {
			return err
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}
