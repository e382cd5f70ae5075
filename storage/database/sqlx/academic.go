package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/academic"
)

type academicRepository struct {
	db *sqlx.DB
}

var _ academic.Repository = (*academicRepository)(nil)

func NewAcademicRepository(db *sqlx.DB) academic.Repository {
	return &academicRepository{db: db}
}

const semesterColumns = `id, academic_year_id, name, number, start_date, end_date, is_current, created_at, updated_at`

func (repo *academicRepository) CreateSemester(ctx context.Context, sem academic.Semester) (academic.Semester, error) {
	query := `
	INSERT INTO semester (` + semesterColumns + `)
	VALUES (:id, :academic_year_id, :name, :number, :start_date, :end_date, :is_current, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, sem); err != nil {
		return academic.Semester{}, errors.Wrap(err, "creating semester")
	}
	return sem, nil
}

func (repo *academicRepository) getSemester(ctx context.Context, where string, args ...interface{}) (academic.Semester, error) {
	var sem academic.Semester
	query := `SELECT ` + semesterColumns + ` FROM semester WHERE ` + where
	if err := repo.db.GetContext(ctx, &sem, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return academic.Semester{}, academic.ErrNotFound
		}
		return academic.Semester{}, errors.Wrap(err, "getting semester")
	}
	return sem, nil
}

func (repo *academicRepository) GetSemesterByID(ctx context.Context, id string) (academic.Semester, error) {
	return repo.getSemester(ctx, `id = $1`, id)
}

func (repo *academicRepository) GetCurrentSemester(ctx context.Context) (academic.Semester, error) {
	return repo.getSemester(ctx, `is_current`)
}

func (repo *academicRepository) QueryAllSemesters(ctx context.Context) ([]academic.Semester, error) {
	var sems []academic.Semester
	query := `SELECT ` + semesterColumns + ` FROM semester ORDER BY start_date`
	if err := repo.db.SelectContext(ctx, &sems, query); err != nil {
		return nil, errors.Wrap(err, "querying semesters")
	}
	return sems, nil
}

func (repo *academicRepository) ActivateSemester(ctx context.Context, id string) (academic.Semester, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return academic.Semester{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `UPDATE semester SET is_current = FALSE, updated_at = NOW() WHERE is_current`); err != nil {
		return academic.Semester{}, errors.Wrap(err, "clearing current semester")
	}
	res, err := tx.ExecContext(ctx, `UPDATE semester SET is_current = TRUE, updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return academic.Semester{}, errors.Wrap(err, "activating semester")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return academic.Semester{}, academic.ErrNotFound
	}
	if err = tx.Commit(); err != nil {
		return academic.Semester{}, errors.Wrap(err, "committing tx")
	}
	return repo.GetSemesterByID(ctx, id)
}
