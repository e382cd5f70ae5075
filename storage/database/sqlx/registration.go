package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/registration"
)

type registrationRepository struct {
	db *sqlx.DB
}

var _ registration.Repository = (*registrationRepository)(nil)

func NewRegistrationRepository(db *sqlx.DB) registration.Repository {
	return &registrationRepository{db: db}
}

const registrationColumns = `id, student_id, semester_id, fees_verified, insurance_verified,
	registration_blocked, block_overridden, block_reason, override_reason, created_at, updated_at`

func (repo *registrationRepository) GetRegistration(ctx context.Context, studentID, semesterID string) (registration.Registration, error) {
	var reg registration.Registration
	query := `SELECT ` + registrationColumns + ` FROM registration WHERE student_id = $1 AND semester_id = $2`
	if err := repo.db.GetContext(ctx, &reg, query, studentID, semesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registration.Registration{}, registration.ErrNotFound
		}
		return registration.Registration{}, errors.Wrap(err, "getting registration")
	}
	return reg, nil
}

func (repo *registrationRepository) CreateRegistration(ctx context.Context, reg registration.Registration) (registration.Registration, error) {
	query := `
	INSERT INTO registration (` + registrationColumns + `)
	VALUES (:id, :student_id, :semester_id, :fees_verified, :insurance_verified,
	        :registration_blocked, :block_overridden, :block_reason, :override_reason, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, reg); err != nil {
		return registration.Registration{}, errors.Wrap(err, "creating registration")
	}
	return reg, nil
}

func (repo *registrationRepository) SaveRegistrationWithAudit(ctx context.Context, reg registration.Registration, entry registration.AuditEntry) (registration.Registration, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return registration.Registration{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	UPDATE registration
	SET fees_verified = :fees_verified, insurance_verified = :insurance_verified,
	    registration_blocked = :registration_blocked, block_overridden = :block_overridden,
	    block_reason = :block_reason, override_reason = :override_reason, updated_at = :updated_at
	WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, reg)
	if err != nil {
		return registration.Registration{}, errors.Wrap(err, "saving registration")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return registration.Registration{}, registration.ErrNotFound
	}

	auditQuery := `
	INSERT INTO registration_audit (id, registration_id, action, actor_id, reason, created_at)
	VALUES (:id, :registration_id, :action, :actor_id, :reason, :created_at)`
	if _, err = tx.NamedExecContext(ctx, auditQuery, entry); err != nil {
		return registration.Registration{}, errors.Wrap(err, "appending audit entry")
	}

	if err = tx.Commit(); err != nil {
		return registration.Registration{}, errors.Wrap(err, "committing tx")
	}
	return reg, nil
}

func (repo *registrationRepository) ListAuditEntries(ctx context.Context, registrationID string) ([]registration.AuditEntry, error) {
	var entries []registration.AuditEntry
	query := `
	SELECT id, registration_id, action, actor_id, reason, created_at
	FROM registration_audit
	WHERE registration_id = $1
	ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &entries, query, registrationID); err != nil {
		return nil, errors.Wrap(err, "listing audit entries")
	}
	return entries, nil
}

func (repo *registrationRepository) GetInsuranceConfig(ctx context.Context) (registration.InsuranceConfig, error) {
	var cfg registration.InsuranceConfig
	query := `SELECT requirement, blocks_registration FROM insurance_config`
	if err := repo.db.GetContext(ctx, &cfg, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// no policy configured means insurance never gates
			return registration.InsuranceConfig{Requirement: registration.InsuranceOptional}, nil
		}
		return registration.InsuranceConfig{}, errors.Wrap(err, "getting insurance config")
	}
	return cfg, nil
}

func (repo *registrationRepository) SetInsuranceConfig(ctx context.Context, cfg registration.InsuranceConfig) error {
	query := `
	INSERT INTO insurance_config (singleton, requirement, blocks_registration)
	VALUES (TRUE, $1, $2)
	ON CONFLICT (singleton) DO UPDATE
	SET requirement = EXCLUDED.requirement, blocks_registration = EXCLUDED.blocks_registration`
	if _, err := repo.db.ExecContext(ctx, query, cfg.Requirement, cfg.BlocksRegistration); err != nil {
		return errors.Wrap(err, "setting insurance config")
	}
	return nil
}

func (repo *registrationRepository) GetProgramForStudent(ctx context.Context, studentID string) (registration.Program, error) {
	var program registration.Program
	query := `
	SELECT p.id, p.name, p.min_cgpa, p.credit_threshold
	FROM program p
	JOIN student_program sp ON sp.program_id = p.id
	WHERE sp.student_id = $1`
	if err := repo.db.GetContext(ctx, &program, query, studentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return registration.Program{}, registration.ErrProgramNotFound
		}
		return registration.Program{}, errors.Wrap(err, "getting program")
	}

	reqQuery := `
	SELECT pr.id, pr.program_id, pr.course_id, c.code AS course_code, pr.type, pr.mandatory
	FROM program_requirement pr
	JOIN course c ON c.id = pr.course_id
	WHERE pr.program_id = $1
	ORDER BY c.code`
	if err := repo.db.SelectContext(ctx, &program.Requirements, reqQuery, program.ID); err != nil {
		return registration.Program{}, errors.Wrap(err, "listing program requirements")
	}
	return program, nil
}

func (repo *registrationRepository) ListCompletedCourses(ctx context.Context, studentID string) ([]registration.CompletedCourse, error) {
	var courses []registration.CompletedCourse
	query := `
	SELECT e.course_id, c.code AS course_code, c.credit_units
	FROM enrollment e
	JOIN course c ON c.id = e.course_id
	WHERE e.student_id = $1 AND e.status = 'completed'
	ORDER BY c.code`
	if err := repo.db.SelectContext(ctx, &courses, query, studentID); err != nil {
		return nil, errors.Wrap(err, "listing completed courses")
	}
	return courses, nil
}

func (repo *registrationRepository) ListRequestedCourses(ctx context.Context, studentID, semesterID string) ([]registration.RequestedCourse, error) {
	var courses []registration.RequestedCourse
	query := `
	SELECT e.course_id, c.code AS course_code
	FROM enrollment e
	JOIN course c ON c.id = e.course_id
	WHERE e.student_id = $1 AND e.semester_id = $2 AND e.status IN ('pending_approval', 'active')
	ORDER BY c.code`
	if err := repo.db.SelectContext(ctx, &courses, query, studentID, semesterID); err != nil {
		return nil, errors.Wrap(err, "listing requested courses")
	}
	return courses, nil
}
