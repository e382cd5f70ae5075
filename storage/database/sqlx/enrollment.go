package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/chuoapp/chuo/core/enrollment"
)

type enrollmentRepository struct {
	db *sqlx.DB
}

var _ enrollment.Repository = (*enrollmentRepository)(nil)

func NewEnrollmentRepository(db *sqlx.DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

const courseColumns = `id, code, title, credit_units, created_at, updated_at`

func (repo *enrollmentRepository) CreateCourse(ctx context.Context, crs enrollment.Course) (enrollment.Course, error) {
	query := `
	INSERT INTO course (` + courseColumns + `)
	VALUES (:id, :code, :title, :credit_units, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, crs); err != nil {
		return enrollment.Course{}, errors.Wrap(err, "creating course")
	}
	return crs, nil
}

func (repo *enrollmentRepository) getCourse(ctx context.Context, where string, args ...interface{}) (enrollment.Course, error) {
	var crs enrollment.Course
	query := `SELECT ` + courseColumns + ` FROM course WHERE ` + where
	if err := repo.db.GetContext(ctx, &crs, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrollment.Course{}, enrollment.ErrCourseNotFound
		}
		return enrollment.Course{}, errors.Wrap(err, "getting course")
	}
	return crs, nil
}

func (repo *enrollmentRepository) GetCourseByID(ctx context.Context, id string) (enrollment.Course, error) {
	return repo.getCourse(ctx, `id = $1`, id)
}

func (repo *enrollmentRepository) GetCourseByCode(ctx context.Context, code string) (enrollment.Course, error) {
	return repo.getCourse(ctx, `code = $1`, code)
}

func (repo *enrollmentRepository) QueryAllCourses(ctx context.Context) ([]enrollment.Course, error) {
	var courses []enrollment.Course
	query := `SELECT ` + courseColumns + ` FROM course ORDER BY code`
	if err := repo.db.SelectContext(ctx, &courses, query); err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

const enrollmentColumns = `id, student_id, course_id, semester_id, status, requires_approval, reject_reason, created_at, updated_at`

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	query := `
	INSERT INTO enrollment (` + enrollmentColumns + `)
	VALUES (:id, :student_id, :course_id, :semester_id, :status, :requires_approval, :reject_reason, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, query, enr); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollmentByID(ctx context.Context, id string) (enrollment.Enrollment, error) {
	var enr enrollment.Enrollment
	query := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &enr, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
		}
		return enrollment.Enrollment{}, errors.Wrap(err, "getting enrollment")
	}
	return enr, nil
}

func (repo *enrollmentRepository) FilterEnrollments(ctx context.Context, filter enrollment.Filter) ([]enrollment.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE 1=1`
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
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	query += ` ORDER BY created_at`

	var enrs []enrollment.Enrollment
	if err := repo.db.SelectContext(ctx, &enrs, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "filtering enrollments")
	}
	return enrs, nil
}

func (repo *enrollmentRepository) SaveEnrollmentWithAudit(ctx context.Context, enr enrollment.Enrollment, entry enrollment.AuditEntry) (enrollment.Enrollment, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	query := `
	UPDATE enrollment
	SET status = :status, reject_reason = :reject_reason, updated_at = :updated_at
	WHERE id = :id`
	res, err := tx.NamedExecContext(ctx, query, enr)
	if err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "saving enrollment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return enrollment.Enrollment{}, enrollment.ErrEnrollmentNotFound
	}

	auditQuery := `
	INSERT INTO enrollment_audit (id, enrollment_id, action, actor_id, old_status, new_status, reason, created_at)
	VALUES (:id, :enrollment_id, :action, :actor_id, :old_status, :new_status, :reason, :created_at)`
	if _, err = tx.NamedExecContext(ctx, auditQuery, entry); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "appending audit entry")
	}

	if err = tx.Commit(); err != nil {
		return enrollment.Enrollment{}, errors.Wrap(err, "committing tx")
	}
	return enr, nil
}

func (repo *enrollmentRepository) ListAuditEntries(ctx context.Context, enrollmentID string) ([]enrollment.AuditEntry, error) {
	var entries []enrollment.AuditEntry
	query := `
	SELECT id, enrollment_id, action, actor_id, old_status, new_status, reason, created_at
	FROM enrollment_audit
	WHERE enrollment_id = $1
	ORDER BY created_at`
	if err := repo.db.SelectContext(ctx, &entries, query, enrollmentID); err != nil {
		return nil, errors.Wrap(err, "listing audit entries")
	}
	return entries, nil
}

func (repo *enrollmentRepository) CreatePrerequisite(ctx context.Context, pre enrollment.Prerequisite) (enrollment.Prerequisite, error) {
	query := `
	INSERT INTO prerequisite (id, course_id, required_course_id, kind)
	VALUES (:id, :course_id, :required_course_id, :kind)`
	if _, err := repo.db.NamedExecContext(ctx, query, pre); err != nil {
		return enrollment.Prerequisite{}, errors.Wrap(err, "creating prerequisite")
	}
	return pre, nil
}

func (repo *enrollmentRepository) ListPrerequisites(ctx context.Context, courseID string) ([]enrollment.Prerequisite, error) {
	var pres []enrollment.Prerequisite
	query := `SELECT id, course_id, required_course_id, kind FROM prerequisite WHERE course_id = $1`
	if err := repo.db.SelectContext(ctx, &pres, query, courseID); err != nil {
		return nil, errors.Wrap(err, "listing prerequisites")
	}
	return pres, nil
}

func (repo *enrollmentRepository) CreateTimeSlot(ctx context.Context, ts enrollment.TimeSlot) (enrollment.TimeSlot, error) {
	query := `
	INSERT INTO time_slot (id, course_id, semester_id, day_of_week, start_minutes, end_minutes)
	VALUES (:id, :course_id, :semester_id, :day_of_week, :start_minutes, :end_minutes)`
	if _, err := repo.db.NamedExecContext(ctx, query, ts); err != nil {
		return enrollment.TimeSlot{}, errors.Wrap(err, "creating time slot")
	}
	return ts, nil
}

func (repo *enrollmentRepository) ListTimeSlots(ctx context.Context, semesterID string, courseIDs ...string) ([]enrollment.TimeSlot, error) {
	query := `SELECT id, course_id, semester_id, day_of_week, start_minutes, end_minutes FROM time_slot WHERE semester_id = ?`
	args := []interface{}{semesterID}
	if len(courseIDs) > 0 {
		query += ` AND course_id IN (?)`
		var err error
		if query, args, err = sqlx.In(query, semesterID, courseIDs); err != nil {
			return nil, errors.Wrap(err, "building query")
		}
	}
	var slots []enrollment.TimeSlot
	if err := repo.db.SelectContext(ctx, &slots, repo.db.Rebind(query), args...); err != nil {
		return nil, errors.Wrap(err, "listing time slots")
	}
	return slots, nil
}
