package academic

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound          = errors.New("semester not found")
	ErrNoCurrentSemester = errors.New("no current semester is active")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CreateSemester(ctx context.Context, sem Semester) (Semester, error)
		GetSemesterByID(ctx context.Context, id string) (Semester, error)
		GetCurrentSemester(ctx context.Context) (Semester, error)
		QueryAllSemesters(ctx context.Context) ([]Semester, error)
		// ActivateSemester atomically clears the previous current semester
		// and marks the given one current.
		ActivateSemester(ctx context.Context, id string) (Semester, error)
	}

	Service interface {
		CreateSemester(ctx context.Context, ns NewSemester) (Semester, error)
		GetByID(ctx context.Context, id string) (Semester, error)
		// Current resolves the active semester; callers must never assume one.
		Current(ctx context.Context) (Semester, error)
		QueryAll(ctx context.Context) ([]Semester, error)
		Activate(ctx context.Context, id string) (Semester, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) CreateSemester(ctx context.Context, ns NewSemester) (Semester, error) {
	now := nowFunc().UTC()
	sem := Semester{
		ID:             uuid.NewString(),
		AcademicYearID: ns.AcademicYearID,
		Name:           ns.Name,
		Number:         ns.Number,
		StartDate:      ns.StartDate,
		EndDate:        ns.EndDate,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return svc.repo.CreateSemester(ctx, sem)
}

func (svc *service) GetByID(ctx context.Context, id string) (Semester, error) {
	return svc.repo.GetSemesterByID(ctx, id)
}

func (svc *service) Current(ctx context.Context) (Semester, error) {
	sem, err := svc.repo.GetCurrentSemester(ctx)
	if err != nil {
		if err == ErrNotFound {
			return Semester{}, ErrNoCurrentSemester
		}
		return Semester{}, err
	}
	return sem, nil
}

func (svc *service) QueryAll(ctx context.Context) ([]Semester, error) {
	return svc.repo.QueryAllSemesters(ctx)
}

func (svc *service) Activate(ctx context.Context, id string) (Semester, error) {
	if _, err := svc.repo.GetSemesterByID(ctx, id); err != nil {
		return Semester{}, err
	}
	return svc.repo.ActivateSemester(ctx, id)
}
