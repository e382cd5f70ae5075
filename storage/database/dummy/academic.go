package dummydb

import (
	"context"
	"sort"

	"github.com/chuoapp/chuo/core/academic"
)

type academicRepository struct {
	db *DB
}

var _ academic.Repository = (*academicRepository)(nil)

func NewAcademicRepository(db *DB) academic.Repository {
	return &academicRepository{db: db}
}

func (repo *academicRepository) CreateSemester(ctx context.Context, sem academic.Semester) (academic.Semester, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.semesters[sem.ID] = &sem
	return sem, nil
}

func (repo *academicRepository) GetSemesterByID(ctx context.Context, id string) (academic.Semester, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sem, ok := repo.db.semesters[id]; ok {
		return *sem, nil
	}
	return academic.Semester{}, academic.ErrNotFound
}

func (repo *academicRepository) GetCurrentSemester(ctx context.Context) (academic.Semester, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, sem := range repo.db.semesters {
		if sem.IsCurrent {
			return *sem, nil
		}
	}
	return academic.Semester{}, academic.ErrNotFound
}

func (repo *academicRepository) QueryAllSemesters(ctx context.Context) ([]academic.Semester, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sems := make([]academic.Semester, 0, len(repo.db.semesters))
	for _, sem := range repo.db.semesters {
		sems = append(sems, *sem)
	}
	sort.Slice(sems, func(i, j int) bool { return sems[i].StartDate.Before(sems[j].StartDate) })
	return sems, nil
}

func (repo *academicRepository) ActivateSemester(ctx context.Context, id string) (academic.Semester, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sem, ok := repo.db.semesters[id]
	if !ok {
		return academic.Semester{}, academic.ErrNotFound
	}
	for _, other := range repo.db.semesters {
		other.IsCurrent = false
	}
	sem.IsCurrent = true
	return *sem, nil
}
