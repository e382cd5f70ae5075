// Package dummydb is an in-memory database for tests and local hacking.
package dummydb

import (
	"sync"
	"time"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/academic"
	"github.com/chuoapp/chuo/core/assessment"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/grading"
	"github.com/chuoapp/chuo/core/registration"
	"github.com/chuoapp/chuo/core/user"
)

type DB struct {
	sync.RWMutex

	users     map[string]*user.User
	semesters map[string]*academic.Semester

	scale     grading.Scale
	summaries map[string]*grading.SemesterSummary // studentID/semesterID

	cas   map[string]*assessment.ContinuousAssessment
	exams map[string]*assessment.FinalExam

	courses         map[string]*enrollment.Course
	enrollments     map[string]*enrollment.Enrollment
	enrollmentAudit []enrollment.AuditEntry
	prereqs         []enrollment.Prerequisite
	slots           []enrollment.TimeSlot

	registrations     map[string]*registration.Registration // studentID/semesterID
	registrationAudit []registration.AuditEntry
	insurance         *registration.InsuranceConfig
	programs          map[string]*registration.Program
	studentPrograms   map[string]string // studentID -> programID

	notifications []core.Notification
}

func Open() (*DB, error) {
	db := &DB{
		users:           make(map[string]*user.User),
		semesters:       make(map[string]*academic.Semester),
		summaries:       make(map[string]*grading.SemesterSummary),
		cas:             make(map[string]*assessment.ContinuousAssessment),
		exams:           make(map[string]*assessment.FinalExam),
		courses:         make(map[string]*enrollment.Course),
		enrollments:     make(map[string]*enrollment.Enrollment),
		registrations:   make(map[string]*registration.Registration),
		programs:        make(map[string]*registration.Program),
		studentPrograms: make(map[string]string),
	}
	return db, nil
}

// SeedProgram wires a program and its student links directly, for tests.
func (db *DB) SeedProgram(program registration.Program, studentIDs ...string) {
	db.Lock()
	defer db.Unlock()
	db.programs[program.ID] = &program
	for _, id := range studentIDs {
		db.studentPrograms[id] = program.ID
	}
}

var nowFunc = time.Now // mockable

func pairKey(a, b string) string { return a + "/" + b }
