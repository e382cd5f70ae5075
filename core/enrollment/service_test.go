package enrollment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/grading"
)

type repoStub struct {
	courses     map[string]Course
	enrollments map[string]Enrollment
	audit       []AuditEntry
	prereqs     []Prerequisite
	slots       []TimeSlot
}

var _ Repository = (*repoStub)(nil)

func newRepoStub() *repoStub {
	return &repoStub{
		courses:     make(map[string]Course),
		enrollments: make(map[string]Enrollment),
	}
}

func (r *repoStub) CreateCourse(ctx context.Context, crs Course) (Course, error) {
	r.courses[crs.ID] = crs
	return crs, nil
}

func (r *repoStub) GetCourseByID(ctx context.Context, id string) (Course, error) {
	crs, ok := r.courses[id]
	if !ok {
		return Course{}, ErrCourseNotFound
	}
	return crs, nil
}

func (r *repoStub) GetCourseByCode(ctx context.Context, code string) (Course, error) {
	for _, crs := range r.courses {
		if crs.Code == code {
			return crs, nil
		}
	}
	return Course{}, ErrCourseNotFound
}

func (r *repoStub) QueryAllCourses(ctx context.Context) ([]Course, error) {
	var courses []Course
	for _, crs := range r.courses {
		courses = append(courses, crs)
	}
	return courses, nil
}

func (r *repoStub) CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error) {
	r.enrollments[enr.ID] = enr
	return enr, nil
}

func (r *repoStub) GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error) {
	enr, ok := r.enrollments[id]
	if !ok {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	return enr, nil
}

func (r *repoStub) FilterEnrollments(ctx context.Context, filter Filter) ([]Enrollment, error) {
	var enrs []Enrollment
	for _, enr := range r.enrollments {
		if filter.StudentID != "" && enr.StudentID != filter.StudentID {
			continue
		}
		if filter.CourseID != "" && enr.CourseID != filter.CourseID {
			continue
		}
		if filter.SemesterID != "" && enr.SemesterID != filter.SemesterID {
			continue
		}
		if filter.Status != "" && enr.Status != filter.Status {
			continue
		}
		enrs = append(enrs, enr)
	}
	return enrs, nil
}

func (r *repoStub) SaveEnrollmentWithAudit(ctx context.Context, enr Enrollment, entry AuditEntry) (Enrollment, error) {
	if _, ok := r.enrollments[enr.ID]; !ok {
		return Enrollment{}, ErrEnrollmentNotFound
	}
	r.enrollments[enr.ID] = enr
	r.audit = append(r.audit, entry)
	return enr, nil
}

func (r *repoStub) ListAuditEntries(ctx context.Context, enrollmentID string) ([]AuditEntry, error) {
	var entries []AuditEntry
	for _, entry := range r.audit {
		if entry.EnrollmentID == enrollmentID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *repoStub) CreatePrerequisite(ctx context.Context, pre Prerequisite) (Prerequisite, error) {
	r.prereqs = append(r.prereqs, pre)
	return pre, nil
}

func (r *repoStub) ListPrerequisites(ctx context.Context, courseID string) ([]Prerequisite, error) {
	var pres []Prerequisite
	for _, pre := range r.prereqs {
		if pre.CourseID == courseID {
			pres = append(pres, pre)
		}
	}
	return pres, nil
}

func (r *repoStub) CreateTimeSlot(ctx context.Context, ts TimeSlot) (TimeSlot, error) {
	r.slots = append(r.slots, ts)
	return ts, nil
}

func (r *repoStub) ListTimeSlots(ctx context.Context, semesterID string, courseIDs ...string) ([]TimeSlot, error) {
	var slots []TimeSlot
	for _, ts := range r.slots {
		if ts.SemesterID == semesterID {
			slots = append(slots, ts)
		}
	}
	return slots, nil
}

type notifStub struct {
	core.NotificationService
	sent []string // "userID:kind"
}

func (n *notifStub) Notify(ctx context.Context, userID, kind, title, message, url string) error {
	n.sent = append(n.sent, userID+":"+kind)
	return nil
}

// gradingStub records summary refreshes; any other grading.Service call is
// a test bug and panics on the nil embedded interface.
type gradingStub struct {
	grading.Service
	refreshed []string
}

func (g *gradingStub) RefreshSummary(ctx context.Context, studentID, semesterID string) (grading.SemesterSummary, error) {
	g.refreshed = append(g.refreshed, studentID+"/"+semesterID)
	return grading.SemesterSummary{StudentID: studentID, SemesterID: semesterID}, nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func newTestService(repo *repoStub) (Service, *notifStub) {
	nsvc := &notifStub{}
	return NewService(repo, &gradingStub{}, nsvc, nopLogger{}), nsvc
}

func TestTimeSlotOverlaps(t *testing.T) {
	base := TimeSlot{DayOfWeek: 1, StartMinutes: 540, EndMinutes: 600} // Mon 09:00-10:00
	tests := []struct {
		name  string
		other TimeSlot
		want  bool
	}{
		{"different day", TimeSlot{DayOfWeek: 2, StartMinutes: 540, EndMinutes: 600}, false},
		{"disjoint before", TimeSlot{DayOfWeek: 1, StartMinutes: 420, EndMinutes: 480}, false},
		{"disjoint after", TimeSlot{DayOfWeek: 1, StartMinutes: 660, EndMinutes: 720}, false},
		{"contained", TimeSlot{DayOfWeek: 1, StartMinutes: 550, EndMinutes: 590}, true},
		{"straddles start", TimeSlot{DayOfWeek: 1, StartMinutes: 500, EndMinutes: 560}, true},
		{"shared boundary minute", TimeSlot{DayOfWeek: 1, StartMinutes: 600, EndMinutes: 660}, true},
		{"identical", base, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, base.Overlaps(tt.other))
			assert.Equal(t, tt.want, tt.other.Overlaps(base)) // symmetric
		})
	}
}

func TestServiceEnroll(t *testing.T) {
	ctx := context.Background()

	ne := NewEnrollment{
		StudentID:  "aba05b34-75e1-4826-8a32-d634b6e1cbbe",
		CourseID:   "ca7e39b2-8e62-4457-9edc-9e45487a2a83",
		SemesterID: "bf47e3aa-9ab3-4697-a8a6-052827d160b0",
	}
	require.NoError(t, ne.Validate())

	t.Run("auto-active without approval", func(t *testing.T) {
		repo := newRepoStub()
		svc, _ := newTestService(repo)

		enr, err := svc.Enroll(ctx, ne)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, enr.Status)
	})

	t.Run("pending when approval required", func(t *testing.T) {
		repo := newRepoStub()
		svc, _ := newTestService(repo)

		withApproval := ne
		withApproval.RequiresApproval = true
		enr, err := svc.Enroll(ctx, withApproval)
		require.NoError(t, err)
		assert.Equal(t, StatusPendingApproval, enr.Status)
	})

	t.Run("no duplicate live enrollment", func(t *testing.T) {
		repo := newRepoStub()
		svc, _ := newTestService(repo)

		_, err := svc.Enroll(ctx, ne)
		require.NoError(t, err)
		_, err = svc.Enroll(ctx, ne)
		require.Error(t, err)
		var vErr *core.ValidationError
		require.ErrorAs(t, err, &vErr)
	})

	t.Run("withdrawn enrollment can be retaken", func(t *testing.T) {
		repo := newRepoStub()
		svc, _ := newTestService(repo)

		enr, err := svc.Enroll(ctx, ne)
		require.NoError(t, err)
		_, err = svc.Withdraw(ctx, enr.ID, enr.StudentID)
		require.NoError(t, err)

		_, err = svc.Enroll(ctx, ne)
		assert.NoError(t, err)
	})
}

func TestServiceApproveReject(t *testing.T) {
	ctx := context.Background()

	pending := func(svc Service) Enrollment {
		enr, err := svc.Enroll(ctx, NewEnrollment{
			StudentID:        "aba05b34-75e1-4826-8a32-d634b6e1cbbe",
			CourseID:         "ca7e39b2-8e62-4457-9edc-9e45487a2a83",
			SemesterID:       "bf47e3aa-9ab3-4697-a8a6-052827d160b0",
			RequiresApproval: true,
		})
		require.NoError(t, err)
		return enr
	}

	t.Run("approve activates, audits and notifies", func(t *testing.T) {
		repo := newRepoStub()
		svc, nsvc := newTestService(repo)
		enr := pending(svc)

		got, err := svc.Approve(ctx, enr.ID, "admin1")
		require.NoError(t, err)
		assert.Equal(t, StatusActive, got.Status)

		require.Len(t, repo.audit, 1)
		entry := repo.audit[0]
		assert.Equal(t, ActionApprove, entry.Action)
		assert.Equal(t, "admin1", entry.ActorID)
		assert.Equal(t, StatusPendingApproval, entry.OldStatus)
		assert.Equal(t, StatusActive, entry.NewStatus)

		assert.Equal(t, []string{enr.StudentID + ":" + core.NotifyEnrollmentApproved}, nsvc.sent)
	})

	t.Run("reject records the reason", func(t *testing.T) {
		repo := newRepoStub()
		svc, nsvc := newTestService(repo)
		enr := pending(svc)

		got, err := svc.Reject(ctx, enr.ID, "quota full", "admin1")
		require.NoError(t, err)
		assert.Equal(t, StatusRejected, got.Status)
		assert.Equal(t, "quota full", got.RejectReason.String)

		require.Len(t, repo.audit, 1)
		assert.Equal(t, "quota full", repo.audit[0].Reason.String)
		assert.Len(t, nsvc.sent, 1)
	})

	t.Run("double approve errors", func(t *testing.T) {
		repo := newRepoStub()
		svc, _ := newTestService(repo)
		enr := pending(svc)

		_, err := svc.Approve(ctx, enr.ID, "admin1")
		require.NoError(t, err)
		_, err = svc.Approve(ctx, enr.ID, "admin1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})

	t.Run("audit trail is append-only and ordered", func(t *testing.T) {
		repo := newRepoStub()
		svc, _ := newTestService(repo)
		enr := pending(svc)

		_, err := svc.Approve(ctx, enr.ID, "admin1")
		require.NoError(t, err)
		_, err = svc.Complete(ctx, enr.ID, "admin1")
		require.NoError(t, err)

		trail, err := svc.AuditTrail(ctx, enr.ID)
		require.NoError(t, err)
		require.Len(t, trail, 2)
		assert.Equal(t, ActionApprove, trail[0].Action)
		assert.Equal(t, ActionComplete, trail[1].Action)
	})

	t.Run("completion refreshes the grade summary", func(t *testing.T) {
		repo := newRepoStub()
		gsvc := &gradingStub{}
		svc := NewService(repo, gsvc, &notifStub{}, nopLogger{})
		enr := pending(svc)

		_, err := svc.Approve(ctx, enr.ID, "admin1")
		require.NoError(t, err)
		_, err = svc.Complete(ctx, enr.ID, "admin1")
		require.NoError(t, err)

		require.Len(t, gsvc.refreshed, 1)
		assert.Equal(t, enr.StudentID+"/"+enr.SemesterID, gsvc.refreshed[0])
	})
}

func TestServiceCreateCourse(t *testing.T) {
	ctx := context.Background()
	repo := newRepoStub()
	svc, _ := newTestService(repo)

	nc := NewCourse{Code: "CSC101", Title: "Intro to Computing", CreditUnits: 3}
	require.NoError(t, nc.Validate())
	assert.Equal(t, "csc101", nc.Code) // normalized

	crs, err := svc.CreateCourse(ctx, nc)
	require.NoError(t, err)
	assert.NotEmpty(t, crs.ID)

	_, err = svc.CreateCourse(ctx, nc)
	require.Error(t, err)
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
}
