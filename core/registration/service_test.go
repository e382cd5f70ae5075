package registration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/chuoapp/chuo/core"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/grading"
)

type repoStub struct {
	registrations map[string]Registration // studentID/semesterID
	audit         []AuditEntry
	insurance     InsuranceConfig
	program       Program
	completed     []CompletedCourse
	requested     []RequestedCourse
}

var _ Repository = (*repoStub)(nil)

func newRepoStub() *repoStub {
	return &repoStub{
		registrations: make(map[string]Registration),
		insurance:     InsuranceConfig{Requirement: InsuranceOptional},
	}
}

func regKey(studentID, semesterID string) string { return studentID + "/" + semesterID }

func (r *repoStub) GetRegistration(ctx context.Context, studentID, semesterID string) (Registration, error) {
	reg, ok := r.registrations[regKey(studentID, semesterID)]
	if !ok {
		return Registration{}, ErrNotFound
	}
	return reg, nil
}

func (r *repoStub) CreateRegistration(ctx context.Context, reg Registration) (Registration, error) {
	r.registrations[regKey(reg.StudentID, reg.SemesterID)] = reg
	return reg, nil
}

func (r *repoStub) SaveRegistrationWithAudit(ctx context.Context, reg Registration, entry AuditEntry) (Registration, error) {
	r.registrations[regKey(reg.StudentID, reg.SemesterID)] = reg
	r.audit = append(r.audit, entry)
	return reg, nil
}

func (r *repoStub) ListAuditEntries(ctx context.Context, registrationID string) ([]AuditEntry, error) {
	var entries []AuditEntry
	for _, entry := range r.audit {
		if entry.RegistrationID == registrationID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *repoStub) GetInsuranceConfig(ctx context.Context) (InsuranceConfig, error) {
	return r.insurance, nil
}

func (r *repoStub) SetInsuranceConfig(ctx context.Context, cfg InsuranceConfig) error {
	r.insurance = cfg
	return nil
}

func (r *repoStub) GetProgramForStudent(ctx context.Context, studentID string) (Program, error) {
	return r.program, nil
}

func (r *repoStub) ListCompletedCourses(ctx context.Context, studentID string) ([]CompletedCourse, error) {
	return r.completed, nil
}

func (r *repoStub) ListRequestedCourses(ctx context.Context, studentID, semesterID string) ([]RequestedCourse, error) {
	return r.requested, nil
}

// gradingStub serves a fixed CGPA; any other grading.Service call panics
// on the nil embedded interface.
type gradingStub struct {
	grading.Service
	cgpa float64
}

func (g *gradingStub) CumulativeGPA(ctx context.Context, studentID string) (float64, error) {
	return g.cgpa, nil
}

type enrollStub struct {
	enrollment.Service
	prereqs map[string][]enrollment.Prerequisite // courseID
	slots   []enrollment.TimeSlot
}

func (e *enrollStub) Prerequisites(ctx context.Context, courseID string) ([]enrollment.Prerequisite, error) {
	return e.prereqs[courseID], nil
}

func (e *enrollStub) TimeSlots(ctx context.Context, semesterID string, courseIDs ...string) ([]enrollment.TimeSlot, error) {
	return e.slots, nil
}

type notifStub struct {
	core.NotificationService
	sent []string // "userID:kind"
}

func (n *notifStub) Notify(ctx context.Context, userID, kind, title, message, url string) error {
	n.sent = append(n.sent, userID+":"+kind)
	return nil
}

type nopLogger struct{}

func (nopLogger) Enable(bool)                  {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type testEnv struct {
	repo   *repoStub
	gsvc   *gradingStub
	esvc   *enrollStub
	nsvc   *notifStub
	svc    Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo: newRepoStub(),
		gsvc: &gradingStub{cgpa: 3.0},
		esvc: &enrollStub{prereqs: make(map[string][]enrollment.Prerequisite)},
		nsvc: &notifStub{},
	}
	env.svc = NewService(env.repo, env.gsvc, env.esvc, env.nsvc, nopLogger{})
	return env
}

// eligibleEnv seeds a student who passes every check: fees verified,
// threshold met, no requirements, no prereqs, no conflicts, no block.
func eligibleEnv(t *testing.T) *testEnv {
	t.Helper()
	env := newTestEnv()
	env.repo.program = Program{ID: "prog1", Name: "BSc Computer Science", CreditThreshold: 24}
	env.repo.completed = []CompletedCourse{
		{CourseID: "crs1", CourseCode: "csc101", CreditUnits: 12},
		{CourseID: "crs2", CourseCode: "mth101", CreditUnits: 12},
	}
	env.repo.requested = []RequestedCourse{{CourseID: "crs3", CourseCode: "csc201"}}

	ctx := context.Background()
	_, err := env.svc.VerifyFees(ctx, "stud1", "sem2", "admin1")
	require.NoError(t, err)
	return env
}

func TestServiceCanRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("eligible student has no reasons", func(t *testing.T) {
		env := eligibleEnv(t)
		dec, err := env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		assert.True(t, dec.Eligible)
		assert.Empty(t, dec.Reasons)
	})

	t.Run("reasons accumulate, never short-circuit", func(t *testing.T) {
		env := eligibleEnv(t)
		// below the CGPA minimum AND missing a mandatory core course
		env.repo.program.MinCGPA = null.Float64From(2.0)
		env.repo.program.Requirements = []ProgramRequirement{
			{CourseID: "crs9", CourseCode: "gst101", Type: RequirementCore, Mandatory: true},
		}
		env.gsvc.cgpa = 1.5

		dec, err := env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		assert.False(t, dec.Eligible)
		require.Len(t, dec.Reasons, 2)
		assert.Contains(t, dec.Reasons[0], "CGPA 1.50")
		assert.Contains(t, dec.Reasons[1], "gst101")
	})

	t.Run("credit threshold", func(t *testing.T) {
		env := eligibleEnv(t)
		env.repo.program.CreditThreshold = 30

		dec, err := env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		require.Len(t, dec.Reasons, 1)
		assert.Contains(t, dec.Reasons[0], "credit units 24 below the required 30")
	})

	t.Run("only required prerequisites block", func(t *testing.T) {
		env := eligibleEnv(t)
		env.esvc.prereqs["crs3"] = []enrollment.Prerequisite{
			{CourseID: "crs3", RequiredCourseID: "crs8", Kind: enrollment.KindRecommended},
		}
		dec, err := env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		assert.True(t, dec.Eligible)

		env.esvc.prereqs["crs3"] = []enrollment.Prerequisite{
			{CourseID: "crs3", RequiredCourseID: "crs8", Kind: enrollment.KindRequired},
		}
		dec, err = env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		require.Len(t, dec.Reasons, 1)
		assert.Contains(t, dec.Reasons[0], "prerequisite of csc201")
	})

	t.Run("timetable conflict between requested courses", func(t *testing.T) {
		env := eligibleEnv(t)
		env.repo.requested = []RequestedCourse{
			{CourseID: "crs3", CourseCode: "csc201"},
			{CourseID: "crs4", CourseCode: "mth201"},
		}
		env.esvc.slots = []enrollment.TimeSlot{
			{CourseID: "crs3", SemesterID: "sem2", DayOfWeek: 1, StartMinutes: 540, EndMinutes: 600},
			{CourseID: "crs4", SemesterID: "sem2", DayOfWeek: 1, StartMinutes: 570, EndMinutes: 630},
		}

		dec, err := env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		require.Len(t, dec.Reasons, 1)
		assert.Contains(t, dec.Reasons[0], "timetable conflict between csc201 and mth201")
	})

	t.Run("administrative block gates unless overridden", func(t *testing.T) {
		env := eligibleEnv(t)
		_, err := env.svc.Block(ctx, "stud1", "sem2", "disciplinary case", "admin1")
		require.NoError(t, err)

		dec, err := env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		require.Len(t, dec.Reasons, 1)
		assert.Contains(t, dec.Reasons[0], "disciplinary case")

		_, err = env.svc.Override(ctx, "stud1", "sem2", "cleared by senate", "admin1")
		require.NoError(t, err)

		dec, err = env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		assert.True(t, dec.Eligible)
	})

	t.Run("unverified fees block", func(t *testing.T) {
		env := eligibleEnv(t)
		reg := env.repo.registrations[regKey("stud1", "sem2")]
		reg.FeesVerified = false
		env.repo.registrations[regKey("stud1", "sem2")] = reg

		dec, err := env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		require.Len(t, dec.Reasons, 1)
		assert.Contains(t, dec.Reasons[0], "fee payment")
	})

	t.Run("insurance blocks only when mandatory and blocking", func(t *testing.T) {
		env := eligibleEnv(t)
		env.repo.insurance = InsuranceConfig{Requirement: InsuranceMandatory, BlocksRegistration: false}
		dec, err := env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		assert.True(t, dec.Eligible)

		env.repo.insurance = InsuranceConfig{Requirement: InsuranceMandatory, BlocksRegistration: true}
		dec, err = env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		require.Len(t, dec.Reasons, 1)
		assert.Contains(t, dec.Reasons[0], "insurance")

		_, err = env.svc.VerifyInsurance(ctx, "stud1", "sem2", "admin1")
		require.NoError(t, err)
		dec, err = env.svc.CanRegister(ctx, "stud1", "sem2")
		require.NoError(t, err)
		assert.True(t, dec.Eligible)
	})
}

func TestServiceBlockTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("block creates the row, audits and notifies", func(t *testing.T) {
		env := newTestEnv()
		reg, err := env.svc.Block(ctx, "stud1", "sem2", "unpaid library fine", "admin1")
		require.NoError(t, err)
		assert.True(t, reg.IsBlocked())
		assert.Equal(t, "unpaid library fine", reg.BlockReason.String)

		require.Len(t, env.repo.audit, 1)
		assert.Equal(t, ActionBlock, env.repo.audit[0].Action)
		assert.Equal(t, []string{"stud1:" + core.NotifyRegistrationBlock}, env.nsvc.sent)
	})

	t.Run("double block errors", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.Block(ctx, "stud1", "sem2", "x", "admin1")
		require.NoError(t, err)
		_, err = env.svc.Block(ctx, "stud1", "sem2", "y", "admin1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})

	t.Run("unblock requires an existing block", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.VerifyFees(ctx, "stud1", "sem2", "admin1")
		require.NoError(t, err)

		_, err = env.svc.Unblock(ctx, "stud1", "sem2", "admin1")
		require.Error(t, err)
		assert.True(t, core.IsPrecondition(err))
	})

	t.Run("unblock clears block and override", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.Block(ctx, "stud1", "sem2", "x", "admin1")
		require.NoError(t, err)
		_, err = env.svc.Override(ctx, "stud1", "sem2", "appeal", "admin1")
		require.NoError(t, err)

		reg, err := env.svc.Unblock(ctx, "stud1", "sem2", "admin1")
		require.NoError(t, err)
		assert.False(t, reg.RegistrationBlocked)
		assert.False(t, reg.BlockOverridden)
		assert.False(t, reg.BlockReason.Valid)

		trail, err := env.svc.AuditTrail(ctx, "stud1", "sem2")
		require.NoError(t, err)
		require.Len(t, trail, 3)
		assert.Equal(t, ActionBlock, trail[0].Action)
		assert.Equal(t, ActionOverride, trail[1].Action)
		assert.Equal(t, ActionUnblock, trail[2].Action)
	})
}
