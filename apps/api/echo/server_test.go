package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/chuoapp/chuo/apps/api/echo"
	"github.com/chuoapp/chuo/core/academic"
	"github.com/chuoapp/chuo/core/assessment"
	"github.com/chuoapp/chuo/core/enrollment"
	"github.com/chuoapp/chuo/core/grading"
	"github.com/chuoapp/chuo/core/registration"
	"github.com/chuoapp/chuo/core/user"
	emailsvc "github.com/chuoapp/chuo/services/email"
	logsvc "github.com/chuoapp/chuo/services/logger"
	notifsvc "github.com/chuoapp/chuo/services/notification"
	dummydb "github.com/chuoapp/chuo/storage/database/dummy"
)

type testEnv struct {
	server  echoapi.Server
	db      *dummydb.DB
	usrRepo user.Repository
}

func setup(t *testing.T) *testEnv {
	t.Helper()

	db, err := dummydb.Open()
	require.NoError(t, err)

	usrRepo := dummydb.NewUserRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock()
	logger := logsvc.NewConsoleLogger(log.New(io.Discard, "", 0))

	usrSvc := user.NewServiceMock(usrRepo, mailSvc)
	notifSvc := notifsvc.NewService(dummydb.NewNotificationRepository(db), usrSvc, mailSvc, logger)
	academicSvc := academic.NewService(dummydb.NewAcademicRepository(db))
	gradingSvc := grading.NewService(dummydb.NewGradingRepository(db))
	assessmentSvc := assessment.NewService(dummydb.NewAssessmentRepository(db), gradingSvc, notifSvc, logger)
	enrollmentSvc := enrollment.NewService(dummydb.NewEnrollmentRepository(db), gradingSvc, notifSvc, logger)
	registrationSvc := registration.NewService(dummydb.NewRegistrationRepository(db), gradingSvc, enrollmentSvc, notifSvc, logger)

	srv := echoapi.NewServer(&echoapi.Options{
		DisableReqLogs:  true,
		UserSvc:         usrSvc,
		AcademicSvc:     academicSvc,
		GradingSvc:      gradingSvc,
		AssessmentSvc:   assessmentSvc,
		EnrollmentSvc:   enrollmentSvc,
		RegistrationSvc: registrationSvc,
		NotifSvc:        notifSvc,
		Logger:          logger,
	})
	return &testEnv{server: srv, db: db, usrRepo: usrRepo}
}

func (env *testEnv) createUser(t *testing.T, name, uname, email, pwd string, roles []string) user.User {
	t.Helper()

	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Username:  uname,
		Email:     email,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, usr.SetPassword(pwd))

	usr, err := env.usrRepo.CreateUser(context.Background(), usr)
	require.NoError(t, err)
	return usr
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr))
	require.NoError(t, err)
	return token
}

func (env *testEnv) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.server.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func TestHome(t *testing.T) {
	env := setup(t)
	rec := env.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	env := setup(t)
	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	env := setup(t)
	env.createUser(t, "Asha Juma", "ashajuma", "asha@test.cd", "s3cr3t!", []string{user.RoleStudent})

	t.Run("valid credentials", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/login", "", echoapi.LoginRequest{Username: "ashajuma", Password: "s3cr3t!"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp echoapi.LoginResponse
		decodeInto(t, rec, &resp)
		assert.NotEmpty(t, resp.Token)
	})

	t.Run("wrong password", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/login", "", echoapi.LoginRequest{Username: "ashajuma", Password: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/users/login", "", echoapi.LoginRequest{Username: "ghost", Password: "nope"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAuthRequired(t *testing.T) {
	env := setup(t)
	rec := env.do(t, http.MethodGet, "/v1/semesters", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSemesterLifecycle(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Registrar", "registrar1", "reg@test.cd", "pwd", []string{user.RoleAdminRegistrar})
	student := env.createUser(t, "Student", "student1", "stud@test.cd", "pwd", []string{user.RoleStudent})
	adminToken := getToken(t, admin)
	studentToken := getToken(t, student)

	now := time.Now().UTC()
	newSem := academic.NewSemester{
		AcademicYearID: uuid.NewString(),
		Name:           "2026-1",
		Number:         1,
		StartDate:      now,
		EndDate:        now.AddDate(0, 4, 0),
	}

	t.Run("student cannot create", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/semesters", studentToken, newSem)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var sem academic.Semester
	t.Run("admin creates", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/semesters", adminToken, newSem)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeInto(t, rec, &sem)
		assert.Equal(t, "2026-1", sem.Name)
		assert.False(t, sem.IsCurrent)
	})

	t.Run("no current semester yet", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/semesters/current", studentToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("activate then current", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/semesters/"+sem.ID+"/activate", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodGet, "/v1/semesters/current", studentToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var current academic.Semester
		decodeInto(t, rec, &current)
		assert.Equal(t, sem.ID, current.ID)
		assert.True(t, current.IsCurrent)
	})
}

func TestGradingScale(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Dean", "deanuser", "dean@test.cd", "pwd", []string{user.RoleAdminDean})
	student := env.createUser(t, "Student", "student1", "stud@test.cd", "pwd", []string{user.RoleStudent})
	adminToken := getToken(t, admin)
	studentToken := getToken(t, student)

	t.Run("default scale served", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/grading/scale", studentToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var scale grading.Scale
		decodeInto(t, rec, &scale)
		require.Len(t, scale, 6)
		assert.Equal(t, "A", scale[0].Letter)
	})

	t.Run("student cannot replace", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/v1/grading/scale", studentToken, grading.DefaultScale())
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("gapped scale rejected", func(t *testing.T) {
		bad := grading.Scale{
			{Letter: "A", MinPercent: 50, MaxPercent: 100, GradePoint: 5, IsPassing: true, Order: 1},
			{Letter: "F", MinPercent: 0, MaxPercent: 40, GradePoint: 0, Order: 2},
		}
		rec := env.do(t, http.MethodPut, "/v1/grading/scale", adminToken, bad)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("admin replaces", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/v1/grading/scale", adminToken, grading.DefaultScale())
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestStudentRecordsAccess(t *testing.T) {
	env := setup(t)
	stud1 := env.createUser(t, "Asha", "student1", "s1@test.cd", "pwd", []string{user.RoleStudent})
	stud2 := env.createUser(t, "Neema", "student2", "s2@test.cd", "pwd", []string{user.RoleStudent})
	admin := env.createUser(t, "Registrar", "registrar1", "reg@test.cd", "pwd", []string{user.RoleAdminRegistrar})

	t.Run("own transcript", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/students/"+stud1.ID+"/transcript", getToken(t, stud1), nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var tr grading.Transcript
		decodeInto(t, rec, &tr)
		assert.Equal(t, stud1.ID, tr.StudentID)
		assert.Empty(t, tr.Entries)
	})

	t.Run("other student's transcript denied", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/students/"+stud1.ID+"/transcript", getToken(t, stud2), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin reads any transcript", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/students/"+stud1.ID+"/transcript", getToken(t, admin), nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("own cgpa", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/students/"+stud1.ID+"/gpa", getToken(t, stud1), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp echoapi.GPAResponse
		decodeInto(t, rec, &resp)
		assert.Zero(t, resp.GPA)
	})
}

func TestCAWorkflow(t *testing.T) {
	env := setup(t)
	lecturer := env.createUser(t, "Dkt. Mwangi", "lecturer1", "lect@test.cd", "pwd", []string{user.RoleLecturer})
	admin := env.createUser(t, "Dean", "deanuser", "dean@test.cd", "pwd", []string{user.RoleAdminDean})
	student := env.createUser(t, "Asha", "student1", "s1@test.cd", "pwd", []string{user.RoleStudent})
	lectToken := getToken(t, lecturer)
	adminToken := getToken(t, admin)
	studToken := getToken(t, student)

	newCA := assessment.NewContinuousAssessment{
		StudentID:  student.ID,
		CourseID:   uuid.NewString(),
		SemesterID: uuid.NewString(),
		Type:       assessment.TypeQuiz,
		Number:     1,
		Score:      18,
		MaxScore:   20,
		Weight:     10,
	}

	t.Run("student cannot create", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/assessments/ca", studToken, newCA)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	var ca assessment.ContinuousAssessment
	t.Run("lecturer creates", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/assessments/ca", lectToken, newCA)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeInto(t, rec, &ca)
		assert.Equal(t, lecturer.ID, ca.LecturerID)
		assert.Equal(t, assessment.ApprovalPending, ca.ApprovalStatus)
	})

	t.Run("approve before submission fails", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/assessments/ca/"+ca.ID+"/approve", adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("lock submit approve", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/assessments/ca/"+ca.ID+"/lock", lectToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/v1/assessments/ca/"+ca.ID+"/submit", lectToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodPost, "/v1/assessments/ca/"+ca.ID+"/approve", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		decodeInto(t, rec, &ca)
		assert.Equal(t, assessment.ApprovalApproved, ca.ApprovalStatus)
	})

	t.Run("locked row rejects score edits", func(t *testing.T) {
		rec := env.do(t, http.MethodPut, "/v1/assessments/ca/"+ca.ID+"/score", lectToken,
			assessment.UpdateScore{Score: 15, Version: ca.Version})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("lecturer cannot approve", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/assessments/ca/"+ca.ID+"/approve", lectToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown row", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/assessments/ca/"+uuid.NewString()+"/approve", adminToken, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestExamPublication(t *testing.T) {
	env := setup(t)
	lecturer := env.createUser(t, "Dkt. Mwangi", "lecturer1", "lect@test.cd", "pwd", []string{user.RoleLecturer})
	admin := env.createUser(t, "Dean", "deanuser", "dean@test.cd", "pwd", []string{user.RoleAdminDean})
	student := env.createUser(t, "Asha", "student1", "s1@test.cd", "pwd", []string{user.RoleStudent})
	lectToken := getToken(t, lecturer)
	adminToken := getToken(t, admin)
	studToken := getToken(t, student)

	var exam assessment.FinalExam
	rec := env.do(t, http.MethodPost, "/v1/assessments/exams", lectToken, assessment.NewFinalExam{
		StudentID:  student.ID,
		CourseID:   uuid.NewString(),
		SemesterID: uuid.NewString(),
		Score:      55,
		MaxScore:   70,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decodeInto(t, rec, &exam)

	t.Run("publish requires approved moderation", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/assessments/exams/"+exam.ID+"/publish", adminToken, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("moderate and publish", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/assessments/exams/"+exam.ID+"/lock", lectToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = env.do(t, http.MethodPost, "/v1/assessments/exams/"+exam.ID+"/submit", lectToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = env.do(t, http.MethodPost, "/v1/assessments/exams/"+exam.ID+"/approve", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		rec = env.do(t, http.MethodPost, "/v1/assessments/exams/"+exam.ID+"/publish", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		decodeInto(t, rec, &exam)
		assert.True(t, exam.PublishedAt.Valid)
	})

	t.Run("student sees own published result only", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/assessments/exams", studToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var exams []assessment.FinalExam
		decodeInto(t, rec, &exams)
		require.Len(t, exams, 1)
		assert.Equal(t, exam.ID, exams[0].ID)
	})

	t.Run("other students see nothing", func(t *testing.T) {
		other := env.createUser(t, "Neema", "student2", "s2@test.cd", "pwd", []string{user.RoleStudent})
		rec := env.do(t, http.MethodGet, "/v1/assessments/exams", getToken(t, other), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var exams []assessment.FinalExam
		decodeInto(t, rec, &exams)
		assert.Empty(t, exams)
	})
}

func TestEnrollmentFlow(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Registrar", "registrar1", "reg@test.cd", "pwd", []string{user.RoleAdminRegistrar})
	student := env.createUser(t, "Asha", "student1", "s1@test.cd", "pwd", []string{user.RoleStudent})
	adminToken := getToken(t, admin)
	studToken := getToken(t, student)

	var course enrollment.Course
	rec := env.do(t, http.MethodPost, "/v1/courses", adminToken, enrollment.NewCourse{Code: "CSC101", Title: "Intro to Computing", CreditUnits: 3})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	decodeInto(t, rec, &course)
	assert.Equal(t, "csc101", course.Code)

	semesterID := uuid.NewString()

	var enr enrollment.Enrollment
	t.Run("student enrolls self", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/enrollments", studToken, enrollment.NewEnrollment{
			StudentID:        student.ID, // overwritten by the server from the token
			CourseID:         course.ID,
			SemesterID:       semesterID,
			RequiresApproval: true,
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		decodeInto(t, rec, &enr)
		assert.Equal(t, student.ID, enr.StudentID)
		assert.Equal(t, enrollment.StatusPendingApproval, enr.Status)
	})

	t.Run("duplicate enrollment rejected", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/enrollments", studToken, enrollment.NewEnrollment{
			CourseID:   course.ID,
			SemesterID: semesterID,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("student cannot approve", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/enrollments/"+enr.ID+"/approve", studToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin approves", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/enrollments/"+enr.ID+"/approve", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decodeInto(t, rec, &enr)
		assert.Equal(t, enrollment.StatusActive, enr.Status)
	})

	t.Run("audit trail", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, "/v1/enrollments/"+enr.ID+"/audit", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var entries []enrollment.AuditEntry
		decodeInto(t, rec, &entries)
		require.Len(t, entries, 1)
		assert.Equal(t, enrollment.ActionApprove, entries[0].Action)
		assert.Equal(t, admin.ID, entries[0].ActorID)
	})

	t.Run("student withdraws self", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, "/v1/enrollments/"+enr.ID+"/withdraw", studToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		decodeInto(t, rec, &enr)
		assert.Equal(t, enrollment.StatusWithdrawn, enr.Status)
	})
}

func TestRegistrationGate(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Registrar", "registrar1", "reg@test.cd", "pwd", []string{user.RoleAdminRegistrar})
	student := env.createUser(t, "Asha", "student1", "s1@test.cd", "pwd", []string{user.RoleStudent})
	adminToken := getToken(t, admin)
	studToken := getToken(t, student)

	env.db.SeedProgram(registration.Program{
		ID:              uuid.NewString(),
		Name:            "BSc Computer Science",
		CreditThreshold: 0,
	}, student.ID)

	semesterID := uuid.NewString()
	base := "/v1/registrations/" + student.ID + "/" + semesterID

	t.Run("fees gate eligibility", func(t *testing.T) {
		rec := env.do(t, http.MethodGet, base+"/eligibility", studToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var decision registration.Decision
		decodeInto(t, rec, &decision)
		assert.False(t, decision.Eligible)
		assert.Contains(t, decision.Reasons, "fee payment not verified")
	})

	t.Run("verify fees then eligible", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/verify-fees", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodGet, base+"/eligibility", studToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var decision registration.Decision
		decodeInto(t, rec, &decision)
		assert.True(t, decision.Eligible, decision.Reasons)
	})

	t.Run("block and override", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/block", adminToken, echoapi.ReasonRequest{Reason: "disciplinary case 12"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodGet, base+"/eligibility", studToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var decision registration.Decision
		decodeInto(t, rec, &decision)
		assert.False(t, decision.Eligible)

		rec = env.do(t, http.MethodPost, base+"/override", adminToken, echoapi.ReasonRequest{Reason: "appeal upheld"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(t, http.MethodGet, base+"/eligibility", studToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		decodeInto(t, rec, &decision)
		assert.True(t, decision.Eligible, decision.Reasons)
	})

	t.Run("student cannot block", func(t *testing.T) {
		rec := env.do(t, http.MethodPost, base+"/block", studToken, echoapi.ReasonRequest{Reason: "nope"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("other student cannot peek", func(t *testing.T) {
		other := env.createUser(t, "Neema", "student2", "s2@test.cd", "pwd", []string{user.RoleStudent})
		rec := env.do(t, http.MethodGet, base+"/eligibility", getToken(t, other), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestNotificationEndpoints(t *testing.T) {
	env := setup(t)
	admin := env.createUser(t, "Registrar", "registrar1", "reg@test.cd", "pwd", []string{user.RoleAdminRegistrar})
	student := env.createUser(t, "Asha", "student1", "s1@test.cd", "pwd", []string{user.RoleStudent})
	adminToken := getToken(t, admin)
	studToken := getToken(t, student)

	// blocking a registration notifies the student
	base := "/v1/registrations/" + student.ID + "/" + uuid.NewString()
	rec := env.do(t, http.MethodPost, base+"/block", adminToken, echoapi.ReasonRequest{Reason: "unpaid fees"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/v1/notifications", studToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var notifs []map[string]interface{}
	decodeInto(t, rec, &notifs)
	require.Len(t, notifs, 1)

	id, _ := notifs[0]["id"].(string)
	require.NotEmpty(t, id)

	rec = env.do(t, http.MethodPost, "/v1/notifications/"+id+"/read", studToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/v1/notifications", studToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodeInto(t, rec, &notifs)
	require.Len(t, notifs, 1)
	assert.NotNil(t, notifs[0]["read_at"])
}
