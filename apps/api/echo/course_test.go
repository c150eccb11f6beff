package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
	"github.com/researchnest/backend/testutil"
)

func Test_createCourse(t *testing.T) {
	app := setup(t)
	faculty := testutil.CreateUser(t, app.usrRepo, "Prof Essor", "prof@test.io", "", user.RoleFaculty, true)
	student := testutil.CreateUser(t, app.usrRepo, "Stu Dent", "stu@test.io", "", user.RoleStudent, true)

	outline := marchallObj(t, testutil.SampleOutline())
	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/api/courses", body: outline, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "faculty required", method: http.MethodPost, path: "/api/courses", body: outline, token: app.getToken(t, student),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "blank titles", method: http.MethodPost, path: "/api/courses", token: app.getToken(t, faculty),
			body: []byte(`{"course_title": "  ", "milestones": [{"milestone_title": ""}]}`), wantCode: http.StatusBadRequest,
		},
	})

	t.Run("created", func(t *testing.T) {
		rec := app.do(http.MethodPost, "/api/courses", app.getToken(t, faculty), outline)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var c course.Course
		unmarshal(t, rec, &c)
		assert.NotEmpty(t, c.ID)
		assert.Equal(t, "Research Methods", c.Title)
		assert.Equal(t, faculty.ID, c.CreatedBy)

		// the structure is readable by anyone authenticated, all LOCKED
		rec = app.do(http.MethodGet, "/api/courses/"+c.ID, app.getToken(t, student))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var view course.CourseView
		unmarshal(t, rec, &view)
		assert.Equal(t, course.StatusLocked, view.Status)
		assert.Equal(t, course.Progress{Total: 3, Locked: 3}, view.Progress)
		require.Len(t, view.Milestones, 2)
		assert.Equal(t, "Research Basics", view.Milestones[0].Title)
		assert.Equal(t, "Writing", view.Milestones[1].Title)
	})
}

func Test_queryCourses(t *testing.T) {
	app := setup(t)
	prof := testutil.CreateUser(t, app.usrRepo, "Prof Essor", "prof@test.io", "", user.RoleFaculty, true)
	other := testutil.CreateUser(t, app.usrRepo, "Oth Er", "other@test.io", "", user.RoleFaculty, true)
	student := testutil.CreateUser(t, app.usrRepo, "Stu Dent", "stu@test.io", "", user.RoleStudent, true)

	outline := testutil.SampleOutline()
	mine := testutil.CreateCourse(t, app.courseRepo, prof, outline)
	outline.Title = "Statistics"
	theirs := testutil.CreateCourse(t, app.courseRepo, other, outline)

	rec := app.do(http.MethodGet, "/api/courses", app.getToken(t, student))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var courses []course.Course
	unmarshal(t, rec, &courses)
	assert.ElementsMatch(t, []string{mine.Course.ID, theirs.Course.ID}, []string{courses[0].ID, courses[1].ID})

	runHTTPTests(t, app, []httpTest{
		{name: "mine", path: "/api/courses?mine=true", token: app.getToken(t, prof), wantData: marchallObj(t, []course.Course{mine.Course})},
		{name: "none of mine", path: "/api/courses?mine=true", token: app.getToken(t, student), wantData: []byte(`[]`)},
		{name: "unknown course", path: "/api/courses/nope", token: app.getToken(t, student), wantCode: http.StatusNotFound},
	})
}

// progressFixture is a course owned by faculty, which student is enrolled in.
type progressFixture struct {
	app      *testApp
	faculty  user.User
	student  user.User
	h        course.Hierarchy
	stuToken string
}

func newProgressFixture(t *testing.T) progressFixture {
	app := setup(t)
	f := progressFixture{
		app:     app,
		faculty: testutil.CreateUser(t, app.usrRepo, "Prof Essor", "prof@test.io", "", user.RoleFaculty, true),
		student: testutil.CreateUser(t, app.usrRepo, "Stu Dent", "stu@test.io", "", user.RoleStudent, true),
	}
	f.h = testutil.CreateCourse(t, app.courseRepo, f.faculty, testutil.SampleOutline())
	f.stuToken = app.getToken(t, f.student)

	rec := app.do(http.MethodPost, "/api/courses/"+f.h.Course.ID+"/enroll", f.stuToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return f
}

func (f progressFixture) subtaskPath(subtaskID string) string {
	return fmt.Sprintf("/api/courses/%s/progress/subtasks/%s", f.h.Course.ID, subtaskID)
}

func (f progressFixture) setStatus(t *testing.T, subtaskID string, status course.Status) course.CourseView {
	t.Helper()
	rec := f.app.do(http.MethodPut, f.subtaskPath(subtaskID), f.stuToken, marchallObj(t, echo.Map{"status": status}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view course.CourseView
	unmarshal(t, rec, &view)
	return view
}

func Test_enroll(t *testing.T) {
	f := newProgressFixture(t)
	app := f.app

	enrollPath := "/api/courses/" + f.h.Course.ID + "/enroll"
	runHTTPTests(t, app, []httpTest{
		{
			name: "already enrolled", method: http.MethodPost, path: enrollPath, token: f.stuToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: course.ErrAlreadyEnrolled.Error()}),
		},
		{
			name: "student required", method: http.MethodPost, path: enrollPath, token: app.getToken(t, f.faculty),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "unknown course", method: http.MethodPost, path: "/api/courses/nope/enroll", token: f.stuToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: course.ErrNotFound.Error()}),
		},
	})

	sent := app.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "enrollment", sent[0].TemplateName)
	assert.Equal(t, f.student.Email, sent[0].To[0].Address)

	rec := app.do(http.MethodGet, "/api/enrollments", f.stuToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var enrollments []course.Enrollment
	unmarshal(t, rec, &enrollments)
	require.Len(t, enrollments, 1)
	assert.Equal(t, f.h.Course.ID, enrollments[0].CourseID)
	assert.Equal(t, f.h.Course.Title, enrollments[0].CourseTitle)
}

func Test_courseProgress(t *testing.T) {
	f := newProgressFixture(t)
	app := f.app
	findPapers, readPapers, writeOutline := f.h.Subtasks[0].ID, f.h.Subtasks[1].ID, f.h.Subtasks[2].ID

	t.Run("nothing recorded", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/courses/"+f.h.Course.ID+"/progress", f.stuToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var view course.CourseView
		unmarshal(t, rec, &view)
		assert.Equal(t, course.StatusLocked, view.Status)
		assert.Equal(t, course.Progress{Total: 3, Locked: 3}, view.Progress)
	})

	t.Run("one subtask completed", func(t *testing.T) {
		view := f.setStatus(t, findPapers, course.StatusCompleted)

		basics := view.Milestones[0]
		assert.Equal(t, course.StatusCompleted, basics.Stages[0].Tasks[0].Subtasks[0].Status)
		assert.Equal(t, course.StatusLocked, basics.Stages[0].Tasks[0].Subtasks[1].Status)
		// LOCKED + COMPLETED siblings
		assert.Equal(t, course.StatusInProgress, basics.Stages[0].Tasks[0].Status)
		assert.Equal(t, course.StatusInProgress, basics.Stages[0].Status)
		assert.Equal(t, course.StatusInProgress, basics.Status)
		assert.Equal(t, course.StatusLocked, view.Milestones[1].Status)
		assert.Equal(t, course.StatusInProgress, view.Status)
		assert.Equal(t, course.Progress{Total: 3, Completed: 1, Locked: 2}, view.Progress)
	})

	t.Run("milestone completed", func(t *testing.T) {
		view := f.setStatus(t, readPapers, course.StatusCompleted)
		assert.Equal(t, course.StatusCompleted, view.Milestones[0].Status)
		assert.Equal(t, course.StatusInProgress, view.Status)
	})

	t.Run("course completed", func(t *testing.T) {
		view := f.setStatus(t, writeOutline, "completed")
		assert.Equal(t, course.StatusCompleted, view.Status)
		assert.Equal(t, course.Progress{Total: 3, Completed: 3}, view.Progress)
	})

	t.Run("last write wins", func(t *testing.T) {
		f.setStatus(t, writeOutline, course.StatusInProgress)
		view := f.setStatus(t, writeOutline, course.StatusLocked)
		assert.Equal(t, course.StatusLocked, view.Milestones[1].Status)
		assert.Equal(t, course.StatusInProgress, view.Status)

		rec := app.do(http.MethodGet, "/api/courses/"+f.h.Course.ID+"/progress", f.stuToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got course.CourseView
		unmarshal(t, rec, &got)
		assert.Equal(t, view, got)
	})
}

func Test_updateSubtaskStatus_errors(t *testing.T) {
	f := newProgressFixture(t)
	app := f.app
	subtaskID := f.h.Subtasks[0].ID

	stranger := testutil.CreateUser(t, app.usrRepo, "Stran Ger", "stranger@test.io", "", user.RoleStudent, true)
	otherCourse := testutil.CreateCourse(t, app.courseRepo, f.faculty, testutil.SampleOutline())

	setStatus := marchallObj(t, echo.Map{"status": course.StatusCompleted})
	runHTTPTests(t, app, []httpTest{
		{name: "auth required", method: http.MethodPut, path: f.subtaskPath(subtaskID), body: setStatus, wantCode: http.StatusUnauthorized},
		{
			name: "missing status", method: http.MethodPut, path: f.subtaskPath(subtaskID), token: f.stuToken, body: []byte(`{}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, echo.Map{"status": "this field is required"}),
		},
		{
			name: "invalid status", method: http.MethodPut, path: f.subtaskPath(subtaskID), token: f.stuToken, body: []byte(`{"status": "DONE"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, echo.Map{"status": course.ErrInvalidStatus.Error()}),
		},
		{
			name: "not enrolled", method: http.MethodPut, path: f.subtaskPath(subtaskID), token: app.getToken(t, stranger), body: setStatus,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: course.ErrNotEnrolled.Error()}),
		},
		{
			name: "subtask of another course", method: http.MethodPut, path: f.subtaskPath(otherCourse.Subtasks[0].ID), token: f.stuToken, body: setStatus,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: course.ErrSubtaskNotFound.Error()}),
		},
		{
			name: "unknown subtask", method: http.MethodPut, path: f.subtaskPath("nope"), token: f.stuToken, body: setStatus,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: course.ErrSubtaskNotFound.Error()}),
		},
		{
			name: "student required", method: http.MethodPut, path: f.subtaskPath(subtaskID), token: app.getToken(t, f.faculty), body: setStatus,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	})

	// nothing got saved
	rec := app.do(http.MethodGet, "/api/courses/"+f.h.Course.ID+"/progress", f.stuToken)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var view course.CourseView
	unmarshal(t, rec, &view)
	assert.Equal(t, course.StatusLocked, view.Status)
}

func Test_studentLookup(t *testing.T) {
	f := newProgressFixture(t)
	app := f.app
	f.setStatus(t, f.h.Subtasks[0].ID, course.StatusInProgress)

	other := testutil.CreateUser(t, app.usrRepo, "Oth Er", "other@test.io", "", user.RoleFaculty, true)
	profToken := app.getToken(t, f.faculty)
	progressPath := fmt.Sprintf("/api/students/%s/courses/%s/progress", f.student.ID, f.h.Course.ID)

	runHTTPTests(t, app, []httpTest{
		{
			name: "faculty required", path: "/api/students?email=stu@test.io", token: f.stuToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "email required", path: "/api/students", token: profToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, echo.Map{"email": "this field is required"}),
		},
		{
			name: "not a student", path: "/api/students?email=other@test.io", token: profToken,
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: user.ErrNotFound.Error()}),
		},
		{
			name: "another faculty's course", path: progressPath, token: app.getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
	})

	t.Run("found", func(t *testing.T) {
		rec := app.do(http.MethodGet, "/api/students?email=%20STU@test.io", profToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res struct {
			Student     user.User           `json:"student"`
			Enrollments []course.Enrollment `json:"enrollments"`
		}
		unmarshal(t, rec, &res)
		assert.Equal(t, f.student.ID, res.Student.ID)
		require.Len(t, res.Enrollments, 1)
		assert.Equal(t, f.h.Course.ID, res.Enrollments[0].CourseID)
	})

	t.Run("progress", func(t *testing.T) {
		rec := app.do(http.MethodGet, progressPath, profToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var view course.CourseView
		unmarshal(t, rec, &view)
		assert.Equal(t, course.StatusInProgress, view.Status)
		assert.Equal(t, course.Progress{Total: 3, InProgress: 1, Locked: 2}, view.Progress)
	})
}

func Test_metrics(t *testing.T) {
	app := setup(t)
	app.do(http.MethodGet, "/", "")

	rec := app.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "researchnest_http_requests_total")
}
