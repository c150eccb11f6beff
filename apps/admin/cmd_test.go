package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchnest/backend/core"
	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
	emailsvc "github.com/researchnest/backend/services/email"
	logsvc "github.com/researchnest/backend/services/logger"
	sqlxrepos "github.com/researchnest/backend/storage/database/sqlx"
	"github.com/researchnest/backend/testutil"
)

type testCLI struct {
	*commandLine
	usrRepo user.Repository
	output  *bytes.Buffer
}

func setup(t *testing.T) testCLI {
	t.Helper()

	conf := *core.Conf
	conf.TestMode = true
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), &conf)

	// set up DB & repos
	db := testutil.OpenDB(t)
	usrRepo := sqlxrepos.NewUserRepository(db)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)

	mailSvc := emailsvc.NewConsoleServiceMock(&conf, logger)
	output := new(bytes.Buffer)
	return testCLI{
		commandLine: &commandLine{
			db:     db,
			usrSvc: user.NewService(&conf, usrRepo, mailSvc),
			courseSvc: course.NewService(
				&conf,
				sqlxrepos.NewCourseRepository(db),
				sqlxrepos.NewEnrollmentRepository(db),
				sqlxrepos.NewProgressRepository(db),
				mailSvc,
			),
			validate: validate,
			out:      output,
		},
		usrRepo: usrRepo,
		output:  output,
	}
}

// mockPassword makes the password prompt return pwd.
func mockPassword(t *testing.T, pwd string) {
	origFunc := readPasswordFunc
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = origFunc })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func runCLITests(t *testing.T, cli testCLI, tests []cliTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_help(t *testing.T) {
	cli := setup(t)
	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErrStr: `unknown command "lol" for "admin"`},
	})
	assert.Contains(t, cli.output.String(), "importcourse")
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	origRunFunc := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = origRunFunc })
	gooseRunFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "course", "sql"}},
	})

	t.Run("embedded migrations", func(t *testing.T) {
		gooseRunFunc = origRunFunc
		assert.NoError(t, cli.run([]string{"admin", "migrate", "up"}))
		assert.NoError(t, cli.run([]string{"admin", "migrate", "version"}))
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)
	pwd := "Adm1n!Passw0rd"

	runCLITests(t, cli, []cliTest{
		{name: "no flags", args: []string{"adduser"}, pwd: pwd, wantErrStr: `required flag(s) "email", "name" not set`},
		{name: "no password", args: []string{"adduser", "--name", "Ad Min", "--email", "admin@test.io"}, wantErr: errHelp},
	})

	t.Run("invalid role", func(t *testing.T) {
		mockPassword(t, pwd)
		err := cli.run([]string{"admin", "adduser", "--name", "Ad Min", "--email", "admin@test.io", "--role", "janitor"})
		var vErrs validator.ValidationErrors
		require.ErrorAs(t, err, &vErrs)
		assert.Equal(t, "role", vErrs[0].Field())
	})

	t.Run("created", func(t *testing.T) {
		mockPassword(t, pwd)
		require.NoError(t, cli.run([]string{"admin", "adduser", "--name", "Ad Min", "--email", " Admin@Test.io", "--role", "admin"}))

		usr, err := cli.usrRepo.GetUserByEmail(context.Background(), "admin@test.io")
		require.NoError(t, err)
		assert.Equal(t, "Ad Min", usr.FullName)
		assert.Equal(t, user.RoleAdmin, usr.Role)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(pwd))
		assert.Contains(t, cli.output.String(), "ADMIN Ad Min <admin@test.io> saved")
	})

	t.Run("updated", func(t *testing.T) {
		naughty := testutil.CreateUser(t, cli.usrRepo, "Naughty", "naughty@test.io", "", user.RoleStudent, false)

		mockPassword(t, pwd)
		require.NoError(t, cli.run([]string{"admin", "adduser", "--name", "Nice", "--email", naughty.Email, "--role", user.RoleFaculty}))

		usr, err := cli.usrRepo.GetUserByID(context.Background(), naughty.ID)
		require.NoError(t, err)
		assert.Equal(t, "Nice", usr.FullName)
		assert.Equal(t, user.RoleFaculty, usr.Role)
		assert.True(t, usr.IsActive)
		assert.NoError(t, usr.CheckPassword(pwd))
	})
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)
	usr := testutil.CreateUser(t, cli.usrRepo, "Stu Dent", "stu@test.io", "0ld!Passw0rd", user.RoleStudent, true)

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, pwd: "lol", wantErrStr: `required flag(s) "email" not set`},
		{name: "email but no password", args: []string{"resetpassword", "--email", usr.Email}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "--email", "lol@test.io"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset", args: []string{"resetpassword", "--email", " STU@test.io"}, pwd: "lmao"},
	})

	refreshedUsr, err := cli.usrRepo.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.False(t, bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash))
	assert.NoError(t, refreshedUsr.CheckPassword("lmao"))
}

const outlineYAML = `course_title: Research Methods
milestones:
  - milestone_title: Research Basics
    stages:
      - stage_title: Literature
        tasks:
          - task_title: Survey
            subtasks: [Find papers, Read papers]
  - milestone_title: Writing
    stages:
      - stage_title: Draft
        tasks:
          - task_title: Outline
            subtasks: [Write outline]
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "outline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_commandLine_importCourse(t *testing.T) {
	cli := setup(t)
	faculty := testutil.CreateUser(t, cli.usrRepo, "Prof Essor", "prof@test.io", "", user.RoleFaculty, true)
	student := testutil.CreateUser(t, cli.usrRepo, "Stu Dent", "stu@test.io", "", user.RoleStudent, true)
	outlinePath := writeFile(t, outlineYAML)

	runCLITests(t, cli, []cliTest{
		{name: "no file", args: []string{"importcourse", "--owner", faculty.Email}, wantErrStr: "accepts 1 arg(s), received 0"},
		{name: "no owner", args: []string{"importcourse", outlinePath}, wantErrStr: `required flag(s) "owner" not set`},
		{name: "unknown owner", args: []string{"importcourse", outlinePath, "--owner", "lol@test.io"}, wantErr: user.ErrNotFound},
		{name: "student owner", args: []string{"importcourse", outlinePath, "--owner", student.Email}, wantErr: core.ErrPermissionDenied},
	})

	t.Run("invalid outline", func(t *testing.T) {
		err := cli.run([]string{"admin", "importcourse", writeFile(t, "course_title: '  '\n"), "--owner", faculty.Email})
		var vErrs validator.ValidationErrors
		require.ErrorAs(t, err, &vErrs)
		assert.Equal(t, "course_title", vErrs[0].Field())

		assert.Error(t, cli.run([]string{"admin", "importcourse", writeFile(t, "milestones: {"), "--owner", faculty.Email}))
	})

	t.Run("imported", func(t *testing.T) {
		require.NoError(t, cli.run([]string{"admin", "importcourse", outlinePath, "--owner", faculty.Email}))

		courses, err := cli.courseSvc.QueryCourses(context.Background(), course.QueryFilter{CreatedBy: faculty.ID})
		require.NoError(t, err)
		require.Len(t, courses, 1)
		assert.Equal(t, "Research Methods", courses[0].Title)
		assert.Contains(t, cli.output.String(), courses[0].ID)

		tree, err := cli.courseSvc.CourseStructure(context.Background(), courses[0].ID)
		require.NoError(t, err)
		assert.Equal(t, course.Progress{Total: 3, Locked: 3}, tree.Progress())
	})
}

func Test_commandLine_progress(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	faculty := testutil.CreateUser(t, cli.usrRepo, "Prof Essor", "prof@test.io", "", user.RoleFaculty, true)
	student := testutil.CreateUser(t, cli.usrRepo, "Stu Dent", "stu@test.io", "", user.RoleStudent, true)

	c, err := cli.courseSvc.CreateCourse(ctx, faculty, testutil.SampleOutline())
	require.NoError(t, err)
	_, err = cli.courseSvc.Enroll(ctx, student, c.ID)
	require.NoError(t, err)

	structure, err := cli.courseSvc.CourseStructure(ctx, c.ID)
	require.NoError(t, err)
	subtaskID := structure.View().Milestones[0].Stages[0].Tasks[0].Subtasks[0].ID
	_, err = cli.courseSvc.SetSubtaskStatus(ctx, student.ID, c.ID, subtaskID, course.StatusCompleted)
	require.NoError(t, err)

	runCLITests(t, cli, []cliTest{
		{name: "no course", args: []string{"progress"}, wantErrStr: "accepts 1 arg(s), received 0"},
		{name: "unknown course", args: []string{"progress", "lol"}, wantErrStr: "loading course tree: getting course: course not found"},
		{name: "not a student", args: []string{"progress", c.ID, "--student", faculty.Email}, wantErr: user.ErrNotFound},
	})

	t.Run("structure", func(t *testing.T) {
		cli.output.Reset()
		require.NoError(t, cli.run([]string{"admin", "progress", c.ID}))
		out := cli.output.String()
		assert.Contains(t, out, "[LOCKED] course: Research Methods\n")
		assert.Contains(t, out, "0/3 subtasks completed")
	})

	t.Run("student", func(t *testing.T) {
		cli.output.Reset()
		require.NoError(t, cli.run([]string{"admin", "progress", c.ID, "--student", student.Email}))
		out := cli.output.String()
		assert.Contains(t, out, "[IN_PROGRESS] course: Research Methods\n")
		assert.Contains(t, out, "        [COMPLETED] subtask: Find papers\n")
		assert.Contains(t, out, "1/3 subtasks completed, 0 in progress")
	})
}
