package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db        *sqlx.DB
	usrSvc    user.ServiceInterface
	courseSvc course.ServiceInterface
	validate  *validator.Validate
	out       io.Writer
}

// rootCommand builds the admin command tree. It is rebuilt on every run so that flags do not leak between runs.
func (cli *commandLine) rootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "admin",
		Short:         "Research Nest administration commands",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	rootCmd.SetOut(cli.out)
	rootCmd.SetErr(cli.out)

	migrateCmd := &cobra.Command{
		Use:   "migrate COMMAND [ARGS...]",
		Short: "Run a migration command: up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errHelp
			}
			return cli.migrate(args)
		},
	}

	var (
		addUserName  string
		addUserEmail string
		addUserRole  string
	)
	addUserCmd := &cobra.Command{
		Use:   "adduser",
		Short: "Create or update a user, the password is prompted next",
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Help()
				return errHelp
			}
			return cli.addUser(user.UpsertUser{FullName: addUserName, Email: addUserEmail, Role: addUserRole, Password: pwd})
		},
	}
	addUserCmd.Flags().StringVar(&addUserName, "name", "", "The user's full name")
	addUserCmd.Flags().StringVar(&addUserEmail, "email", "", "The user's email")
	addUserCmd.Flags().StringVar(&addUserRole, "role", user.RoleStudent, "One of STUDENT, FACULTY or ADMIN")
	_ = addUserCmd.MarkFlagRequired("name")
	_ = addUserCmd.MarkFlagRequired("email")

	var resetPasswordEmail string
	resetPasswordCmd := &cobra.Command{
		Use:   "resetpassword",
		Short: "Reset a user's password, the password is prompted next",
		RunE: func(cmd *cobra.Command, args []string) error {
			pwd, err := cli.promptPassword()
			if err != nil {
				return err
			}
			if pwd == "" {
				_ = cmd.Help()
				return errHelp
			}
			return cli.resetPassword(resetPasswordEmail, pwd)
		},
	}
	resetPasswordCmd.Flags().StringVar(&resetPasswordEmail, "email", "", "The user's email")
	_ = resetPasswordCmd.MarkFlagRequired("email")

	var importOwner string
	importCourseCmd := &cobra.Command{
		Use:   "importcourse FILE",
		Short: "Create a course from a YAML outline file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.importCourse(args[0], importOwner)
		},
	}
	importCourseCmd.Flags().StringVar(&importOwner, "owner", "", "The email of the faculty user owning the course")
	_ = importCourseCmd.MarkFlagRequired("owner")

	var progressStudent string
	progressCmd := &cobra.Command{
		Use:   "progress COURSE_ID",
		Short: "Print a course tree, with the statuses of a student when --student is set",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.printProgress(args[0], progressStudent)
		},
	}
	progressCmd.Flags().StringVar(&progressStudent, "student", "", "The email of an enrolled student")

	rootCmd.AddCommand(migrateCmd, addUserCmd, resetPasswordCmd, importCourseCmd, progressCmd)
	return rootCmd
}

// run executes the command line args, program name included.
func (cli *commandLine) run(args []string) error {
	if cli.out == nil {
		cli.out = os.Stdout
	}
	rootCmd := cli.rootCommand()
	if len(args) > 0 {
		args = args[1:]
	}
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func (cli *commandLine) promptPassword() (string, error) {
	_, _ = fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	_, _ = fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
