package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/researchnest/backend/core"
	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
)

func (s *Server) registerStudentAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	sg := g.Group("/students", jwt, roleMiddleware(s.userSvc, user.RoleFaculty, user.RoleAdmin))
	sg.GET("", s.findStudent)
	sg.GET("/:id/courses/:courseID/progress", s.studentProgress)
}

type StudentResponse struct {
	Student     user.User           `json:"student"`
	Enrollments []course.Enrollment `json:"enrollments"`
}

// findStudent looks a student up by email, along with their enrollments.
func (s *Server) findStudent(ctx echo.Context) error {
	email := core.CleanString(ctx.QueryParam("email"), true /* lower */)
	if email == "" {
		return core.NewFieldValidationError("email", errors.New("this field is required"))
	}

	reqCtx := ctx.Request().Context()
	student, err := s.userSvc.FindStudentByEmail(reqCtx, email)
	if err != nil {
		return errors.Wrap(err, "finding student by email")
	}
	enrollments, err := s.courseSvc.QueryEnrollments(reqCtx, student.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, StudentResponse{Student: student, Enrollments: enrollments})
}

// studentProgress returns the rolled up tree of a student for a course owned by the faculty user.
func (s *Server) studentProgress(ctx echo.Context) error {
	usr, err := getContextUser(ctx, s.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tree, err := s.courseSvc.StudentProgress(ctx.Request().Context(), usr, ctx.Param("id"), ctx.Param("courseID"))
	if err != nil {
		return errors.Wrap(err, "loading student progress")
	}
	return ctx.JSON(http.StatusOK, tree.View())
}
