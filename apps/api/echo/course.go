package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
)

func (s *Server) registerCourseAPI(g *echo.Group, jwt echo.MiddlewareFunc) {
	faculty := roleMiddleware(s.userSvc, user.RoleFaculty, user.RoleAdmin)
	student := roleMiddleware(s.userSvc, user.RoleStudent)

	cg := g.Group("/courses", jwt)
	cg.GET("", s.queryCourses)
	cg.POST("", s.createCourse, faculty)
	cg.GET("/:id", s.retrieveCourse)
	cg.POST("/:id/enroll", s.enroll, student)
	cg.GET("/:id/progress", s.courseProgress, student)
	cg.PUT("/:id/progress/subtasks/:subtaskID", s.updateSubtaskStatus, student)

	g.GET("/enrollments", s.queryEnrollments, jwt, student)
}

// Handlers

// queryCourses lists all courses; `mine=true` restricts them to the courses created by the faculty user.
func (s *Server) queryCourses(ctx echo.Context) error {
	var filter course.QueryFilter
	if mine, _ := strconv.ParseBool(ctx.QueryParam("mine")); mine {
		usr, err := getContextUser(ctx, s.userSvc)
		if err != nil {
			return errors.Wrap(err, "getting context user")
		}
		filter.CreatedBy = usr.ID
	}

	courses, err := s.courseSvc.QueryCourses(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying courses")
	}
	if courses == nil {
		courses = []course.Course{}
	}
	return ctx.JSON(http.StatusOK, courses)
}

func (s *Server) createCourse(ctx echo.Context) error {
	var data course.Outline
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Outline")
	}
	if err := data.Validate(s.validate); err != nil {
		return err
	}

	usr, err := getContextUser(ctx, s.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	c, err := s.courseSvc.CreateCourse(ctx.Request().Context(), usr, data)
	if err != nil {
		return errors.Wrap(err, "creating course")
	}
	return ctx.JSON(http.StatusCreated, c)
}

// retrieveCourse returns the course structure, every node LOCKED.
func (s *Server) retrieveCourse(ctx echo.Context) error {
	tree, err := s.courseSvc.CourseStructure(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading course structure")
	}
	return ctx.JSON(http.StatusOK, tree.View())
}

func (s *Server) enroll(ctx echo.Context) error {
	usr, err := getContextUser(ctx, s.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	e, err := s.courseSvc.Enroll(ctx.Request().Context(), usr, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "enrolling")
	}
	return ctx.JSON(http.StatusCreated, e)
}

func (s *Server) queryEnrollments(ctx echo.Context) error {
	usr, err := getContextUser(ctx, s.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	enrollments, err := s.courseSvc.QueryEnrollments(ctx.Request().Context(), usr.ID)
	if err != nil {
		return errors.Wrap(err, "querying enrollments")
	}
	if enrollments == nil {
		enrollments = []course.Enrollment{}
	}
	return ctx.JSON(http.StatusOK, enrollments)
}

// courseProgress returns the rolled up course tree of the student.
func (s *Server) courseProgress(ctx echo.Context) error {
	usr, err := getContextUser(ctx, s.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tree, err := s.courseSvc.StudentTree(ctx.Request().Context(), usr.ID, ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "loading course tree")
	}
	return ctx.JSON(http.StatusOK, tree.View())
}

// updateSubtaskStatus saves the status of a subtask and returns the recomputed course tree.
func (s *Server) updateSubtaskStatus(ctx echo.Context) error {
	var data course.SubtaskStatusUpdate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubtaskStatusUpdate")
	}
	if err := data.Validate(s.validate); err != nil {
		return err
	}
	status, err := course.ParseStatus(data.Status)
	if err != nil {
		return err
	}

	usr, err := getContextUser(ctx, s.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}
	tree, err := s.courseSvc.SetSubtaskStatus(ctx.Request().Context(), usr.ID, ctx.Param("id"), ctx.Param("subtaskID"), status)
	if err != nil {
		return errors.Wrap(err, "setting subtask status")
	}
	return ctx.JSON(http.StatusOK, tree.View())
}
