package course

import (
	"context"
	"net/mail"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/researchnest/backend/core"
	"github.com/researchnest/backend/core/user"
)

var (
	// errors
	ErrNotFound         = errors.New("course not found")
	ErrSubtaskNotFound  = errors.New("subtask not found")
	ErrAlreadyEnrolled  = errors.New("already enrolled in this course")
	ErrNotEnrolled      = errors.New("not enrolled in this course")
	ErrCourseTitleBlank = errors.New("course title cannot be blank")
)

type (
	Repository interface {
		HierarchyReader

		// CreateCourse writes the whole hierarchy atomically: either every node is saved or none is.
		CreateCourse(ctx context.Context, h Hierarchy) (Course, error)
		// QueryCourses returns courses, newest first.
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		// GetSubtaskCourseID returns the id of the course the subtask belongs to.
		GetSubtaskCourseID(ctx context.Context, subtaskID string) (string, error)
	}

	EnrollmentRepository interface {
		// CreateEnrollment returns ErrAlreadyEnrolled if the student is already enrolled in the course.
		CreateEnrollment(ctx context.Context, e Enrollment) (Enrollment, error)
		// QueryEnrollments returns the enrollments of a student, newest first.
		QueryEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
		// GetEnrollment returns ErrNotEnrolled if the student is not enrolled in the course.
		GetEnrollment(ctx context.Context, studentID, courseID string) (Enrollment, error)
	}

	ProgressRepository interface {
		ProgressReader

		// UpsertProgress saves rec, replacing any record with the same (student, entity type, entity id).
		UpsertProgress(ctx context.Context, rec ProgressRecord) error
	}

	ServiceInterface interface {
		CreateCourse(ctx context.Context, faculty user.User, outline Outline) (Course, error)
		QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error)
		GetCourse(ctx context.Context, id string) (Course, error)
		CourseStructure(ctx context.Context, courseID string) (*Tree, error)
		Enroll(ctx context.Context, student user.User, courseID string) (Enrollment, error)
		QueryEnrollments(ctx context.Context, studentID string) ([]Enrollment, error)
		IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error)
		LoadTree(ctx context.Context, courseID, viewerID string) (*Tree, error)
		StudentTree(ctx context.Context, studentID, courseID string) (*Tree, error)
		SetSubtaskStatus(ctx context.Context, studentID, courseID, subtaskID string, status Status) (*Tree, error)
		StudentProgress(ctx context.Context, faculty user.User, studentID, courseID string) (*Tree, error)
	}

	Service struct {
		repo        Repository
		enrollments EnrollmentRepository
		progress    ProgressRepository
		loader      *Loader
		views       *Views
		mailSvc     core.EmailService
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	conf *core.Config,
	repo Repository,
	enrollments EnrollmentRepository,
	progress ProgressRepository,
	mailSvc core.EmailService,
) *Service {
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		progress:    progress,
		loader:      NewLoader(repo, progress, conf.Loader.Concurrency),
		views:       NewViews(),
		mailSvc:     mailSvc,
	}
}

// CreateCourse creates a course owned by faculty from a validated outline, in a single transaction.
func (svc *Service) CreateCourse(ctx context.Context, faculty user.User, outline Outline) (Course, error) {
	if !(faculty.IsFaculty() || faculty.IsAdmin()) {
		return Course{}, core.ErrPermissionDenied
	}
	if core.CleanString(outline.Title) == "" {
		return Course{}, core.NewFieldValidationError("course_title", ErrCourseTitleBlank)
	}

	c, err := svc.repo.CreateCourse(ctx, newHierarchy(faculty.ID, outline))
	return c, errors.Wrap(err, "creating course")
}

// newHierarchy assigns ids & positions to the nodes of outline.
func newHierarchy(ownerID string, outline Outline) Hierarchy {
	h := Hierarchy{
		Course: Course{
			ID:        uuid.NewString(),
			Title:     core.CleanString(outline.Title),
			CreatedBy: ownerID,
			CreatedAt: time.Now().UTC(),
		},
	}
	for mi, mo := range outline.Milestones {
		m := Milestone{ID: uuid.NewString(), CourseID: h.Course.ID, Title: mo.Title, Position: mi}
		h.Milestones = append(h.Milestones, m)
		for si, so := range mo.Stages {
			s := Stage{ID: uuid.NewString(), MilestoneID: m.ID, Title: so.Title, Position: si}
			h.Stages = append(h.Stages, s)
			for ti, to := range so.Tasks {
				t := Task{ID: uuid.NewString(), StageID: s.ID, Title: to.Title, Position: ti}
				h.Tasks = append(h.Tasks, t)
				for sti, title := range to.Subtasks {
					h.Subtasks = append(h.Subtasks, Subtask{ID: uuid.NewString(), TaskID: t.ID, Title: title, Position: sti})
				}
			}
		}
	}
	return h
}

func (svc *Service) QueryCourses(ctx context.Context, filter QueryFilter) ([]Course, error) {
	return svc.repo.QueryCourses(ctx, filter)
}

func (svc *Service) GetCourse(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourseByID(ctx, id)
}

// CourseStructure returns the course tree with every subtask LOCKED.
func (svc *Service) CourseStructure(ctx context.Context, courseID string) (*Tree, error) {
	return svc.LoadTree(ctx, courseID, "")
}

// Enroll enrolls student in a course and sends them a confirmation email.
func (svc *Service) Enroll(ctx context.Context, student user.User, courseID string) (Enrollment, error) {
	if !student.IsStudent() {
		return Enrollment{}, core.ErrPermissionDenied
	}
	c, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, errors.Wrap(err, "getting course")
	}

	e, err := svc.enrollments.CreateEnrollment(ctx, Enrollment{
		ID:          uuid.NewString(),
		StudentID:   student.ID,
		CourseID:    c.ID,
		CourseTitle: c.Title,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		if errors.Cause(err) == ErrAlreadyEnrolled {
			return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
		}
		return Enrollment{}, errors.Wrap(err, "creating enrollment")
	}
	enrollments.Inc()

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: student.FullName, Address: student.Email}},
		Subject:      "Enrollment confirmed: " + c.Title,
		TemplateName: "enrollment",
		TemplateData: struct{ Name, CourseTitle string }{student.FullName, c.Title},
	})
	return e, nil
}

func (svc *Service) QueryEnrollments(ctx context.Context, studentID string) ([]Enrollment, error) {
	return svc.enrollments.QueryEnrollments(ctx, studentID)
}

func (svc *Service) IsEnrolled(ctx context.Context, studentID, courseID string) (bool, error) {
	switch err := svc.checkEnrollment(ctx, studentID, courseID); err {
	case nil:
		return true, nil
	case ErrNotEnrolled:
		return false, nil
	default:
		return false, err
	}
}

// StudentTree returns the rolled up tree of a course for an enrolled student.
func (svc *Service) StudentTree(ctx context.Context, studentID, courseID string) (*Tree, error) {
	if err := svc.checkEnrollment(ctx, studentID, courseID); err != nil {
		return nil, err
	}
	return svc.LoadTree(ctx, courseID, studentID)
}

// SetSubtaskStatus saves the status of a subtask for an enrolled student, then reloads the course tree
// so every ancestor status is derived from the saved value. A failed write returns before any reload,
// leaving the current snapshot untouched.
func (svc *Service) SetSubtaskStatus(ctx context.Context, studentID, courseID, subtaskID string, status Status) (*Tree, error) {
	if !status.IsValid() {
		return nil, core.NewFieldValidationError("status", ErrInvalidStatus)
	}
	if err := svc.checkEnrollment(ctx, studentID, courseID); err != nil {
		return nil, err
	}

	subtaskCourseID, err := svc.repo.GetSubtaskCourseID(ctx, subtaskID)
	if err != nil {
		return nil, errors.Wrap(err, "getting subtask course")
	}
	if subtaskCourseID != courseID {
		return nil, ErrSubtaskNotFound
	}

	err = svc.progress.UpsertProgress(ctx, ProgressRecord{
		StudentID:  studentID,
		CourseID:   courseID,
		EntityType: EntityTypeSubtask,
		EntityID:   subtaskID,
		Status:     status,
		UpdatedAt:  time.Now().UTC(),
	})
	progressUpdates.WithLabelValues(status.String(), resultLabel(err)).Inc()
	if err != nil {
		return nil, errors.Wrap(err, "saving progress")
	}

	tree, err := svc.LoadTree(ctx, courseID, studentID)
	return tree, errors.Wrap(err, "reloading course tree")
}

// StudentProgress returns the tree of a student for a course owned by faculty.
func (svc *Service) StudentProgress(ctx context.Context, faculty user.User, studentID, courseID string) (*Tree, error) {
	c, err := svc.repo.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "getting course")
	}
	if c.CreatedBy != faculty.ID && !faculty.IsAdmin() {
		return nil, core.ErrPermissionDenied
	}
	return svc.StudentTree(ctx, studentID, courseID)
}

func (svc *Service) checkEnrollment(ctx context.Context, studentID, courseID string) error {
	if _, err := svc.enrollments.GetEnrollment(ctx, studentID, courseID); err != nil {
		if errors.Cause(err) == ErrNotEnrolled {
			return ErrNotEnrolled
		}
		return errors.Wrap(err, "getting enrollment")
	}
	return nil
}

// LoadTree loads & rolls up a course tree, then applies it as the (course, viewer) snapshot.
// When a newer load got applied first, the newer snapshot is returned instead.
// An empty viewerID loads the bare structure, every subtask LOCKED.
func (svc *Service) LoadTree(ctx context.Context, courseID, viewerID string) (*Tree, error) {
	token := svc.views.Begin()

	tree, err := svc.loader.Load(ctx, courseID, viewerID)
	if err != nil {
		return nil, errors.Wrap(err, "loading course tree")
	}
	tree.Rollup()

	if !svc.views.Apply(courseID, viewerID, token, tree) {
		staleLoadsDiscarded.Inc()
		if newer, ok := svc.views.Get(courseID, viewerID); ok {
			return newer, nil
		}
	}
	return tree, nil
}
