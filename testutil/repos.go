package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/researchnest/backend/core"
	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
)

// Repos is a set of repositories sharing the same store.
type Repos struct {
	Users       user.Repository
	Courses     course.Repository
	Enrollments course.EnrollmentRepository
	Progress    course.ProgressRepository
}

// RunRepositoryTests checks the behaviour every storage engine must share.
// newRepos must return repositories backed by an empty store.
func RunRepositoryTests(t *testing.T, newRepos func(t *testing.T) Repos) {
	t.Run("users", func(t *testing.T) { testUserRepository(t, newRepos(t)) })
	t.Run("courses", func(t *testing.T) { testCourseRepository(t, newRepos(t)) })
	t.Run("course atomic creation", func(t *testing.T) { testCourseAtomicCreation(t, newRepos(t)) })
	t.Run("enrollments", func(t *testing.T) { testEnrollmentRepository(t, newRepos(t)) })
	t.Run("progress", func(t *testing.T) { testProgressRepository(t, newRepos(t)) })
}

func userIDs(users []user.User) []string {
	ids := make([]string, 0, len(users))
	for _, usr := range users {
		ids = append(ids, usr.ID)
	}
	return ids
}

func testUserRepository(t *testing.T, r Repos) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	ann := CreateUser(t, r.Users, "Ann Smith", "ann@test.io", "s3cr3t!Pass", user.RoleStudent, true, now.Add(-2*time.Hour))
	bob := CreateUser(t, r.Users, "Bob Jones", "bob@test.io", "", user.RoleFaculty, true, now.Add(-time.Hour))
	cat := CreateUser(t, r.Users, "Cat Smith", "cat@test.io", "", user.RoleStudent, false, now)

	_, err := r.Users.CreateUser(ctx, user.User{ID: uuid.NewString(), FullName: "Dup", Email: "ann@test.io", Role: user.RoleStudent, CreatedAt: now, UpdatedAt: now})
	assert.Equal(t, user.ErrEmailExists, errors.Cause(err))

	got, err := r.Users.GetUserByEmail(ctx, "ann@test.io")
	require.NoError(t, err)
	assert.Equal(t, ann.ID, got.ID)
	assert.NoError(t, got.CheckPassword("s3cr3t!Pass"))
	_, err = r.Users.GetUserByID(ctx, "nope")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	assert.Equal(t, user.ErrEmailExists, errors.Cause(r.Users.CheckEmailUniqueness(ctx, "bob@test.io")))
	assert.NoError(t, r.Users.CheckEmailUniqueness(ctx, "bob@test.io", bob))
	assert.NoError(t, r.Users.CheckEmailUniqueness(ctx, "new@test.io"))

	isActive := true
	tests := []struct {
		name     string
		filter   user.QueryFilter
		ordering []core.DBOrdering
		want     []string
	}{
		{"default ordering", user.QueryFilter{}, nil, []string{cat.ID, bob.ID, ann.ID}},
		{"search", user.QueryFilter{Search: "smith"}, nil, []string{cat.ID, ann.ID}},
		{"roles", user.QueryFilter{Roles: []string{user.RoleFaculty}}, nil, []string{bob.ID}},
		{"active", user.QueryFilter{IsActive: &isActive}, nil, []string{bob.ID, ann.ID}},
		{"ordering", user.QueryFilter{}, []core.DBOrdering{{Field: "email", Ascending: true}}, []string{ann.ID, bob.ID, cat.ID}},
		{"unknown ordering field", user.QueryFilter{}, []core.DBOrdering{{Field: "password_hash", Ascending: true}}, []string{cat.ID, bob.ID, ann.ID}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			users, err := r.Users.QueryUsers(ctx, tc.filter, tc.ordering...)
			require.NoError(t, err)
			assert.Equal(t, tc.want, userIDs(users))
		})
	}

	// password is kept when not set
	upd := ann
	upd.FullName = "Ann Smith-Jones"
	upd.PasswordHash = nil
	upd.UpdatedAt = now.Add(time.Minute)
	got, err = r.Users.UpdateUser(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, "Ann Smith-Jones", got.FullName)
	assert.NoError(t, got.CheckPassword("s3cr3t!Pass"))

	upd.Email = "bob@test.io"
	_, err = r.Users.UpdateUser(ctx, upd)
	assert.Equal(t, user.ErrEmailExists, errors.Cause(err))
	_, err = r.Users.UpdateUser(ctx, user.User{ID: "nope", Email: "nope@test.io", CreatedAt: now, UpdatedAt: now})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	dan := user.User{ID: uuid.NewString(), FullName: "Dan", Email: "dan@test.io", Role: user.RoleAdmin, IsActive: true, CreatedAt: now, UpdatedAt: now}
	got, err = r.Users.UpdateOrCreateUser(ctx, dan)
	require.NoError(t, err)
	assert.Equal(t, dan.ID, got.ID)
	dan.FullName = "Dan Admin"
	got, err = r.Users.UpdateOrCreateUser(ctx, dan)
	require.NoError(t, err)
	assert.Equal(t, "Dan Admin", got.FullName)
}

func testCourseRepository(t *testing.T, r Repos) {
	ctx := context.Background()
	prof := CreateUser(t, r.Users, "Prof", "prof@test.io", "", user.RoleFaculty, true)
	other := CreateUser(t, r.Users, "Other", "other@test.io", "", user.RoleFaculty, true)

	older := NewHierarchy(prof.ID, SampleOutline())
	older.Course.CreatedAt = older.Course.CreatedAt.Add(-time.Hour)
	// positions, not insertion order, drive the reads
	older.Milestones[0].Position, older.Milestones[1].Position = 1, 0
	_, err := r.Courses.CreateCourse(ctx, older)
	require.NoError(t, err)
	newer := CreateCourse(t, r.Courses, prof, SampleOutline())
	others := CreateCourse(t, r.Courses, other, SampleOutline())

	c, err := r.Courses.GetCourseByID(ctx, older.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, "Research Methods", c.Title)
	assert.Equal(t, prof.ID, c.CreatedBy)
	_, err = r.Courses.GetCourseByID(ctx, "nope")
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))

	courses, err := r.Courses.QueryCourses(ctx, course.QueryFilter{CreatedBy: prof.ID})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, []string{newer.Course.ID, older.Course.ID}, []string{courses[0].ID, courses[1].ID})
	courses, err = r.Courses.QueryCourses(ctx, course.QueryFilter{})
	require.NoError(t, err)
	assert.Len(t, courses, 3)

	milestones, err := r.Courses.QueryMilestones(ctx, older.Course.ID)
	require.NoError(t, err)
	require.Len(t, milestones, 2)
	assert.Equal(t, "Writing", milestones[0].Title)
	assert.Equal(t, "Research Basics", milestones[1].Title)

	stages, err := r.Courses.QueryStages(ctx, older.Milestones[0].ID)
	require.NoError(t, err)
	assert.Equal(t, older.Stages[:1], stages)
	tasks, err := r.Courses.QueryTasks(ctx, older.Stages[0].ID)
	require.NoError(t, err)
	assert.Equal(t, older.Tasks[:1], tasks)
	subtasks, err := r.Courses.QuerySubtasks(ctx, older.Tasks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, older.Subtasks[:2], subtasks)
	subtasks, err = r.Courses.QuerySubtasks(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, subtasks)

	courseID, err := r.Courses.GetSubtaskCourseID(ctx, others.Subtasks[2].ID)
	require.NoError(t, err)
	assert.Equal(t, others.Course.ID, courseID)
	_, err = r.Courses.GetSubtaskCourseID(ctx, "nope")
	assert.Equal(t, course.ErrSubtaskNotFound, errors.Cause(err))
}

func testCourseAtomicCreation(t *testing.T, r Repos) {
	ctx := context.Background()
	prof := CreateUser(t, r.Users, "Prof", "prof@test.io", "", user.RoleFaculty, true)

	h := NewHierarchy(prof.ID, SampleOutline())
	h.Subtasks[2].TaskID = "nope"
	_, err := r.Courses.CreateCourse(ctx, h)
	require.Error(t, err)

	_, err = r.Courses.GetCourseByID(ctx, h.Course.ID)
	assert.Equal(t, course.ErrNotFound, errors.Cause(err))
	milestones, err := r.Courses.QueryMilestones(ctx, h.Course.ID)
	require.NoError(t, err)
	assert.Empty(t, milestones)
	_, err = r.Courses.GetSubtaskCourseID(ctx, h.Subtasks[0].ID)
	assert.Equal(t, course.ErrSubtaskNotFound, errors.Cause(err))

	// the owner must exist
	h = NewHierarchy("nope", SampleOutline())
	_, err = r.Courses.CreateCourse(ctx, h)
	require.Error(t, err)
	courses, err := r.Courses.QueryCourses(ctx, course.QueryFilter{})
	require.NoError(t, err)
	assert.Empty(t, courses)
}

func testEnrollmentRepository(t *testing.T, r Repos) {
	ctx := context.Background()
	prof := CreateUser(t, r.Users, "Prof", "prof@test.io", "", user.RoleFaculty, true)
	stu := CreateUser(t, r.Users, "Stu", "stu@test.io", "", user.RoleStudent, true)
	c1 := CreateCourse(t, r.Courses, prof, SampleOutline())
	c2 := CreateCourse(t, r.Courses, prof, SampleOutline())

	now := time.Now().UTC().Truncate(time.Microsecond)
	enroll := func(c course.Course, at time.Time) (course.Enrollment, error) {
		return r.Enrollments.CreateEnrollment(ctx, course.Enrollment{
			ID: uuid.NewString(), StudentID: stu.ID, CourseID: c.ID, CourseTitle: c.Title, CreatedAt: at,
		})
	}

	_, err := r.Enrollments.GetEnrollment(ctx, stu.ID, c1.Course.ID)
	assert.Equal(t, course.ErrNotEnrolled, errors.Cause(err))

	e1, err := enroll(c1.Course, now.Add(-time.Hour))
	require.NoError(t, err)
	e2, err := enroll(c2.Course, now)
	require.NoError(t, err)
	_, err = enroll(c1.Course, now)
	assert.Equal(t, course.ErrAlreadyEnrolled, errors.Cause(err))

	got, err := r.Enrollments.GetEnrollment(ctx, stu.ID, c1.Course.ID)
	require.NoError(t, err)
	assert.Equal(t, e1.ID, got.ID)
	assert.Equal(t, c1.Course.Title, got.CourseTitle)

	enrollments, err := r.Enrollments.QueryEnrollments(ctx, stu.ID)
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	assert.Equal(t, []string{e2.ID, e1.ID}, []string{enrollments[0].ID, enrollments[1].ID})

	enrollments, err = r.Enrollments.QueryEnrollments(ctx, prof.ID)
	require.NoError(t, err)
	assert.Empty(t, enrollments)
}

func testProgressRepository(t *testing.T, r Repos) {
	ctx := context.Background()
	prof := CreateUser(t, r.Users, "Prof", "prof@test.io", "", user.RoleFaculty, true)
	stu := CreateUser(t, r.Users, "Stu", "stu@test.io", "", user.RoleStudent, true)
	peer := CreateUser(t, r.Users, "Peer", "peer@test.io", "", user.RoleStudent, true)
	c1 := CreateCourse(t, r.Courses, prof, SampleOutline())
	c2 := CreateCourse(t, r.Courses, prof, SampleOutline())

	now := time.Now().UTC()
	upsert := func(studentID string, h course.Hierarchy, subtaskIdx int, status course.Status) {
		t.Helper()
		require.NoError(t, r.Progress.UpsertProgress(ctx, course.ProgressRecord{
			StudentID:  studentID,
			CourseID:   h.Course.ID,
			EntityType: course.EntityTypeSubtask,
			EntityID:   h.Subtasks[subtaskIdx].ID,
			Status:     status,
			UpdatedAt:  now,
		}))
	}
	statuses := func(studentID string, h course.Hierarchy) map[string]course.Status {
		t.Helper()
		records, err := r.Progress.QueryProgress(ctx, studentID, h.Course.ID)
		require.NoError(t, err)
		m := make(map[string]course.Status, len(records))
		for _, rec := range records {
			assert.Equal(t, course.EntityTypeSubtask, rec.EntityType)
			m[rec.EntityID] = rec.Status
		}
		return m
	}

	assert.Empty(t, statuses(stu.ID, c1))

	upsert(stu.ID, c1, 0, course.StatusInProgress)
	upsert(stu.ID, c1, 1, course.StatusCompleted)
	upsert(stu.ID, c1, 0, course.StatusCompleted) // last write wins
	upsert(peer.ID, c1, 0, course.StatusLocked)
	upsert(stu.ID, c2, 2, course.StatusInProgress)

	assert.Equal(t, map[string]course.Status{
		c1.Subtasks[0].ID: course.StatusCompleted,
		c1.Subtasks[1].ID: course.StatusCompleted,
	}, statuses(stu.ID, c1))
	assert.Equal(t, map[string]course.Status{c1.Subtasks[0].ID: course.StatusLocked}, statuses(peer.ID, c1))
	assert.Equal(t, map[string]course.Status{c2.Subtasks[2].ID: course.StatusInProgress}, statuses(stu.ID, c2))
}
