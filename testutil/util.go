package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
	"github.com/researchnest/backend/storage/database"
)

// OpenDB returns a migrated sqlite database living in a temporary directory, closed when t ends.
func OpenDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("OpenDB() failed: %v", err)
	}
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC().Truncate(time.Microsecond)
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		ID:        uuid.NewString(),
		FullName:  name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// SampleOutline returns a course with two milestones:
//   - "Research Basics" > "Literature" > "Survey" > ["Find papers", "Read papers"]
//   - "Writing" > "Draft" > "Outline" > ["Write outline"]
func SampleOutline() course.Outline {
	return course.Outline{
		Title: "Research Methods",
		Milestones: []course.MilestoneOutline{
			{
				Title: "Research Basics",
				Stages: []course.StageOutline{{
					Title: "Literature",
					Tasks: []course.TaskOutline{{Title: "Survey", Subtasks: []string{"Find papers", "Read papers"}}},
				}},
			},
			{
				Title: "Writing",
				Stages: []course.StageOutline{{
					Title: "Draft",
					Tasks: []course.TaskOutline{{Title: "Outline", Subtasks: []string{"Write outline"}}},
				}},
			},
		},
	}
}

// NewHierarchy assigns ids & positions to the nodes of outline, the way a course creation does.
func NewHierarchy(ownerID string, outline course.Outline) course.Hierarchy {
	h := course.Hierarchy{
		Course: course.Course{
			ID:        uuid.NewString(),
			Title:     outline.Title,
			CreatedBy: ownerID,
			CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		},
	}
	for mi, mo := range outline.Milestones {
		m := course.Milestone{ID: uuid.NewString(), CourseID: h.Course.ID, Title: mo.Title, Position: mi}
		h.Milestones = append(h.Milestones, m)
		for si, so := range mo.Stages {
			s := course.Stage{ID: uuid.NewString(), MilestoneID: m.ID, Title: so.Title, Position: si}
			h.Stages = append(h.Stages, s)
			for ti, to := range so.Tasks {
				tk := course.Task{ID: uuid.NewString(), StageID: s.ID, Title: to.Title, Position: ti}
				h.Tasks = append(h.Tasks, tk)
				for sti, title := range to.Subtasks {
					h.Subtasks = append(h.Subtasks, course.Subtask{ID: uuid.NewString(), TaskID: tk.ID, Title: title, Position: sti})
				}
			}
		}
	}
	return h
}

// CreateCourse saves the hierarchy of outline, owned by owner.
func CreateCourse(t *testing.T, repo course.Repository, owner user.User, outline course.Outline) course.Hierarchy {
	t.Helper()

	h := NewHierarchy(owner.ID, outline)
	if _, err := repo.CreateCourse(context.Background(), h); err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return h
}
