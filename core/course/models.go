package course

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/researchnest/backend/core"
)

// EntityTypeSubtask is the only entity type progress is recorded for.
const EntityTypeSubtask = "SUBTASK"

type (
	Course struct {
		ID        string    `json:"id" db:"id"`
		Title     string    `json:"course_title" db:"course_title"`
		CreatedBy string    `json:"created_by" db:"created_by"`
		CreatedAt time.Time `json:"created_at" db:"created_at"` // UTC
	}

	Milestone struct {
		ID       string `json:"id" db:"id"`
		CourseID string `json:"course_id" db:"course_id"`
		Title    string `json:"milestone_title" db:"milestone_title"`
		Position int    `json:"position" db:"position"`
	}

	Stage struct {
		ID          string `json:"id" db:"id"`
		MilestoneID string `json:"milestone_id" db:"milestone_id"`
		Title       string `json:"stage_title" db:"stage_title"`
		Position    int    `json:"position" db:"position"`
	}

	Task struct {
		ID       string `json:"id" db:"id"`
		StageID  string `json:"stage_id" db:"stage_id"`
		Title    string `json:"task_title" db:"task_title"`
		Position int    `json:"position" db:"position"`
	}

	Subtask struct {
		ID       string `json:"id" db:"id"`
		TaskID   string `json:"task_id" db:"task_id"`
		Title    string `json:"subtask_title" db:"subtask_title"`
		Position int    `json:"position" db:"position"`
	}

	// Hierarchy is a course with all of its nodes, as written in a single course creation.
	Hierarchy struct {
		Course     Course
		Milestones []Milestone
		Stages     []Stage
		Tasks      []Task
		Subtasks   []Subtask
	}

	Enrollment struct {
		ID          string    `json:"id" db:"id"`
		StudentID   string    `json:"student_id" db:"student_id"`
		CourseID    string    `json:"course_id" db:"course_id"`
		CourseTitle string    `json:"course_title" db:"course_title"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"` // UTC
	}

	// ProgressRecord is the saved status of one subtask for one student.
	// It is unique on (StudentID, EntityType, EntityID).
	ProgressRecord struct {
		StudentID  string    `json:"student_id" db:"student_id"`
		CourseID   string    `json:"course_id" db:"course_id"`
		EntityType string    `json:"entity_type" db:"entity_type"`
		EntityID   string    `json:"entity_id" db:"entity_id"`
		Status     Status    `json:"status" db:"status"`
		UpdatedAt  time.Time `json:"updated_at" db:"updated_at"` // UTC
	}
)

// Outline is the nested description of a new course, as authored by faculty.
type (
	Outline struct {
		Title      string             `json:"course_title" yaml:"course_title" validate:"required,notblank"`
		Milestones []MilestoneOutline `json:"milestones" yaml:"milestones" validate:"dive"`
	}

	MilestoneOutline struct {
		Title  string         `json:"milestone_title" yaml:"milestone_title" validate:"required,notblank"`
		Stages []StageOutline `json:"stages" yaml:"stages" validate:"dive"`
	}

	StageOutline struct {
		Title string        `json:"stage_title" yaml:"stage_title" validate:"required,notblank"`
		Tasks []TaskOutline `json:"tasks" yaml:"tasks" validate:"dive"`
	}

	TaskOutline struct {
		Title    string   `json:"task_title" yaml:"task_title" validate:"required,notblank"`
		Subtasks []string `json:"subtasks" yaml:"subtasks" validate:"dive,required,notblank"`
	}
)

func (o *Outline) clean() {
	o.Title = core.CleanString(o.Title)
	for i := range o.Milestones {
		m := &o.Milestones[i]
		m.Title = core.CleanString(m.Title)
		for j := range m.Stages {
			s := &m.Stages[j]
			s.Title = core.CleanString(s.Title)
			for k := range s.Tasks {
				t := &s.Tasks[k]
				t.Title = core.CleanString(t.Title)
				for l := range t.Subtasks {
					t.Subtasks[l] = core.CleanString(t.Subtasks[l])
				}
			}
		}
	}
}

func (o *Outline) Validate(validate *validator.Validate) error {
	o.clean()
	return validate.Struct(o)
}

type QueryFilter struct {
	CreatedBy string `query:"created_by"`
}

// SubtaskStatusUpdate is the payload of a subtask status mutation.
type SubtaskStatusUpdate struct {
	Status string `json:"status" validate:"required,status"`
}

func (su *SubtaskStatusUpdate) Validate(validate *validator.Validate) error {
	su.Status = core.CleanString(su.Status)
	return validate.Struct(su)
}
