package inmemdb

import (
	"sync"

	"github.com/researchnest/backend/core/course"
	"github.com/researchnest/backend/core/user"
)

type progressKey struct {
	studentID  string
	entityType string
	entityID   string
}

// DB is an in-memory store. A single lock guards every table so multi-table writes are atomic.
type DB struct {
	mu sync.RWMutex

	users       map[string]user.User
	courses     map[string]course.Course
	milestones  map[string]course.Milestone
	stages      map[string]course.Stage
	tasks       map[string]course.Task
	subtasks    map[string]course.Subtask
	enrollments map[string]course.Enrollment
	progress    map[progressKey]course.ProgressRecord
}

func Open() *DB {
	return &DB{
		users:       make(map[string]user.User),
		courses:     make(map[string]course.Course),
		milestones:  make(map[string]course.Milestone),
		stages:      make(map[string]course.Stage),
		tasks:       make(map[string]course.Task),
		subtasks:    make(map[string]course.Subtask),
		enrollments: make(map[string]course.Enrollment),
		progress:    make(map[progressKey]course.ProgressRecord),
	}
}
