package inmemdb

import (
	"context"
	"sort"

	"github.com/pkg/errors"

	"github.com/researchnest/backend/core/course"
)

type courseRepository struct {
	db *DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db}
}

// CreateCourse checks every node before saving any, so a rejected hierarchy leaves nothing behind.
func (repo *courseRepository) CreateCourse(_ context.Context, h course.Hierarchy) (course.Course, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[h.Course.CreatedBy]; !ok {
		return course.Course{}, errors.Errorf("course owner %q does not exist", h.Course.CreatedBy)
	}
	ids := map[string]bool{h.Course.ID: true}
	checkID := func(id string) error {
		if id == "" || ids[id] {
			return errors.Errorf("duplicate or empty id %q", id)
		}
		ids[id] = true
		return nil
	}
	for _, m := range h.Milestones {
		if err := checkID(m.ID); err != nil {
			return course.Course{}, err
		}
		if m.CourseID != h.Course.ID {
			return course.Course{}, errors.Errorf("milestone %q: unknown course %q", m.ID, m.CourseID)
		}
	}
	for _, s := range h.Stages {
		if err := checkID(s.ID); err != nil {
			return course.Course{}, err
		}
		if !hasMilestone(h.Milestones, s.MilestoneID) {
			return course.Course{}, errors.Errorf("stage %q: unknown milestone %q", s.ID, s.MilestoneID)
		}
	}
	for _, t := range h.Tasks {
		if err := checkID(t.ID); err != nil {
			return course.Course{}, err
		}
		if !hasStage(h.Stages, t.StageID) {
			return course.Course{}, errors.Errorf("task %q: unknown stage %q", t.ID, t.StageID)
		}
	}
	for _, st := range h.Subtasks {
		if err := checkID(st.ID); err != nil {
			return course.Course{}, err
		}
		if !hasTask(h.Tasks, st.TaskID) {
			return course.Course{}, errors.Errorf("subtask %q: unknown task %q", st.ID, st.TaskID)
		}
	}
	if _, ok := repo.db.courses[h.Course.ID]; ok {
		return course.Course{}, errors.Errorf("course %q already exists", h.Course.ID)
	}

	repo.db.courses[h.Course.ID] = h.Course
	for _, m := range h.Milestones {
		repo.db.milestones[m.ID] = m
	}
	for _, s := range h.Stages {
		repo.db.stages[s.ID] = s
	}
	for _, t := range h.Tasks {
		repo.db.tasks[t.ID] = t
	}
	for _, st := range h.Subtasks {
		repo.db.subtasks[st.ID] = st
	}
	return h.Course, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter course.QueryFilter) ([]course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	courses := make([]course.Course, 0, len(repo.db.courses))
	for _, c := range repo.db.courses {
		if filter.CreatedBy != "" && c.CreatedBy != filter.CreatedBy {
			continue
		}
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool {
		if !courses[i].CreatedAt.Equal(courses[j].CreatedAt) {
			return courses[i].CreatedAt.After(courses[j].CreatedAt)
		}
		return courses[i].ID < courses[j].ID
	})
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(_ context.Context, id string) (course.Course, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if c, ok := repo.db.courses[id]; ok {
		return c, nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryMilestones(_ context.Context, courseID string) ([]course.Milestone, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	milestones := make([]course.Milestone, 0)
	for _, m := range repo.db.milestones {
		if m.CourseID == courseID {
			milestones = append(milestones, m)
		}
	}
	sort.Slice(milestones, func(i, j int) bool {
		return lessPosition(milestones[i].Position, milestones[j].Position, milestones[i].ID, milestones[j].ID)
	})
	return milestones, nil
}

func (repo *courseRepository) QueryStages(_ context.Context, milestoneID string) ([]course.Stage, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	stages := make([]course.Stage, 0)
	for _, s := range repo.db.stages {
		if s.MilestoneID == milestoneID {
			stages = append(stages, s)
		}
	}
	sort.Slice(stages, func(i, j int) bool {
		return lessPosition(stages[i].Position, stages[j].Position, stages[i].ID, stages[j].ID)
	})
	return stages, nil
}

func (repo *courseRepository) QueryTasks(_ context.Context, stageID string) ([]course.Task, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	tasks := make([]course.Task, 0)
	for _, t := range repo.db.tasks {
		if t.StageID == stageID {
			tasks = append(tasks, t)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return lessPosition(tasks[i].Position, tasks[j].Position, tasks[i].ID, tasks[j].ID)
	})
	return tasks, nil
}

func (repo *courseRepository) QuerySubtasks(_ context.Context, taskID string) ([]course.Subtask, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	subtasks := make([]course.Subtask, 0)
	for _, st := range repo.db.subtasks {
		if st.TaskID == taskID {
			subtasks = append(subtasks, st)
		}
	}
	sort.Slice(subtasks, func(i, j int) bool {
		return lessPosition(subtasks[i].Position, subtasks[j].Position, subtasks[i].ID, subtasks[j].ID)
	})
	return subtasks, nil
}

func (repo *courseRepository) GetSubtaskCourseID(_ context.Context, subtaskID string) (string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	st, ok := repo.db.subtasks[subtaskID]
	if !ok {
		return "", course.ErrSubtaskNotFound
	}
	t := repo.db.tasks[st.TaskID]
	s := repo.db.stages[t.StageID]
	return repo.db.milestones[s.MilestoneID].CourseID, nil
}

func lessPosition(posA, posB int, idA, idB string) bool {
	if posA != posB {
		return posA < posB
	}
	return idA < idB
}

func hasMilestone(milestones []course.Milestone, id string) bool {
	for _, m := range milestones {
		if m.ID == id {
			return true
		}
	}
	return false
}

func hasStage(stages []course.Stage, id string) bool {
	for _, s := range stages {
		if s.ID == id {
			return true
		}
	}
	return false
}

func hasTask(tasks []course.Task, id string) bool {
	for _, t := range tasks {
		if t.ID == id {
			return true
		}
	}
	return false
}
