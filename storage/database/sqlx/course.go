package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/researchnest/backend/core/course"
)

type courseRepository struct {
	db *sqlx.DB
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db *sqlx.DB) *courseRepository {
	return &courseRepository{db: db}
}

// CreateCourse inserts the course and all of its nodes in a single transaction.
func (repo *courseRepository) CreateCourse(ctx context.Context, h course.Hierarchy) (course.Course, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "beginning transaction")
	}

	if err = insertHierarchy(ctx, tx, h); err != nil {
		return course.Course{}, rollback(tx, err)
	}
	if err = tx.Commit(); err != nil {
		return course.Course{}, errors.Wrap(err, "committing transaction")
	}
	return repo.GetCourseByID(ctx, h.Course.ID)
}

func insertHierarchy(ctx context.Context, tx *sqlx.Tx, h course.Hierarchy) error {
	if _, err := tx.NamedExecContext(ctx,
		`INSERT INTO courses (id, course_title, created_by, created_at) VALUES (:id, :course_title, :created_by, :created_at)`,
		h.Course,
	); err != nil {
		return errors.Wrap(err, "inserting course")
	}
	for _, m := range h.Milestones {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO course_milestones (id, course_id, milestone_title, position) VALUES (:id, :course_id, :milestone_title, :position)`,
			m,
		); err != nil {
			return errors.Wrapf(err, "inserting milestone %q", m.Title)
		}
	}
	for _, s := range h.Stages {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO course_stages (id, milestone_id, stage_title, position) VALUES (:id, :milestone_id, :stage_title, :position)`,
			s,
		); err != nil {
			return errors.Wrapf(err, "inserting stage %q", s.Title)
		}
	}
	for _, t := range h.Tasks {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO course_tasks (id, stage_id, task_title, position) VALUES (:id, :stage_id, :task_title, :position)`,
			t,
		); err != nil {
			return errors.Wrapf(err, "inserting task %q", t.Title)
		}
	}
	for _, st := range h.Subtasks {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO course_subtasks (id, task_id, subtask_title, position) VALUES (:id, :task_id, :subtask_title, :position)`,
			st,
		); err != nil {
			return errors.Wrapf(err, "inserting subtask %q", st.Title)
		}
	}
	return nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter course.QueryFilter) ([]course.Course, error) {
	q := "SELECT id, course_title, created_by, created_at FROM courses"
	args := make([]interface{}, 0, 1)
	if filter.CreatedBy != "" {
		q += " WHERE created_by = ?"
		args = append(args, filter.CreatedBy)
	}
	q += " ORDER BY created_at DESC, id ASC"

	courses := make([]course.Course, 0)
	if err := repo.db.SelectContext(ctx, &courses, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	for i := range courses {
		courses[i].CreatedAt = courses[i].CreatedAt.UTC()
	}
	return courses, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string) (course.Course, error) {
	var c course.Course
	q := repo.db.Rebind("SELECT id, course_title, created_by, created_at FROM courses WHERE id = ?")
	if err := repo.db.GetContext(ctx, &c, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "selecting course")
	}
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

func (repo *courseRepository) QueryMilestones(ctx context.Context, courseID string) ([]course.Milestone, error) {
	milestones := make([]course.Milestone, 0)
	q := repo.db.Rebind(`SELECT id, course_id, milestone_title, position FROM course_milestones
		WHERE course_id = ? ORDER BY position, id`)
	if err := repo.db.SelectContext(ctx, &milestones, q, courseID); err != nil {
		return nil, errors.Wrap(err, "selecting milestones")
	}
	return milestones, nil
}

func (repo *courseRepository) QueryStages(ctx context.Context, milestoneID string) ([]course.Stage, error) {
	stages := make([]course.Stage, 0)
	q := repo.db.Rebind(`SELECT id, milestone_id, stage_title, position FROM course_stages
		WHERE milestone_id = ? ORDER BY position, id`)
	if err := repo.db.SelectContext(ctx, &stages, q, milestoneID); err != nil {
		return nil, errors.Wrap(err, "selecting stages")
	}
	return stages, nil
}

func (repo *courseRepository) QueryTasks(ctx context.Context, stageID string) ([]course.Task, error) {
	tasks := make([]course.Task, 0)
	q := repo.db.Rebind(`SELECT id, stage_id, task_title, position FROM course_tasks
		WHERE stage_id = ? ORDER BY position, id`)
	if err := repo.db.SelectContext(ctx, &tasks, q, stageID); err != nil {
		return nil, errors.Wrap(err, "selecting tasks")
	}
	return tasks, nil
}

func (repo *courseRepository) QuerySubtasks(ctx context.Context, taskID string) ([]course.Subtask, error) {
	subtasks := make([]course.Subtask, 0)
	q := repo.db.Rebind(`SELECT id, task_id, subtask_title, position FROM course_subtasks
		WHERE task_id = ? ORDER BY position, id`)
	if err := repo.db.SelectContext(ctx, &subtasks, q, taskID); err != nil {
		return nil, errors.Wrap(err, "selecting subtasks")
	}
	return subtasks, nil
}

func (repo *courseRepository) GetSubtaskCourseID(ctx context.Context, subtaskID string) (string, error) {
	var courseID string
	q := repo.db.Rebind(`SELECT m.course_id FROM course_subtasks st
		JOIN course_tasks t ON t.id = st.task_id
		JOIN course_stages s ON s.id = t.stage_id
		JOIN course_milestones m ON m.id = s.milestone_id
		WHERE st.id = ?`)
	if err := repo.db.GetContext(ctx, &courseID, q, subtaskID); err != nil {
		return "", trapNoRowsErr(err, course.ErrSubtaskNotFound, "selecting subtask course")
	}
	return courseID, nil
}
