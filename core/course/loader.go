package course

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

type (
	// HierarchyReader reads the nodes of course hierarchies.
	// Child queries return siblings in display order and an empty slice when there are none.
	HierarchyReader interface {
		GetCourseByID(ctx context.Context, id string) (Course, error)
		QueryMilestones(ctx context.Context, courseID string) ([]Milestone, error)
		QueryStages(ctx context.Context, milestoneID string) ([]Stage, error)
		QueryTasks(ctx context.Context, stageID string) ([]Task, error)
		QuerySubtasks(ctx context.Context, taskID string) ([]Subtask, error)
	}

	// ProgressReader reads the progress records of a student for a course.
	ProgressReader interface {
		QueryProgress(ctx context.Context, studentID, courseID string) ([]ProgressRecord, error)
	}
)

// Loader builds course trees from the hierarchy store and a student's progress records.
type Loader struct {
	hierarchy   HierarchyReader
	progress    ProgressReader
	concurrency int
}

func NewLoader(hierarchy HierarchyReader, progress ProgressReader, concurrency int) *Loader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Loader{hierarchy: hierarchy, progress: progress, concurrency: concurrency}
}

// Load fetches the hierarchy of the course and attaches the saved status of each subtask for studentID,
// LOCKED when none was saved. With an empty studentID every subtask is LOCKED.
// Statuses above the subtask level are left for Tree.Rollup.
//
// Each level is fetched before the next one, siblings subtrees of a level being fetched concurrently.
func (l *Loader) Load(ctx context.Context, courseID, studentID string) (tree *Tree, err error) {
	start := time.Now()
	defer func() { observeTreeLoad(start, err) }()

	c, err := l.hierarchy.GetCourseByID(ctx, courseID)
	if err != nil {
		return nil, errors.Wrap(err, "getting course")
	}

	statuses := make(map[string]Status)
	if studentID != "" {
		records, err := l.progress.QueryProgress(ctx, studentID, courseID)
		if err != nil {
			return nil, errors.Wrap(err, "querying progress")
		}
		for _, rec := range records {
			if rec.EntityType == EntityTypeSubtask {
				statuses[rec.EntityID] = rec.Status
			}
		}
	}

	milestones, err := l.hierarchy.QueryMilestones(ctx, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "querying milestones")
	}
	stages, err := fetchChildren(ctx, l.concurrency, milestones, func(ctx context.Context, m Milestone) ([]Stage, error) {
		return l.hierarchy.QueryStages(ctx, m.ID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying stages")
	}
	tasks, err := fetchChildren(ctx, l.concurrency, flatten(stages), func(ctx context.Context, s Stage) ([]Task, error) {
		return l.hierarchy.QueryTasks(ctx, s.ID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying tasks")
	}
	subtasks, err := fetchChildren(ctx, l.concurrency, flatten(tasks), func(ctx context.Context, t Task) ([]Subtask, error) {
		return l.hierarchy.QuerySubtasks(ctx, t.ID)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying subtasks")
	}

	// stages line up with milestones, tasks with the flattened stages & subtasks with the flattened tasks
	tree = NewTree(c)
	var stageIdx, taskIdx int
	for mi, m := range milestones {
		if err = tree.Add(c.ID, m.ID, m.Title); err != nil {
			return nil, err
		}
		for _, s := range stages[mi] {
			if err = tree.Add(m.ID, s.ID, s.Title); err != nil {
				return nil, err
			}
			for _, t := range tasks[stageIdx] {
				if err = tree.Add(s.ID, t.ID, t.Title); err != nil {
					return nil, err
				}
				for _, st := range subtasks[taskIdx] {
					status, ok := statuses[st.ID]
					if !ok {
						status = StatusLocked
					}
					if err = tree.Add(t.ID, st.ID, st.Title, status); err != nil {
						return nil, err
					}
				}
				taskIdx++
			}
			stageIdx++
		}
	}
	return tree, nil
}

// fetchChildren runs fetch for every parent, at most limit at a time.
// The i-th result holds the children of the i-th parent.
func fetchChildren[P, C any](ctx context.Context, limit int, parents []P, fetch func(context.Context, P) ([]C, error)) ([][]C, error) {
	results := make([][]C, len(parents))
	if len(parents) == 0 {
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, p := range parents {
		g.Go(func() error {
			children, err := fetch(gctx, p)
			if err != nil {
				return err
			}
			results[i] = children
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func flatten[T any](groups [][]T) []T {
	var n int
	for _, g := range groups {
		n += len(g)
	}
	flat := make([]T, 0, n)
	for _, g := range groups {
		flat = append(flat, g...)
	}
	return flat
}
