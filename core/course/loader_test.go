package course

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore serves a hierarchy from memory, counting the concurrent child queries.
type fakeStore struct {
	course     Course
	milestones []Milestone
	stages     map[string][]Stage
	tasks      map[string][]Task
	subtasks   map[string][]Subtask
	records    []ProgressRecord

	failStages error
	delay      time.Duration

	mu       sync.Mutex
	inFlight int
	maxPar   int
}

func (fs *fakeStore) enter() func() {
	fs.mu.Lock()
	fs.inFlight++
	if fs.inFlight > fs.maxPar {
		fs.maxPar = fs.inFlight
	}
	fs.mu.Unlock()
	time.Sleep(fs.delay)
	return func() {
		fs.mu.Lock()
		fs.inFlight--
		fs.mu.Unlock()
	}
}

func (fs *fakeStore) GetCourseByID(_ context.Context, id string) (Course, error) {
	if id != fs.course.ID {
		return Course{}, ErrNotFound
	}
	return fs.course, nil
}

func (fs *fakeStore) QueryMilestones(context.Context, string) ([]Milestone, error) {
	return fs.milestones, nil
}

func (fs *fakeStore) QueryStages(_ context.Context, milestoneID string) ([]Stage, error) {
	defer fs.enter()()
	if fs.failStages != nil {
		return nil, fs.failStages
	}
	return fs.stages[milestoneID], nil
}

func (fs *fakeStore) QueryTasks(_ context.Context, stageID string) ([]Task, error) {
	defer fs.enter()()
	return fs.tasks[stageID], nil
}

func (fs *fakeStore) QuerySubtasks(_ context.Context, taskID string) ([]Subtask, error) {
	defer fs.enter()()
	return fs.subtasks[taskID], nil
}

func (fs *fakeStore) QueryProgress(_ context.Context, studentID, courseID string) ([]ProgressRecord, error) {
	var recs []ProgressRecord
	for _, rec := range fs.records {
		if rec.StudentID == studentID && rec.CourseID == courseID {
			recs = append(recs, rec)
		}
	}
	return recs, nil
}

// newFakeStore returns a course with 4 milestones, each holding 1 stage > 1 task > 2 subtasks.
func newFakeStore() *fakeStore {
	fs := &fakeStore{
		course:   Course{ID: "c", Title: "Research Methods"},
		stages:   make(map[string][]Stage),
		tasks:    make(map[string][]Task),
		subtasks: make(map[string][]Subtask),
	}
	for _, m := range []string{"m1", "m2", "m3", "m4"} {
		fs.milestones = append(fs.milestones, Milestone{ID: m, CourseID: "c", Title: m})
		s, tk := m+"s", m+"t"
		fs.stages[m] = []Stage{{ID: s, MilestoneID: m, Title: s}}
		fs.tasks[s] = []Task{{ID: tk, StageID: s, Title: tk}}
		fs.subtasks[tk] = []Subtask{{ID: tk + "1", TaskID: tk, Title: "a"}, {ID: tk + "2", TaskID: tk, Title: "b", Position: 1}}
	}
	return fs
}

func TestLoader_Load(t *testing.T) {
	fs := newFakeStore()
	fs.records = []ProgressRecord{
		{StudentID: "stu", CourseID: "c", EntityType: EntityTypeSubtask, EntityID: "m1t1", Status: StatusCompleted},
		{StudentID: "stu", CourseID: "c", EntityType: EntityTypeSubtask, EntityID: "m2t2", Status: StatusInProgress},
		{StudentID: "stu", CourseID: "c", EntityType: "TASK", EntityID: "m3t", Status: StatusCompleted},
		{StudentID: "other", CourseID: "c", EntityType: EntityTypeSubtask, EntityID: "m4t1", Status: StatusCompleted},
	}
	loader := NewLoader(fs, fs, 2)

	tree, err := loader.Load(context.Background(), "c", "stu")
	require.NoError(t, err)
	assert.Equal(t, 1+4*4, tree.Len())

	// display order is kept
	var ids []string
	for _, m := range tree.Children("c") {
		ids = append(ids, m.ID)
	}
	assert.Equal(t, []string{"m1", "m2", "m3", "m4"}, ids)
	sts := tree.Children("m1t")
	require.Len(t, sts, 2)
	assert.Equal(t, "m1t1", sts[0].ID)

	// only the subtask records of the student are attached, nothing is rolled up yet
	assert.Equal(t, StatusCompleted, nodeStatus(t, tree, "m1t1"))
	assert.Equal(t, StatusInProgress, nodeStatus(t, tree, "m2t2"))
	assert.Equal(t, StatusLocked, nodeStatus(t, tree, "m3t"))
	assert.Equal(t, StatusLocked, nodeStatus(t, tree, "m4t1"))
	assert.Equal(t, StatusLocked, nodeStatus(t, tree, "m1t"))

	tree.Rollup()
	assert.Equal(t, StatusInProgress, nodeStatus(t, tree, "m1t"))
	assert.Equal(t, StatusInProgress, tree.Status())
}

func TestLoader_Load_structure(t *testing.T) {
	fs := newFakeStore()
	fs.records = []ProgressRecord{{StudentID: "stu", CourseID: "c", EntityType: EntityTypeSubtask, EntityID: "m1t1", Status: StatusCompleted}}

	tree, err := NewLoader(fs, fs, 4).Load(context.Background(), "c", "")
	require.NoError(t, err)
	tree.Rollup()
	assert.Equal(t, Progress{Total: 8, Locked: 8}, tree.Progress())
	assert.Equal(t, StatusLocked, tree.Status())
}

func TestLoader_Load_concurrencyLimit(t *testing.T) {
	fs := newFakeStore()
	fs.delay = 5 * time.Millisecond

	_, err := NewLoader(fs, fs, 2).Load(context.Background(), "c", "stu")
	require.NoError(t, err)
	assert.LessOrEqual(t, fs.maxPar, 2)

	fs.maxPar = 0
	_, err = NewLoader(fs, fs, 0).Load(context.Background(), "c", "stu") // at least 1
	require.NoError(t, err)
	assert.Equal(t, 1, fs.maxPar)
}

func TestLoader_Load_errors(t *testing.T) {
	fs := newFakeStore()
	loader := NewLoader(fs, fs, 2)

	_, err := loader.Load(context.Background(), "nope", "stu")
	assert.Equal(t, ErrNotFound, errors.Cause(err))

	dbErr := errors.New("connection reset")
	fs.failStages = dbErr
	_, err = loader.Load(context.Background(), "c", "stu")
	assert.Equal(t, dbErr, errors.Cause(err))
}

func TestLoader_Load_emptyCourse(t *testing.T) {
	fs := &fakeStore{course: Course{ID: "c", Title: "Empty"}}
	tree, err := NewLoader(fs, fs, 2).Load(context.Background(), "c", "stu")
	require.NoError(t, err)
	tree.Rollup()
	assert.Equal(t, 1, tree.Len())
	assert.Equal(t, StatusLocked, tree.Status())
}
