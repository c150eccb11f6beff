package course

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Level is the depth of a node in a course hierarchy.
type Level int

const (
	LevelCourse Level = iota
	LevelMilestone
	LevelStage
	LevelTask
	LevelSubtask
)

var levelNames = [...]string{"course", "milestone", "stage", "task", "subtask"}

func (l Level) String() string {
	if l < LevelCourse || l > LevelSubtask {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return levelNames[l]
}

var (
	ErrNodeExists   = errors.New("node already exists")
	ErrNodeNotFound = errors.New("node not found")
	ErrInvalidLevel = errors.New("invalid node level")
)

// Node is a hierarchy node. Children hold ids, in display order.
type Node struct {
	ID       string
	Level    Level
	Title    string
	ParentID string
	Children []string
	Status   Status
}

// Tree is a course hierarchy stored as an arena of nodes keyed by id.
// Subtask statuses are input data; every other status is derived with Rollup
// and kept up to date by Tree.Rollup and Tree.SetSubtaskStatus.
type Tree struct {
	rootID string
	nodes  map[string]*Node
	order  []string // insertion order, parents always come before their children
}

// NewTree returns a tree rooted at c. Its status is LOCKED until children are added and rolled up.
func NewTree(c Course) *Tree {
	root := &Node{ID: c.ID, Level: LevelCourse, Title: c.Title, Status: StatusLocked}
	return &Tree{
		rootID: c.ID,
		nodes:  map[string]*Node{c.ID: root},
		order:  []string{c.ID},
	}
}

// Add appends a child node under parentID. The child must sit exactly one level below its parent.
// Non-subtask nodes start LOCKED; subtasks with an unknown status default to LOCKED.
func (t *Tree) Add(parentID, id, title string, status ...Status) error {
	parent, ok := t.nodes[parentID]
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "parent %q", parentID)
	}
	if _, ok := t.nodes[id]; ok {
		return errors.Wrapf(ErrNodeExists, "%q", id)
	}
	if parent.Level >= LevelSubtask {
		return errors.Wrapf(ErrInvalidLevel, "%s %q cannot have children", parent.Level, parentID)
	}

	node := &Node{ID: id, Level: parent.Level + 1, Title: title, ParentID: parentID, Status: StatusLocked}
	if node.Level == LevelSubtask && len(status) > 0 && status[0].IsValid() {
		node.Status = status[0]
	}
	t.nodes[id] = node
	t.order = append(t.order, id)
	parent.Children = append(parent.Children, id)
	return nil
}

// Rollup recomputes every derived status, bottom-up. Running it on an unchanged tree is a no-op.
func (t *Tree) Rollup() {
	for i := len(t.order) - 1; i >= 0; i-- {
		node := t.nodes[t.order[i]]
		if node.Level != LevelSubtask {
			node.Status = t.rollupNode(node)
		}
	}
}

func (t *Tree) rollupNode(node *Node) Status {
	statuses := make([]Status, 0, len(node.Children))
	for _, childID := range node.Children {
		statuses = append(statuses, t.nodes[childID].Status)
	}
	return Rollup(statuses)
}

// SetSubtaskStatus changes a subtask status and recomputes the statuses of all its ancestors.
func (t *Tree) SetSubtaskStatus(id string, status Status) error {
	if !status.IsValid() {
		return ErrInvalidStatus
	}
	node, ok := t.nodes[id]
	if !ok {
		return errors.Wrapf(ErrNodeNotFound, "%q", id)
	}
	if node.Level != LevelSubtask {
		return errors.Wrapf(ErrInvalidLevel, "%q is a %s", id, node.Level)
	}

	node.Status = status
	for parentID := node.ParentID; parentID != ""; {
		parent := t.nodes[parentID]
		parent.Status = t.rollupNode(parent)
		parentID = parent.ParentID
	}
	return nil
}

func (t *Tree) RootID() string { return t.rootID }

// Status returns the course status.
func (t *Tree) Status() Status { return t.nodes[t.rootID].Status }

// Node returns a copy of the node with the given id.
func (t *Tree) Node(id string) (Node, bool) {
	node, ok := t.nodes[id]
	if !ok {
		return Node{}, false
	}
	n := *node
	n.Children = append([]string(nil), node.Children...)
	return n, true
}

// Children returns copies of the children of the node with the given id, in display order.
func (t *Tree) Children(id string) []Node {
	node, ok := t.nodes[id]
	if !ok {
		return nil
	}
	children := make([]Node, 0, len(node.Children))
	for _, childID := range node.Children {
		child, _ := t.Node(childID)
		children = append(children, child)
	}
	return children
}

// Len returns the number of nodes, root included.
func (t *Tree) Len() int { return len(t.nodes) }

// Progress counts subtasks per status.
func (t *Tree) Progress() Progress {
	var p Progress
	for _, node := range t.nodes {
		if node.Level != LevelSubtask {
			continue
		}
		p.Total++
		switch node.Status {
		case StatusCompleted:
			p.Completed++
		case StatusInProgress:
			p.InProgress++
		default:
			p.Locked++
		}
	}
	return p
}

// Fprint writes an indented, human readable rendering of the tree to w.
func (t *Tree) Fprint(w io.Writer) error {
	var walk func(id string, depth int) error
	walk = func(id string, depth int) error {
		node := t.nodes[id]
		if _, err := fmt.Fprintf(w, "%s[%s] %s: %s\n", strings.Repeat("  ", depth), node.Status, node.Level, node.Title); err != nil {
			return err
		}
		for _, childID := range node.Children {
			if err := walk(childID, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(t.rootID, 0)
}

type (
	Progress struct {
		Total      int `json:"total"`
		Completed  int `json:"completed"`
		InProgress int `json:"in_progress"`
		Locked     int `json:"locked"`
	}

	CourseView struct {
		ID         string          `json:"id"`
		Title      string          `json:"course_title"`
		Status     Status          `json:"status"`
		Progress   Progress        `json:"progress"`
		Milestones []MilestoneView `json:"milestones"`
	}

	MilestoneView struct {
		ID     string      `json:"id"`
		Title  string      `json:"milestone_title"`
		Status Status      `json:"status"`
		Stages []StageView `json:"stages"`
	}

	StageView struct {
		ID     string     `json:"id"`
		Title  string     `json:"stage_title"`
		Status Status     `json:"status"`
		Tasks  []TaskView `json:"tasks"`
	}

	TaskView struct {
		ID       string        `json:"id"`
		Title    string        `json:"task_title"`
		Status   Status        `json:"status"`
		Subtasks []SubtaskView `json:"subtasks"`
	}

	SubtaskView struct {
		ID     string `json:"id"`
		Title  string `json:"subtask_title"`
		Status Status `json:"status"`
	}
)

// View returns the nested representation of the tree.
func (t *Tree) View() CourseView {
	root := t.nodes[t.rootID]
	cv := CourseView{
		ID:         root.ID,
		Title:      root.Title,
		Status:     root.Status,
		Progress:   t.Progress(),
		Milestones: make([]MilestoneView, 0, len(root.Children)),
	}
	for _, mID := range root.Children {
		m := t.nodes[mID]
		mv := MilestoneView{ID: m.ID, Title: m.Title, Status: m.Status, Stages: make([]StageView, 0, len(m.Children))}
		for _, sID := range m.Children {
			s := t.nodes[sID]
			sv := StageView{ID: s.ID, Title: s.Title, Status: s.Status, Tasks: make([]TaskView, 0, len(s.Children))}
			for _, tID := range s.Children {
				tk := t.nodes[tID]
				tv := TaskView{ID: tk.ID, Title: tk.Title, Status: tk.Status, Subtasks: make([]SubtaskView, 0, len(tk.Children))}
				for _, stID := range tk.Children {
					st := t.nodes[stID]
					tv.Subtasks = append(tv.Subtasks, SubtaskView{ID: st.ID, Title: st.Title, Status: st.Status})
				}
				sv.Tasks = append(sv.Tasks, tv)
			}
			mv.Stages = append(mv.Stages, sv)
		}
		cv.Milestones = append(cv.Milestones, mv)
	}
	return cv
}
