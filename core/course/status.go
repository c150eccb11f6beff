package course

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Status is the progress state of a hierarchy node, ordered LOCKED < IN_PROGRESS < COMPLETED.
type Status string

const (
	StatusLocked     Status = "LOCKED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

var (
	Statuses = []Status{StatusLocked, StatusInProgress, StatusCompleted}

	ErrInvalidStatus = errors.New("status must be one of LOCKED, IN_PROGRESS or COMPLETED")
)

// ParseStatus parses s (case-insensitive) into a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", ErrInvalidStatus
	}
	return st, nil
}

func (s Status) IsValid() bool {
	switch s {
	case StatusLocked, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Rank returns the position of s in the status order. Unknown statuses rank as LOCKED.
func (s Status) Rank() int {
	switch s {
	case StatusInProgress:
		return 1
	case StatusCompleted:
		return 2
	default:
		return 0
	}
}

func (s Status) String() string { return string(s) }

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return ErrInvalidStatus
	}
	st, err := ParseStatus(str)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Rollup derives a parent status from its children statuses:
//   - no children: LOCKED
//   - every child COMPLETED: COMPLETED
//   - any child IN_PROGRESS: IN_PROGRESS
//   - every child LOCKED: LOCKED
//   - any other mix (LOCKED and COMPLETED): IN_PROGRESS
//
// Unknown child statuses count as LOCKED.
func Rollup(children []Status) Status {
	if len(children) == 0 {
		return StatusLocked
	}

	var locked, completed int
	for _, st := range children {
		switch st {
		case StatusCompleted:
			completed++
		case StatusInProgress:
			return StatusInProgress
		default:
			locked++
		}
	}

	switch {
	case completed == len(children):
		return StatusCompleted
	case locked == len(children):
		return StatusLocked
	default:
		return StatusInProgress
	}
}
