package course

import "sync"

type viewKey struct {
	courseID string
	viewerID string
}

type snapshot struct {
	token uint64
	tree  *Tree
}

// Views holds the latest tree snapshot per (course, viewer).
// Loads take a token with Begin before fetching and hand their result to Apply once done:
// a result older than the applied snapshot is discarded, so a slow superseded load never
// overwrites a fresher one. Snapshots are replaced whole and must not be mutated once applied.
type Views struct {
	mu    sync.RWMutex
	next  uint64
	snaps map[viewKey]snapshot
}

func NewViews() *Views {
	return &Views{snaps: make(map[viewKey]snapshot)}
}

// Begin returns a new request token, greater than every token returned before.
func (v *Views) Begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.next++
	return v.next
}

// Apply stores tree as the snapshot of (courseID, viewerID) unless a snapshot with a newer token
// was already applied. It reports whether tree was stored.
func (v *Views) Apply(courseID, viewerID string, token uint64, tree *Tree) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	key := viewKey{courseID, viewerID}
	if curr, ok := v.snaps[key]; ok && curr.token > token {
		return false
	}
	v.snaps[key] = snapshot{token: token, tree: tree}
	return true
}

// Get returns the current snapshot of (courseID, viewerID).
func (v *Views) Get(courseID, viewerID string) (*Tree, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	snap, ok := v.snaps[viewKey{courseID, viewerID}]
	return snap.tree, ok
}

// Forget drops every snapshot of courseID.
func (v *Views) Forget(courseID string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for key := range v.snaps {
		if key.courseID == courseID {
			delete(v.snaps, key)
		}
	}
}
