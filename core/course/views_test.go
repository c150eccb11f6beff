package course

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestViews_Apply(t *testing.T) {
	v := NewViews()
	older, newer := v.Begin(), v.Begin()
	require.Greater(t, newer, older)

	olderTree := NewTree(Course{ID: "c", Title: "older"})
	newerTree := NewTree(Course{ID: "c", Title: "newer"})

	_, ok := v.Get("c", "stu")
	assert.False(t, ok)

	// the newer load completes first, the older result is then stale
	assert.True(t, v.Apply("c", "stu", newer, newerTree))
	assert.False(t, v.Apply("c", "stu", older, olderTree))

	got, ok := v.Get("c", "stu")
	require.True(t, ok)
	assert.Same(t, newerTree, got)

	// snapshots are per viewer
	assert.True(t, v.Apply("c", "other", older, olderTree))
	got, _ = v.Get("c", "other")
	assert.Same(t, olderTree, got)

	// a later load replaces the snapshot
	latest := NewTree(Course{ID: "c", Title: "latest"})
	assert.True(t, v.Apply("c", "stu", v.Begin(), latest))
	got, _ = v.Get("c", "stu")
	assert.Same(t, latest, got)

	v.Forget("c")
	_, ok = v.Get("c", "stu")
	assert.False(t, ok)
	_, ok = v.Get("c", "other")
	assert.False(t, ok)
}

func TestViews_concurrent(t *testing.T) {
	v := NewViews()
	const n = 50

	var wg sync.WaitGroup
	var mu sync.Mutex
	var maxToken uint64
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			token := v.Begin()
			v.Apply("c", "stu", token, NewTree(Course{ID: "c"}))
			mu.Lock()
			if token > maxToken {
				maxToken = token
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	// the last token always wins, whatever the completion order
	assert.False(t, v.Apply("c", "stu", maxToken-1, NewTree(Course{ID: "c"})))
	assert.Equal(t, uint64(n), maxToken)
}
