package watcher

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	batches [][]Change
}

func (r *recorder) record(changes []Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, changes)
}

func (r *recorder) seen() [][]Change {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Change(nil), r.batches...)
}

func pathsOf(changes []Change) []string {
	out := make([]string, len(changes))
	for i, c := range changes {
		out[i] = c.Path
	}
	return out
}

func TestDebouncerQuietWindow(t *testing.T) {
	var r recorder
	d := NewDebouncer(20*time.Millisecond, 100, r.record)
	defer d.Stop()

	d.Add(Change{Path: "b.md", Op: OpWrite})
	d.Add(Change{Path: "a.md", Op: OpCreate})
	d.Add(Change{Path: "b.md", Op: OpWrite})

	require.Eventually(t, func() bool { return len(r.seen()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a.md", "b.md"}, pathsOf(r.seen()[0]))
	assert.Zero(t, d.Pending())
}

func TestDebouncerFullBatch(t *testing.T) {
	var r recorder
	d := NewDebouncer(time.Hour, 2, r.record)
	defer d.Stop()

	d.Add(Change{Path: "a.md", Op: OpWrite})
	require.Eventually(t, func() bool { return d.Pending() == 1 }, time.Second, time.Millisecond)
	assert.Empty(t, r.seen())

	d.Add(Change{Path: "b.md", Op: OpWrite})
	require.Eventually(t, func() bool { return len(r.seen()) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, []string{"a.md", "b.md"}, pathsOf(r.seen()[0]))
}

func TestDebouncerFoldsPerPath(t *testing.T) {
	var r recorder
	d := NewDebouncer(time.Hour, 100, r.record)

	d.Add(Change{Path: "new.md", Op: OpCreate})
	d.Add(Change{Path: "new.md", Op: OpWrite})
	d.Add(Change{Path: "gone.md", Op: OpCreate})
	d.Add(Change{Path: "gone.md", Op: OpRemove})
	d.Stop()

	got := r.seen()
	require.Len(t, got, 1)
	assert.Equal(t, []Change{
		{Path: "gone.md", Op: OpRemove},
		{Path: "new.md", Op: OpCreate},
	}, got[0])
}

func TestDebouncerStop(t *testing.T) {
	var r recorder
	d := NewDebouncer(time.Hour, 100, r.record)

	d.Stop()
	d.Stop()
	assert.Empty(t, r.seen())

	d.Add(Change{Path: "late.md"})
	assert.Empty(t, r.seen())
	assert.Zero(t, d.Pending())
}

func TestFold(t *testing.T) {
	tests := []struct {
		older, newer, want Op
	}{
		{OpCreate, OpWrite, OpCreate},
		{OpWrite, OpWrite, OpWrite},
		{OpCreate, OpRemove, OpRemove},
		{OpRemove, OpCreate, OpCreate},
		{OpWrite, OpRename, OpRename},
	}
	for _, tt := range tests {
		t.Run(string(tt.older)+"+"+string(tt.newer), func(t *testing.T) {
			got := fold(Change{Path: "x", Op: tt.older}, Change{Path: "x", Op: tt.newer})
			assert.Equal(t, tt.want, got.Op)
		})
	}
}
