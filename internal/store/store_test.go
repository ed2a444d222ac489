package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/may-la-specs/internal/spec"
)

func sample(id, title string, status spec.Status, updated time.Time) *spec.Spec {
	return &spec.Spec{
		ID:        id,
		Title:     title,
		Body:      "Body of " + id,
		Status:    status,
		Tags:      []string{"storage"},
		UpdatedAt: updated,
	}
}

func withoutPath(s *spec.Spec) *spec.Spec {
	c := s.Clone()
	c.Path = ""
	return c
}

// exerciseStore runs the behaviour every Store shares.
func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	b := sample("SPEC-2", "Caching eviction policy", spec.StatusDone, t0.Add(time.Hour))
	a := sample("SPEC-1", "Implement caching layer", spec.StatusActive, t0)
	a.Relations = []spec.Relation{{Target: "SPEC-2", Kind: spec.RelationDependsOn}}

	require.NoError(t, s.Put(ctx, b))
	require.NoError(t, s.Put(ctx, a))

	all, err := s.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "SPEC-1", all[0].ID)
	assert.Equal(t, "SPEC-2", all[1].ID)

	got, err := s.Get(ctx, "SPEC-1")
	require.NoError(t, err)
	assert.Equal(t, a, withoutPath(got))

	_, err = s.Get(ctx, "SPEC-404")
	assert.ErrorIs(t, err, spec.ErrNotFound)

	a.Status = spec.StatusDone
	a.Body = "Rewritten"
	require.NoError(t, s.Put(ctx, a))
	got, err = s.Get(ctx, "SPEC-1")
	require.NoError(t, err)
	assert.Equal(t, spec.StatusDone, got.Status)
	assert.Equal(t, "Rewritten", got.Body)

	require.NoError(t, s.Delete(ctx, "SPEC-2"))
	_, err = s.Get(ctx, "SPEC-2")
	assert.ErrorIs(t, err, spec.ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, "SPEC-2"), spec.ErrNotFound)

	all, err = s.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	assert.ErrorIs(t, s.Put(ctx, &spec.Spec{Title: "no id"}), spec.ErrInvalidSpec)
	assert.ErrorIs(t, s.Put(ctx, &spec.Spec{ID: "x", Status: "shipped"}), spec.ErrInvalidSpec)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStoreFail(t *testing.T) {
	m := NewMemoryStore(sample("SPEC-1", "x", spec.StatusDraft, time.Time{}))
	m.Fail(errors.New("connection refused"))

	_, err := m.ListAll(context.Background())
	assert.ErrorIs(t, err, spec.ErrStoreUnavailable)
	_, err = m.Get(context.Background(), "SPEC-1")
	assert.ErrorIs(t, err, spec.ErrStoreUnavailable)

	m.Fail(nil)
	all, err := m.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	m := NewMemoryStore(sample("SPEC-1", "x", spec.StatusDraft, time.Time{}))

	got, err := m.Get(context.Background(), "SPEC-1")
	require.NoError(t, err)
	got.Tags[0] = "mutated"

	again, err := m.Get(context.Background(), "SPEC-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"storage"}, again.Tags)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "specs.db"))
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStoreZeroTime(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "specs.db"))
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &spec.Spec{ID: "bare"}))

	got, err := s.Get(ctx, "bare")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.IsZero())
	assert.Equal(t, spec.StatusDraft, got.Status)
	assert.Empty(t, got.Tags)
	assert.Nil(t, got.Relations)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "specs.db")
	ctx := context.Background()

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, sample("SPEC-1", "x", spec.StatusActive, time.Unix(100, 5).UTC())))
	require.NoError(t, s.Close())

	s, err = OpenSQLite(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "SPEC-1")
	require.NoError(t, err)
	assert.Equal(t, time.Unix(100, 5).UTC(), got.UpdatedAt)
}

func TestSQLiteStoreUnavailable(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "specs.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ListAll(context.Background())
	assert.ErrorIs(t, err, spec.ErrStoreUnavailable)
	_, err = s.Get(context.Background(), "SPEC-1")
	assert.ErrorIs(t, err, spec.ErrStoreUnavailable)
	assert.ErrorIs(t, s.Put(context.Background(), &spec.Spec{ID: "a"}), spec.ErrStoreUnavailable)
}

func TestBadgerStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "specs.badger")
	s, err := OpenBadger(dir)
	require.NoError(t, err)

	exerciseStore(t, s)

	n, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, s.Close())

	s, err = OpenBadger(dir)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "SPEC-1")
	require.NoError(t, err)
	assert.Equal(t, "Rewritten", got.Body)
}

func TestBadgerStoreInMemory(t *testing.T) {
	s, err := OpenBadger("")
	require.NoError(t, err)
	defer s.Close()

	exerciseStore(t, s)

	ctx := context.Background()
	require.NoError(t, s.Put(ctx, &spec.Spec{ID: "bare"}))
	got, err := s.Get(ctx, "bare")
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.IsZero())
	assert.Nil(t, got.Relations)
}

func TestBadgerStoreUnavailable(t *testing.T) {
	s, err := OpenBadger("")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = s.ListAll(context.Background())
	assert.ErrorIs(t, err, spec.ErrStoreUnavailable)
	assert.ErrorIs(t, s.Put(context.Background(), &spec.Spec{ID: "a"}), spec.ErrStoreUnavailable)
}
