package specsearch

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alucardeht/may-la-specs/internal/compat"
	"github.com/alucardeht/may-la-specs/internal/store"
	"github.com/alucardeht/may-la-specs/pkg/specs"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestImportWarnedOnce(t *testing.T) {
	assert.True(t, compat.Default.Warned(warningKey))
	assert.False(t, initWith(compat.Default))
	Init()
}

func TestInitTwiceLogsOnce(t *testing.T) {
	var out lockedBuffer
	p := compat.NewProcess(slog.New(slog.NewTextHandler(&out, nil)))

	assert.True(t, initWith(p))
	assert.False(t, initWith(p))
	assert.Equal(t, 1, strings.Count(out.String(), "package specsearch is deprecated"))
}

func TestConcurrentInitLogsOnce(t *testing.T) {
	var out lockedBuffer
	p := compat.NewProcess(slog.New(slog.NewTextHandler(&out, nil)))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			initWith(p)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, strings.Count(out.String(), "package specsearch is deprecated"))
}

func TestSearcherForwards(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore(
		&specs.Spec{ID: "A", Title: "Implement caching layer", Status: StatusActive, UpdatedAt: time.Unix(10, 0).UTC()},
		&specs.Spec{ID: "B", Title: "Caching eviction policy", Status: StatusDone, UpdatedAt: time.Unix(20, 0).UTC()},
	)
	engine := New(st, DefaultOptions())
	_, err := engine.Load(ctx)
	require.NoError(t, err)

	s := NewSearcher(engine)

	results, err := s.Search(ctx, "caching", 10, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "B", results[0].SpecID)

	results, err = s.Search(ctx, "caching", 10, " Active ")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "A", results[0].SpecID)

	pc, err := s.ComputeContext(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pc.ByStatus[StatusActive])
	assert.Equal(t, 1, pc.ByStatus[StatusDone])

	_, err = s.GetSpec(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
