package compat

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestWarnOnce(t *testing.T) {
	var out syncBuffer
	p := NewProcess(slog.New(slog.NewTextHandler(&out, nil)))

	assert.False(t, p.Warned("legacy"))
	assert.True(t, p.WarnOnce("legacy", "package is deprecated", "use", "specs"))
	assert.False(t, p.WarnOnce("legacy", "package is deprecated"))
	assert.True(t, p.Warned("legacy"))

	assert.True(t, p.WarnOnce("other", "also deprecated"))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "key=legacy")
	assert.Contains(t, lines[0], "use=specs")
}

func TestWarnOnceConcurrent(t *testing.T) {
	var out syncBuffer
	p := NewProcess(slog.New(slog.NewTextHandler(&out, nil)))

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if p.WarnOnce("legacy", "package is deprecated") {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, strings.Count(out.String(), "package is deprecated"))
}
