// Package compat holds process-scope state for deprecated entry points.
package compat

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/alucardeht/may-la-specs/internal/logger"
)

// Process tracks which one-time warnings this process has already emitted.
// The zero value is not usable; use NewProcess.
type Process struct {
	log   *slog.Logger
	flags sync.Map // key -> *atomic.Bool
}

// Default is the process-wide instance deprecated packages report through.
var Default = NewProcess(logger.ForComponent("compat"))

func NewProcess(l *slog.Logger) *Process {
	if l == nil {
		l = logger.ForComponent("compat")
	}
	return &Process{log: l}
}

// WarnOnce logs msg the first time it is called for key and reports whether
// this call was the one that logged. Concurrent callers race on an atomic
// check-and-set, so exactly one of them wins.
func (p *Process) WarnOnce(key, msg string, args ...any) bool {
	v, _ := p.flags.LoadOrStore(key, new(atomic.Bool))
	if !v.(*atomic.Bool).CompareAndSwap(false, true) {
		return false
	}
	p.log.Warn(msg, append([]any{"key", key}, args...)...)
	return true
}

func (p *Process) Warned(key string) bool {
	v, ok := p.flags.Load(key)
	return ok && v.(*atomic.Bool).Load()
}
