package watcher

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

type Config struct {
	Enabled        bool          `yaml:"enabled"`
	DebounceWindow time.Duration `yaml:"debounce_window"`
	MaxBatchSize   int           `yaml:"max_batch_size"`
	IgnorePatterns []string      `yaml:"ignore_patterns"`
	WatchHidden    bool          `yaml:"watch_hidden"`
}

// DefaultConfig skips VCS metadata and editor scratch files.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		DebounceWindow: 300 * time.Millisecond,
		MaxBatchSize:   100,
		IgnorePatterns: []string{"**/.git/**", "**/*.tmp", "**/*~", "**/*.swp"},
	}
}

// Ignored reports whether path is excluded from watching. Dot-prefixed
// names are excluded unless WatchHidden is set.
func (c Config) Ignored(path string) bool {
	if !c.WatchHidden && strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	slashed := filepath.ToSlash(path)
	for _, pattern := range c.IgnorePatterns {
		if ok, _ := doublestar.Match(pattern, slashed); ok {
			return true
		}
	}
	return false
}
