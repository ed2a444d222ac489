package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 200, cfg.Search.MaxLimit)
	assert.Equal(t, 160, cfg.Search.SnippetWindow)
	assert.Equal(t, 10, cfg.Context.RecentLimit)
	assert.Equal(t, 30*time.Second, cfg.Sync.ResyncInterval)
}

func TestLoadFileOverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
store:
  driver: sqlite
  db_path: /var/lib/specs.db
search:
  default_limit: 5
sync:
  resync_interval: 2m
watcher:
  debounce_window: 50ms
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "/var/lib/specs.db", cfg.Store.DBPath)
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 200, cfg.Search.MaxLimit)
	assert.Equal(t, 2*time.Minute, cfg.Sync.ResyncInterval)
	assert.Equal(t, 50*time.Millisecond, cfg.Watcher.DebounceWindow)
	assert.Equal(t, slog.LevelDebug, cfg.Logger().Level)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvSpecDir, "/srv/specs")
	t.Setenv(EnvHTTPAddr, ":9999")
	t.Setenv(EnvLogLevel, "warn")

	path := writeConfig(t, "log_level: debug\nhttp:\n  addr: 127.0.0.1:1\n")
	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/specs", cfg.Store.SpecDir)
	assert.Equal(t, ":9999", cfg.HTTP.Addr)
	assert.Equal(t, "warn", cfg.LogLevel)

	assert.Equal(t, "/srv/specs", Load().Store.SpecDir)
}

func TestLoadFileErrors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = LoadFile(writeConfig(t, "search: [not, a, map]"))
	assert.Error(t, err)
}

func TestResolveMissingDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Resolve("")
	require.NoError(t, err)
	assert.Equal(t, Load(), cfg)
}

func TestValidate(t *testing.T) {
	tests := map[string]func(*Config){
		"driver":         func(c *Config) { c.Store.Driver = "postgres" },
		"spec dir":       func(c *Config) { c.Store.SpecDir = "" },
		"db path":        func(c *Config) { c.Store.Driver, c.Store.DBPath = DriverSQLite, "" },
		"badger dir":     func(c *Config) { c.Store.Driver, c.Store.BadgerDir = DriverBadger, "" },
		"default limit":  func(c *Config) { c.Search.DefaultLimit = 0 },
		"max limit":      func(c *Config) { c.Search.MaxLimit = 1 },
		"snippet window": func(c *Config) { c.Search.SnippetWindow = -1 },
		"recent limit":   func(c *Config) { c.Context.RecentLimit = 0 },
		"resync":         func(c *Config) { c.Sync.ResyncInterval = 0 },
		"debounce":       func(c *Config) { c.Watcher.DebounceWindow = 0 },
		"log level":      func(c *Config) { c.LogLevel = "loud" },
		"http addr":      func(c *Config) { c.HTTP.Addr = "" },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestStoreLocation(t *testing.T) {
	sc := StoreConfig{SpecDir: "/s", DBPath: "/d.db", BadgerDir: "/b"}
	for driver, want := range map[string]string{
		DriverFile:   "/s",
		DriverSQLite: "/d.db",
		DriverBadger: "/b",
	} {
		sc.Driver = driver
		assert.Equal(t, want, sc.Location(), driver)
	}
}
