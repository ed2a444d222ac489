package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/alucardeht/may-la-specs/internal/aggregate"
	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/internal/query"
	"github.com/alucardeht/may-la-specs/internal/syncer"
	"github.com/alucardeht/may-la-specs/internal/watcher"
)

const (
	EnvSpecDir  = "MAYLA_SPECS_DIR"
	EnvHTTPAddr = "MAYLA_SPECS_HTTP_ADDR"
	EnvLogLevel = "MAYLA_SPECS_LOG_LEVEL"

	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverBadger = "badger"
)

type StoreConfig struct {
	Driver    string   `yaml:"driver"`
	SpecDir   string   `yaml:"spec_dir"`
	DBPath    string   `yaml:"db_path"`
	BadgerDir string   `yaml:"badger_dir"`
	Patterns  []string `yaml:"patterns"`
	Ignore    []string `yaml:"ignore"`
	Charset   string   `yaml:"charset"`
	Workers   int      `yaml:"workers"`
}

// Location is the directory or database file the selected driver uses.
func (s StoreConfig) Location() string {
	switch s.Driver {
	case DriverSQLite:
		return s.DBPath
	case DriverBadger:
		return s.BadgerDir
	default:
		return s.SpecDir
	}
}

type HTTPConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Config struct {
	HomeDir    string `yaml:"home_dir"`
	SocketPath string `yaml:"socket_path"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	Store   StoreConfig      `yaml:"store"`
	HTTP    HTTPConfig       `yaml:"http"`
	Search  query.Config     `yaml:"search"`
	Context aggregate.Config `yaml:"context"`
	Sync    syncer.Config    `yaml:"sync"`
	Watcher watcher.Config   `yaml:"watcher"`
}

// HomeDir is ~/.mayla-specs, or a directory under the temp dir when the
// user has no home.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "mayla-specs")
	}
	return filepath.Join(home, ".mayla-specs")
}

func DefaultPath() string {
	return filepath.Join(HomeDir(), "config.yaml")
}

// Default returns the built-in configuration without environment overrides.
func Default() *Config {
	dir := HomeDir()
	return &Config{
		HomeDir:    dir,
		SocketPath: filepath.Join(dir, "daemon.sock"),
		LogLevel:   "info",
		LogFormat:  "text",
		Store: StoreConfig{
			Driver:    DriverFile,
			SpecDir:   filepath.Join(dir, "specs"),
			DBPath:    filepath.Join(dir, "specs.db"),
			BadgerDir: filepath.Join(dir, "specs.badger"),
			Patterns:  []string{"**/*.md"},
			Ignore:    []string{"**/.git/**", "**/node_modules/**"},
		},
		HTTP: HTTPConfig{
			Enabled:         true,
			Addr:            "127.0.0.1:8766",
			ShutdownTimeout: 5 * time.Second,
		},
		Search:  query.DefaultConfig(),
		Context: aggregate.DefaultConfig(),
		Sync:    syncer.DefaultConfig(),
		Watcher: watcher.DefaultConfig(),
	}
}

// Load returns the defaults with environment overrides applied.
func Load() *Config {
	cfg := Default()
	cfg.applyEnv()
	return cfg
}

// LoadFile overlays the YAML file at path on the defaults, then applies
// environment overrides. Keys missing from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyEnv()
	return cfg, nil
}

// Resolve loads path, or DefaultPath when path is empty. Only a missing
// default file falls back to Load.
func Resolve(path string) (*Config, error) {
	if path != "" {
		return LoadFile(path)
	}
	cfg, err := LoadFile(DefaultPath())
	if errors.Is(err, fs.ErrNotExist) {
		return Load(), nil
	}
	return cfg, err
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSpecDir); v != "" {
		c.Store.SpecDir = v
	}
	if v := os.Getenv(EnvHTTPAddr); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverFile:
		if c.Store.SpecDir == "" {
			errs = append(errs, errors.New("store.spec_dir is required for the file driver"))
		}
	case DriverSQLite:
		if c.Store.DBPath == "" {
			errs = append(errs, errors.New("store.db_path is required for the sqlite driver"))
		}
	case DriverBadger:
		if c.Store.BadgerDir == "" {
			errs = append(errs, errors.New("store.badger_dir is required for the badger driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver must be %q, %q or %q, got %q",
			DriverFile, DriverSQLite, DriverBadger, c.Store.Driver))
	}

	if c.Search.DefaultLimit <= 0 {
		errs = append(errs, errors.New("search.default_limit must be positive"))
	}
	if c.Search.MaxLimit < c.Search.DefaultLimit {
		errs = append(errs, errors.New("search.max_limit must be at least search.default_limit"))
	}
	if c.Search.SnippetWindow <= 0 {
		errs = append(errs, errors.New("search.snippet_window must be positive"))
	}
	if c.Context.RecentLimit <= 0 {
		errs = append(errs, errors.New("context.recent_limit must be positive"))
	}
	if c.Sync.ResyncInterval <= 0 {
		errs = append(errs, errors.New("sync.resync_interval must be positive"))
	}
	if c.Watcher.Enabled && c.Watcher.DebounceWindow <= 0 {
		errs = append(errs, errors.New("watcher.debounce_window must be positive"))
	}
	if c.HTTP.Enabled && c.HTTP.Addr == "" {
		errs = append(errs, errors.New("http.addr is required when http is enabled"))
	}
	if c.SocketPath == "" {
		errs = append(errs, errors.New("socket_path is required"))
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Logger converts the logging settings for logger.Init.
func (c *Config) Logger() logger.Config {
	lc := logger.DefaultConfig()
	if level, err := logger.ParseLevel(c.LogLevel); err == nil {
		lc.Level = level
	}
	if c.LogFormat != "" {
		lc.Format = c.LogFormat
	}
	return lc
}

func (c *Config) EnsureDirectories() error {
	return os.MkdirAll(c.HomeDir, 0700)
}
