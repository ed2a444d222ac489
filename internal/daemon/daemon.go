// Package daemon wires the store, the engine and its front ends into one
// long running process.
package daemon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alucardeht/may-la-specs/internal/api"
	"github.com/alucardeht/may-la-specs/internal/config"
	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/internal/rpc"
	"github.com/alucardeht/may-la-specs/internal/store"
	"github.com/alucardeht/may-la-specs/internal/watcher"
	"github.com/alucardeht/may-la-specs/pkg/specs"
)

var log = logger.ForComponent("daemon")

// OpenStore builds the store selected by cfg.Driver.
func OpenStore(cfg config.StoreConfig) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		return store.OpenSQLite(cfg.DBPath)
	case config.DriverBadger:
		return store.OpenBadger(cfg.BadgerDir)
	case config.DriverFile, "":
		var opts []store.FileOption
		if len(cfg.Patterns) > 0 {
			opts = append(opts, store.WithPatterns(cfg.Patterns...))
		}
		if len(cfg.Ignore) > 0 {
			opts = append(opts, store.WithIgnore(cfg.Ignore...))
		}
		if cfg.Charset != "" {
			opts = append(opts, store.WithCharset(cfg.Charset))
		}
		if cfg.Workers > 0 {
			opts = append(opts, store.WithWorkers(cfg.Workers))
		}
		return store.NewFileStore(cfg.SpecDir, opts...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// Options builds the engine options from the daemon configuration.
func Options(cfg *config.Config) specs.Options {
	return specs.Options{
		Search:  cfg.Search,
		Context: cfg.Context,
		Sync:    cfg.Sync,
	}
}

// InstancePath is the file that marks the daemon owning homeDir.
func InstancePath(homeDir string) string {
	return filepath.Join(homeDir, "daemon.lock")
}

type Daemon struct {
	cfg       *config.Config
	store     store.Store
	engine    *specs.Engine
	instance  *Instance
	startTime time.Time
}

func New(cfg *config.Config) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	st, err := OpenStore(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Daemon{
		cfg:       cfg,
		store:     st,
		engine:    specs.New(st, Options(cfg)),
		instance:  NewInstance(InstancePath(cfg.HomeDir)),
	}, nil
}

func (d *Daemon) Engine() *specs.Engine {
	return d.engine
}

func (d *Daemon) Uptime() time.Duration {
	if d.startTime.IsZero() {
		return 0
	}
	return time.Since(d.startTime)
}

// Run serves until ctx is done or a component fails. The first failure
// stops every other component.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.instance.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := d.instance.Release(); err != nil {
			log.Warn("release instance file", "error", err)
		}
	}()

	ln, err := rpc.Listen(d.cfg.SocketPath)
	if err != nil {
		return err
	}

	d.startTime = time.Now()
	log.Info("daemon started",
		"socket", d.cfg.SocketPath,
		"driver", d.cfg.Store.Driver,
		"pid", os.Getpid())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return d.engine.Run(gctx)
	})

	g.Go(func() error {
		return rpc.NewServer(d.engine).Serve(gctx, ln)
	})

	if d.cfg.HTTP.Enabled {
		srv := api.NewServer(d.cfg.HTTP.Addr, api.NewRouter(d.engine))
		g.Go(srv.ListenAndServe)
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), d.cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if w, err := d.newWatcher(); err != nil {
		log.Warn("file watcher disabled", "error", err)
	} else if w != nil {
		g.Go(func() error { return w.Run(gctx) })
	}

	err = g.Wait()
	log.Info("daemon stopped", "uptime", d.Uptime().Round(time.Second), "error", err)
	return err
}

// newWatcher returns nil when the store is not directory backed or
// watching is off. Every accepted batch triggers a resync.
func (d *Daemon) newWatcher() (*watcher.Watcher, error) {
	files, ok := d.store.(*store.FileStore)
	if !ok || !d.cfg.Watcher.Enabled {
		return nil, nil
	}

	filter := func(path string) bool {
		rel, err := filepath.Rel(files.Root(), path)
		if err != nil {
			return false
		}
		return files.Matches(filepath.ToSlash(rel))
	}
	w, err := watcher.New(d.cfg.Watcher, filter, func(changes []watcher.Change) {
		log.Debug("spec files changed", "count", len(changes))
		d.engine.Trigger()
	})
	if err != nil {
		return nil, err
	}
	if err := w.AddRoot(files.Root()); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (d *Daemon) Close() error {
	return d.store.Close()
}
