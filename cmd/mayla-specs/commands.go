package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/alucardeht/may-la-specs/internal/config"
	"github.com/alucardeht/may-la-specs/internal/daemon"
	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/internal/rpc"
	"github.com/alucardeht/may-la-specs/internal/store"
	"github.com/alucardeht/may-la-specs/pkg/specs"
	"github.com/alucardeht/may-la-specs/pkg/version"
)

// cli carries the flags shared by every subcommand.
type cli struct {
	configPath string
	local      bool
	jsonOut    bool

	cfg   *config.Config
	out   io.Writer
	marks marks
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:          "mayla-specs",
		Short:        "Search specs and summarise project context",
		Version:      version.Resolve(),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(c.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			lc := cfg.Logger()
			lc.Output = cmd.ErrOrStderr()
			logger.Init(lc)

			c.cfg = cfg
			c.out = cmd.OutOrStdout()
			c.marks = marksFor(c.out)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configPath, "config", "", "config file (default ~/.mayla-specs/config.yaml)")
	flags.BoolVar(&c.local, "local", false, "open the store directly instead of asking the daemon")
	flags.BoolVar(&c.jsonOut, "json", false, "print results as JSON")

	root.AddCommand(
		c.healthCmd(),
		c.contextCmd(),
		c.searchCmd(),
		c.getCmd(),
		c.importCmd(),
		c.reindexCmd(),
		c.newCmd(),
		c.lintCmd(),
	)
	return root
}

// backend is what the subcommands need, served by the daemon or in-process.
type backend interface {
	specs.Service
	Health(ctx context.Context) (*rpc.HealthResult, error)
	Resync(ctx context.Context) (specs.Diff, error)
	Close() error
}

var _ backend = (*rpc.Client)(nil)

type localBackend struct {
	*specs.Engine
	store store.Store
}

func (l *localBackend) Health(context.Context) (*rpc.HealthResult, error) {
	return &rpc.HealthResult{Status: "ok", Version: version.Resolve()}, nil
}

func (l *localBackend) Close() error {
	return l.store.Close()
}

func (c *cli) open(ctx context.Context) (backend, error) {
	if !c.local {
		client, err := rpc.Dial(ctx, c.cfg.SocketPath)
		if err != nil {
			return nil, fmt.Errorf("%w (is mayla-specs-daemon running? use --local to skip it)", err)
		}
		return client, nil
	}
	return c.openLocal(ctx)
}

func (c *cli) openLocal(ctx context.Context) (*localBackend, error) {
	st, err := daemon.OpenStore(c.cfg.Store)
	if err != nil {
		return nil, err
	}
	engine := specs.New(st, daemon.Options(c.cfg))
	if _, err := engine.Load(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return &localBackend{Engine: engine, store: st}, nil
}

// withBackend opens a backend for the duration of fn.
func (c *cli) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b backend) error) (err error) {
	ctx := cmd.Context()
	b, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := b.Close(); cerr != nil && err == nil && !errors.Is(cerr, context.Canceled) {
			err = cerr
		}
	}()
	return fn(ctx, b)
}
