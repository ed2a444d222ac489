// Command mayla-specs-daemon keeps the spec index in memory and serves it
// over a local socket and HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/alucardeht/may-la-specs/internal/config"
	"github.com/alucardeht/may-la-specs/internal/daemon"
	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/pkg/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if errors.Is(err, daemon.ErrAlreadyRunning) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:          "mayla-specs-daemon",
		Short:        "Serve spec search and project context",
		Version:      version.Resolve(),
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Resolve(configPath)
			if err != nil {
				return err
			}
			logger.Init(cfg.Logger())
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("create home dir: %w", err)
			}

			d, err := daemon.New(cfg)
			if err != nil {
				return err
			}
			defer d.Close()
			return d.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "config file (default ~/.mayla-specs/config.yaml)")
	return cmd
}
