package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alucardeht/may-la-specs/internal/config"
	"github.com/alucardeht/may-la-specs/internal/daemon"
	"github.com/alucardeht/may-la-specs/internal/store"
)

// ImportResult reports what import wrote to the database.
type ImportResult struct {
	Source   string `json:"source"`
	Database string `json:"database"`
	Imported int    `json:"imported"`
	Pruned   int    `json:"pruned"`
}

func (c *cli) importCmd() *cobra.Command {
	var (
		dbPath string
		prune  bool
	)
	cmd := &cobra.Command{
		Use:   "import <dir>",
		Short: "Load a directory of markdown specs into the database store",
		Long: `Load a directory of markdown specs into the database store.

The specs go into the badger store when it is the configured driver and into
SQLite otherwise.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.importDir(cmd.Context(), args[0], dbPath, prune)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(c.out, result)
			}
			_, err = fmt.Fprintf(c.out, "imported %d specs from %s into %s (pruned %d)\n",
				result.Imported, result.Source, result.Database, result.Pruned)
			return err
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default store.db_path)")
	cmd.Flags().BoolVar(&prune, "prune", false, "delete specs missing from the directory")
	return cmd
}

func (c *cli) importDir(ctx context.Context, dir, dbPath string, prune bool) (*ImportResult, error) {
	srcCfg := c.cfg.Store
	srcCfg.Driver = config.DriverFile
	srcCfg.SpecDir = dir
	src, err := daemon.OpenStore(srcCfg)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	docs, err := src.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	dstCfg := c.cfg.Store
	if dstCfg.Driver != config.DriverBadger {
		dstCfg.Driver = config.DriverSQLite
		if dbPath != "" {
			dstCfg.DBPath = dbPath
		}
	}
	dst, err := daemon.OpenStore(dstCfg)
	if err != nil {
		return nil, err
	}
	defer dst.Close()

	result := &ImportResult{Source: src.(*store.FileStore).Root(), Database: dstCfg.Location()}
	seen := make(map[string]struct{}, len(docs))
	for _, s := range docs {
		if err := dst.Put(ctx, s); err != nil {
			return nil, fmt.Errorf("import %s: %w", s.ID, err)
		}
		seen[s.ID] = struct{}{}
		result.Imported++
	}

	if prune {
		existing, err := dst.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range existing {
			if _, ok := seen[s.ID]; ok {
				continue
			}
			if err := dst.Delete(ctx, s.ID); err != nil {
				return nil, err
			}
			result.Pruned++
		}
	}
	return result, nil
}

// ReindexResult is the outcome of a reindex. Diff is only set when a
// running daemon reconciled its index.
type ReindexResult struct {
	Documents int         `json:"documents"`
	Diff      *DiffCounts `json:"diff,omitempty"`
}

type DiffCounts struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
	Removed int `json:"removed"`
}

func (c *cli) reindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Reconcile the daemon's index with the store now",
		Long: `Reconcile the daemon's index with the store now.

With --local the store is read from scratch and the number of indexed specs is
reported, which is a quick way to check that every document parses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := c.reindex(cmd.Context())
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(c.out, result)
			}
			return printReindex(c.out, result)
		},
	}
}

func (c *cli) reindex(ctx context.Context) (*ReindexResult, error) {
	if c.local {
		lb, err := c.openLocal(ctx)
		if err != nil {
			return nil, err
		}
		defer lb.Close()
		return &ReindexResult{Documents: lb.Stats().Index.Documents}, nil
	}

	b, err := c.open(ctx)
	if err != nil {
		return nil, err
	}
	defer b.Close()

	diff, err := b.Resync(ctx)
	if err != nil {
		return nil, err
	}
	pc, err := b.Context(ctx)
	if err != nil {
		return nil, err
	}
	return &ReindexResult{
		Documents: pc.TotalSpecs,
		Diff: &DiffCounts{
			Added:   len(diff.Added),
			Updated: len(diff.Updated),
			Removed: len(diff.Removed),
		},
	}, nil
}
