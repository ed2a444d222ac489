package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/alucardeht/may-la-specs/internal/daemon"
	"github.com/alucardeht/may-la-specs/internal/lint"
	"github.com/alucardeht/may-la-specs/internal/spec"
)

// errLintFailed makes lint exit non-zero once the report is printed.
var errLintFailed = errors.New("lint found errors")

func (c *cli) newCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new <id> [title]...",
		Short: "Create a draft spec in the configured store",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := spec.NewDraft(args[0], strings.Join(args[1:], " "), time.Now())
			if err != nil {
				return err
			}

			st, err := daemon.OpenStore(c.cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			if _, err := st.Get(ctx, s.ID); err == nil {
				return fmt.Errorf("spec %s already exists", s.ID)
			} else if !errors.Is(err, spec.ErrNotFound) {
				return err
			}
			if err := st.Put(ctx, s); err != nil {
				return err
			}

			created, err := st.Get(ctx, s.ID)
			if err != nil {
				return err
			}
			if c.jsonOut {
				return writeJSON(c.out, created)
			}
			where := c.cfg.Store.Location()
			if created.Path != "" {
				where = filepath.Join(c.cfg.Store.SpecDir, created.Path)
			}
			_, err = fmt.Fprintf(c.out, "created %s in %s\n", created.ID, where)
			return err
		},
	}
}

func (c *cli) lintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check specs for broken relations, dependency cycles and gaps",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := daemon.OpenStore(c.cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			all, err := st.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			report := lint.Check(all)
			if c.jsonOut {
				err = writeJSON(c.out, report)
			} else {
				err = printLint(c.out, report)
			}
			if err != nil {
				return err
			}
			if !report.Valid {
				return errLintFailed
			}
			return nil
		},
	}
}
