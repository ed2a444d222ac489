package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alucardeht/may-la-specs/pkg/specs"
)

func (c *cli) healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the engine answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b backend) error {
				health, err := b.Health(ctx)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return writeJSON(c.out, health)
				}
				return printHealth(c.out, health)
			})
		},
	}
}

func (c *cli) contextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "context",
		Short: "Summarise the project: counts by status, recent specs, relationships",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b backend) error {
				pc, err := b.Context(ctx)
				if err != nil {
					return err
				}
				if c.jsonOut {
					return writeJSON(c.out, pc)
				}
				return printContext(c.out, pc)
			})
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	var (
		limit  int
		status string
	)
	cmd := &cobra.Command{
		Use:   "search <query>...",
		Short: "Rank specs against a free-text query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := specs.SearchOptions{
				Limit:  limit,
				Status: specs.Status(strings.ToLower(strings.TrimSpace(status))),
			}
			query := strings.Join(args, " ")
			return c.withBackend(cmd, func(ctx context.Context, b backend) error {
				results, err := b.Search(ctx, query, opts)
				if err != nil {
					return err
				}
				if c.jsonOut {
					if results == nil {
						results = []specs.SearchResult{}
					}
					return writeJSON(c.out, results)
				}
				return printResults(c.out, results, c.marks)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum results (0 uses the configured default)")
	cmd.Flags().StringVarP(&status, "status", "s", "", "only specs with this status")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Print one spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withBackend(cmd, func(ctx context.Context, b backend) error {
				s, err := b.Get(ctx, args[0])
				if err != nil {
					return err
				}
				if c.jsonOut {
					return writeJSON(c.out, s)
				}
				return printSpec(c.out, s)
			})
		},
	}
}
