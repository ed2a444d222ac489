package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/alucardeht/may-la-specs/internal/lint"
	"github.com/alucardeht/may-la-specs/internal/rpc"
	"github.com/alucardeht/may-la-specs/internal/spec"
	"github.com/alucardeht/may-la-specs/pkg/specs"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printHealth(w io.Writer, h *rpc.HealthResult) error {
	_, err := fmt.Fprintf(w, "%s (version %s)\n", h.Status, h.Version)
	return err
}

// marks surround highlighted matches in a snippet.
type marks struct {
	open, close string
}

var (
	plainMarks = marks{"*", "*"}
	boldMarks  = marks{"\x1b[1m", "\x1b[0m"}
)

// marksFor uses bold on terminals unless NO_COLOR is set.
func marksFor(w io.Writer) marks {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return plainMarks
	}
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return boldMarks
	}
	return plainMarks
}

func printResults(w io.Writer, results []specs.SearchResult, m marks) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, "no matching specs")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tSCORE\tTITLE")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%.3f\t%s\n", r.SpecID, r.Status, r.Score, r.Title)
		if r.Snippet != "" && r.Snippet != r.Title {
			fmt.Fprintf(tw, "\t\t\t%s\n", highlight(r.Snippet, r.HighlightSpans, m))
		}
	}
	return tw.Flush()
}

// highlight wraps each span of snippet in m. Spans are rune offsets;
// overlapping or out of range spans are skipped.
func highlight(snippet string, spans []specs.Span, m marks) string {
	runes := []rune(snippet)
	var b strings.Builder
	pos := 0
	for _, sp := range spans {
		if sp.Start < pos || sp.End > len(runes) || sp.Start >= sp.End {
			continue
		}
		b.WriteString(string(runes[pos:sp.Start]))
		b.WriteString(m.open)
		b.WriteString(string(runes[sp.Start:sp.End]))
		b.WriteString(m.close)
		pos = sp.End
	}
	b.WriteString(string(runes[pos:]))
	return b.String()
}

func printContext(w io.Writer, pc *specs.ProjectContext) error {
	fmt.Fprintf(w, "Specs: %d\n", pc.TotalSpecs)
	for _, st := range spec.Statuses {
		fmt.Fprintf(w, "  %-9s %d\n", st, pc.ByStatus[st])
	}
	if len(pc.RecentlyUpdated) > 0 {
		fmt.Fprintf(w, "Recently updated: %s\n", strings.Join(pc.RecentlyUpdated, ", "))
	}
	if len(pc.Relationships) > 0 {
		fmt.Fprintln(w, "Relationships:")
		for _, r := range pc.Relationships {
			fmt.Fprintf(w, "  %s %s %s\n", r.SpecID, r.Kind, r.RelatedSpecID)
		}
	}
	_, err := fmt.Fprintf(w, "Generated: %s\n", pc.GeneratedAt.Format(time.RFC3339))
	return err
}

func printSpec(w io.Writer, s *specs.Spec) error {
	fmt.Fprintf(w, "%s: %s\n", s.ID, s.Title)
	fmt.Fprintf(w, "Status:  %s\n", s.Status)
	if !s.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "Updated: %s\n", s.UpdatedAt.Format(time.RFC3339))
	}
	if len(s.Tags) > 0 {
		fmt.Fprintf(w, "Tags:    %s\n", strings.Join(s.Tags, ", "))
	}
	for _, r := range s.Relations {
		fmt.Fprintf(w, "%s %s\n", r.Kind, r.Target)
	}
	if s.Body == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "\n%s\n", s.Body)
	return err
}

func printReindex(w io.Writer, r *ReindexResult) error {
	if r.Diff == nil {
		_, err := fmt.Fprintf(w, "indexed %d specs\n", r.Documents)
		return err
	}
	_, err := fmt.Fprintf(w, "indexed %d specs (added %d, updated %d, removed %d)\n",
		r.Documents, r.Diff.Added, r.Diff.Updated, r.Diff.Removed)
	return err
}

func printLint(w io.Writer, r *lint.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, v := range r.Violations {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", v.Severity, v.SpecID, v.Type, v.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, r.Summary)
	return err
}
