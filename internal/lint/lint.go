// Package lint checks a set of specs for broken or suspicious relations and
// incomplete documents.
package lint

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/alucardeht/may-la-specs/internal/spec"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

const (
	DanglingRelation   = "DANGLING_RELATION"
	SelfRelation       = "SELF_RELATION"
	DependencyCycle    = "DEPENDENCY_CYCLE"
	DoneWithOpenDeps   = "DONE_WITH_OPEN_DEPENDENCY"
	DependsOnArchived  = "DEPENDS_ON_ARCHIVED"
	SupersededNotDone  = "SUPERSEDED_STILL_OPEN"
	MissingTitle       = "MISSING_TITLE"
	EmptyBody          = "EMPTY_BODY"
	MissingUpdatedTime = "MISSING_UPDATED"
)

type Violation struct {
	Type        string   `json:"type"`
	SpecID      string   `json:"specId"`
	Description string   `json:"description"`
	Severity    Severity `json:"severity"`
}

type Report struct {
	Valid      bool        `json:"valid"`
	Checked    int         `json:"checked"`
	Violations []Violation `json:"violations"`
	Summary    string      `json:"summary"`
}

// Counts returns the number of violations per severity.
func (r *Report) Counts() map[Severity]int {
	counts := map[Severity]int{SeverityError: 0, SeverityWarning: 0, SeverityInfo: 0}
	for _, v := range r.Violations {
		counts[v.Severity]++
	}
	return counts
}

// Check lints specs. A report is valid when it has no errors. Violations are
// ordered by spec id, then type.
func Check(specs []*spec.Spec) *Report {
	byID := make(map[string]*spec.Spec, len(specs))
	for _, s := range specs {
		byID[s.ID] = s
	}

	var out []Violation
	add := func(typ, id string, sev Severity, format string, args ...any) {
		out = append(out, Violation{Type: typ, SpecID: id, Severity: sev, Description: fmt.Sprintf(format, args...)})
	}

	for _, s := range specs {
		if s.Title == "" {
			add(MissingTitle, s.ID, SeverityWarning, "spec has no title")
		}
		if s.Body == "" {
			add(EmptyBody, s.ID, SeverityInfo, "spec has no body text")
		}
		if s.UpdatedAt.IsZero() {
			add(MissingUpdatedTime, s.ID, SeverityInfo, "spec has no update time and sorts last in recent activity")
		}
		for _, r := range s.Relations {
			if r.Target == s.ID {
				add(SelfRelation, s.ID, SeverityWarning, "%s relation points at the spec itself", r.Kind)
			}
		}

		for _, r := range s.DeclaredRelations() {
			target, ok := byID[r.Target]
			if !ok {
				add(DanglingRelation, s.ID, SeverityError, "%s %s: no such spec", r.Kind, r.Target)
				continue
			}
			switch r.Kind {
			case spec.RelationDependsOn:
				if s.Status == spec.StatusDone && target.Status != spec.StatusDone && target.Status != spec.StatusArchived {
					add(DoneWithOpenDeps, s.ID, SeverityWarning, "done but depends on %s which is %s", target.ID, target.Status)
				}
				if s.Status != spec.StatusArchived && target.Status == spec.StatusArchived {
					add(DependsOnArchived, s.ID, SeverityWarning, "depends on archived spec %s", target.ID)
				}
			case spec.RelationSupersedes:
				if target.Status == spec.StatusActive || target.Status == spec.StatusDraft {
					add(SupersededNotDone, target.ID, SeverityWarning, "superseded by %s but still %s", s.ID, target.Status)
				}
			}
		}
	}

	for _, cycle := range dependencyCycles(specs, byID) {
		add(DependencyCycle, cycle[0], SeverityError, "dependency cycle: %s", formatCycle(cycle))
	}

	slices.SortStableFunc(out, func(a, b Violation) int {
		return cmp.Or(cmp.Compare(a.SpecID, b.SpecID), cmp.Compare(a.Type, b.Type))
	})

	report := &Report{Checked: len(specs), Violations: out}
	if report.Violations == nil {
		report.Violations = []Violation{}
	}
	counts := report.Counts()
	report.Valid = counts[SeverityError] == 0
	report.Summary = fmt.Sprintf("%d specs checked: %d errors, %d warnings, %d infos",
		len(specs), counts[SeverityError], counts[SeverityWarning], counts[SeverityInfo])
	return report
}

// dependencyCycles walks depends-on edges depth first and returns each cycle
// it closes once, rotated to start at its smallest id. Every strongly
// connected group of specs yields at least one cycle.
func dependencyCycles(specs []*spec.Spec, byID map[string]*spec.Spec) [][]string {
	edges := make(map[string][]string, len(specs))
	ids := make([]string, 0, len(specs))
	for _, s := range specs {
		ids = append(ids, s.ID)
		for _, r := range s.DeclaredRelations() {
			if r.Kind == spec.RelationDependsOn {
				if _, ok := byID[r.Target]; ok {
					edges[s.ID] = append(edges[s.ID], r.Target)
				}
			}
		}
	}
	slices.Sort(ids)
	for id := range edges {
		slices.Sort(edges[id])
	}

	const (
		unvisited = iota
		onStack
		finished
	)
	state := make(map[string]int, len(ids))
	var (
		stack  []string
		cycles [][]string
		seen   = make(map[string]struct{})
	)

	var visit func(id string)
	visit = func(id string) {
		state[id] = onStack
		stack = append(stack, id)
		for _, next := range edges[id] {
			switch state[next] {
			case unvisited:
				visit(next)
			case onStack:
				start := slices.Index(stack, next)
				cycle := rotate(slices.Clone(stack[start:]))
				key := fmt.Sprint(cycle)
				if _, dup := seen[key]; !dup {
					seen[key] = struct{}{}
					cycles = append(cycles, cycle)
				}
			}
		}
		stack = stack[:len(stack)-1]
		state[id] = finished
	}
	for _, id := range ids {
		if state[id] == unvisited {
			visit(id)
		}
	}
	return cycles
}

func rotate(cycle []string) []string {
	i := slices.Index(cycle, slices.Min(cycle))
	return slices.Concat(cycle[i:], cycle[:i])
}

func formatCycle(cycle []string) string {
	return strings.Join(cycle, " -> ") + " -> " + cycle[0]
}
