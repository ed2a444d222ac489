// Package aggregate computes the project-wide context summary of the spec
// store.
package aggregate

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/internal/metrics"
	"github.com/alucardeht/may-la-specs/internal/spec"
	"github.com/alucardeht/may-la-specs/internal/store"
)

var log = logger.ForComponent("aggregate")

type Config struct {
	RecentLimit int `yaml:"recent_limit"`
}

func DefaultConfig() Config {
	return Config{RecentLimit: 10}
}

// Relationship is one declared direction between two specs. The target may
// not exist in the store.
type Relationship struct {
	SpecID        string            `json:"specId"`
	RelatedSpecID string            `json:"relatedSpecId"`
	Kind          spec.RelationKind `json:"relationKind"`
}

type ProjectContext struct {
	TotalSpecs      int                 `json:"totalSpecs"`
	ByStatus        map[spec.Status]int `json:"byStatus"`
	RecentlyUpdated []string            `json:"recentlyUpdated"`
	Relationships   []Relationship      `json:"relationships"`
	GeneratedAt     time.Time           `json:"generatedAt"`
}

type Aggregator struct {
	store  store.Reader
	config Config
	now    func() time.Time
}

func New(r store.Reader, config Config) *Aggregator {
	if config.RecentLimit <= 0 {
		config.RecentLimit = DefaultConfig().RecentLimit
	}
	return &Aggregator{store: r, config: config, now: time.Now}
}

// Compute reads every spec once and reduces it to a ProjectContext. Any
// store failure yields an error wrapping spec.ErrStoreUnavailable and no
// context at all.
func (a *Aggregator) Compute(ctx context.Context) (*ProjectContext, error) {
	start := time.Now()
	defer func() { metrics.ContextDuration.Observe(time.Since(start).Seconds()) }()

	specs, err := a.store.ListAll(ctx)
	if err != nil {
		metrics.ContextFailures.Inc()
		log.Warn("context unavailable", "error", err)
		if !errors.Is(err, spec.ErrStoreUnavailable) {
			err = fmt.Errorf("%w: %w", spec.ErrStoreUnavailable, err)
		}
		return nil, err
	}

	pc := Reduce(specs, a.config.RecentLimit)
	pc.GeneratedAt = a.now().UTC()
	return pc, nil
}

// Reduce builds the context of specs without touching any store. Every known
// status has a key in ByStatus; specs without a status count as drafts.
func Reduce(specs []*spec.Spec, recent int) *ProjectContext {
	pc := &ProjectContext{
		ByStatus:        make(map[spec.Status]int, len(spec.Statuses)),
		RecentlyUpdated: []string{},
		Relationships:   []Relationship{},
	}
	for _, st := range spec.Statuses {
		pc.ByStatus[st] = 0
	}

	live := make([]*spec.Spec, 0, len(specs))
	for _, s := range specs {
		if s == nil {
			continue
		}
		live = append(live, s)

		status := s.Status
		if status == "" {
			status = spec.StatusDraft
		}
		pc.ByStatus[status]++

		for _, r := range s.DeclaredRelations() {
			pc.Relationships = append(pc.Relationships, Relationship{
				SpecID:        s.ID,
				RelatedSpecID: r.Target,
				Kind:          r.Kind,
			})
		}
	}
	pc.TotalSpecs = len(live)

	slices.SortFunc(pc.Relationships, func(x, y Relationship) int {
		return cmp.Or(
			strings.Compare(x.SpecID, y.SpecID),
			strings.Compare(x.RelatedSpecID, y.RelatedSpecID),
			strings.Compare(string(x.Kind), string(y.Kind)),
		)
	})
	pc.Relationships = slices.Compact(pc.Relationships)

	slices.SortFunc(live, func(x, y *spec.Spec) int {
		if c := y.UpdatedAt.Compare(x.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(x.ID, y.ID)
	})
	for _, s := range live[:min(max(recent, 0), len(live))] {
		pc.RecentlyUpdated = append(pc.RecentlyUpdated, s.ID)
	}

	return pc
}
