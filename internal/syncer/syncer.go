// Package syncer keeps the search index consistent with the spec store.
package syncer

import (
	"context"
	"slices"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alucardeht/may-la-specs/internal/index"
	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/internal/metrics"
	"github.com/alucardeht/may-la-specs/internal/spec"
	"github.com/alucardeht/may-la-specs/internal/store"
)

var log = logger.ForComponent("syncer")

type Config struct {
	// ResyncInterval bounds how stale the index can get without push events.
	ResyncInterval time.Duration `yaml:"resync_interval"`
	// MinInterval is the minimum gap between two triggered resyncs.
	MinInterval time.Duration `yaml:"min_interval"`
}

func DefaultConfig() Config {
	return Config{
		ResyncInterval: 30 * time.Second,
		MinInterval:    500 * time.Millisecond,
	}
}

// Diff lists the spec ids a resync touched, each sorted.
type Diff struct {
	Added   []string `json:"added"`
	Updated []string `json:"updated"`
	Removed []string `json:"removed"`
}

func (d Diff) Len() int {
	return len(d.Added) + len(d.Updated) + len(d.Removed)
}

type Stats struct {
	Loads     int64     `json:"loads"`
	Resyncs   int64     `json:"resyncs"`
	Failures  int64     `json:"failures"`
	Documents int       `json:"documents"`
	IsRunning bool      `json:"isRunning"`
	LastSync  time.Time `json:"lastSync"`
	LastError string    `json:"lastError,omitempty"`
}

// Syncer is the only writer of its index. Load and Resync are serialised;
// Trigger requests are coalesced and rate limited.
type Syncer struct {
	store   store.Reader
	index   *index.Index
	config  Config
	limiter *rate.Limiter
	trigger chan struct{}

	syncMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats   Stats
	statsMu sync.RWMutex
}

func New(r store.Reader, idx *index.Index, config Config) *Syncer {
	def := DefaultConfig()
	if config.ResyncInterval <= 0 {
		config.ResyncInterval = def.ResyncInterval
	}
	if config.MinInterval < 0 {
		config.MinInterval = 0
	}

	limit := rate.Inf
	if config.MinInterval > 0 {
		limit = rate.Every(config.MinInterval)
	}

	return &Syncer{
		store:   r,
		index:   idx,
		config:  config,
		limiter: rate.NewLimiter(limit, 1),
		trigger: make(chan struct{}, 1),
	}
}

// Load replaces the index with the full store contents.
func (s *Syncer) Load(ctx context.Context) (int, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	specs, err := s.store.ListAll(ctx)
	if err != nil {
		s.recordFailure("load", err)
		return 0, err
	}

	n := s.index.Replace(specs)
	s.recordSuccess("load", n)
	return n, nil
}

// Resync diffs the store against the committed snapshot and applies the
// difference as one index update. On error the index keeps its last state.
func (s *Syncer) Resync(ctx context.Context) (Diff, error) {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	specs, err := s.store.ListAll(ctx)
	if err != nil {
		s.recordFailure("resync", err)
		return Diff{}, err
	}

	diff, upserts := s.diff(specs)
	s.index.Apply(upserts, diff.Removed)

	metrics.SyncChanges.WithLabelValues("added").Add(float64(len(diff.Added)))
	metrics.SyncChanges.WithLabelValues("updated").Add(float64(len(diff.Updated)))
	metrics.SyncChanges.WithLabelValues("removed").Add(float64(len(diff.Removed)))
	s.recordSuccess("resync", s.index.Len())

	if diff.Len() > 0 {
		log.Info("index resynced",
			"added", len(diff.Added),
			"updated", len(diff.Updated),
			"removed", len(diff.Removed))
	}
	return diff, nil
}

func (s *Syncer) diff(specs []*spec.Spec) (Diff, []*spec.Spec) {
	snap := s.index.Snapshot()
	diff := Diff{Added: []string{}, Updated: []string{}, Removed: []string{}}

	var upserts []*spec.Spec
	live := make(map[string]struct{}, len(specs))
	for _, sp := range specs {
		if sp == nil || sp.ID == "" {
			continue
		}
		if _, dup := live[sp.ID]; dup {
			continue
		}
		live[sp.ID] = struct{}{}

		doc, ok := snap.Document(sp.ID)
		switch {
		case !ok:
			diff.Added = append(diff.Added, sp.ID)
		case doc.Hash != sp.ContentHash():
			diff.Updated = append(diff.Updated, sp.ID)
		default:
			continue
		}
		upserts = append(upserts, sp)
	}

	for _, id := range snap.IDs() {
		if _, ok := live[id]; !ok {
			diff.Removed = append(diff.Removed, id)
		}
	}

	slices.Sort(diff.Added)
	slices.Sort(diff.Updated)
	return diff, upserts
}

// Trigger asks the running loop for a resync. Requests made while one is
// pending collapse into it.
func (s *Syncer) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Run loads the index, then resyncs on every tick and trigger until ctx is
// done. Failures are logged and retried on the next tick.
func (s *Syncer) Run(ctx context.Context) error {
	s.setRunning(true)
	defer s.setRunning(false)

	if n, err := s.Load(ctx); err != nil {
		log.Warn("initial load failed", "error", err)
	} else {
		log.Info("index loaded", "documents", n)
	}

	ticker := time.NewTicker(s.config.ResyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		case <-s.trigger:
			if err := s.limiter.Wait(ctx); err != nil {
				return nil
			}
		}

		if _, err := s.Resync(ctx); err != nil && ctx.Err() == nil {
			log.Warn("resync failed", "error", err)
		}
	}
}

// Start runs the loop in the background until Stop.
func (s *Syncer) Start() {
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run(s.ctx)
	}()
	log.Info("syncer started", "resync_interval", s.config.ResyncInterval)
}

func (s *Syncer) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	log.Info("syncer stopped")
}

func (s *Syncer) Stats() Stats {
	s.statsMu.RLock()
	defer s.statsMu.RUnlock()
	return s.stats
}

func (s *Syncer) setRunning(running bool) {
	s.statsMu.Lock()
	s.stats.IsRunning = running
	s.statsMu.Unlock()
}

func (s *Syncer) recordSuccess(kind string, documents int) {
	metrics.SyncRuns.WithLabelValues(kind, "ok").Inc()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if kind == "load" {
		s.stats.Loads++
	} else {
		s.stats.Resyncs++
	}
	s.stats.Documents = documents
	s.stats.LastSync = time.Now()
	s.stats.LastError = ""
}

func (s *Syncer) recordFailure(kind string, err error) {
	metrics.SyncRuns.WithLabelValues(kind, "error").Inc()

	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.Failures++
	s.stats.LastError = err.Error()
}
