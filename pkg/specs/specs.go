// Package specs is the public entry point of the spec context and search
// engine. It wires a store to an in-memory index, the query engine and the
// context aggregator.
package specs

import (
	"context"

	"github.com/alucardeht/may-la-specs/internal/aggregate"
	"github.com/alucardeht/may-la-specs/internal/index"
	"github.com/alucardeht/may-la-specs/internal/query"
	"github.com/alucardeht/may-la-specs/internal/spec"
	"github.com/alucardeht/may-la-specs/internal/store"
	"github.com/alucardeht/may-la-specs/internal/syncer"
)

type (
	Spec           = spec.Spec
	Status         = spec.Status
	Relation       = spec.Relation
	RelationKind   = spec.RelationKind
	SearchOptions  = query.Options
	SearchResult   = query.Result
	Span           = query.Span
	ProjectContext = aggregate.ProjectContext
	Relationship   = aggregate.Relationship
	Diff           = syncer.Diff
	Reader         = store.Reader
)

const (
	StatusDraft    = spec.StatusDraft
	StatusActive   = spec.StatusActive
	StatusDone     = spec.StatusDone
	StatusArchived = spec.StatusArchived
)

var (
	ErrStoreUnavailable = spec.ErrStoreUnavailable
	ErrNotFound         = spec.ErrNotFound
	ErrInvalidQuery     = spec.ErrInvalidQuery
)

// Service is what front ends need from the engine. Engine implements it
// in-process; the RPC client implements it against a running daemon.
type Service interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]SearchResult, error)
	Context(ctx context.Context) (*ProjectContext, error)
	Get(ctx context.Context, id string) (*Spec, error)
}

type Options struct {
	Search  query.Config     `yaml:"search"`
	Context aggregate.Config `yaml:"context"`
	Sync    syncer.Config    `yaml:"sync"`
}

func DefaultOptions() Options {
	return Options{
		Search:  query.DefaultConfig(),
		Context: aggregate.DefaultConfig(),
		Sync:    syncer.DefaultConfig(),
	}
}

type Stats struct {
	Index index.Stats  `json:"index"`
	Sync  syncer.Stats `json:"sync"`
}

type Engine struct {
	store  store.Reader
	index  *index.Index
	query  *query.Engine
	agg    *aggregate.Aggregator
	syncer *syncer.Syncer
}

var _ Service = (*Engine)(nil)

// New builds an engine over r. The index starts empty; call Load, or Run
// to load and keep it in sync.
func New(r store.Reader, opts Options) *Engine {
	idx := index.New()
	return &Engine{
		store:  r,
		index:  idx,
		query:  query.NewEngine(idx, opts.Search),
		agg:    aggregate.New(r, opts.Context),
		syncer: syncer.New(r, idx, opts.Sync),
	}
}

func (e *Engine) Load(ctx context.Context) (int, error) {
	return e.syncer.Load(ctx)
}

func (e *Engine) Resync(ctx context.Context) (Diff, error) {
	return e.syncer.Resync(ctx)
}

// Trigger requests a resync from a running Run loop.
func (e *Engine) Trigger() {
	e.syncer.Trigger()
}

// Run keeps the index in sync with the store until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	return e.syncer.Run(ctx)
}

// Search ranks the indexed specs. A cancelled ctx is the only error.
func (e *Engine) Search(ctx context.Context, q string, opts SearchOptions) ([]SearchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.query.Search(q, opts)
}

func (e *Engine) Context(ctx context.Context) (*ProjectContext, error) {
	return e.agg.Compute(ctx)
}

// Get reads through to the store, so it sees specs the index has not
// caught up with yet.
func (e *Engine) Get(ctx context.Context, id string) (*Spec, error) {
	return e.store.Get(ctx, id)
}

func (e *Engine) Stats() Stats {
	return Stats{Index: e.index.Stats(), Sync: e.syncer.Stats()}
}

// Tokens is the normalisation applied to both documents and queries.
func Tokens(text string) []string {
	return index.Tokens(text)
}
