// Package specsearch is the old name of package specs.
//
// Deprecated: import github.com/alucardeht/may-la-specs/pkg/specs instead.
// Every symbol here aliases or forwards to it.
package specsearch

import (
	"context"
	"strings"

	"github.com/alucardeht/may-la-specs/internal/compat"
	"github.com/alucardeht/may-la-specs/pkg/specs"
)

const warningKey = "pkg/specsearch"

type (
	Spec           = specs.Spec
	Status         = specs.Status
	Relation       = specs.Relation
	SearchOptions  = specs.SearchOptions
	SearchResult   = specs.SearchResult
	Span           = specs.Span
	ProjectContext = specs.ProjectContext
	Relationship   = specs.Relationship
	Engine         = specs.Engine
	Options        = specs.Options
	Service        = specs.Service
)

const (
	StatusDraft    = specs.StatusDraft
	StatusActive   = specs.StatusActive
	StatusDone     = specs.StatusDone
	StatusArchived = specs.StatusArchived
)

var (
	ErrStoreUnavailable = specs.ErrStoreUnavailable
	ErrNotFound         = specs.ErrNotFound
	ErrInvalidQuery     = specs.ErrInvalidQuery

	New            = specs.New
	DefaultOptions = specs.DefaultOptions
	Tokens         = specs.Tokens
)

func init() {
	Init()
}

// Init emits the deprecation warning unless this process already has.
// Importing the package calls it; calling it again is harmless.
func Init() {
	initWith(compat.Default)
}

func initWith(p *compat.Process) bool {
	return p.WarnOnce(warningKey, "package specsearch is deprecated",
		"replacement", "github.com/alucardeht/may-la-specs/pkg/specs")
}

// Searcher is the call shape older callers were written against.
type Searcher interface {
	Search(ctx context.Context, query string, limit int, statusFilter string) ([]SearchResult, error)
	ComputeContext(ctx context.Context) (*ProjectContext, error)
	GetSpec(ctx context.Context, id string) (*Spec, error)
}

// NewSearcher adapts a specs.Service to the old Searcher shape.
func NewSearcher(svc specs.Service) Searcher {
	Init()
	return adapter{svc: svc}
}

type adapter struct {
	svc specs.Service
}

func (a adapter) Search(ctx context.Context, query string, limit int, statusFilter string) ([]SearchResult, error) {
	return a.svc.Search(ctx, query, specs.SearchOptions{
		Limit:  limit,
		Status: specs.Status(strings.ToLower(strings.TrimSpace(statusFilter))),
	})
}

func (a adapter) ComputeContext(ctx context.Context) (*ProjectContext, error) {
	return a.svc.Context(ctx)
}

func (a adapter) GetSpec(ctx context.Context, id string) (*Spec, error) {
	return a.svc.Get(ctx, id)
}
