package spec

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
	"time"
)

type Status string

const (
	StatusDraft    Status = "draft"
	StatusActive   Status = "active"
	StatusDone     Status = "done"
	StatusArchived Status = "archived"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusDraft, StatusActive, StatusDone, StatusArchived}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidSpec, s)
	}
	return st, nil
}

func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

func (s Status) String() string {
	return string(s)
}

type RelationKind string

const (
	RelationRelatedTo  RelationKind = "related-to"
	RelationDependsOn  RelationKind = "depends-on"
	RelationBlocks     RelationKind = "blocks"
	RelationSupersedes RelationKind = "supersedes"
)

var RelationKinds = []RelationKind{RelationRelatedTo, RelationDependsOn, RelationBlocks, RelationSupersedes}

type Relation struct {
	Target string       `json:"id" yaml:"id"`
	Kind   RelationKind `json:"kind" yaml:"kind"`
}

type Spec struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	Status    Status     `json:"status"`
	Tags      []string   `json:"tags"`
	Relations []Relation `json:"relations,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
	Path      string     `json:"path,omitempty"`
}

func (s *Spec) Clone() *Spec {
	if s == nil {
		return nil
	}
	c := *s
	c.Tags = slices.Clone(s.Tags)
	c.Relations = slices.Clone(s.Relations)
	return &c
}

// Normalize trims the id, defaults the status to draft, sorts and
// de-duplicates tags, and stores UpdatedAt in UTC.
func (s *Spec) Normalize() {
	s.ID = strings.TrimSpace(s.ID)
	s.Title = strings.TrimSpace(s.Title)
	if s.Status == "" {
		s.Status = StatusDraft
	}

	tags := make([]string, 0, len(s.Tags))
	for _, t := range s.Tags {
		t = strings.TrimSpace(t)
		if t != "" {
			tags = append(tags, t)
		}
	}
	slices.Sort(tags)
	s.Tags = slices.Compact(tags)

	if !s.UpdatedAt.IsZero() {
		s.UpdatedAt = s.UpdatedAt.UTC()
	}
}

func (s *Spec) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidSpec)
	}
	if !s.Status.Valid() {
		return fmt.Errorf("%w: spec %s has unknown status %q", ErrInvalidSpec, s.ID, s.Status)
	}
	for _, r := range s.Relations {
		if r.Target == "" {
			return fmt.Errorf("%w: spec %s declares a relation without a target", ErrInvalidSpec, s.ID)
		}
	}
	return nil
}

// DeclaredRelations merges the relations list with relation tags. Self
// references and duplicates are dropped; an empty kind means related-to.
func (s *Spec) DeclaredRelations() []Relation {
	out := make([]Relation, 0, len(s.Relations))
	seen := make(map[Relation]struct{})

	add := func(r Relation) {
		r.Target = strings.TrimSpace(r.Target)
		if r.Kind == "" {
			r.Kind = RelationRelatedTo
		}
		if r.Target == "" || r.Target == s.ID {
			return
		}
		if _, ok := seen[r]; ok {
			return
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}

	for _, r := range s.Relations {
		add(r)
	}
	for _, t := range s.Tags {
		if r, ok := relationFromTag(t); ok {
			add(r)
		}
	}
	return out
}

func relationFromTag(tag string) (Relation, bool) {
	kind, target, ok := strings.Cut(tag, ":")
	if !ok {
		return Relation{}, false
	}
	k := RelationKind(strings.ToLower(strings.TrimSpace(kind)))
	if !slices.Contains(RelationKinds, k) {
		return Relation{}, false
	}
	return Relation{Target: strings.TrimSpace(target), Kind: k}, true
}

// ContentHash identifies the indexed content of a spec. Two specs with equal
// hashes produce identical index entries.
func (s *Spec) ContentHash() string {
	h := sha256.New()
	write := func(v string) {
		h.Write([]byte(v))
		h.Write([]byte{0})
	}

	write(s.ID)
	write(s.Title)
	write(s.Body)
	write(string(s.Status))
	for _, t := range s.Tags {
		write(t)
	}
	for _, r := range s.Relations {
		write(r.Target)
		write(string(r.Kind))
	}
	write(s.UpdatedAt.UTC().Format(time.RFC3339Nano))

	return hex.EncodeToString(h.Sum(nil))
}
