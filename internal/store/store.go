// Package store provides the spec store adapters the engine reads from.
//
// Every store reports driver and IO failures wrapped in
// spec.ErrStoreUnavailable and missing ids as spec.ErrNotFound, so callers
// only ever compare with errors.Is.
package store

import (
	"context"
	"fmt"

	"github.com/alucardeht/may-la-specs/internal/logger"
	"github.com/alucardeht/may-la-specs/internal/spec"
)

var log = logger.ForComponent("store")

// Reader is the read side every component depends on.
type Reader interface {
	ListAll(ctx context.Context) ([]*spec.Spec, error)
	Get(ctx context.Context, id string) (*spec.Spec, error)
}

// Writer is implemented by stores the authoring workflow can write to.
type Writer interface {
	Put(ctx context.Context, s *spec.Spec) error
	Delete(ctx context.Context, id string) error
}

type Store interface {
	Reader
	Writer
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, spec.ErrStoreUnavailable, err)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", spec.ErrNotFound, id)
}

// prepare normalises s and checks it can be persisted.
func prepare(s *spec.Spec) (*spec.Spec, error) {
	if s == nil {
		return nil, fmt.Errorf("%w: nil spec", spec.ErrInvalidSpec)
	}
	c := s.Clone()
	c.Normalize()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}
