package spec

import "errors"

var (
	ErrStoreUnavailable = errors.New("spec store unavailable")
	ErrNotFound         = errors.New("spec not found")
	// ErrInvalidQuery is reserved. Free text is normalised, never rejected.
	ErrInvalidQuery = errors.New("invalid query")
	ErrInvalidSpec  = errors.New("invalid spec")
)
