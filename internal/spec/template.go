package spec

import (
	"fmt"
	"strings"
	"time"
)

const draftBody = `# %s

## Overview
[What this spec changes and why.]

## Requirements
- [ ] [Requirement]

## Acceptance Criteria
- [ ] [Observable outcome]

## Dependencies
[Related specs, declared in the front matter as relations.]
`

// NewDraft returns a draft spec with a sectioned body ready to fill in.
func NewDraft(id, title string, now time.Time) (*Spec, error) {
	s := &Spec{
		ID:        id,
		Title:     title,
		Status:    StatusDraft,
		UpdatedAt: now,
	}
	s.Normalize()
	if s.Title == "" {
		s.Title = s.ID
	}
	if strings.ContainsAny(s.ID, `/\`) {
		return nil, fmt.Errorf("%w: id %q contains a path separator", ErrInvalidSpec, s.ID)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	s.Body = strings.TrimSpace(fmt.Sprintf(draftBody, s.Title))
	return s, nil
}
