package spec

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDraft(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.FixedZone("CEST", 2*3600))

	s, err := NewDraft(" SPEC-9 ", "Rate limit the importer", now)
	require.NoError(t, err)
	assert.Equal(t, "SPEC-9", s.ID)
	assert.Equal(t, StatusDraft, s.Status)
	assert.Equal(t, time.UTC, s.UpdatedAt.Location())
	assert.Contains(t, s.Body, "## Acceptance Criteria")

	content, err := RenderDocument(s)
	require.NoError(t, err)
	parsed, err := ParseDocument(string(content), "SPEC-9.md")
	require.NoError(t, err)
	assert.Equal(t, "Rate limit the importer", parsed.Title)
	assert.Equal(t, s.Body, parsed.Body)
	assert.True(t, parsed.UpdatedAt.Equal(now))
}

func TestNewDraftDefaultsTitle(t *testing.T) {
	s, err := NewDraft("SPEC-1", "  ", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "SPEC-1", s.Title)
	assert.Contains(t, s.Body, "# SPEC-1\n")
}

func TestNewDraftRejectsBadIDs(t *testing.T) {
	for _, id := range []string{"", "  ", "../escape", `dir\file`} {
		_, err := NewDraft(id, "x", time.Now())
		assert.ErrorIs(t, err, ErrInvalidSpec, "id %q", id)
	}
}
