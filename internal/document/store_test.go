package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/lsp-bridge-mcp/pkg/types"
)

func TestOpenIsIdempotent(t *testing.T) {
	s := NewStore()
	first := s.Open("file:///a.scala", "scala", "object A")
	second := s.Open("file:///a.scala", "scala", "object A (different text passed, ignored)")

	assert.Equal(t, 1, first.Version)
	assert.Equal(t, "object A", second.Text)
	assert.Same(t, first, second)
}

func TestUpdateIncrementsVersion(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.scala", "scala", "v1")

	v, err := s.Update("file:///a.scala", "v2")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	v, err = s.Update("file:///a.scala", "v3")
	require.NoError(t, err)
	assert.Equal(t, 3, v)

	e, ok := s.Get("file:///a.scala")
	require.True(t, ok)
	assert.Equal(t, "v3", e.Text)
}

func TestUpdateUnopenedReturnsNotFound(t *testing.T) {
	s := NewStore()
	_, err := s.Update("file:///missing.scala", "text")
	require.Error(t, err)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestMarkOpenOnServerAndOpenURIs(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.scala", "scala", "a")
	s.Open("file:///b.scala", "scala", "b")
	s.MarkOpenOnServer("file:///b.scala")

	assert.Equal(t, []string{"file:///b.scala"}, s.OpenURIs())
}

func TestMarkAllClosedResetsOpenFlagButKeepsText(t *testing.T) {
	s := NewStore()
	s.Open("file:///a.scala", "scala", "a")
	s.MarkOpenOnServer("file:///a.scala")
	s.MarkAllClosed()

	e, ok := s.Get("file:///a.scala")
	require.True(t, ok)
	assert.False(t, e.OpenOnServer)
	assert.Equal(t, "a", e.Text)
	assert.Empty(t, s.OpenURIs())
}

func TestContentUnchangedTracksLastSeenHash(t *testing.T) {
	s := NewStore()

	assert.False(t, s.ContentUnchanged("file:///a.scala", "v1"), "first check is always changed")
	assert.True(t, s.ContentUnchanged("file:///a.scala", "v1"), "same text again is unchanged")
	assert.False(t, s.ContentUnchanged("file:///a.scala", "v2"), "different text is changed")
	assert.True(t, s.ContentUnchanged("file:///a.scala", "v2"))
}
