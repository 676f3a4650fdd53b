package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(id, source string, offset int) Chunk {
	return Chunk{ID: id, Text: "text of " + id, SourcePath: source, Offset: offset, Length: 10}
}

func TestPutGet(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(chunk("a:0", "a.md", 0)))

	got, err := s.Get("a:0")
	require.NoError(t, err)
	assert.Equal(t, "text of a:0", got.Text)
	assert.Equal(t, "a.md", got.SourcePath)
}

func TestPutDuplicate(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(chunk("a:0", "a.md", 0)))
	assert.Error(t, s.Put(chunk("a:0", "a.md", 0)))
	assert.Equal(t, 1, s.Len())
}

func TestGetMissing(t *testing.T) {
	s := New()
	_, err := s.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteBySource(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(chunk("a:0", "a.md", 0)))
	require.NoError(t, s.Put(chunk("a:1", "a.md", 10)))
	require.NoError(t, s.Put(chunk("b:0", "b.md", 0)))

	removed := s.DeleteBySource("a.md")
	assert.ElementsMatch(t, []string{"a:0", "a:1"}, removed)
	assert.Equal(t, 1, s.Len())

	_, err := s.Get("a:0")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get("b:0")
	assert.NoError(t, err)

	assert.Empty(t, s.DeleteBySource("a.md"), "second delete finds nothing")
}

func TestSources(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(chunk("a:0", "a.md", 0)))
	require.NoError(t, s.Put(chunk("a:1", "a.md", 10)))
	require.NoError(t, s.Put(chunk("b:0", "b.md", 0)))

	assert.Equal(t, map[string]int{"a.md": 2, "b.md": 1}, s.Sources())
}

func TestAllSorted(t *testing.T) {
	s := New()
	require.NoError(t, s.Put(chunk("b:0", "b.md", 0)))
	require.NoError(t, s.Put(chunk("a:1", "a.md", 10)))
	require.NoError(t, s.Put(chunk("a:0", "a.md", 0)))

	all := s.All()
	require.Len(t, all, 3)
	assert.Equal(t, "a:0", all[0].ID)
	assert.Equal(t, "a:1", all[1].ID)
	assert.Equal(t, "b:0", all[2].ID)
}
