package history

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsession/internal/document"
)

func docWithTitle(title string) document.Document {
	return document.Document{
		ID:    "doc-1",
		Title: title,
		Fields: []document.Field{
			{ID: "name", Type: document.FieldTypeText, Label: title},
		},
	}
}

func TestStack_EmptyUndoRedo(t *testing.T) {
	s := New()

	_, ok := s.Undo(docWithTitle("x"))
	assert.False(t, ok)
	_, ok = s.Redo(docWithTitle("x"))
	assert.False(t, ok)
	assert.Equal(t, 0, s.RedoDepth(), "failed undo must not touch redo")
}

func TestStack_UndoRedoInverse(t *testing.T) {
	s := New()
	d0 := docWithTitle("v0")
	d1 := docWithTitle("v1")

	s.Push(d0)

	undone, ok := s.Undo(d1)
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(d0, undone))
	assert.True(t, s.CanRedo())

	redone, ok := s.Redo(undone)
	require.True(t, ok)
	assert.Empty(t, cmp.Diff(d1, redone))
	assert.True(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestStack_HistoryBound(t *testing.T) {
	s := New()
	for i := range 60 {
		s.Push(docWithTitle(fmt.Sprintf("v%d", i)))
	}

	require.Equal(t, 50, s.UndoDepth())
	entries := s.Entries()
	assert.Equal(t, "v10", entries[0].Document.Title, "oldest ten evicted")
	assert.Equal(t, "v59", entries[49].Document.Title)

	// Popping all 50 yields v59 down to v10.
	current := docWithTitle("live")
	for i := 59; i >= 10; i-- {
		got, ok := s.Undo(current)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("v%d", i), got.Title)
		current = got
	}
	_, ok := s.Undo(current)
	assert.False(t, ok)
}

func TestStack_RedoBounded(t *testing.T) {
	s := New(WithMaxDepth(3))
	for i := range 3 {
		s.Push(docWithTitle(fmt.Sprintf("v%d", i)))
	}
	current := docWithTitle("live")
	for s.CanUndo() {
		current, _ = s.Undo(current)
	}
	assert.Equal(t, 3, s.RedoDepth())
	assert.Equal(t, 3, s.MaxDepth())
}

func TestStack_RedoInvalidation(t *testing.T) {
	s := New()
	s.Push(docWithTitle("v0"))
	s.Push(docWithTitle("v1"))

	_, ok := s.Undo(docWithTitle("v2"))
	require.True(t, ok)
	require.True(t, s.CanRedo())

	s.Push(docWithTitle("v1b"))
	assert.False(t, s.CanRedo())
	_, ok = s.Redo(docWithTitle("v1b"))
	assert.False(t, ok)
}

func TestStack_SnapshotsIndependent(t *testing.T) {
	s := New()
	d := docWithTitle("v0")
	s.Push(d)

	d.Fields[0].Label = "mutated after push"

	got, ok := s.Undo(docWithTitle("v1"))
	require.True(t, ok)
	assert.Equal(t, "v0", got.Fields[0].Label)

	got.Fields[0].Label = "mutated after pop"
	back, ok := s.Redo(got)
	require.True(t, ok)
	assert.Equal(t, "v1", back.Fields[0].Label)
}

func TestStack_EntryTimestamps(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithNow(func() time.Time { return at }))
	s.Push(docWithTitle("v0"))

	entries := s.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, at, entries[0].At)
}

func TestStack_Clear(t *testing.T) {
	s := New()
	s.Push(docWithTitle("v0"))
	s.Push(docWithTitle("v1"))
	_, _ = s.Undo(docWithTitle("v2"))

	s.Clear()
	assert.False(t, s.CanUndo())
	assert.False(t, s.CanRedo())
}

func TestWithMaxDepth_IgnoresNonPositive(t *testing.T) {
	assert.Equal(t, DefaultMaxDepth, New(WithMaxDepth(0)).MaxDepth())
}
