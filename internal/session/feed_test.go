package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsession/internal/status"
)

func TestFeed_FIFO(t *testing.T) {
	f := newFeed()
	for i := range 3 {
		require.True(t, f.push(status.Transition{Seq: int64(i + 1)}))
	}
	assert.Equal(t, 3, f.Len())

	tr, ok := f.TryNext()
	require.True(t, ok)
	assert.Equal(t, int64(1), tr.Seq)

	rest := f.Drain()
	require.Len(t, rest, 2)
	assert.Equal(t, int64(2), rest[0].Seq)
	assert.Equal(t, int64(3), rest[1].Seq)
	assert.Equal(t, 0, f.Len())

	_, ok = f.TryNext()
	assert.False(t, ok)
}

func TestFeed_ReadsDoNotGrowBacking(t *testing.T) {
	f := newFeed()

	// Keep a short backlog while thousands of transitions pass through.
	for i := range 5000 {
		f.push(status.Transition{Seq: int64(i), Reason: "edit"})
		if i%2 == 1 {
			f.TryNext()
			f.TryNext()
		}
	}
	assert.Equal(t, 0, f.Len())
	assert.LessOrEqual(t, cap(f.events), 64)

	for i := range 40 {
		f.push(status.Transition{Seq: int64(i)})
	}
	for range 30 {
		f.TryNext()
	}
	assert.Equal(t, 10, f.Len())
	assert.LessOrEqual(t, f.head, minCompact, "consumed prefix is compacted")
	for _, tr := range f.events[:f.head] {
		assert.Equal(t, status.Transition{}, tr, "dequeued slots are released")
	}

	tr, ok := f.TryNext()
	require.True(t, ok)
	assert.Equal(t, int64(30), tr.Seq)
}

func TestFeed_DrainReleasesSlots(t *testing.T) {
	f := newFeed()
	for i := range 8 {
		f.push(status.Transition{Seq: int64(i), Reason: "edit"})
	}
	got := f.Drain()
	assert.Len(t, got, 8)
	assert.Equal(t, 0, f.head)
	assert.Empty(t, f.events)
	for _, tr := range f.events[:cap(f.events)][:8] {
		assert.Equal(t, status.Transition{}, tr)
	}
}

func TestFeed_ClosedStillReadable(t *testing.T) {
	f := newFeed()
	f.push(status.Transition{Seq: 1})
	f.close()

	assert.False(t, f.push(status.Transition{Seq: 2}))
	tr, ok := f.TryNext()
	require.True(t, ok)
	assert.Equal(t, int64(1), tr.Seq)
}
