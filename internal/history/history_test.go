package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cachelab/internal/model"
)

func entry(status int) model.CacheEntry {
	return model.CacheEntry{Status: status, Headers: model.Headers{"X": "1"}, Body: map[string]any{"s": float64(status)}}
}

func TestNewDefaultsCapacity(t *testing.T) {
	assert.Equal(t, DefaultCapacity, New(0).Capacity())
	assert.Equal(t, 3, New(3).Capacity())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	m := New(10)
	current := entry(200)
	for _, next := range []int{201, 202, 203} {
		m.Record(current)
		current = entry(next)
	}

	for _, want := range []int{202, 201, 200} {
		prev, ok := m.Undo(current)
		require.True(t, ok)
		assert.Equal(t, want, prev.Status)
		current = prev
	}
	_, ok := m.Undo(current)
	assert.False(t, ok)
	assert.Equal(t, 3, m.RedoLen())

	for _, want := range []int{201, 202, 203} {
		next, ok := m.Redo(current)
		require.True(t, ok)
		assert.Equal(t, want, next.Status)
		current = next
	}
	_, ok = m.Redo(current)
	assert.False(t, ok)
	assert.Equal(t, 3, m.UndoLen())
}

func TestRecordClearsRedo(t *testing.T) {
	m := New(10)
	m.Record(entry(200))
	_, ok := m.Undo(entry(201))
	require.True(t, ok)
	require.True(t, m.CanRedo())

	m.Record(entry(200))
	assert.False(t, m.CanRedo())
	_, ok = m.Redo(entry(202))
	assert.False(t, ok)
}

func TestCapacityDropsOldest(t *testing.T) {
	const capacity = 5
	m := New(capacity)
	for i := 0; i < capacity+5; i++ {
		m.Record(entry(200 + i))
	}
	assert.Equal(t, capacity, m.UndoLen())

	current := entry(999)
	var seen []int
	for m.CanUndo() {
		prev, _ := m.Undo(current)
		seen = append(seen, prev.Status)
		current = prev
	}
	assert.Equal(t, []int{209, 208, 207, 206, 205}, seen)
	assert.NotContains(t, seen, 200)
}

func TestSnapshotsAreIndependent(t *testing.T) {
	m := New(10)
	e := entry(200)
	m.Record(e)
	e.Headers["X"] = "mutated"
	e.Body.(map[string]any)["s"] = "mutated"

	prev, ok := m.Undo(entry(201))
	require.True(t, ok)
	assert.Equal(t, "1", prev.Headers["X"])
	assert.Equal(t, 200.0, prev.Body.(map[string]any)["s"])
}

func TestClear(t *testing.T) {
	m := New(10)
	m.Record(entry(200))
	m.Record(entry(201))
	_, _ = m.Undo(entry(202))
	m.Clear()
	assert.False(t, m.CanUndo())
	assert.False(t, m.CanRedo())
}
