// Package history keeps bounded undo/redo stacks of full cache entry
// snapshots.
package history

import "cachelab/internal/model"

const DefaultCapacity = 50

// Manager holds undo and redo stacks, most recent snapshot first. Both stacks
// are capped; the oldest snapshot is dropped once a push exceeds the cap.
// Snapshots are copied on the way in and on the way out.
type Manager struct {
	capacity int
	undo     []model.CacheEntry
	redo     []model.CacheEntry
}

func New(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{capacity: capacity}
}

func (m *Manager) Capacity() int { return m.capacity }

// Record stores the state preceding a new mutation. A new mutation
// invalidates forward history, so the redo stack is cleared.
func (m *Manager) Record(snapshot model.CacheEntry) {
	m.undo = m.push(m.undo, snapshot)
	m.redo = nil
}

// Undo pops the most recent snapshot and moves current onto the redo stack.
func (m *Manager) Undo(current model.CacheEntry) (model.CacheEntry, bool) {
	if len(m.undo) == 0 {
		return model.CacheEntry{}, false
	}
	prev := m.undo[0]
	m.undo = m.undo[1:]
	m.redo = m.push(m.redo, current)
	return prev.Clone(), true
}

// Redo is the inverse of Undo.
func (m *Manager) Redo(current model.CacheEntry) (model.CacheEntry, bool) {
	if len(m.redo) == 0 {
		return model.CacheEntry{}, false
	}
	next := m.redo[0]
	m.redo = m.redo[1:]
	m.undo = m.push(m.undo, current)
	return next.Clone(), true
}

func (m *Manager) CanUndo() bool { return len(m.undo) > 0 }
func (m *Manager) CanRedo() bool { return len(m.redo) > 0 }
func (m *Manager) UndoLen() int  { return len(m.undo) }
func (m *Manager) RedoLen() int  { return len(m.redo) }

func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
}

func (m *Manager) push(stack []model.CacheEntry, snapshot model.CacheEntry) []model.CacheEntry {
	next := make([]model.CacheEntry, 0, min(len(stack)+1, m.capacity))
	next = append(next, snapshot.Clone())
	for _, s := range stack {
		if len(next) == m.capacity {
			break
		}
		next = append(next, s)
	}
	return next
}
