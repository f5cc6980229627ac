// Package editor holds the editable state of one cache entry: the loaded
// baseline, the working copy, dirty tracking, undo/redo history and the most
// recent validation result.
package editor

import (
	"sync"
	"time"

	"github.com/bep/debounce"

	"cachelab/internal/history"
	"cachelab/internal/model"
	"cachelab/internal/validate"
)

const DefaultValidateDelay = 500 * time.Millisecond

type Option func(*Editor)

// WithHistorySize caps the undo and redo stacks.
func WithHistorySize(n int) Option {
	return func(e *Editor) { e.hist = history.New(n) }
}

// WithValidateDelay sets the quiescence window for validation after edits.
// Zero validates inline after every edit.
func WithValidateDelay(d time.Duration) Option {
	return func(e *Editor) { e.validateDelay = d }
}

// WithValidateHook is called with every validation result, outside the
// editor lock. Debounced results arrive on a timer goroutine.
func WithValidateHook(fn func(model.ValidationResult)) Option {
	return func(e *Editor) { e.onValidate = fn }
}

// Editor is the editable-entry state machine. Every operation on an unloaded
// editor is a no-op. The mutex only serialises callers against the debounced
// validation timer; one Editor belongs to one editing session.
type Editor struct {
	mu sync.Mutex

	original *model.CacheEntry
	pristine *model.CacheEntry
	current  *model.CacheEntry
	dirty    bool

	hist       *history.Manager
	validation *model.ValidationResult

	// revision counts applied changes to current; generation counts loads
	// and resets so stale debounced validations can be dropped.
	revision   uint64
	generation uint64

	validateDelay time.Duration
	debounced     func(f func())
	onValidate    func(model.ValidationResult)
}

func New(opts ...Option) *Editor {
	e := &Editor{
		hist:          history.New(history.DefaultCapacity),
		validateDelay: DefaultValidateDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.validateDelay > 0 {
		e.debounced = debounce.New(e.validateDelay)
	}
	return e
}

// Load replaces all state with entry as the new baseline. pristine is the
// server-tracked original, kept for reference only; diffs and patches are
// always computed against entry.
func (e *Editor) Load(entry model.CacheEntry, pristine *model.CacheEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	orig := entry.Clone()
	cur := entry.Clone()
	e.original = &orig
	e.current = &cur
	e.pristine = nil
	if pristine != nil {
		p := pristine.Clone()
		e.pristine = &p
	}
	e.dirty = false
	e.hist.Clear()
	e.validation = nil
	e.revision = 0
	e.generation++
}

// Reset returns the editor to the unloaded state.
func (e *Editor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.original = nil
	e.pristine = nil
	e.current = nil
	e.dirty = false
	e.hist.Clear()
	e.validation = nil
	e.revision = 0
	e.generation++
}

func (e *Editor) UpdateStatus(code int) {
	_ = e.mutate(func(cur *model.CacheEntry) error {
		cur.Status = code
		return nil
	})
}

// UpdateHeaders replaces the header map of the working copy.
func (e *Editor) UpdateHeaders(h model.Headers) {
	_ = e.mutate(func(cur *model.CacheEntry) error {
		cur.Headers = h.Clone()
		if cur.Headers == nil {
			cur.Headers = model.Headers{}
		}
		return nil
	})
}

// UpdateContent replaces the body of the working copy.
func (e *Editor) UpdateContent(body any) {
	_ = e.mutate(func(cur *model.CacheEntry) error {
		cur.Body = model.CloneValue(body)
		return nil
	})
}

// UpdateField sets a dotted path inside the body, creating missing
// intermediate objects. It fails without touching state when the path is
// malformed or descends into a value that is not an object.
func (e *Editor) UpdateField(path string, value any) error {
	return e.mutate(func(cur *model.CacheEntry) error {
		body, err := setPath(cur.Body, path, value)
		if err != nil {
			return err
		}
		cur.Body = body
		return nil
	})
}

// mutate applies fn to a copy of current and commits only on success.
func (e *Editor) mutate(fn func(cur *model.CacheEntry) error) error {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return nil
	}
	next := e.current.Clone()
	if err := fn(&next); err != nil {
		e.mu.Unlock()
		return err
	}
	e.hist.Record(*e.current)
	e.current = &next
	e.revision++
	e.dirty = e.hasChangesLocked()

	var res model.ValidationResult
	ran := false
	if e.debounced != nil {
		e.scheduleValidationLocked()
	} else {
		res, ran = e.validateLocked(), true
	}
	e.mu.Unlock()

	if ran {
		e.notify(res)
	}
	return nil
}

func (e *Editor) Undo() bool {
	return e.step(e.hist.Undo)
}

func (e *Editor) Redo() bool {
	return e.step(e.hist.Redo)
}

func (e *Editor) step(pop func(model.CacheEntry) (model.CacheEntry, bool)) bool {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return false
	}
	snap, ok := pop(*e.current)
	if !ok {
		e.mu.Unlock()
		return false
	}
	e.current = &snap
	e.revision++
	e.dirty = e.hasChangesLocked()
	res := e.validateLocked()
	e.mu.Unlock()

	e.notify(res)
	return true
}

func (e *Editor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanUndo()
}

func (e *Editor) CanRedo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hist.CanRedo()
}

// MarkClean clears the dirty flag after a successful persist. The baseline
// is kept so diffs stay meaningful until the next Load.
func (e *Editor) MarkClean() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dirty = false
}

// Validate runs validation synchronously and stores the result. Callers that
// need a fresh result use this instead of waiting for the debounced pass.
func (e *Editor) Validate() (model.ValidationResult, bool) {
	e.mu.Lock()
	if e.current == nil {
		e.mu.Unlock()
		return model.ValidationResult{}, false
	}
	res := e.validateLocked()
	e.mu.Unlock()

	e.notify(res)
	return res, true
}

func (e *Editor) validateLocked() model.ValidationResult {
	res := validate.Entry(*e.current)
	e.validation = &res
	return res
}

func (e *Editor) scheduleValidationLocked() {
	gen := e.generation
	e.debounced(func() {
		e.mu.Lock()
		if gen != e.generation || e.current == nil {
			e.mu.Unlock()
			return
		}
		res := e.validateLocked()
		e.mu.Unlock()

		e.notify(res)
	})
}

func (e *Editor) notify(res model.ValidationResult) {
	if e.onValidate != nil {
		e.onValidate(res)
	}
}

func (e *Editor) ClearValidation() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.validation = nil
}
