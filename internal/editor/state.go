package editor

import (
	"fmt"
	"slices"
	"strings"

	"cachelab/internal/diff"
	"cachelab/internal/model"
)

func (e *Editor) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current != nil
}

// Original returns a copy of the loaded baseline, or nil when unloaded.
func (e *Editor) Original() *model.CacheEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneEntry(e.original)
}

// Current returns a copy of the working entry, or nil when unloaded.
func (e *Editor) Current() *model.CacheEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneEntry(e.current)
}

// Pristine returns the server-tracked original supplied to Load, if any.
func (e *Editor) Pristine() *model.CacheEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneEntry(e.pristine)
}

func (e *Editor) IsDirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Validation returns the latest validation result, nil before the first pass.
func (e *Editor) Validation() *model.ValidationResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.validation == nil {
		return nil
	}
	v := *e.validation
	v.Errors = slices.Clone(e.validation.Errors)
	v.Warnings = slices.Clone(e.validation.Warnings)
	return &v
}

// Revision increases with every change applied to the working copy.
func (e *Editor) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

func (e *Editor) HasChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hasChangesLocked()
}

func (e *Editor) hasChangesLocked() bool {
	if e.original == nil || e.current == nil {
		return false
	}
	return e.original.Status != e.current.Status ||
		!model.EqualHeaders(e.original.Headers, e.current.Headers) ||
		!model.EqualValues(e.original.Body, e.current.Body)
}

// Modifications returns the minimal patch turning the baseline into the
// working copy, or nil when nothing tracked differs.
func (e *Editor) Modifications() *model.Modifications {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modificationsLocked()
}

// ModificationsAt returns the patch together with the revision it was
// computed at.
func (e *Editor) ModificationsAt() (*model.Modifications, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.modificationsLocked(), e.revision
}

func (e *Editor) modificationsLocked() *model.Modifications {
	if e.original == nil || e.current == nil {
		return nil
	}

	m := &model.Modifications{}
	if e.original.Status != e.current.Status {
		status := e.current.Status
		m.Status = &status
	}
	if !model.EqualHeaders(e.original.Headers, e.current.Headers) {
		m.Headers = e.current.Headers.Clone()
		if m.Headers == nil {
			m.Headers = model.Headers{}
		}
	}
	if !model.EqualValues(e.original.Body, e.current.Body) {
		m.Body = model.CloneValue(e.current.Body)
		m.BodySet = true
	}
	if m.IsEmpty() {
		return nil
	}
	return m
}

type StatusChange struct {
	From int
	To   int
}

// Changes is the field-level comparison of baseline and working copy.
type Changes struct {
	Status  *StatusChange
	Headers []diff.Change
	Body    []diff.Change
}

func (c Changes) Empty() bool {
	return c.Status == nil && len(c.Headers) == 0 && len(c.Body) == 0
}

// SectionsChanged counts how many of status, headers and body differ.
func (c Changes) SectionsChanged() int {
	n := 0
	if c.Status != nil {
		n++
	}
	if len(c.Headers) > 0 {
		n++
	}
	if len(c.Body) > 0 {
		n++
	}
	return n
}

func (e *Editor) Changes() Changes {
	e.mu.Lock()
	defer e.mu.Unlock()
	var c Changes
	if e.original == nil || e.current == nil {
		return c
	}
	if e.original.Status != e.current.Status {
		c.Status = &StatusChange{From: e.original.Status, To: e.current.Status}
	}
	c.Headers = diff.Compute(headersValue(e.original.Headers), headersValue(e.current.Headers))
	c.Body = diff.Compute(e.original.Body, e.current.Body)
	return c
}

// UnifiedDiff renders the changes as text: a status line followed by
// unified diffs of headers and body.
func (e *Editor) UnifiedDiff() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.original == nil || e.current == nil {
		return ""
	}
	var sb strings.Builder
	if e.original.Status != e.current.Status {
		fmt.Fprintf(&sb, "Status: %d -> %d\n", e.original.Status, e.current.Status)
	}
	sb.WriteString(diff.Unified("headers", headersValue(e.original.Headers), headersValue(e.current.Headers)))
	sb.WriteString(diff.Unified("body", e.original.Body, e.current.Body))
	return sb.String()
}

func headersValue(h model.Headers) any {
	if h == nil {
		return map[string]any{}
	}
	return map[string]any(h)
}

func cloneEntry(e *model.CacheEntry) *model.CacheEntry {
	if e == nil {
		return nil
	}
	c := e.Clone()
	return &c
}
