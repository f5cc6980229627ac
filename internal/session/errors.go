package session

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotLoaded = errors.New("no entry loaded")
	ErrBusy      = errors.New("another save or test is in progress")
	ErrNoChanges = errors.New("no changes to send")
	ErrNoUser    = errors.New("user id is required")
)

// LoadError reports that an entry could not be fetched. The editor is left
// unloaded.
type LoadError struct {
	Key string
	Err error
}

func (e *LoadError) Error() string { return fmt.Sprintf("load %q: %v", e.Key, e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// ValidationError carries the blocking validation messages that stopped a
// save before any request was made.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Errors, "; ")
}

// RemoteError wraps a failed persist, test or reset call. Local state is
// unchanged when it is returned.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *RemoteError) Unwrap() error { return e.Err }
