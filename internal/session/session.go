// Package session binds one editor to the remote cache: loading entries,
// persisting and testing modifications, and resetting overrides.
package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	log "github.com/go-pkgz/lgr"

	"cachelab/internal/editor"
	"cachelab/internal/gateway"
	"cachelab/internal/model"
)

type Session struct {
	gw gateway.Gateway
	ed *editor.Editor

	mu  sync.Mutex
	key string

	// inflight guards persist, test and reset; only one may run at a time.
	inflight atomic.Bool
}

func New(gw gateway.Gateway, ed *editor.Editor) *Session {
	return &Session{gw: gw, ed: ed}
}

func (s *Session) Editor() *editor.Editor { return s.ed }

// Key is the cache key of the loaded entry, empty when nothing is loaded.
func (s *Session) Key() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

// Open fetches key and loads it into the editor. The server-tracked original
// is fetched too; its absence is not an error.
func (s *Session) Open(ctx context.Context, key string) error {
	entry, err := s.gw.FetchEntry(ctx, key)
	if err != nil {
		s.Close()
		return &LoadError{Key: key, Err: err}
	}

	pristine, err := s.gw.FetchOriginal(ctx, key)
	if err != nil {
		if !errors.Is(err, gateway.ErrNotFound) {
			log.Printf("[WARN] can't fetch original of %s: %v", key, err)
		}
		pristine = nil
	}

	s.ed.Load(*entry, pristine)
	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	log.Printf("[DEBUG] opened %s, status=%d, original=%t", key, entry.Status, pristine != nil)
	return nil
}

// Close drops the selection and unloads the editor.
func (s *Session) Close() {
	s.ed.Reset()
	s.mu.Lock()
	s.key = ""
	s.mu.Unlock()
}

// Save persists the current modifications. The patch is read when Save is
// called; edits made while the request is in flight are not included and
// keep the editor dirty.
func (s *Session) Save(ctx context.Context, userID, notes string) (*model.ModifyResponse, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	key, release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	mods, rev := s.ed.ModificationsAt()
	if mods == nil {
		return nil, ErrNoChanges
	}

	res, ok := s.ed.Validate()
	if !ok {
		return nil, ErrNotLoaded
	}
	if res.Blocking() {
		return nil, &ValidationError{Errors: res.Errors}
	}

	resp, err := s.gw.Persist(ctx, model.ModifyRequest{
		CacheKey:      key,
		Modifications: *mods,
		UserID:        userID,
		Notes:         notes,
	})
	if err != nil {
		return nil, &RemoteError{Op: "persist", Err: err}
	}

	if s.ed.Revision() == rev {
		s.ed.MarkClean()
	} else {
		log.Printf("[DEBUG] %s edited while saving, keeping dirty", key)
	}
	log.Printf("[INFO] saved %s, %d field(s) by %s, id=%s", key, resp.ModificationsApplied, userID, resp.ModificationID)
	return resp, nil
}

// Test asks the server to preview the current modifications. Local state is
// never changed.
func (s *Session) Test(ctx context.Context) (*model.TestResponse, error) {
	key, release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	mods := s.ed.Modifications()
	if mods == nil {
		return nil, ErrNoChanges
	}
	resp, err := s.gw.Test(ctx, key, *mods)
	if err != nil {
		return nil, &RemoteError{Op: "test", Err: err}
	}
	return resp, nil
}

// ResetRemote drops the server-side override of the loaded entry and reloads
// it, discarding local edits.
func (s *Session) ResetRemote(ctx context.Context, userID string) (*model.ResetResponse, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	key, release, err := s.acquire()
	if err != nil {
		return nil, err
	}
	resp, err := s.gw.Reset(ctx, key, userID)
	release()
	if err != nil {
		return nil, &RemoteError{Op: "reset", Err: err}
	}
	log.Printf("[INFO] reset %s by %s", key, userID)

	if err := s.Open(ctx, key); err != nil {
		return resp, err
	}
	return resp, nil
}

func (s *Session) acquire() (key string, release func(), err error) {
	key = s.Key()
	if key == "" || !s.ed.Loaded() {
		return "", nil, ErrNotLoaded
	}
	if !s.inflight.CompareAndSwap(false, true) {
		return "", nil, ErrBusy
	}
	return key, func() { s.inflight.Store(false) }, nil
}
