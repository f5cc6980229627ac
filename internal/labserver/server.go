// Package labserver is a development stand-in for the remote response cache:
// it serves cached responses, fills misses from an origin and exposes the
// admin API used to inspect and override entries.
package labserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/go-pkgz/lgr"
	"github.com/go-playground/validator/v10"

	"cachelab/internal/config"
	"cachelab/internal/model"
)

type Server struct {
	cfg config.Config

	httpClient *http.Client
	store      *store
	validate   *validator.Validate
	router     chi.Router

	// mu serialises read-modify-write cycles on records.
	mu sync.Mutex

	stopCh chan struct{}
	wg     sync.WaitGroup

	stats *statsCollector
}

func New(cfg config.Config) (*Server, error) {
	st, err := openStore(cfg.Storage.Path, int64(cfg.DiskMaxBytes()))
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      st,
		validate:   validator.New(),
		stopCh:     make(chan struct{}),
		stats:      newStatsCollector(),
	}
	s.router = s.routes()

	if every := cfg.StatsEvery(); every > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.statsLoop(every)
		}()
	}
	log.Printf("[INFO] lab store %s, %d entries, %s on disk", cfg.Storage.Path, st.Len(), humanize.Bytes(uint64(st.TotalSize())))
	return s, nil
}

func (s *Server) Close() error {
	close(s.stopCh)
	s.wg.Wait()
	return s.store.close()
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/admin/cache", func(r chi.Router) {
		r.Get("/organized", s.handleOrganized)
		r.Get("/entry", s.handleGetEntry)
		r.Put("/entry", s.handleModify)
		r.Get("/entry/original", s.handleGetOriginal)
		r.Post("/entry/reset", s.handleReset)
		r.Post("/test", s.handleTest)
	})
	r.NotFound(s.serveCached)
	r.MethodNotAllowed(s.serveCached)
	return r
}

// serveCached answers any non-admin request from the store, falling back to
// the origin on a miss.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rule := s.cfg.PickRule(path)
	if rule != nil {
		if rule.Bypass {
			s.proxyPass(w, r, "bypass")
			return
		}
		if hasAnyCookie(r, rule.BypassWhenCookies) {
			s.proxyPass(w, r, "ignore-by-cookie")
			return
		}
	}

	key := cacheKey(r.Method, s.hostFor(r), r.URL.RequestURI())
	if rec, ok := s.store.Get(key); ok && !isStale(rec, rule) {
		ent, err := rec.entry()
		if err == nil {
			n := writeEntry(w, ent, "hit")
			s.stats.Observe(true, n)
			return
		}
		log.Printf("[WARN] can't decode %s: %v", key, err)
	}

	if s.cfg.Server.Origin == "" {
		writeError(w, http.StatusNotFound, "Not cached: "+key)
		return
	}
	if r.Method != http.MethodGet {
		s.proxyPass(w, r, "bypass")
		return
	}

	ent, cacheable, err := s.fetchFromOrigin(r)
	if err != nil {
		log.Printf("[WARN] origin fetch %s: %v", key, err)
		setOutcomeHeaders(w.Header(), "bad-gateway")
		writeError(w, http.StatusBadGateway, "bad gateway")
		return
	}
	if ent.Status < 200 || ent.Status >= 300 {
		s.dropUnlessModified(key)
		writeEntry(w, ent, "ignore-by-status")
		return
	}
	if !cacheable {
		writeEntry(w, ent, "bypass")
		return
	}

	if err := s.storeFetched(key, r, ent, rule); err != nil {
		log.Printf("[WARN] store %s: %v", key, err)
	}
	n := writeEntry(w, ent, "miss")
	s.stats.Observe(false, n)
}

// hostFor is the provider host keys are recorded under: the origin host when
// one is configured, the request host otherwise.
func (s *Server) hostFor(r *http.Request) string {
	if s.cfg.Server.Origin != "" {
		if u, err := url.Parse(s.cfg.Server.Origin); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return r.Host
}

// isStale reports whether an unmodified record outlived its rule expiration.
// Overrides never go stale.
func isStale(rec record, rule *config.Rule) bool {
	if rec.modified() || rule == nil || rule.ExpirationDur() <= 0 {
		return false
	}
	return time.Since(time.Unix(rec.StoredAt, 0)) > rule.ExpirationDur()
}

func hasAnyCookie(r *http.Request, names []string) bool {
	if len(names) == 0 {
		return false
	}
	need := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			need[n] = struct{}{}
		}
	}
	for _, c := range r.Cookies() {
		if _, ok := need[c.Name]; ok {
			return true
		}
	}
	return false
}

func (s *Server) proxyPass(w http.ResponseWriter, r *http.Request, outcome string) {
	if s.cfg.Server.Origin == "" {
		writeError(w, http.StatusNotFound, "no origin configured")
		return
	}
	ent, _, err := s.fetchFromOrigin(r)
	if err != nil {
		setOutcomeHeaders(w.Header(), "bad-gateway")
		writeError(w, http.StatusBadGateway, "bad gateway")
		return
	}
	writeEntry(w, ent, outcome)
}

// fetchFromOrigin forwards r to the origin. The response is cacheable when
// it is 2xx and not marked no-store or no-cache.
func (s *Server) fetchFromOrigin(r *http.Request) (model.CacheEntry, bool, error) {
	originURL := s.cfg.Server.Origin + r.URL.RequestURI()
	req, err := http.NewRequestWithContext(r.Context(), r.Method, originURL, r.Body)
	if err != nil {
		return model.CacheEntry{}, false, err
	}
	copyHeaders(req.Header, r.Header)
	req.Header.Set("Accept-Encoding", "identity")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return model.CacheEntry{}, false, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.CacheEntry{}, false, err
	}

	ent := model.CacheEntry{
		Method:    r.Method,
		Path:      r.URL.RequestURI(),
		Status:    resp.StatusCode,
		Headers:   headersFromHTTP(resp.Header),
		Body:      bodyFromHTTP(resp.Header.Get("Content-Type"), raw),
		Timestamp: time.Now().Unix(),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ent, false, nil
	}
	cc := strings.ToLower(resp.Header.Get("Cache-Control"))
	cacheable := !strings.Contains(cc, "no-store") && !strings.Contains(cc, "no-cache")
	return ent, cacheable, nil
}

func copyHeaders(dst, src http.Header) {
	for k, vs := range src {
		if strings.EqualFold(k, "Host") {
			continue
		}
		for _, v := range vs {
			dst.Add(k, v)
		}
	}
}

// storeFetched records an origin response. An existing override is kept and
// only its preserved original is refreshed.
func (s *Server) storeFetched(key string, r *http.Request, ent model.CacheEntry, rule *config.Rule) error {
	snap, err := encodeSnapshot(ent.Status, ent.Headers, ent.Body)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash := crc32.ChecksumIEEE(snap.Body)
	if cur, ok := s.store.Peek(key); ok {
		if cur.modified() {
			cur.Original = &snap
			cur.StoredAt = ent.Timestamp
			return s.store.Put(key, cur)
		}
		if cur.Hash32 == hash && cur.Current.Status == snap.Status && bytes.Equal(cur.Current.Headers, snap.Headers) {
			cur.StoredAt = ent.Timestamp
			return s.store.Put(key, cur)
		}
	}
	rec := record{
		Method:    ent.Method,
		Host:      s.hostFor(r),
		Path:      ent.Path,
		KeySource: string(model.KeySourceAuth),
		StoredAt:  ent.Timestamp,
		Hash32:    hash,
		Current:   snap,
	}
	if rule != nil && rule.ExpirationDur() > 0 {
		rec.TTL = int64(rule.ExpirationDur() / time.Second)
	}
	return s.store.Put(key, rec)
}

func (s *Server) dropUnlessModified(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.store.Peek(key); ok && !cur.modified() {
		if err := s.store.Delete(key); err != nil {
			log.Printf("[WARN] %v", err)
		}
	}
}

// SeedEntry is one fixture record. Host names the provider the entry is
// grouped under.
type SeedEntry struct {
	Host string `json:"host"`
	model.CacheEntry
}

// Seed loads fixture entries from a JSON array file. Keys already present are
// left alone so overrides survive restarts.
func (s *Server) Seed(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	var entries []SeedEntry
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&entries); err != nil {
		return 0, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return s.SeedEntries(entries)
}

func (s *Server) SeedEntries(entries []SeedEntry) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for i, se := range entries {
		if se.Host == "" || se.Path == "" {
			return added, fmt.Errorf("seed[%d]: host and path are required", i)
		}
		method := strings.ToUpper(se.Method)
		if method == "" {
			method = http.MethodGet
		}
		key := cacheKey(method, se.Host, se.Path)
		if _, ok := s.store.Peek(key); ok {
			continue
		}
		snap, err := encodeSnapshot(se.Status, se.Headers, se.Body)
		if err != nil {
			return added, fmt.Errorf("seed[%d]: %w", i, err)
		}
		rec := record{
			Method:    method,
			Host:      se.Host,
			Path:      se.Path,
			KeySource: string(se.KeySource),
			StoredAt:  se.Timestamp,
			Hash32:    crc32.ChecksumIEEE(snap.Body),
			Current:   snap,
		}
		if rec.StoredAt == 0 {
			rec.StoredAt = time.Now().Unix()
		}
		if rec.KeySource == "" {
			rec.KeySource = string(model.KeySourceAuth)
		}
		if se.TTL != nil {
			rec.TTL = *se.TTL
		}
		if err := s.store.Put(key, rec); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

func (s *Server) statsLoop(every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-t.C:
			ss := s.stats.Snapshot()
			log.Printf(
				"[INFO] cached: entries %d, disk %s, hits/misses %d/%d, resp min/avg/max %s/%s/%s",
				s.store.Len(),
				humanize.Bytes(uint64(s.store.TotalSize())),
				ss.Hits, ss.Misses,
				humanize.Bytes(ss.MinRespBytes),
				humanize.Bytes(ss.AvgRespBytes),
				humanize.Bytes(ss.MaxRespBytes),
			)
		}
	}
}
