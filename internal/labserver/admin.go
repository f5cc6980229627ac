package labserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"cachelab/internal/model"
	"cachelab/internal/validate"
)

// maxRequestBody caps admin request payloads.
const maxRequestBody = 8 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"entries": s.store.Len(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleOrganized(w http.ResponseWriter, _ *http.Request) {
	byHost := map[string]*model.ProviderNode{}
	sizes := map[string]int64{}
	out := model.OrganizedCache{Providers: []model.ProviderNode{}}

	for _, key := range s.store.Keys() {
		rec, ok := s.store.Peek(key)
		if !ok {
			continue
		}
		p, ok := byHost[rec.Host]
		if !ok {
			p = &model.ProviderNode{Name: rec.Host, Host: rec.Host, Endpoints: []model.EndpointNode{}}
			byHost[rec.Host] = p
		}
		ep := rec.endpoint()
		p.Endpoints = append(p.Endpoints, ep)
		p.Stats.TotalEntries++
		sizes[rec.Host] += ep.ResponseSize

		activity := max(rec.StoredAt, rec.ModifiedAt)
		if p.Stats.LastActivity == nil || activity > *p.Stats.LastActivity {
			p.Stats.LastActivity = &activity
		}
		if ep.IsModified {
			p.Stats.ModifiedCount++
			out.ModifiedEntries++
		}
		out.TotalEntries++
	}

	for host, p := range byHost {
		p.Stats.AvgResponseSize = sizes[host] / int64(p.Stats.TotalEntries)
		sort.Slice(p.Endpoints, func(i, j int) bool {
			if p.Endpoints[i].Path != p.Endpoints[j].Path {
				return p.Endpoints[i].Path < p.Endpoints[j].Path
			}
			return p.Endpoints[i].Method < p.Endpoints[j].Method
		})
		out.Providers = append(out.Providers, *p)
	}
	sort.Slice(out.Providers, func(i, j int) bool { return out.Providers[i].Name < out.Providers[j].Name })
	out.TotalProviders = len(out.Providers)

	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	rec, ok := s.store.Peek(key)
	if !ok {
		writeError(w, http.StatusNotFound, "Cache entry not found")
		return
	}
	ent, err := rec.entry()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) handleGetOriginal(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("cache_key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "cache_key is required")
		return
	}
	rec, ok := s.store.Peek(key)
	if !ok {
		writeError(w, http.StatusNotFound, "Cache entry not found")
		return
	}
	ent, tracked, err := rec.original()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !tracked {
		writeError(w, http.StatusNotFound, "No original tracked for this entry")
		return
	}
	writeJSON(w, http.StatusOK, ent)
}

func (s *Server) handleModify(w http.ResponseWriter, r *http.Request) {
	var req model.ModifyRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Modifications.IsEmpty() {
		writeError(w, http.StatusBadRequest, "No modifications provided")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.store.Peek(req.CacheKey)
	if !ok {
		writeError(w, http.StatusNotFound, "Cache entry not found")
		return
	}
	cur, err := rec.entry()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	next := req.Modifications.ApplyTo(cur)
	if res := validate.Entry(next); res.Blocking() {
		writeError(w, http.StatusUnprocessableEntity, strings.Join(res.Errors, "; "))
		return
	}
	snap, err := encodeSnapshot(next.Status, next.Headers, next.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if rec.Original == nil {
		orig := rec.Current
		rec.Original = &orig
	}
	rec.Current = snap
	rec.ModifiedBy = req.UserID
	rec.ModifiedAt = time.Now().Unix()
	rec.Notes = req.Notes
	rec.ModificationID = uuid.NewString()
	if err := s.store.Put(req.CacheKey, rec); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	log.Printf("[INFO] %s modified by %s (%d field(s), id %s)", req.CacheKey, req.UserID, req.Modifications.Count(), rec.ModificationID)
	writeJSON(w, http.StatusOK, model.ModifyResponse{
		Success:              true,
		CacheKey:             req.CacheKey,
		ModificationsApplied: req.Modifications.Count(),
		ModifiedBy:           req.UserID,
		ModificationID:       rec.ModificationID,
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var req model.ResetRequest
	if !s.decode(w, r, &req) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.store.Peek(req.CacheKey)
	if !ok {
		writeError(w, http.StatusNotFound, "Cache entry not found")
		return
	}
	if rec.Original != nil {
		rec.Current = *rec.Original
		rec.Original = nil
		rec.ModifiedBy, rec.Notes, rec.ModificationID = "", "", ""
		rec.ModifiedAt = 0
		if err := s.store.Put(req.CacheKey, rec); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		log.Printf("[INFO] %s reset by %s", req.CacheKey, req.UserID)
	}

	writeJSON(w, http.StatusOK, model.ResetResponse{
		Success:  true,
		CacheKey: req.CacheKey,
		ResetBy:  req.UserID,
		ResetAt:  time.Now().Unix(),
	})
}

// handleTest previews modifications against the stored entry without
// persisting anything.
func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	var req model.TestRequest
	if !s.decode(w, r, &req) {
		return
	}
	rec, ok := s.store.Peek(req.CacheKey)
	if !ok {
		writeError(w, http.StatusNotFound, "Cache entry not found")
		return
	}
	cur, err := rec.entry()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	next := req.Modifications.ApplyTo(cur)
	size := int64(0)
	if next.Body != nil {
		if b, err := json.Marshal(next.Body); err == nil {
			size = int64(len(b))
		}
	}
	headers := next.Headers
	if headers == nil {
		headers = model.Headers{}
	}

	writeJSON(w, http.StatusOK, model.TestResponse{
		Success: true,
		TestResult: model.TestResult{
			Status:         next.Status,
			Headers:        headers,
			Body:           next.Body,
			ResponseTimeMS: time.Since(started).Milliseconds(),
			Validation:     validate.Entry(next),
			SizeBytes:      size,
		},
		ModificationsTested: req.Modifications.Count(),
		ResponseSize:        size,
		StatusCode:          next.Status,
		ContentType:         headerValue(headers, "Content-Type"),
	})
}

// decode reads a JSON body into dst and validates it, answering the request
// itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fe.Field()+" failed "+fe.Tag())
			}
			writeError(w, http.StatusUnprocessableEntity, strings.Join(msgs, "; "))
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, model.ErrorResponse{Detail: detail})
}
