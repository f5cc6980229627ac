package labserver

import (
	"encoding/json"
	"fmt"
	"hash/crc32"
	"mime"
	"net/http"
	"sort"
	"strings"

	"cachelab/internal/model"
)

// cacheKey is the canonical "METHOD host/path" key of a request.
func cacheKey(method, host, uri string) string {
	return strings.ToUpper(method) + " " + host + uri
}

func (r record) key() string { return cacheKey(r.Method, r.Host, r.Path) }

func encodeSnapshot(status int, h model.Headers, body any) (snapshot, error) {
	if h == nil {
		h = model.Headers{}
	}
	hb, err := json.Marshal(h)
	if err != nil {
		return snapshot{}, fmt.Errorf("encode headers: %w", err)
	}
	bb, err := json.Marshal(body)
	if err != nil {
		return snapshot{}, fmt.Errorf("encode body: %w", err)
	}
	return snapshot{Status: status, Headers: hb, Body: bb}, nil
}

func (s snapshot) decode() (model.Headers, any, error) {
	h := model.Headers{}
	if len(s.Headers) > 0 {
		if err := json.Unmarshal(s.Headers, &h); err != nil {
			return nil, nil, fmt.Errorf("decode headers: %w", err)
		}
	}
	var body any
	if len(s.Body) > 0 {
		if err := json.Unmarshal(s.Body, &body); err != nil {
			return nil, nil, fmt.Errorf("decode body: %w", err)
		}
	}
	return h, body, nil
}

// entry converts a record into the wire form served by the admin API.
func (r record) entry() (model.CacheEntry, error) {
	h, body, err := r.Current.decode()
	if err != nil {
		return model.CacheEntry{}, err
	}
	e := model.CacheEntry{
		Method:    r.Method,
		Path:      r.Path,
		Status:    r.Current.Status,
		Headers:   h,
		Body:      body,
		Timestamp: r.StoredAt,
		KeySource: model.KeySource(r.KeySource),
	}
	if r.TTL > 0 {
		ttl := r.TTL
		e.TTL = &ttl
	}
	if r.Original != nil {
		oh, obody, err := r.Original.decode()
		if err != nil {
			return model.CacheEntry{}, err
		}
		e.LabMetadata = &model.LabMetadata{
			IsModified:        true,
			OriginalBody:      obody,
			OriginalHeaders:   oh,
			OriginalStatus:    r.Original.Status,
			ModifiedBy:        r.ModifiedBy,
			ModifiedAt:        r.ModifiedAt,
			ModificationNotes: r.Notes,
			ModificationID:    r.ModificationID,
			OriginalPreserved: true,
		}
	}
	return e, nil
}

// original returns the entry as it was before any override.
func (r record) original() (model.CacheEntry, bool, error) {
	if r.Original == nil {
		return model.CacheEntry{}, false, nil
	}
	base := r
	base.Current = *r.Original
	base.Original = nil
	e, err := base.entry()
	return e, true, err
}

// endpoint summarises a record for the organized listing.
func (r record) endpoint() model.EndpointNode {
	key := r.key()
	n := model.EndpointNode{
		ID:           fmt.Sprintf("%08x", crc32.ChecksumIEEE([]byte(key))),
		Method:       r.Method,
		Path:         r.Path,
		CacheKey:     key,
		Status:       r.Current.Status,
		IsModified:   r.modified(),
		ResponseSize: int64(len(r.Current.Body)),
	}
	if r.modified() {
		at := r.ModifiedAt
		n.LastModified = &at
	}
	if h, _, err := r.Current.decode(); err == nil {
		n.ContentType = headerValue(h, "Content-Type")
	}
	return n
}

func headerValue(h model.Headers, name string) string {
	for k, v := range h {
		if strings.EqualFold(k, name) {
			if s, ok := v.(string); ok {
				return s
			}
		}
	}
	return ""
}

// bodyFromHTTP turns raw response bytes into an entry body: decoded JSON for
// JSON content types, a string otherwise, nil when empty.
func bodyFromHTTP(contentType string, raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	if isJSON(contentType) && json.Valid(raw) {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			return v
		}
	}
	return string(raw)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}

func headersFromHTTP(h http.Header) model.Headers {
	out := make(model.Headers, len(h))
	for k, vs := range h {
		if strings.EqualFold(k, "Content-Length") {
			continue
		}
		out[k] = strings.Join(vs, ", ")
	}
	return out
}

// writeEntry writes an entry as an HTTP response, tagging it with the cache
// outcome.
func writeEntry(w http.ResponseWriter, e model.CacheEntry, outcome string) int {
	names := make([]string, 0, len(e.Headers))
	for k := range e.Headers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if strings.EqualFold(k, "Content-Length") || strings.EqualFold(k, outcomeHeader) {
			continue
		}
		switch v := e.Headers[k].(type) {
		case nil:
		case string:
			w.Header().Set(k, v)
		default:
			w.Header().Set(k, fmt.Sprint(v))
		}
	}

	var payload []byte
	switch b := e.Body.(type) {
	case nil:
	case string:
		payload = []byte(b)
	default:
		payload, _ = json.Marshal(b)
		if w.Header().Get("Content-Type") == "" {
			w.Header().Set("Content-Type", "application/json")
		}
	}

	setOutcomeHeaders(w.Header(), outcome)
	w.WriteHeader(e.Status)
	_, _ = w.Write(payload)
	return len(payload)
}

const outcomeHeader = "X-Cachelab"

func setOutcomeHeaders(h http.Header, outcome string) {
	if outcome != "" {
		h.Set(outcomeHeader, outcome)
	}
	ensureExposedHeader(h, outcomeHeader)
}

// ensureExposedHeader lets browser clients read name in CORS contexts.
func ensureExposedHeader(h http.Header, name string) {
	const expose = "Access-Control-Expose-Headers"
	cur := h.Values(expose)
	if len(cur) == 0 {
		h.Set(expose, name)
		return
	}
	merged := strings.Join(cur, ",")
	for _, part := range strings.Split(merged, ",") {
		if strings.EqualFold(strings.TrimSpace(part), name) {
			return
		}
	}
	h.Set(expose, strings.TrimSpace(merged)+", "+name)
}
