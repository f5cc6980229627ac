package model

// KeySource records which part of the request the remote cache keyed on.
type KeySource string

const (
	KeySourceAuth      KeySource = "auth"
	KeySourceBodyHash  KeySource = "body_hash"
	KeySourceAccountID KeySource = "account_id"
)

// Headers maps header names to values. Values are strings in practice but may
// be null when the remote cache stored an empty header.
type Headers map[string]any

// CacheEntry is a snapshot of one cached HTTP exchange.
type CacheEntry struct {
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Status    int       `json:"status"`
	Headers   Headers   `json:"headers"`
	Body      any       `json:"body"`
	Timestamp int64     `json:"timestamp"` // unix seconds
	TTL       *int64    `json:"ttl"`
	KeySource KeySource `json:"key_source"`

	// LabMetadata is only present while the entry carries an override.
	LabMetadata *LabMetadata `json:"lab_metadata,omitempty"`
}

type LabMetadata struct {
	IsModified        bool    `json:"is_modified"`
	OriginalBody      any     `json:"original_body"`
	OriginalHeaders   Headers `json:"original_headers"`
	OriginalStatus    int     `json:"original_status"`
	ModifiedBy        string  `json:"modified_by"`
	ModifiedAt        int64   `json:"modified_at"` // unix seconds
	ModificationNotes string  `json:"modification_notes"`
	TemplateID        string  `json:"template_id,omitempty"`
	ModificationID    string  `json:"modification_id"`
	OriginalPreserved bool    `json:"original_preserved"`
}

// Clone returns a deep copy that shares no maps or slices with e.
func (e CacheEntry) Clone() CacheEntry {
	out := e
	out.Headers = e.Headers.Clone()
	out.Body = CloneValue(e.Body)
	if e.TTL != nil {
		ttl := *e.TTL
		out.TTL = &ttl
	}
	if e.LabMetadata != nil {
		md := *e.LabMetadata
		md.OriginalBody = CloneValue(e.LabMetadata.OriginalBody)
		md.OriginalHeaders = e.LabMetadata.OriginalHeaders.Clone()
		out.LabMetadata = &md
	}
	return out
}

func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	out := make(Headers, len(h))
	for k, v := range h {
		out[k] = CloneValue(v)
	}
	return out
}

// ApplyTo returns a copy of e with the present fields of m applied.
func (m *Modifications) ApplyTo(e CacheEntry) CacheEntry {
	out := e.Clone()
	if m == nil {
		return out
	}
	if m.Status != nil {
		out.Status = *m.Status
	}
	if m.Headers != nil {
		out.Headers = m.Headers.Clone()
	}
	if m.BodySet {
		out.Body = CloneValue(m.Body)
	}
	return out
}

type StatusCategoryName string

const (
	StatusSuccess     StatusCategoryName = "success"
	StatusRedirect    StatusCategoryName = "redirect"
	StatusClientError StatusCategoryName = "client-error"
	StatusServerError StatusCategoryName = "server-error"
)

func StatusCategory(status int) StatusCategoryName {
	switch {
	case status >= 200 && status < 300:
		return StatusSuccess
	case status >= 300 && status < 400:
		return StatusRedirect
	case status >= 400 && status < 500:
		return StatusClientError
	default:
		return StatusServerError
	}
}
