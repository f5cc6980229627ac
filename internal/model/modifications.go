package model

import (
	"encoding/json"
	"fmt"
)

// Modifications is the minimal patch between an original entry and its
// working copy. A field takes part in the patch only when it is present:
// Status non-nil, Headers non-nil (an empty map still replaces), BodySet true
// (Body may then legitimately be nil, meaning JSON null).
type Modifications struct {
	Status  *int
	Headers Headers
	Body    any
	BodySet bool
}

// Count is the number of fields present in the patch.
func (m *Modifications) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	if m.Status != nil {
		n++
	}
	if m.Headers != nil {
		n++
	}
	if m.BodySet {
		n++
	}
	return n
}

func (m *Modifications) IsEmpty() bool { return m.Count() == 0 }

func (m Modifications) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 3)
	if m.Status != nil {
		out["status"] = *m.Status
	}
	if m.Headers != nil {
		out["headers"] = m.Headers
	}
	if m.BodySet {
		out["body"] = m.Body
	}
	return json.Marshal(out)
}

func (m *Modifications) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Modifications{}
	if v, ok := raw["status"]; ok && string(v) != "null" {
		var status int
		if err := json.Unmarshal(v, &status); err != nil {
			return fmt.Errorf("status: %w", err)
		}
		m.Status = &status
	}
	if v, ok := raw["headers"]; ok && string(v) != "null" {
		h := Headers{}
		if err := json.Unmarshal(v, &h); err != nil {
			return fmt.Errorf("headers: %w", err)
		}
		m.Headers = h
	}
	if v, ok := raw["body"]; ok {
		var body any
		if err := json.Unmarshal(v, &body); err != nil {
			return fmt.Errorf("body: %w", err)
		}
		m.Body = body
		m.BodySet = true
	}
	return nil
}

// ValidationResult classifies content problems of a working entry. Errors
// block persisting; warnings are advisory.
type ValidationResult struct {
	IsValidJSON bool `json:"is_valid_json"`
	// HasRequiredFields is reserved for future rules and currently always true.
	HasRequiredFields bool     `json:"has_required_fields"`
	Warnings          []string `json:"warnings"`
	Errors            []string `json:"errors"`
}

func (r ValidationResult) Blocking() bool { return len(r.Errors) > 0 }
