// Package validate checks a working cache entry for blocking errors and
// advisory warnings.
package validate

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"cachelab/internal/model"
)

const (
	MsgInvalidJSON   = "Response body is not valid JSON"
	MsgStatusRange   = "Status code must be between 100 and 599"
	MsgEmptyHeader   = "Header names cannot be empty"
	MsgEmptySuccess  = "Success response has no body content"
	msgHeaderNoValue = "Header %q has no value"
)

// Entry runs every rule against e; rules never short-circuit. It is a pure
// function of its input.
func Entry(e model.CacheEntry) model.ValidationResult {
	res := model.ValidationResult{
		IsValidJSON:       true,
		HasRequiredFields: true,
		Warnings:          []string{},
		Errors:            []string{},
	}

	if s, ok := e.Body.(string); ok && s != "" {
		if !json.Valid([]byte(s)) {
			res.IsValidJSON = false
			res.Errors = append(res.Errors, MsgInvalidJSON)
		}
	}

	if e.Status < 100 || e.Status > 599 {
		res.Errors = append(res.Errors, MsgStatusRange)
	}

	keys := make([]string, 0, len(e.Headers))
	for k := range e.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.TrimSpace(k) == "" {
			res.Errors = append(res.Errors, MsgEmptyHeader)
		}
		if e.Headers[k] == nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf(msgHeaderNoValue, k))
		}
	}

	// 204 is not special-cased; the whole 2xx range warns.
	if e.Status >= 200 && e.Status < 300 && bodyEmpty(e.Body) {
		res.Warnings = append(res.Warnings, MsgEmptySuccess)
	}

	return res
}

func bodyEmpty(body any) bool {
	switch b := body.(type) {
	case nil:
		return true
	case string:
		return b == ""
	}
	return false
}
