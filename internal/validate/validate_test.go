package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cachelab/internal/model"
)

func TestEntry(t *testing.T) {
	testCases := []struct {
		name     string
		entry    model.CacheEntry
		wantJSON bool
		errors   []string
		warnings []string
	}{
		{
			name:     "valid_entry",
			entry:    model.CacheEntry{Status: 200, Headers: model.Headers{"A": "b"}, Body: map[string]any{"a": 1.0}},
			wantJSON: true,
			errors:   []string{},
			warnings: []string{},
		},
		{
			name:     "unusual_status_in_range",
			entry:    model.CacheEntry{Status: 250, Body: "{}"},
			wantJSON: true,
			errors:   []string{},
			warnings: []string{},
		},
		{
			name:     "status_too_low",
			entry:    model.CacheEntry{Status: 50, Body: "{}"},
			wantJSON: true,
			errors:   []string{MsgStatusRange},
			warnings: []string{},
		},
		{
			name:     "status_too_high",
			entry:    model.CacheEntry{Status: 650, Body: "{}"},
			wantJSON: true,
			errors:   []string{MsgStatusRange},
			warnings: []string{},
		},
		{
			name:     "invalid_json_string_body",
			entry:    model.CacheEntry{Status: 200, Body: "{not json"},
			wantJSON: false,
			errors:   []string{MsgInvalidJSON},
			warnings: []string{},
		},
		{
			name:     "empty_header_name",
			entry:    model.CacheEntry{Status: 200, Headers: model.Headers{"": "x"}, Body: "{}"},
			wantJSON: true,
			errors:   []string{MsgEmptyHeader},
			warnings: []string{},
		},
		{
			name:     "whitespace_header_name",
			entry:    model.CacheEntry{Status: 200, Headers: model.Headers{"  ": "x"}, Body: "{}"},
			wantJSON: true,
			errors:   []string{MsgEmptyHeader},
			warnings: []string{},
		},
		{
			name:     "null_header_value_is_warning_only",
			entry:    model.CacheEntry{Status: 200, Headers: model.Headers{"A": nil}, Body: "{}"},
			wantJSON: true,
			errors:   []string{},
			warnings: []string{`Header "A" has no value`},
		},
		{
			name:     "success_without_body",
			entry:    model.CacheEntry{Status: 200},
			wantJSON: true,
			errors:   []string{},
			warnings: []string{MsgEmptySuccess},
		},
		{
			name:     "no_content_still_warns",
			entry:    model.CacheEntry{Status: 204, Body: ""},
			wantJSON: true,
			errors:   []string{},
			warnings: []string{MsgEmptySuccess},
		},
		{
			name:     "error_status_without_body",
			entry:    model.CacheEntry{Status: 404},
			wantJSON: true,
			errors:   []string{},
			warnings: []string{},
		},
		{
			name:     "all_rules_evaluated",
			entry:    model.CacheEntry{Status: 700, Headers: model.Headers{"": nil}, Body: "nope"},
			wantJSON: false,
			errors:   []string{MsgInvalidJSON, MsgStatusRange, MsgEmptyHeader},
			warnings: []string{`Header "" has no value`},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res := Entry(tc.entry)
			assert.Equal(t, tc.wantJSON, res.IsValidJSON)
			assert.True(t, res.HasRequiredFields)
			assert.Equal(t, tc.errors, res.Errors)
			assert.Equal(t, tc.warnings, res.Warnings)
			assert.Equal(t, len(tc.errors) > 0, res.Blocking())
		})
	}
}

func TestEntryIsPure(t *testing.T) {
	e := model.CacheEntry{Status: 200, Headers: model.Headers{"B": nil, "A": nil}}
	first := Entry(e)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Entry(e))
	}
	assert.Equal(t, []string{`Header "A" has no value`, `Header "B" has no value`, MsgEmptySuccess}, first.Warnings)
}
