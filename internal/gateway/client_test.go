package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cachelab/internal/model"
)

type captured struct {
	method string
	path   string
	query  string
	body   map[string]any
}

func newServer(t *testing.T, status int, resp string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.method = r.Method
		c.path = r.URL.Path
		c.query = r.URL.RawQuery
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &c.body))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, resp)
	}))
	t.Cleanup(srv.Close)
	return srv, c
}

func TestFetchEntry(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"method":"GET","path":"/v1/users","status":200,
		"headers":{"Content-Type":"application/json"},"body":{"id":1},"timestamp":1700000000,
		"ttl":60,"key_source":"auth"}`)

	entry, err := NewClient(srv.URL+"/").FetchEntry(context.Background(), "GET api.example.com/v1/users")
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/admin/cache/entry", got.path)
	assert.Equal(t, "key=GET+api.example.com%2Fv1%2Fusers", got.query)
	assert.Equal(t, 200, entry.Status)
	assert.Equal(t, model.KeySourceAuth, entry.KeySource)
	assert.Equal(t, map[string]any{"id": 1.0}, entry.Body)
	require.NotNil(t, entry.TTL)
	assert.Equal(t, int64(60), *entry.TTL)
}

func TestFetchOriginalNotFound(t *testing.T) {
	srv, got := newServer(t, http.StatusNotFound, `{"detail":"No original tracked"}`)

	_, err := NewClient(srv.URL).FetchOriginal(context.Background(), "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "/admin/cache/entry/original", got.path)
	assert.Equal(t, "cache_key=k", got.query)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "No original tracked", apiErr.Detail)
}

func TestPersist(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"success":true,"cache_key":"k","modifications_applied":1,
		"modified_by":"ann","modification_id":"abc"}`)

	status := 404
	resp, err := NewClient(srv.URL).Persist(context.Background(), model.ModifyRequest{
		CacheKey:      "k",
		Modifications: model.Modifications{Status: &status},
		UserID:        "ann",
		Notes:         "n",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPut, got.method)
	assert.Equal(t, "/admin/cache/entry", got.path)
	assert.Equal(t, map[string]any{
		"cache_key":     "k",
		"modifications": map[string]any{"status": 404.0},
		"user_id":       "ann",
		"notes":         "n",
	}, got.body)
	assert.True(t, resp.Success)
	assert.Equal(t, 1, resp.ModificationsApplied)
	assert.Equal(t, "abc", resp.ModificationID)
}

func TestPersistRejected(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnprocessableEntity, `{"detail":"Status code must be between 100 and 599"}`)

	_, err := NewClient(srv.URL).Persist(context.Background(), model.ModifyRequest{CacheKey: "k", UserID: "u"})
	assert.ErrorIs(t, err, ErrValidationRejected)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "422")
}

func TestTestSendsNullBody(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"success":true,"test_result":{"status":200,"headers":{},
		"body":null,"response_time_ms":3,"validation":{"is_valid_json":true,"has_required_fields":true,
		"warnings":[],"errors":[]},"size_bytes":4},"modifications_tested":1,"response_size":4,
		"status_code":200,"content_type":"application/json"}`)

	resp, err := NewClient(srv.URL).Test(context.Background(), "k", model.Modifications{BodySet: true})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/admin/cache/test", got.path)
	mods, ok := got.body["modifications"].(map[string]any)
	require.True(t, ok)
	v, present := mods["body"]
	assert.True(t, present)
	assert.Nil(t, v)
	assert.Equal(t, 1, resp.ModificationsTested)
	assert.Equal(t, int64(4), resp.TestResult.SizeBytes)
}

func TestReset(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"success":true,"cache_key":"k","reset_by":"u","reset_at":5}`)

	resp, err := NewClient(srv.URL).Reset(context.Background(), "k", "u")
	require.NoError(t, err)
	assert.Equal(t, "/admin/cache/entry/reset", got.path)
	assert.Equal(t, map[string]any{"cache_key": "k", "user_id": "u"}, got.body)
	assert.Equal(t, int64(5), resp.ResetAt)
}

func TestErrorMapping(t *testing.T) {
	testCases := []struct {
		name       string
		status     int
		body       string
		wantDetail string
		wantIs     error
	}{
		{name: "detail", status: 404, body: `{"detail":"gone"}`, wantDetail: "gone", wantIs: ErrNotFound},
		{name: "plain_text", status: 500, body: "boom\n", wantDetail: "boom"},
		{name: "empty", status: 503, body: "", wantDetail: "Service Unavailable"},
		{name: "structured_detail", status: 422, body: `{"detail":[{"msg":"x"}]}`, wantDetail: `{"detail":[{"msg":"x"}]}`, wantIs: ErrValidationRejected},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newServer(t, tc.status, tc.body)
			_, err := NewClient(srv.URL).Organized(context.Background())

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.wantDetail, apiErr.Detail)
			if tc.wantIs != nil {
				assert.ErrorIs(t, err, tc.wantIs)
			} else {
				assert.NoError(t, errors.Unwrap(apiErr))
			}
		})
	}
}

func TestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	_, err := NewClient(srv.URL, WithTimeout(20*time.Millisecond)).Organized(context.Background())
	require.Error(t, err)
	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestDecodeFailure(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `not json`)
	_, err := NewClient(srv.URL).Organized(context.Background())
	assert.ErrorContains(t, err, "decode organized response")
}
