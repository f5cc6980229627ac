package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/go-pkgz/lgr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cachelab/internal/model"
)

const (
	tracerName     = "cachelab/gateway"
	DefaultTimeout = 30 * time.Second

	// cap on error bodies read for the detail message
	maxErrorBody = 64 << 10
)

type ClientOption func(*Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying client, e.g. for httptest servers.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// Client implements Gateway over the JSON admin API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tracer     trace.Tracer
}

var _ Gateway = (*Client)(nil)

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Organized(ctx context.Context) (*model.OrganizedCache, error) {
	var out model.OrganizedCache
	if err := c.do(ctx, "organized", http.MethodGet, "/admin/cache/organized", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchEntry(ctx context.Context, key string) (*model.CacheEntry, error) {
	var out model.CacheEntry
	q := url.Values{"key": {key}}
	if err := c.do(ctx, "fetch_entry", http.MethodGet, "/admin/cache/entry", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FetchOriginal(ctx context.Context, key string) (*model.CacheEntry, error) {
	var out model.CacheEntry
	q := url.Values{"cache_key": {key}}
	if err := c.do(ctx, "fetch_original", http.MethodGet, "/admin/cache/entry/original", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Persist(ctx context.Context, req model.ModifyRequest) (*model.ModifyResponse, error) {
	var out model.ModifyResponse
	if err := c.do(ctx, "persist", http.MethodPut, "/admin/cache/entry", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Test(ctx context.Context, key string, mods model.Modifications) (*model.TestResponse, error) {
	var out model.TestResponse
	req := model.TestRequest{CacheKey: key, Modifications: mods}
	if err := c.do(ctx, "test", http.MethodPost, "/admin/cache/test", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reset(ctx context.Context, key, userID string) (*model.ResetResponse, error) {
	var out model.ResetResponse
	req := model.ResetRequest{CacheKey: key, UserID: userID}
	if err := c.do(ctx, "reset", http.MethodPost, "/admin/cache/entry/reset", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, in, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "gateway."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.route", path),
		),
	)
	started := time.Now()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		log.Printf("[DEBUG] gateway %s %s %s in %s, err=%v", op, method, path, time.Since(started).Round(time.Millisecond), err)
	}()

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// decodeError builds an APIError from a {"detail": ...} body, falling back
// to the raw text or the status line.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode}

	var er model.ErrorResponse
	if json.Unmarshal(raw, &er) == nil && er.Detail != "" {
		apiErr.Detail = er.Detail
	} else if s := strings.TrimSpace(string(raw)); s != "" {
		apiErr.Detail = s
	} else {
		apiErr.Detail = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
