// Package gateway talks to the remote cache admin API.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"cachelab/internal/model"
)

//go:generate mockgen -destination=../mocks/gatewaymock/gateway.go -package=gatewaymock cachelab/internal/gateway Gateway

// Gateway is the set of remote operations the editing session depends on.
type Gateway interface {
	Organized(ctx context.Context) (*model.OrganizedCache, error)
	FetchEntry(ctx context.Context, key string) (*model.CacheEntry, error)
	// FetchOriginal returns the pre-modification entry tracked by the
	// server, ErrNotFound when it has none.
	FetchOriginal(ctx context.Context, key string) (*model.CacheEntry, error)
	Persist(ctx context.Context, req model.ModifyRequest) (*model.ModifyResponse, error)
	Test(ctx context.Context, key string, mods model.Modifications) (*model.TestResponse, error)
	Reset(ctx context.Context, key, userID string) (*model.ResetResponse, error)
}

var (
	ErrNotFound           = errors.New("cache entry not found")
	ErrValidationRejected = errors.New("modifications rejected by server")
)

// APIError is a non-2xx answer from the admin API.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	return fmt.Sprintf("api error: status %d: %s", e.Status, e.Detail)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case 404:
		return ErrNotFound
	case 422:
		return ErrValidationRejected
	}
	return nil
}
