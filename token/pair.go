// Package token persists the access/refresh token pair and reads what little
// the client needs from it.
package token

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-finance-web/storage"
)

// Persisted storage keys
const (
	AccessTokenKey  = "access_token"
	RefreshTokenKey = "refresh_token"
)

// Pair is the token pair returned by the token endpoint.
type Pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Save writes both tokens. The refresh token is stored but nothing refreshes with it.
func Save(ctx context.Context, store storage.Store, pair Pair) error {
	if err := store.Set(ctx, AccessTokenKey, pair.Access); err != nil {
		return fmt.Errorf("[token Save] access token: %w", err)
	}
	if err := store.Set(ctx, RefreshTokenKey, pair.Refresh); err != nil {
		return fmt.Errorf("[token Save] refresh token: %w", err)
	}
	return nil
}

// Load reads both tokens; missing tokens come back empty.
func Load(ctx context.Context, store storage.Store) (Pair, error) {
	access, _, err := store.Get(ctx, AccessTokenKey)
	if err != nil {
		return Pair{}, fmt.Errorf("[token Load] access token: %w", err)
	}
	refresh, _, err := store.Get(ctx, RefreshTokenKey)
	if err != nil {
		return Pair{}, fmt.Errorf("[token Load] refresh token: %w", err)
	}
	return Pair{Access: access, Refresh: refresh}, nil
}

// Clear removes both tokens. Both removals are attempted even if the first fails.
func Clear(ctx context.Context, store storage.Store) error {
	accessErr := store.Remove(ctx, AccessTokenKey)
	refreshErr := store.Remove(ctx, RefreshTokenKey)
	if accessErr != nil {
		return fmt.Errorf("[token Clear] access token: %w", accessErr)
	}
	if refreshErr != nil {
		return fmt.Errorf("[token Clear] refresh token: %w", refreshErr)
	}
	return nil
}

// AccessToken returns the persisted access token, or "" when there is none.
func AccessToken(ctx context.Context, store storage.Store) (string, error) {
	access, _, err := store.Get(ctx, AccessTokenKey)
	if err != nil {
		return "", err
	}
	return access, nil
}
