package token

import (
	"context"

	"github.com/jrsteele09/go-finance-web/storage"
	"github.com/rs/zerolog/log"
)

// IsPresent reports whether a non-empty access token is persisted. Storage
// failures count as "not present".
func IsPresent(ctx context.Context, store storage.Store) bool {
	access, err := AccessToken(ctx, store)
	if err != nil {
		log.Err(err).Msg("Failed to read access token")
		return false
	}
	return access != ""
}

// IsPresentAndUnexpired is IsPresent plus a check of the token's exp claim.
func IsPresentAndUnexpired(ctx context.Context, store storage.Store) bool {
	access, err := AccessToken(ctx, store)
	if err != nil {
		log.Err(err).Msg("Failed to read access token")
		return false
	}
	return access != "" && !IsExpired(access)
}
