package token

import (
	"context"

	apperrors "github.com/jrsteele09/go-finance-web/internal/errors"
	"github.com/jrsteele09/go-finance-web/storage"
	"golang.org/x/oauth2"
)

// StoreTokenSource hands the persisted access token to an oauth2.Transport so
// authenticated API calls carry "Authorization: Bearer <access>". The store
// is read with the context given to WithContext, or context.Background.
type StoreTokenSource struct {
	store storage.Store
	ctx   context.Context
}

var _ oauth2.TokenSource = StoreTokenSource{}

func NewStoreTokenSource(store storage.Store) StoreTokenSource {
	return StoreTokenSource{store: store}
}

// WithContext returns a copy of the source that reads the store with ctx.
func (s StoreTokenSource) WithContext(ctx context.Context) oauth2.TokenSource {
	s.ctx = ctx
	return s
}

// Token returns ErrNoAccessToken when nothing is persisted.
func (s StoreTokenSource) Token() (*oauth2.Token, error) {
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	pair, err := Load(ctx, s.store)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[StoreTokenSource] load")
	}
	if pair.Access == "" {
		return nil, apperrors.ErrNoAccessToken
	}

	t := &oauth2.Token{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		TokenType:    "Bearer",
	}
	if exp, ok := Expiry(pair.Access); ok {
		t.Expiry = exp
	}
	return t, nil
}
