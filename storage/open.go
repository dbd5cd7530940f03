package storage

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-finance-web/internal/config"
	apperrors "github.com/jrsteele09/go-finance-web/internal/errors"
	"github.com/redis/go-redis/v9"
)

// Open builds the token store selected by cfg. The returned close function
// releases whatever connection the store holds.
func Open(ctx context.Context, cfg config.StorageConfig) (Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.GetTokenStore() {
	case config.TokenStoreMemory:
		return NewInMemoryStore(), noop, nil

	case config.TokenStoreFile:
		if cfg.GetTokenFile() == "" {
			return nil, nil, fmt.Errorf("[storage Open] %s store needs a token file", config.TokenStoreFile)
		}
		return NewFileStore(cfg.GetTokenFile()), noop, nil

	case config.TokenStoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.GetRedisAddr(),
			Password: cfg.GetRedisPassword(),
			DB:       cfg.GetRedisDB(),
		})
		store := NewRedisStore(client, cfg.GetRedisKeyPrefix())
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, apperrors.Wrapf(err, "[storage Open] redis at %s", cfg.GetRedisAddr())
		}
		return store, client.Close, nil

	default:
		return nil, nil, fmt.Errorf("[storage Open] %w: token store %q", apperrors.ErrUnsupported, cfg.GetTokenStore())
	}
}
