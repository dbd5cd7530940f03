// Package storage holds the persisted key-value stores used for session tokens.
// A Store plays the part browser local storage plays for a single-page app:
// plain string values under fixed keys, no expiry metadata.
package storage

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyKey = errors.New("storage key is required")

// Store is an opaque string key-value store.
type Store interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing a missing key is not an error.
	Remove(ctx context.Context, key string) error
}

// ScopedStore prefixes every key with a namespace so one backend can hold the
// tokens of many client sessions.
type ScopedStore struct {
	store     Store
	namespace string
}

var _ Store = (*ScopedStore)(nil)

func Scoped(store Store, namespace string) *ScopedStore {
	return &ScopedStore{store: store, namespace: strings.TrimSuffix(namespace, ":")}
}

func (s *ScopedStore) Namespace() string {
	return s.namespace
}

func (s *ScopedStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	return s.store.Get(ctx, s.key(key))
}

func (s *ScopedStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.store.Set(ctx, s.key(key), value)
}

func (s *ScopedStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.store.Remove(ctx, s.key(key))
}

func (s *ScopedStore) key(key string) string {
	if s.namespace == "" {
		return key
	}
	return s.namespace + ":" + key
}
