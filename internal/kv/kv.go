// Package kv provides the string-keyed blob stores the article store and the
// session guards are built on. Values are opaque strings (JSON by convention).
package kv

import (
	"context"
	"errors"
)

// ErrQuotaExceeded is returned by Set when a value is larger than the store's quota.
var ErrQuotaExceeded = errors.New("kv: value exceeds storage quota")

// Store is a durable or ephemeral key-value store.
type Store interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

func checkQuota(maxValueBytes int, value string) error {
	if maxValueBytes > 0 && len(value) > maxValueBytes {
		return ErrQuotaExceeded
	}
	return nil
}

// scoped prefixes every key before delegating to the underlying store.
type scoped struct {
	store  Store
	prefix string
}

// Scoped returns a Store view in which every key is namespaced by prefix.
func Scoped(store Store, prefix string) Store {
	return &scoped{store: store, prefix: prefix}
}

func (s *scoped) Get(ctx context.Context, key string) (string, bool, error) {
	return s.store.Get(ctx, s.prefix+key)
}

func (s *scoped) Set(ctx context.Context, key, value string) error {
	return s.store.Set(ctx, s.prefix+key, value)
}

func (s *scoped) Delete(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.prefix+key)
}
