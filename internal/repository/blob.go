package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/sports-newsroom-api/internal/kv"
	"github.com/sports-newsroom-api/internal/metrics"
)

// blobStore does JSON (de)serialization of whole values and serializes
// read-modify-write cycles per key inside this process. There is no
// cross-process lock: two replicas writing the same key keep last-writer-wins.
type blobStore struct {
	store   kv.Store
	metrics *metrics.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newBlobStore(store kv.Store, m *metrics.Metrics) *blobStore {
	return &blobStore{
		store:   store,
		metrics: m,
		locks:   make(map[string]*sync.Mutex),
	}
}

// lock acquires the per-key mutex and returns its release func.
func (b *blobStore) lock(key string) func() {
	b.mu.Lock()
	l, ok := b.locks[key]
	if !ok {
		l = &sync.Mutex{}
		b.locks[key] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// readJSON decodes the value at key into dest. A missing key leaves dest untouched.
func (b *blobStore) readJSON(ctx context.Context, key string, dest interface{}) error {
	raw, ok, err := b.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (b *blobStore) writeJSON(ctx context.Context, family, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		b.metrics.StoreWrite(family, err)
		return fmt.Errorf("%w: encode %s: %w", ErrWriteFailed, key, err)
	}
	return b.writeRaw(ctx, family, key, string(data))
}

func (b *blobStore) readRaw(ctx context.Context, key string) (string, error) {
	raw, _, err := b.store.Get(ctx, key)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}
	return raw, nil
}

func (b *blobStore) writeRaw(ctx context.Context, family, key, value string) error {
	err := b.store.Set(ctx, key, value)
	b.metrics.StoreWrite(family, err)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrWriteFailed, key, err)
	}
	return nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
