package kv

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-process Store. It backs the session tier by default and
// the durable tier when STORE_BACKEND=memory.
type MemoryStore struct {
	mu            sync.RWMutex
	data          map[string]string
	maxValueBytes int
}

// NewMemoryStore creates an empty store. maxValueBytes <= 0 disables the quota.
func NewMemoryStore(maxValueBytes int) *MemoryStore {
	return &MemoryStore{
		data:          make(map[string]string),
		maxValueBytes: maxValueBytes,
	}
}

func (m *MemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(ctx context.Context, key, value string) error {
	if err := checkQuota(m.maxValueBytes, value); err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = value
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

// Keys returns the sorted keys that start with prefix.
func (m *MemoryStore) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
