// Package testutil provides in-memory stand-ins for the redis snapshot store
// and the remote repositories, so service and gateway behavior can be tested
// without live backends.
package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/cache"
)

// MemoryStore is an in-memory local store. It mirrors the redis cache
// semantics: absent collection snapshots decode as empty arrays, absent
// volatile keys are a cache miss. Setting Err makes every operation fail
// with it, simulating a local cache outage.
type MemoryStore struct {
	Err error

	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string][]byte{}}
}

func (m *MemoryStore) ReadCollection(ctx context.Context, key string, out interface{}) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		data = []byte("[]")
	}
	return json.Unmarshal(data, out)
}

func (m *MemoryStore) WriteCollection(ctx context.Context, key string, v interface{}) error {
	if m.Err != nil {
		return m.Err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string, value interface{}) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.RLock()
	data, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, value)
}

func (m *MemoryStore) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return m.WriteCollection(ctx, key, value)
}

func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	for _, key := range keys {
		delete(m.data, key)
	}
	m.mu.Unlock()
	return nil
}

// Raw returns the stored bytes for a key, for assertions on snapshot content.
func (m *MemoryStore) Raw(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.data[key]
	return data, ok
}
