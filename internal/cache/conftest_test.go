package cache

import (
	"context"
	"errors"
	"path"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/helixdesk/tenantstore/internal/logging"
	"github.com/helixdesk/tenantstore/internal/redis"
)

// memStore is an in-memory store implementing the consumer interface,
// with TTL expiry and Redis-style glob matching for Scan.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	expiry  map[string]time.Time
	pingErr error
	getErr  error
	setErr  error
	delErr  error
	scanErr error
}

func newMemStore() *memStore {
	return &memStore{
		data:   make(map[string][]byte),
		expiry: make(map[string]time.Time),
	}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if exp, ok := m.expiry[key]; ok && time.Now().After(exp) {
		delete(m.data, key)
		delete(m.expiry, key)
	}
	data, ok := m.data[key]
	if !ok {
		return nil, redis.ErrKeyNotFound
	}
	return data, nil
}

func (m *memStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	m.expiry[key] = time.Now().Add(ttl)
	return nil
}

func (m *memStore) Del(_ context.Context, keys ...string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.delErr != nil {
		return 0, m.delErr
	}
	var n int64
	for _, key := range keys {
		if _, ok := m.data[key]; ok {
			delete(m.data, key)
			delete(m.expiry, key)
			n++
		}
	}
	return n, nil
}

func (m *memStore) Scan(_ context.Context, pattern string, _ int) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	var keys []string
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (m *memStore) Ping(_ context.Context) error { return m.pingErr }

func (m *memStore) Close() {}

func (m *memStore) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for key := range m.data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

var errBackendDown = errors.New("connection refused")

func newTestCache(t *testing.T) (*TenantCache, *memStore) {
	t.Helper()
	ms := newMemStore()
	c := New(ms, logging.NewNop(), Options{})
	return c, ms
}
