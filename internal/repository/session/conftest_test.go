package session

import (
	"context"
	"strconv"
	"sync"

	"github.com/tlsandbox/cohere-globalmart/internal/db"
)

// memStore is an in-memory fake of the consumer store interface.
type memStore struct {
	mu     sync.Mutex
	kv     map[string][]byte
	hashes map[string]map[string]string
}

func newMemStore() *memStore {
	return &memStore{
		kv:     map[string][]byte{},
		hashes: map[string]map[string]string{},
	}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.kv[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.kv[key] = value
	return nil
}

func (m *memStore) HSet(_ context.Context, key string, fields map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *memStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *memStore) HIncrBy(_ context.Context, key, field string, val int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.hashes[key]
	if !ok {
		h = map[string]string{}
		m.hashes[key] = h
	}
	current, _ := strconv.ParseInt(h[field], 10, 64)
	h[field] = strconv.FormatInt(current+val, 10)
	return nil
}

func (m *memStore) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.kv[key]; ok {
		return true, nil
	}
	_, ok := m.hashes[key]
	return ok, nil
}
