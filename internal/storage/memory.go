package storage

import (
	"context"
	"errors"
	"sync"
)

var ErrBlobNotFound = errors.New("blob not found")

// MemoryStore holds blobs in process and serves them under BaseURL.
type MemoryStore struct {
	BaseURL string

	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	data        []byte
	contentType string
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: baseURL, blobs: make(map[string]memoryBlob)}
}

func (m *MemoryStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = memoryBlob{data: append([]byte(nil), data...), contentType: contentType}
	return key, nil
}

// Get returns the stored bytes and content type for ref.
func (m *MemoryStore) Get(ref string) ([]byte, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blobs[ref]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), b.data...), b.contentType, true
}

func (m *MemoryStore) URL(_ context.Context, ref string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.blobs[ref]; !ok {
		return "", ErrBlobNotFound
	}
	return m.BaseURL + "/" + ref, nil
}

func (m *MemoryStore) Delete(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[ref]; !ok {
		return ErrBlobNotFound
	}
	delete(m.blobs, ref)
	return nil
}

// Has reports whether ref is stored.
func (m *MemoryStore) Has(ref string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blobs[ref]
	return ok
}
