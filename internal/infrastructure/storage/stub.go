package storage

import (
	"context"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/homestead/backend/internal/application/document"
)

var _ document.ObjectStorage = (*MemoryObjectStorage)(nil)

// MemoryObjectStorage keeps objects in memory. Used when storage is disabled and in tests.
// Presigned URLs point at BaseURL and are not served by anything.
type MemoryObjectStorage struct {
	BaseURL string

	mu      sync.RWMutex
	objects map[string]StoredObject
}

// StoredObject is one object held by MemoryObjectStorage
type StoredObject struct {
	Data        []byte
	ContentType string
}

// NewMemoryObjectStorage creates an empty store
func NewMemoryObjectStorage() *MemoryObjectStorage {
	return &MemoryObjectStorage{
		BaseURL: "http://storage.local",
		objects: make(map[string]StoredObject),
	}
}

// PresignUpload returns a placeholder PUT URL
func (m *MemoryObjectStorage) PresignUpload(_ context.Context, key, _ string, expiresIn time.Duration) (document.PresignedURL, error) {
	return m.presign(key, http.MethodPut, expiresIn)
}

// PresignDownload returns a placeholder GET URL
func (m *MemoryObjectStorage) PresignDownload(_ context.Context, key string, expiresIn time.Duration) (document.PresignedURL, error) {
	return m.presign(key, http.MethodGet, expiresIn)
}

func (m *MemoryObjectStorage) presign(key, method string, expiresIn time.Duration) (document.PresignedURL, error) {
	if key == "" {
		return document.PresignedURL{}, ErrKeyRequired
	}
	if expiresIn <= 0 {
		expiresIn = defaultPresignExpiration
	}
	expiresAt := time.Now().Add(expiresIn)
	q := url.Values{"expires": {expiresAt.UTC().Format(time.RFC3339)}}
	return document.PresignedURL{
		URL:       m.BaseURL + "/" + key + "?" + q.Encode(),
		Method:    method,
		Key:       key,
		ExpiresAt: expiresAt,
	}, nil
}

// Put stores a copy of data
func (m *MemoryObjectStorage) Put(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return ErrKeyRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = StoredObject{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

// Delete removes key
func (m *MemoryObjectStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrKeyRequired
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// Exists reports whether key was Put
func (m *MemoryObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrKeyRequired
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok, nil
}

// Get returns a stored object
func (m *MemoryObjectStorage) Get(key string) (StoredObject, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[key]
	return obj, ok
}

// Keys lists stored keys in order
func (m *MemoryObjectStorage) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
