package storage

import (
	"context"
	"net/url"
	"strings"
	"sync"

	tradeapp "github.com/orderflow/backend/internal/application/trade"
)

var _ tradeapp.ProofStorage = (*MemoryProofStorage)(nil)

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryProofStorage keeps proofs in process memory.
// Used in development when object storage is disabled, and in tests.
type MemoryProofStorage struct {
	// BaseURL prefixes download URLs
	BaseURL string

	mu      sync.RWMutex
	objects map[string]memoryObject
}

// NewMemoryProofStorage creates a new MemoryProofStorage
func NewMemoryProofStorage() *MemoryProofStorage {
	return &MemoryProofStorage{
		BaseURL: "http://localhost:8080/proofs",
		objects: make(map[string]memoryObject),
	}
}

// Upload stores a copy of data under key
func (s *MemoryProofStorage) Upload(_ context.Context, key, contentType string, data []byte) error {
	if key == "" {
		return errKeyRequired
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{contentType: contentType, data: buf}
	return nil
}

// Delete removes key; a missing key is ignored
func (s *MemoryProofStorage) Delete(_ context.Context, key string) error {
	if key == "" {
		return errKeyRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// DownloadURL returns BaseURL joined with the escaped key
func (s *MemoryProofStorage) DownloadURL(_ context.Context, key string) (string, error) {
	if key == "" {
		return "", errKeyRequired
	}
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimSuffix(s.BaseURL, "/") + "/" + strings.Join(segments, "/"), nil
}

// Get returns the stored object
func (s *MemoryProofStorage) Get(key string) (data []byte, contentType string, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.data, obj.contentType, ok
}

// Len returns the number of stored objects
func (s *MemoryProofStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
