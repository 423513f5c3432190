package filestore

import (
	"context"
	"sync"
)

// Object is a stored upload.
type Object struct {
	Data        []byte
	ContentType string
}

// MemoryStore keeps uploads in process memory for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: baseURL,
		objects: make(map[string]Object),
	}
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[key] = Object{Data: buf, ContentType: contentType}
	s.mu.Unlock()

	return publicURL(s.baseURL, key), nil
}

// Get returns a stored object.
func (s *MemoryStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}
