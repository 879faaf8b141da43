package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

type memoryFile struct {
	contentType string
	data        []byte
}

// MemoryStorage keeps uploads in memory. Intended for tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	files   map[string]memoryFile
	baseURL string
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{
		files:   make(map[string]memoryFile),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (s *MemoryStorage) Upload(_ context.Context, input *UploadInput) (*UploadResult, error) {
	if input.Key == "" {
		return nil, ErrInvalidKey
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, input.Data); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}

	s.mu.Lock()
	s.files[input.Key] = memoryFile{contentType: input.ContentType, data: buf.Bytes()}
	s.mu.Unlock()

	return &UploadResult{Key: input.Key, URL: s.URL(input.Key), Size: int64(buf.Len())}, nil
}

func (s *MemoryStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.files[key]; !exists {
		return ErrFileNotFound
	}
	delete(s.files, key)
	return nil
}

func (s *MemoryStorage) URL(key string) string {
	return s.baseURL + "/uploads/" + key
}

// Get returns the stored bytes and content type of key.
func (s *MemoryStorage) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.files[key]
	return f.data, f.contentType, ok
}
