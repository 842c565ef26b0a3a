package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/tagwing/birdtag/internal/bloburl"
	"github.com/tagwing/birdtag/internal/constants"
)

// MemoryStore is an in-memory blob store for tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	bucket  string
	baseURL string

	UploadError      error
	DownloadError    error
	BatchDeleteError error
	PresignError     error

	// FailDeleteKeys makes BatchDelete report a failure for these keys.
	FailDeleteKeys map[string]error
}

// NewMemoryStore creates an empty store serving objects under baseURL.
func NewMemoryStore(bucket, baseURL string) *MemoryStore {
	return &MemoryStore{
		objects: map[string][]byte{},
		bucket:  bucket,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

func (s *MemoryStore) Upload(_ context.Context, key string, reader io.Reader, _ string) (string, error) {
	if s.UploadError != nil {
		return "", s.UploadError
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.objects[key] = data
	s.mu.Unlock()

	return s.PublicURL(key), nil
}

func (s *MemoryStore) Download(_ context.Context, key string) (io.ReadCloser, error) {
	if s.DownloadError != nil {
		return nil, s.DownloadError
	}

	s.mu.RLock()
	data, found := s.objects[key]
	s.mu.RUnlock()

	if !found {
		return nil, fmt.Errorf("object %s does not exist", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) BatchDelete(_ context.Context, coords []bloburl.Coord) (*BatchDeleteResult, error) {
	if s.BatchDeleteError != nil {
		return nil, s.BatchDeleteError
	}
	if len(coords) > constants.BlobBatchDeleteLimit {
		return nil, ErrBatchTooLarge
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result := &BatchDeleteResult{}
	for _, coord := range coords {
		if err, found := s.FailDeleteKeys[coord.Key]; found {
			result.Failed = append(result.Failed, FailedObject{Coord: coord, Err: err})
			continue
		}
		delete(s.objects, coord.Key)
		result.Deleted = append(result.Deleted, coord)
	}
	return result, nil
}

func (s *MemoryStore) PresignPut(_ context.Context, key string, _ string) (string, error) {
	if s.PresignError != nil {
		return "", s.PresignError
	}
	return s.PublicURL(key) + "?signature=test", nil
}

func (s *MemoryStore) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

// Has reports whether an object exists.
func (s *MemoryStore) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, found := s.objects[key]
	return found
}

// Len returns the number of stored objects.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
