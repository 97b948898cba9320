package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"sort"
	"sync"
	"time"
)

type memoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	times map[string]time.Time
}

// NewMemoryStore returns an in-process FileStore used by tests and local runs
// without a blob backend.
func NewMemoryStore() FileStore {
	return &memoryStore{
		blobs: make(map[string][]byte),
		times: make(map[string]time.Time),
	}
}

func (s *memoryStore) Put(_ context.Context, key AreaKey, name string, r io.Reader, _ int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key.Prefix()+name] = data
	s.times[key.Prefix()+name] = time.Now()
	return nil
}

func (s *memoryStore) List(_ context.Context, key AreaKey) ([]StoredFile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := key.Prefix()
	var files []StoredFile
	for k, data := range s.blobs {
		if len(k) > len(prefix) && k[:len(prefix)] == prefix {
			files = append(files, StoredFile{
				Name:     k[len(prefix):],
				Size:     int64(len(data)),
				Modified: s.times[k],
			})
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *memoryStore) Open(_ context.Context, key AreaKey, name string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[key.Prefix()+name]
	if !ok {
		return nil, os.ErrNotExist
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memoryStore) DeleteArea(_ context.Context, key AreaKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := key.Prefix()
	for k := range s.blobs {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(s.blobs, k)
			delete(s.times, k)
		}
	}
	return nil
}
