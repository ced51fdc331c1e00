package cart_test

import (
	"context"
	"errors"
	"sync"
	"time"
)

// recordingStorage — SnapshotStorage с подсчётом записей и инъекцией ошибок.
type recordingStorage struct {
	mu      sync.Mutex
	items   map[string]string
	sets    int
	setErr  error
	getErr  error
	lastKey string
}

func newRecordingStorage() *recordingStorage {
	return &recordingStorage{items: make(map[string]string)}
}

func (s *recordingStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return "", false, s.getErr
	}
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *recordingStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.sets++
	s.lastKey = key
	s.items[key] = value
	return nil
}

func (s *recordingStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *recordingStorage) Ping(context.Context) error { return nil }

func (s *recordingStorage) setCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sets
}

func (s *recordingStorage) raw(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[key]
}

func (s *recordingStorage) put(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
}

var errStorageDown = errors.New("storage down")

// fixedClock возвращает всегда одно и то же время.
func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}
