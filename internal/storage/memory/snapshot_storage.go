package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

type snapshotEntry struct {
	value     string
	expiresAt time.Time
}

// SnapshotStorage — in-memory хранилище снимков корзин с истечением по TTL.
// Нулевой ttl отключает истечение.
type SnapshotStorage struct {
	mu    sync.RWMutex
	items map[string]snapshotEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewSnapshotStorage создаёт in-memory реализацию SnapshotStorage.
func NewSnapshotStorage(ttl time.Duration) *SnapshotStorage {
	return &SnapshotStorage{
		items: make(map[string]snapshotEntry),
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get возвращает значение, если ключ есть и не просрочен.
func (s *SnapshotStorage) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.items[key]
	if !ok || s.expired(entry, s.now()) {
		return "", false, nil
	}
	return entry.value, true, nil
}

// Set записывает значение и продлевает срок жизни ключа.
func (s *SnapshotStorage) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := snapshotEntry{value: value}
	if s.ttl > 0 {
		entry.expiresAt = s.now().Add(s.ttl)
	}
	s.items[key] = entry
	return nil
}

// Delete удаляет ключ. Отсутствующий ключ не считается ошибкой.
func (s *SnapshotStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Ping всегда успешен.
func (s *SnapshotStorage) Ping(context.Context) error {
	return nil
}

// DeleteExpired удаляет до limit ключей, истёкших к моменту before.
func (s *SnapshotStorage) DeleteExpired(_ context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = s.now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.items {
		if !s.expired(entry, before) {
			continue
		}
		delete(s.items, key)
		removed++
		if limit > 0 && removed >= limit {
			break
		}
	}
	return removed, nil
}

// Len возвращает число хранимых ключей, включая просроченные.
func (s *SnapshotStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *SnapshotStorage) expired(entry snapshotEntry, at time.Time) bool {
	return !entry.expiresAt.IsZero() && !entry.expiresAt.After(at)
}

var (
	_ domain.SnapshotStorage = (*SnapshotStorage)(nil)
	_ domain.SnapshotSweeper = (*SnapshotStorage)(nil)
)
