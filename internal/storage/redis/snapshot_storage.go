// Package redis хранит снимки корзин в Redis с истечением по TTL сессии.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

const (
	defaultKeyPrefix = "indiakart:"
	defaultOpTimeout = 2 * time.Second
)

// SnapshotStorage — реализация SnapshotStorage поверх go-redis.
// Истечение делает сам Redis, поэтому sweeper ей не нужен.
type SnapshotStorage struct {
	client    goredis.UniversalClient
	prefix    string
	ttl       time.Duration
	opTimeout time.Duration
}

// Option настраивает SnapshotStorage.
type Option func(*SnapshotStorage)

// WithKeyPrefix задаёт префикс ключей (по умолчанию "indiakart:").
func WithKeyPrefix(prefix string) Option {
	return func(s *SnapshotStorage) {
		s.prefix = prefix
	}
}

// WithOpTimeout ограничивает время одной команды.
func WithOpTimeout(timeout time.Duration) Option {
	return func(s *SnapshotStorage) {
		if timeout > 0 {
			s.opTimeout = timeout
		}
	}
}

// NewClient создаёт клиента Redis по адресу host:port.
func NewClient(addr string) *goredis.Client {
	return goredis.NewClient(&goredis.Options{Addr: addr})
}

// NewSnapshotStorage создаёт хранилище поверх клиента. Нулевой ttl — без истечения.
func NewSnapshotStorage(client goredis.UniversalClient, ttl time.Duration, options ...Option) *SnapshotStorage {
	s := &SnapshotStorage{
		client:    client,
		prefix:    defaultKeyPrefix,
		ttl:       ttl,
		opTimeout: defaultOpTimeout,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Get возвращает значение ключа; redis.Nil превращается в found=false.
func (s *SnapshotStorage) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	value, err := s.client.Get(ctx, s.prefix+key).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: redis get: %v", domain.ErrStorageUnavailable, err)
	}
	return value, true, nil
}

// Set записывает значение с TTL (SET key value EX ttl).
func (s *SnapshotStorage) Set(ctx context.Context, key, value string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.prefix+key, value, s.ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Delete удаляет ключ.
func (s *SnapshotStorage) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: redis del: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Ping проверяет соединение с Redis.
func (s *SnapshotStorage) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis ping: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Close закрывает клиента.
func (s *SnapshotStorage) Close() error {
	return s.client.Close()
}

var _ domain.SnapshotStorage = (*SnapshotStorage)(nil)
