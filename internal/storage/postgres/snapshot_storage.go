package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

// SnapshotStorage хранит снимки корзин в таблице cart_snapshots.
type SnapshotStorage struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
}

// NewSnapshotStorage создаёт PostgreSQL-реализацию SnapshotStorage.
// Нулевой ttl отключает истечение.
func NewSnapshotStorage(store *Store, ttl time.Duration) *SnapshotStorage {
	return &SnapshotStorage{
		store: store,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get возвращает снимок, если он есть и не просрочен.
func (s *SnapshotStorage) Get(ctx context.Context, key string) (string, bool, error) {
	ctx, cancel := s.store.withTimeout(ctx)
	defer cancel()

	var payload string
	err := s.store.db.QueryRowContext(ctx, `
		SELECT payload
		FROM cart_snapshots
		WHERE storage_key = $1
		  AND (expires_at IS NULL OR expires_at > $2)
	`, key, s.now()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cart snapshot: %w", err)
	}
	return payload, true, nil
}

// Set сохраняет снимок (upsert) и продлевает срок жизни.
func (s *SnapshotStorage) Set(ctx context.Context, key, value string) error {
	ctx, cancel := s.store.withTimeout(ctx)
	defer cancel()

	now := s.now()
	var expiresAt sql.NullTime
	if s.ttl > 0 {
		expiresAt = sql.NullTime{Time: now.Add(s.ttl), Valid: true}
	}

	if _, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cart_snapshots (storage_key, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (storage_key) DO UPDATE
		SET payload = EXCLUDED.payload,
		    expires_at = EXCLUDED.expires_at,
		    updated_at = EXCLUDED.updated_at
	`, key, value, expiresAt, now); err != nil {
		return fmt.Errorf("set cart snapshot: %w", err)
	}
	return nil
}

// Delete удаляет снимок. Отсутствующий ключ не считается ошибкой.
func (s *SnapshotStorage) Delete(ctx context.Context, key string) error {
	ctx, cancel := s.store.withTimeout(ctx)
	defer cancel()

	if _, err := s.store.db.ExecContext(ctx, `DELETE FROM cart_snapshots WHERE storage_key = $1`, key); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *SnapshotStorage) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// DeleteExpired удаляет до limit снимков, истёкших к моменту before.
func (s *SnapshotStorage) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = s.now()
	}
	if limit <= 0 {
		limit = 500
	}

	ctx, cancel := s.store.withTimeout(ctx)
	defer cancel()

	res, err := s.store.db.ExecContext(ctx, `
		DELETE FROM cart_snapshots
		WHERE storage_key IN (
			SELECT storage_key
			FROM cart_snapshots
			WHERE expires_at IS NOT NULL AND expires_at <= $1
			ORDER BY expires_at
			LIMIT $2
		)
	`, before, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired cart snapshots: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for expired cart snapshots: %w", err)
	}
	return int(affected), nil
}

var (
	_ domain.SnapshotStorage = (*SnapshotStorage)(nil)
	_ domain.SnapshotSweeper = (*SnapshotStorage)(nil)
)
