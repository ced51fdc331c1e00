// Package sqlite хранит снимки корзин в локальном файле SQLite
// (драйвер modernc.org/sqlite, без cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

const schemaDDL = `
CREATE TABLE IF NOT EXISTS cart_snapshots (
    storage_key TEXT PRIMARY KEY,
    payload TEXT NOT NULL,
    expires_at INTEGER,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cart_snapshots_expires_at ON cart_snapshots (expires_at);
`

// SnapshotStorage — SQLite-реализация SnapshotStorage. Время хранится в
// миллисекундах UTC.
type SnapshotStorage struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// Open открывает (или создаёт) файл базы и таблицу снимков.
// Путь ":memory:" открывает базу в памяти.
func Open(ctx context.Context, path string, ttl time.Duration) (*SnapshotStorage, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("%w: sqlite path is required", domain.ErrInvalidArgument)
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Одно соединение: запись в SQLite всё равно сериализуется,
	// а ":memory:" живёт только внутри соединения.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &SnapshotStorage{
		db:  db,
		ttl: ttl,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Get возвращает снимок, если он есть и не просрочен.
func (s *SnapshotStorage) Get(ctx context.Context, key string) (string, bool, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT payload
		FROM cart_snapshots
		WHERE storage_key = ?
		  AND (expires_at IS NULL OR expires_at > ?)`,
		key, toMillis(s.now()),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get cart snapshot: %w", err)
	}
	return payload, true, nil
}

// Set сохраняет снимок (upsert).
func (s *SnapshotStorage) Set(ctx context.Context, key, value string) error {
	now := s.now()
	var expiresAt sql.NullInt64
	if s.ttl > 0 {
		expiresAt = sql.NullInt64{Int64: toMillis(now.Add(s.ttl)), Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO cart_snapshots (storage_key, payload, expires_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (storage_key) DO UPDATE SET
		    payload = excluded.payload,
		    expires_at = excluded.expires_at,
		    updated_at = excluded.updated_at`,
		key, value, expiresAt, toMillis(now),
	); err != nil {
		return fmt.Errorf("set cart snapshot: %w", err)
	}
	return nil
}

// Delete удаляет снимок.
func (s *SnapshotStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_snapshots WHERE storage_key = ?`, key); err != nil {
		return fmt.Errorf("delete cart snapshot: %w", err)
	}
	return nil
}

// Ping проверяет доступность базы.
func (s *SnapshotStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// DeleteExpired удаляет до limit истёкших снимков.
func (s *SnapshotStorage) DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error) {
	if before.IsZero() {
		before = s.now()
	}
	if limit <= 0 {
		limit = 500
	}

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cart_snapshots
		WHERE storage_key IN (
			SELECT storage_key FROM cart_snapshots
			WHERE expires_at IS NOT NULL AND expires_at <= ?
			ORDER BY expires_at
			LIMIT ?
		)`,
		toMillis(before), limit,
	)
	if err != nil {
		return 0, fmt.Errorf("delete expired cart snapshots: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for expired cart snapshots: %w", err)
	}
	return int(affected), nil
}

// Close закрывает базу.
func (s *SnapshotStorage) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

var (
	_ domain.SnapshotStorage = (*SnapshotStorage)(nil)
	_ domain.SnapshotSweeper = (*SnapshotStorage)(nil)
)
