package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

const defaultOutboxPullLimit = 100

const (
	insertOutboxSQL = `
		INSERT INTO outbox_messages (id, aggregate_type, aggregate_id, event_type, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)`

	// Порядок (created_at, id) совпадает с частичным индексом idx_outbox_messages_pending.
	selectPendingOutboxSQL = `
		SELECT id, aggregate_type, aggregate_id, event_type, payload
		FROM outbox_messages
		WHERE status = 'pending'
		ORDER BY created_at, id
		LIMIT $1`

	outboxBacklogSQL = `
		SELECT count(*), min(created_at)
		FROM outbox_messages
		WHERE status = 'pending'`

	markOutboxSQL = `
		UPDATE outbox_messages
		SET status = $2, attempt_count = attempt_count + 1, updated_at = $3
		WHERE id = $1`

	deletePublishedOutboxSQL = `
		DELETE FROM outbox_messages
		WHERE id IN (
			SELECT id FROM outbox_messages
			WHERE status = 'sent' AND updated_at < $1
			ORDER BY updated_at
			LIMIT $2
		)`
)

// OutboxRepository хранит события витрины в таблице outbox_messages.
type OutboxRepository struct {
	store *Store
	now   func() time.Time
}

// NewOutboxRepository создаёт PostgreSQL-реализацию outbox.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Enqueue сохраняет событие со статусом pending. Пустой payload хранится как {}.
func (r *OutboxRepository) Enqueue(msg domain.OutboxMessage) (domain.OutboxMessage, error) {
	ctx, cancel := r.store.withTimeout(context.Background())
	defer cancel()

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if len(msg.Payload) == 0 {
		msg.Payload = []byte("{}")
	}

	_, err := r.store.db.ExecContext(ctx, insertOutboxSQL,
		msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, r.now())
	if err != nil {
		return domain.OutboxMessage{}, fmt.Errorf("enqueue %s event: %w", msg.EventType, err)
	}
	return msg, nil
}

// PullPending возвращает до limit pending-событий в порядке постановки.
func (r *OutboxRepository) PullPending(limit int) ([]domain.OutboxMessage, error) {
	ctx, cancel := r.store.withTimeout(context.Background())
	defer cancel()

	if limit <= 0 {
		limit = defaultOutboxPullLimit
	}

	rows, err := r.store.db.QueryContext(ctx, selectPendingOutboxSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("pull pending outbox: %w", err)
	}
	defer rows.Close()

	var batch []domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		if err := rows.Scan(&msg.ID, &msg.AggregateType, &msg.AggregateID, &msg.EventType, &msg.Payload); err != nil {
			return nil, fmt.Errorf("scan outbox row: %w", err)
		}
		batch = append(batch, msg)
	}
	return batch, rows.Err()
}

// Stats возвращает размер backlog.
func (r *OutboxRepository) Stats() (domain.OutboxStats, error) {
	ctx, cancel := r.store.withTimeout(context.Background())
	defer cancel()

	var (
		stats  domain.OutboxStats
		oldest sql.NullTime
	)
	if err := r.store.db.QueryRowContext(ctx, outboxBacklogSQL).Scan(&stats.PendingCount, &oldest); err != nil {
		return domain.OutboxStats{}, fmt.Errorf("outbox backlog: %w", err)
	}
	if oldest.Valid {
		stats.OldestPendingAt = oldest.Time.UTC()
	}
	return stats, nil
}

// MarkSent помечает событие опубликованным.
func (r *OutboxRepository) MarkSent(id string) error {
	return r.mark(id, "sent")
}

// MarkFailed помечает событие, исчерпавшее попытки.
func (r *OutboxRepository) MarkFailed(id string) error {
	return r.mark(id, "failed")
}

func (r *OutboxRepository) mark(id, status string) error {
	ctx, cancel := r.store.withTimeout(context.Background())
	defer cancel()

	res, err := r.store.db.ExecContext(ctx, markOutboxSQL, id, status, r.now())
	if err != nil {
		return fmt.Errorf("mark outbox %s as %s: %w", id, status, err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		return domain.ErrOutboxMessageNotFound
	}
	return nil
}

// DeletePublished удаляет до limit опубликованных событий старше before.
func (r *OutboxRepository) DeletePublished(ctx context.Context, before time.Time, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	res, err := r.store.db.ExecContext(ctx, deletePublishedOutboxSQL, before.UTC(), limit)
	if err != nil {
		return 0, fmt.Errorf("prune published outbox: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

var (
	_ domain.OutboxRepository = (*OutboxRepository)(nil)
	_ domain.OutboxPruner     = (*OutboxRepository)(nil)
)
