package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

func TestOutboxRepository_PostgresFlow(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewOutboxRepository(store)

	first, err := repo.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateCart,
		AggregateID:   "AB12CD34",
		EventType:     domain.EventCheckoutCompleted,
		Payload:       []byte(`{"order_reference":"AB12CD34"}`),
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if first.ID == "" {
		t.Fatal("expected generated id for outbox message")
	}

	second, err := repo.Enqueue(domain.OutboxMessage{
		ID:            "newsletter-1",
		AggregateType: domain.AggregateNewsletter,
		AggregateID:   "a@b.in",
		EventType:     domain.EventNewsletterSubscribed,
	})
	if err != nil {
		t.Fatalf("enqueue with id: %v", err)
	}

	pending, err := repo.PullPending(0)
	if err != nil {
		t.Fatalf("pull pending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending messages, got %d", len(pending))
	}

	stats, err := repo.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.PendingCount != 2 || stats.OldestPendingAt.IsZero() {
		t.Fatalf("unexpected stats %+v", stats)
	}

	if err := repo.MarkSent(first.ID); err != nil {
		t.Fatalf("mark sent: %v", err)
	}
	if err := repo.MarkFailed(second.ID); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	if err := repo.MarkSent("missing"); !errors.Is(err, domain.ErrOutboxMessageNotFound) {
		t.Fatalf("expected ErrOutboxMessageNotFound, got %v", err)
	}

	pending, err = repo.PullPending(10)
	if err != nil {
		t.Fatalf("pull pending after marks: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected no pending messages, got %d", len(pending))
	}
}

func TestOutboxRepository_DeletePublishedKeepsUnsent(t *testing.T) {
	store := openMigratedStore(t)
	repo := NewOutboxRepository(store)
	ctx := context.Background()

	ids := make([]string, 0, 4)
	for _, ref := range []string{"A1", "A2", "A3", "A4"} {
		msg, err := repo.Enqueue(domain.OutboxMessage{
			AggregateType: domain.AggregateCart,
			AggregateID:   ref,
			EventType:     domain.EventCheckoutCompleted,
		})
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}
	require.NoError(t, repo.MarkSent(ids[0]))
	require.NoError(t, repo.MarkSent(ids[1]))
	require.NoError(t, repo.MarkFailed(ids[2]))

	deleted, err := repo.DeletePublished(ctx, time.Now().Add(time.Minute), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	deleted, err = repo.DeletePublished(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)

	var left int
	require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT count(*) FROM outbox_messages`).Scan(&left))
	assert.Equal(t, 2, left)

	stats, err := repo.Stats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
}
