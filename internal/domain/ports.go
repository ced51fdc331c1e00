package domain

import (
	"context"
	"time"
)

// SnapshotStorage — key/value хранилище снимков корзины в рамках сессии.
//
// Get возвращает found=false для отсутствующего или просроченного ключа.
type SnapshotStorage interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// SnapshotSweeper удаляет просроченные снимки порциями до limit записей.
type SnapshotSweeper interface {
	DeleteExpired(ctx context.Context, before time.Time, limit int) (int, error)
}

// OutboxPruner удаляет опубликованные (sent) сообщения outbox, обновлённые
// раньше before, порциями до limit записей. Pending и failed не трогает.
type OutboxPruner interface {
	DeletePublished(ctx context.Context, before time.Time, limit int) (int, error)
}

// Catalog — источник товаров для витрины и корзины.
type Catalog interface {
	Get(id int) (ProductRecord, error)
	List() []ProductRecord
}

// OutboxPublisher публикует события из outbox во внешний брокер.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные публикуемого события витрины.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
