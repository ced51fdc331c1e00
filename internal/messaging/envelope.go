// Package messaging содержит общий формат публикуемых событий витрины и
// publisher, который только пишет события в лог.
package messaging

import (
	"encoding/json"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

// Envelope — формат события на проводе, одинаковый для Kafka и AMQP.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает сообщение outbox. Пустой payload становится {}.
func NewEnvelope(msg domain.OutboxMessage, publishedAt time.Time) Envelope {
	payload := json.RawMessage(msg.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   publishedAt.UTC(),
	}
}

// Marshal сериализует конверт в JSON.
func (e Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event envelope %s: %w", e.ID, err)
	}
	return data, nil
}

// PartitionKey — ключ упорядочивания: агрегат, иначе id сообщения.
func (e Envelope) PartitionKey() string {
	if e.AggregateID != "" {
		return e.AggregateID
	}
	return e.ID
}

// LogPublisher пишет события в лог. Используется, когда брокер не настроен.
type LogPublisher struct {
	logger *log.Entry
}

// NewLogPublisher создаёт publisher без внешнего брокера.
func NewLogPublisher(logger *log.Entry) *LogPublisher {
	if logger == nil {
		logger = log.WithField("component", "log-publisher")
	}
	return &LogPublisher{logger: logger}
}

// Publish логирует событие на уровне info.
func (p *LogPublisher) Publish(msg domain.OutboxMessage) error {
	envelope := NewEnvelope(msg, time.Now())
	p.logger.WithFields(log.Fields{
		"outbox_id":    envelope.ID,
		"event_type":   envelope.EventType,
		"aggregate_id": envelope.AggregateID,
		"payload":      string(envelope.Payload),
	}).Info("storefront event")
	return nil
}

var _ domain.OutboxPublisher = (*LogPublisher)(nil)
