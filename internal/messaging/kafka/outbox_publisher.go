package kafka

import (
	"errors"
	"time"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
	"github.com/vladislavdragonenkov/indiakart/internal/messaging"
)

var errPublisherNotInitialized = errors.New("kafka outbox publisher is not initialized")

// OutboxTopicPublisher публикует outbox-сообщения в заданный Kafka topic.
type OutboxTopicPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт Kafka-паблишер для outbox.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxTopicPublisher {
	if topic == "" {
		topic = TopicStorefrontEvents
	}
	return &OutboxTopicPublisher{producer: producer, topic: topic}
}

// NewDLQPublisher создаёт паблишер в dead letter topic.
func NewDLQPublisher(producer *Producer) *OutboxTopicPublisher {
	return NewOutboxPublisher(producer, TopicDeadLetterQueue)
}

// Publish отправляет конверт события; ключ — агрегат для сохранения порядка.
func (p *OutboxTopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil || p.producer == nil {
		return errPublisherNotInitialized
	}

	envelope := messaging.NewEnvelope(event, time.Now())
	value, err := envelope.Marshal()
	if err != nil {
		return err
	}

	return p.producer.Send(p.topic, envelope.PartitionKey(), value, map[string]string{
		HeaderEventType: envelope.EventType,
	})
}

var _ domain.OutboxPublisher = (*OutboxTopicPublisher)(nil)
