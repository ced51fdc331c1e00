// Package amqp публикует события витрины в очередь RabbitMQ.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
	"github.com/vladislavdragonenkov/indiakart/internal/messaging"
)

// DefaultQueue — очередь событий витрины по умолчанию.
const DefaultQueue = "indiakart.storefront.events"

const defaultPublishTimeout = 5 * time.Second

var errPublisherClosed = errors.New("amqp publisher is closed")

// channel — часть *amqp.Channel, которой пользуется publisher.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// PublisherOptions настраивает Publisher.
type PublisherOptions struct {
	Logger         *log.Entry
	PublishTimeout time.Duration
}

// Option модифицирует PublisherOptions.
type Option func(*PublisherOptions)

// WithLogger задаёт логгер.
func WithLogger(logger *log.Entry) Option {
	return func(o *PublisherOptions) {
		o.Logger = logger
	}
}

// WithPublishTimeout ограничивает время одной публикации.
func WithPublishTimeout(timeout time.Duration) Option {
	return func(o *PublisherOptions) {
		if timeout > 0 {
			o.PublishTimeout = timeout
		}
	}
}

// Publisher пишет конверты событий в durable-очередь persistent-сообщениями.
type Publisher struct {
	conn    *amqp.Connection
	ch      channel
	queue   string
	timeout time.Duration
	logger  *log.Entry
}

// Dial подключается к брокеру, открывает канал и объявляет очередь.
func Dial(url, queue string, opts ...Option) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	publisher, err := newPublisher(ch, queue, opts...)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	publisher.conn = conn
	return publisher, nil
}

func newPublisher(ch channel, queue string, opts ...Option) (*Publisher, error) {
	options := PublisherOptions{PublishTimeout: defaultPublishTimeout}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = log.WithField("component", "amqp-publisher")
	}
	if queue == "" {
		queue = DefaultQueue
	}

	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &Publisher{
		ch:      ch,
		queue:   q.Name,
		timeout: options.PublishTimeout,
		logger:  options.Logger.WithField("queue", q.Name),
	}, nil
}

// Queue возвращает имя объявленной очереди.
func (p *Publisher) Queue() string {
	return p.queue
}

// Publish отправляет событие через default exchange в очередь.
func (p *Publisher) Publish(msg domain.OutboxMessage) error {
	if p == nil || p.ch == nil {
		return errPublisherClosed
	}

	envelope := messaging.NewEnvelope(msg, time.Now())
	body, err := envelope.Marshal()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	err = p.ch.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    envelope.ID,
			Type:         envelope.EventType,
			Timestamp:    envelope.PublishedAt,
			Body:         body,
		})
	if err != nil {
		p.logger.WithError(err).WithField("outbox_id", envelope.ID).Error("failed to publish event to rabbitmq")
		return fmt.Errorf("publish %s: %w", envelope.ID, err)
	}

	p.logger.WithFields(log.Fields{
		"outbox_id":  envelope.ID,
		"event_type": envelope.EventType,
	}).Debug("event published to rabbitmq")
	return nil
}

// Close закрывает канал и соединение.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.ch != nil {
		errs = append(errs, p.ch.Close())
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
		p.conn = nil
	}
	return errors.Join(errs...)
}

var _ domain.OutboxPublisher = (*Publisher)(nil)
