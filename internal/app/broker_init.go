package app

import (
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
	"github.com/vladislavdragonenkov/indiakart/internal/messaging"
	"github.com/vladislavdragonenkov/indiakart/internal/messaging/amqp"
	"github.com/vladislavdragonenkov/indiakart/internal/messaging/kafka"
)

var errUnsupportedBroker = errors.New("unsupported events broker")

// eventPublishers — куда outbox worker отправляет события витрины.
type eventPublishers struct {
	publisher domain.OutboxPublisher
	dlq       domain.OutboxPublisher
	closeFn   func() error
}

func (p eventPublishers) close(logger *log.Entry) {
	if p.closeFn == nil {
		return
	}
	if err := p.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close events broker")
		return
	}
	logger.Info("events broker closed")
}

// initPublishers подключает брокер событий. Недоступный брокер не мешает
// запуску: события пишутся в лог, как без брокера. Ошибка только для
// неизвестного брокера.
func initPublishers(cfg Config, logger *log.Entry) (eventPublishers, error) {
	broker := strings.ToLower(strings.TrimSpace(cfg.EventsBroker))
	fallback := eventPublishers{publisher: messaging.NewLogPublisher(logger.WithField("layer", "events"))}

	switch broker {
	case "", BrokerNone:
		return fallback, nil

	case BrokerKafka:
		producer, err := initKafkaProducer(cfg.KafkaBrokers, logger)
		if err != nil {
			return fallback, nil
		}
		if producer == nil {
			logger.Warn("kafka broker selected without brokers, continuing without kafka")
			return fallback, nil
		}
		return eventPublishers{
			publisher: kafka.NewOutboxPublisher(producer, cfg.KafkaTopic),
			dlq:       kafka.NewDLQPublisher(producer),
			closeFn:   producer.Close,
		}, nil

	case BrokerAMQP:
		publisher, err := amqp.Dial(cfg.AMQPURL, cfg.AMQPQueue, amqp.WithLogger(logger.WithField("layer", "amqp")))
		if err != nil {
			logger.WithError(err).Warn("failed to connect to amqp broker, continuing without broker")
			return fallback, nil
		}
		logger.WithField("queue", publisher.Queue()).Info("amqp publisher initialized")
		return eventPublishers{publisher: publisher, closeFn: publisher.Close}, nil

	default:
		return eventPublishers{}, fmt.Errorf("%w: %q", errUnsupportedBroker, cfg.EventsBroker)
	}
}

// initKafkaProducer создаёт producer, если список brokers не пуст.
// Возвращает nil, nil для пустого списка.
func initKafkaProducer(brokers []string, logger *log.Entry) (*kafka.Producer, error) {
	brokerList := make([]string, 0, len(brokers))
	for _, broker := range brokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokerList = append(brokerList, broker)
		}
	}
	if len(brokerList) == 0 {
		return nil, nil
	}

	producer, err := kafka.NewProducer(brokerList, logger.WithField("layer", "kafka"))
	if err != nil {
		logger.WithError(err).Warn("failed to create kafka producer, continuing without kafka")
		return nil, err
	}

	logger.WithField("brokers", brokerList).Info("kafka producer initialized")
	return producer, nil
}
