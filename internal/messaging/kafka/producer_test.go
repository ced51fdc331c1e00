package kafka

import (
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_Send(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		if msg.Topic != TopicStorefrontEvents {
			t.Errorf("unexpected topic %s", msg.Topic)
		}
		if len(msg.Headers) != 1 || string(msg.Headers[0].Key) != HeaderEventType {
			t.Errorf("unexpected headers %v", msg.Headers)
		}
		return nil
	})

	producer := newProducer(mockProducer, log.WithField("component", "kafka-producer-test"))
	if err := producer.Send(TopicStorefrontEvents, "AB12CD34", []byte(`{}`), map[string]string{HeaderEventType: "checkout.completed"}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_SendError(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)
	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	producer := newProducer(mockProducer, nil)
	if err := producer.Send(TopicStorefrontEvents, "k", []byte(`{}`), nil); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewConfig(t *testing.T) {
	config := NewConfig("test-client")
	if !config.Producer.Idempotent || config.Net.MaxOpenRequests != 1 {
		t.Fatal("producer must be idempotent with a single in-flight request")
	}
	if config.Producer.RequiredAcks != sarama.WaitForAll {
		t.Fatalf("unexpected acks %v", config.Producer.RequiredAcks)
	}
	if err := config.Validate(); err != nil {
		t.Fatalf("config must be valid: %v", err)
	}
}

func TestNewProducer_NoBrokers(t *testing.T) {
	if _, err := NewProducer(nil, nil); err == nil {
		t.Fatal("expected error without brokers")
	}
}
