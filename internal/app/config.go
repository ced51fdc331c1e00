package app

import (
	"time"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
	"github.com/vladislavdragonenkov/indiakart/internal/messaging/amqp"
	"github.com/vladislavdragonenkov/indiakart/internal/messaging/kafka"
)

// ServiceName — имя сервиса в логах и трассировке.
const ServiceName = "indiakart-storefront"

// Хранилища снимков корзины.
const (
	StorageDriverMemory   = "memory"
	StorageDriverRedis    = "redis"
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"
)

// Брокеры событий витрины.
const (
	BrokerNone  = "none"
	BrokerKafka = "kafka"
	BrokerAMQP  = "amqp"
)

// Окружения запуска.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config описывает настройки запуска витрины.
type Config struct {
	HTTPAddr    string
	GRPCAddr    string
	MetricsAddr string
	Environment string
	LogLevel    string

	StorageDriver       string
	RedisAddr           string
	PostgresDSN         string
	PostgresAutoMigrate bool
	SQLitePath          string
	SessionTTL          time.Duration

	CartAddPolicy domain.AddPolicy
	Pricing       domain.PricingPolicy

	EventsBroker       string
	KafkaBrokers       []string
	KafkaTopic         string
	AMQPURL            string
	AMQPQueue          string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
	OutboxMaxAttempts  int
	OutboxRetryDelay   time.Duration
	OutboxRetention    time.Duration

	SweepInterval  time.Duration
	SweepBatchSize int

	OTelEndpoint string
}

// DefaultConfig возвращает настройки для локального запуска: память,
// без брокера, без трассировки.
func DefaultConfig() Config {
	return Config{
		HTTPAddr:            ":3000",
		GRPCAddr:            ":50051",
		MetricsAddr:         ":9090",
		Environment:         EnvDevelopment,
		LogLevel:            "info",
		StorageDriver:       StorageDriverMemory,
		RedisAddr:           "localhost:6379",
		PostgresAutoMigrate: true,
		SQLitePath:          "indiakart.db",
		SessionTTL:          30 * 24 * time.Hour,
		CartAddPolicy:       domain.AddPolicyMerge,
		Pricing:             domain.DefaultPricingPolicy(),
		EventsBroker:        BrokerNone,
		KafkaTopic:          kafka.TopicStorefrontEvents,
		AMQPQueue:           amqp.DefaultQueue,
		OutboxPollInterval:  time.Second,
		OutboxBatchSize:     100,
		OutboxMaxAttempts:   3,
		OutboxRetryDelay:    50 * time.Millisecond,
		OutboxRetention:     7 * 24 * time.Hour,
		SweepInterval:       10 * time.Minute,
		SweepBatchSize:      500,
	}
}

// Development сообщает, включён ли режим разработки.
func (c Config) Development() bool {
	return c.Environment != EnvProduction
}
