package main

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/indiakart/internal/app"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

const (
	envHTTPAddr              = "SHOP_HTTP_ADDR"
	envGRPCAddr              = "SHOP_GRPC_ADDR"
	envMetricsAddr           = "SHOP_METRICS_ADDR"
	envEnvironment           = "SHOP_ENV"
	envLogLevel              = "SHOP_LOG_LEVEL"
	envStorageDriver         = "SHOP_STORAGE_DRIVER"
	envRedisAddr             = "SHOP_REDIS_ADDR"
	envPostgresDSN           = "SHOP_POSTGRES_DSN"
	envPostgresAutoMigrate   = "SHOP_POSTGRES_AUTO_MIGRATE"
	envSQLitePath            = "SHOP_SQLITE_PATH"
	envSessionTTL            = "SHOP_SESSION_TTL"
	envCartAddPolicy         = "SHOP_CART_ADD_POLICY"
	envTaxRate               = "SHOP_TAX_RATE"
	envFreeShippingThreshold = "SHOP_FREE_SHIPPING_THRESHOLD"
	envFlatShippingFee       = "SHOP_FLAT_SHIPPING_FEE"
	envEventsBroker          = "SHOP_EVENTS_BROKER"
	envKafkaBrokers          = "SHOP_KAFKA_BROKERS"
	envKafkaTopic            = "SHOP_KAFKA_TOPIC"
	envAMQPURL               = "SHOP_AMQP_URL"
	envAMQPQueue             = "SHOP_AMQP_QUEUE"
	envOutboxPollInterval    = "SHOP_OUTBOX_POLL_INTERVAL"
	envOutboxBatchSize       = "SHOP_OUTBOX_BATCH_SIZE"
	envOutboxMaxAttempts     = "SHOP_OUTBOX_MAX_ATTEMPTS"
	envOutboxRetryDelay      = "SHOP_OUTBOX_RETRY_DELAY"
	envOutboxRetention       = "SHOP_OUTBOX_RETENTION"
	envSweepInterval         = "SHOP_SWEEP_INTERVAL"
	envSweepBatchSize        = "SHOP_SWEEP_BATCH_SIZE"
	envOTelEndpoint          = "SHOP_OTEL_ENDPOINT"
)

var envKeys = []string{
	envHTTPAddr, envGRPCAddr, envMetricsAddr, envEnvironment, envLogLevel,
	envStorageDriver, envRedisAddr, envPostgresDSN, envPostgresAutoMigrate, envSQLitePath,
	envSessionTTL, envCartAddPolicy, envTaxRate, envFreeShippingThreshold, envFlatShippingFee,
	envEventsBroker, envKafkaBrokers, envKafkaTopic, envAMQPURL, envAMQPQueue,
	envOutboxPollInterval, envOutboxBatchSize, envOutboxMaxAttempts, envOutboxRetryDelay,
	envOutboxRetention, envSweepInterval, envSweepBatchSize, envOTelEndpoint,
}

// Типы с собственными правилами разбора, см. envParsers.
type (
	environmentName     string
	storageDriver       string
	eventsBroker        string
	logLevel            string
	switchFlag          bool
	positiveInt         int
	positiveDuration    time.Duration
	nonNegativeDuration time.Duration
	nonNegativeDecimal  decimal.Decimal
)

// envConfig — настройки окружения. Значения по умолчанию совпадают с
// app.DefaultConfig.
type envConfig struct {
	HTTPAddr              string              `env:"SHOP_HTTP_ADDR"               envDefault:":3000"`
	GRPCAddr              string              `env:"SHOP_GRPC_ADDR"               envDefault:":50051"`
	MetricsAddr           string              `env:"SHOP_METRICS_ADDR"            envDefault:":9090"`
	Environment           environmentName     `env:"SHOP_ENV"                     envDefault:"development"`
	LogLevel              logLevel            `env:"SHOP_LOG_LEVEL"               envDefault:"info"`
	StorageDriver         storageDriver       `env:"SHOP_STORAGE_DRIVER"          envDefault:"memory"`
	RedisAddr             string              `env:"SHOP_REDIS_ADDR"              envDefault:"localhost:6379"`
	PostgresDSN           string              `env:"SHOP_POSTGRES_DSN"`
	PostgresAutoMigrate   switchFlag          `env:"SHOP_POSTGRES_AUTO_MIGRATE"   envDefault:"true"`
	SQLitePath            string              `env:"SHOP_SQLITE_PATH"             envDefault:"indiakart.db"`
	SessionTTL            positiveDuration    `env:"SHOP_SESSION_TTL"             envDefault:"720h"`
	CartAddPolicy         domain.AddPolicy    `env:"SHOP_CART_ADD_POLICY"         envDefault:"merge"`
	TaxRate               nonNegativeDecimal  `env:"SHOP_TAX_RATE"                envDefault:"0.18"`
	FreeShippingThreshold nonNegativeDecimal  `env:"SHOP_FREE_SHIPPING_THRESHOLD" envDefault:"499"`
	FlatShippingFee       nonNegativeDecimal  `env:"SHOP_FLAT_SHIPPING_FEE"       envDefault:"49"`
	EventsBroker          eventsBroker        `env:"SHOP_EVENTS_BROKER"           envDefault:"none"`
	KafkaBrokers          []string            `env:"SHOP_KAFKA_BROKERS"           envSeparator:","`
	KafkaTopic            string              `env:"SHOP_KAFKA_TOPIC"             envDefault:"indiakart.storefront.events"`
	AMQPURL               string              `env:"SHOP_AMQP_URL"`
	AMQPQueue             string              `env:"SHOP_AMQP_QUEUE"              envDefault:"indiakart.storefront.events"`
	OutboxPollInterval    positiveDuration    `env:"SHOP_OUTBOX_POLL_INTERVAL"    envDefault:"1s"`
	OutboxBatchSize       positiveInt         `env:"SHOP_OUTBOX_BATCH_SIZE"       envDefault:"100"`
	OutboxMaxAttempts     positiveInt         `env:"SHOP_OUTBOX_MAX_ATTEMPTS"     envDefault:"3"`
	OutboxRetryDelay      nonNegativeDuration `env:"SHOP_OUTBOX_RETRY_DELAY"      envDefault:"50ms"`
	OutboxRetention       nonNegativeDuration `env:"SHOP_OUTBOX_RETENTION"        envDefault:"168h"`
	SweepInterval         positiveDuration    `env:"SHOP_SWEEP_INTERVAL"          envDefault:"10m"`
	SweepBatchSize        positiveInt         `env:"SHOP_SWEEP_BATCH_SIZE"        envDefault:"500"`
	OTelEndpoint          string              `env:"SHOP_OTEL_ENDPOINT"`
}

// envParsers разбирает и проверяет типизированные поля envConfig.
var envParsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(environmentName("")): func(v string) (any, error) {
		s, err := oneOf(v, app.EnvDevelopment, app.EnvProduction)
		return environmentName(s), err
	},
	reflect.TypeOf(storageDriver("")): func(v string) (any, error) {
		s, err := oneOf(v, app.StorageDriverMemory, app.StorageDriverRedis, app.StorageDriverPostgres, app.StorageDriverSQLite)
		return storageDriver(s), err
	},
	reflect.TypeOf(eventsBroker("")): func(v string) (any, error) {
		s, err := oneOf(v, app.BrokerNone, app.BrokerKafka, app.BrokerAMQP)
		return eventsBroker(s), err
	},
	reflect.TypeOf(logLevel("")): func(v string) (any, error) {
		level, err := log.ParseLevel(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		return logLevel(level.String()), nil
	},
	reflect.TypeOf(domain.AddPolicy("")): func(v string) (any, error) {
		return domain.ParseAddPolicy(v)
	},
	reflect.TypeOf(switchFlag(false)): func(v string) (any, error) {
		b, err := parseBool(v)
		return switchFlag(b), err
	},
	reflect.TypeOf(positiveInt(0)): func(v string) (any, error) {
		n, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		return positiveInt(n), err
	},
	reflect.TypeOf(positiveDuration(0)): func(v string) (any, error) {
		d, err := parseDuration(v, func(d time.Duration) bool { return d > 0 }, "must be > 0")
		return positiveDuration(d), err
	},
	reflect.TypeOf(nonNegativeDuration(0)): func(v string) (any, error) {
		d, err := parseDuration(v, func(d time.Duration) bool { return d >= 0 }, "must be >= 0")
		return nonNegativeDuration(d), err
	},
	reflect.TypeOf(nonNegativeDecimal{}): func(v string) (any, error) {
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, err
		}
		if d.IsNegative() {
			return nil, fmt.Errorf("must be >= 0")
		}
		return nonNegativeDecimal(d), nil
	},
}

// readConfigFromEnv читает конфигурацию из environ.
//
// Некорректное значение не прерывает запуск: оно попадает в предупреждения,
// а поле получает значение по умолчанию.
func readConfigFromEnv(environ map[string]string) (app.Config, []string) {
	var warnings []string
	accepted := make(map[string]string, len(envKeys))

	for _, key := range envKeys {
		value, ok := environ[key]
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		// каждое значение проверяем отдельно, чтобы ошибка указывала на ключ
		var single envConfig
		if err := parseEnv(&single, map[string]string{key: value}); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s=%q ignored: %v", key, value, err))
			continue
		}
		accepted[key] = value
	}

	var parsed envConfig
	if err := parseEnv(&parsed, accepted); err != nil {
		warnings = append(warnings, fmt.Sprintf("parse environment: %v", err))
		return app.DefaultConfig(), warnings
	}
	return parsed.config(), warnings
}

func parseEnv(dst *envConfig, environ map[string]string) error {
	return env.ParseWithOptions(dst, env.Options{
		Environment: environ,
		FuncMap:     envParsers,
	})
}

func (e envConfig) config() app.Config {
	cfg := app.DefaultConfig()

	cfg.HTTPAddr = strings.TrimSpace(e.HTTPAddr)
	cfg.GRPCAddr = strings.TrimSpace(e.GRPCAddr)
	cfg.MetricsAddr = strings.TrimSpace(e.MetricsAddr)
	cfg.Environment = string(e.Environment)
	cfg.LogLevel = string(e.LogLevel)

	cfg.StorageDriver = string(e.StorageDriver)
	cfg.RedisAddr = strings.TrimSpace(e.RedisAddr)
	cfg.PostgresDSN = strings.TrimSpace(e.PostgresDSN)
	cfg.PostgresAutoMigrate = bool(e.PostgresAutoMigrate)
	cfg.SQLitePath = strings.TrimSpace(e.SQLitePath)
	cfg.SessionTTL = time.Duration(e.SessionTTL)

	cfg.CartAddPolicy = e.CartAddPolicy
	cfg.Pricing = domain.PricingPolicy{
		TaxRate:               decimal.Decimal(e.TaxRate),
		FreeShippingThreshold: decimal.Decimal(e.FreeShippingThreshold),
		FlatShippingFee:       decimal.Decimal(e.FlatShippingFee),
	}

	cfg.EventsBroker = string(e.EventsBroker)
	cfg.KafkaBrokers = nil
	for _, broker := range e.KafkaBrokers {
		if broker = strings.TrimSpace(broker); broker != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, broker)
		}
	}
	cfg.KafkaTopic = strings.TrimSpace(e.KafkaTopic)
	cfg.AMQPURL = strings.TrimSpace(e.AMQPURL)
	cfg.AMQPQueue = strings.TrimSpace(e.AMQPQueue)
	cfg.OutboxPollInterval = time.Duration(e.OutboxPollInterval)
	cfg.OutboxBatchSize = int(e.OutboxBatchSize)
	cfg.OutboxMaxAttempts = int(e.OutboxMaxAttempts)
	cfg.OutboxRetryDelay = time.Duration(e.OutboxRetryDelay)
	cfg.OutboxRetention = time.Duration(e.OutboxRetention)

	cfg.SweepInterval = time.Duration(e.SweepInterval)
	cfg.SweepBatchSize = int(e.SweepBatchSize)

	cfg.OTelEndpoint = strings.TrimSpace(e.OTelEndpoint)
	return cfg
}

func oneOf(value string, allowed ...string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range allowed {
		if normalized == candidate {
			return normalized, nil
		}
	}
	return "", fmt.Errorf("must be one of %s", strings.Join(allowed, "|"))
}

func parseBool(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "y", "on":
		return true, nil
	case "0", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool value %q", value)
	}
}

func parseInt(value string, valid func(int) bool, rule string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(parsed) {
		return 0, fmt.Errorf("%s", rule)
	}
	return parsed, nil
}

func parseDuration(value string, valid func(time.Duration) bool, rule string) (time.Duration, error) {
	parsed, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, err
	}
	if valid != nil && !valid(parsed) {
		return 0, fmt.Errorf("%s", rule)
	}
	return parsed, nil
}
