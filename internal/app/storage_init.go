package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/indiakart/internal/health"
	"github.com/vladislavdragonenkov/indiakart/internal/storage/memory"
	"github.com/vladislavdragonenkov/indiakart/internal/storage/postgres"
	redisstore "github.com/vladislavdragonenkov/indiakart/internal/storage/redis"
	"github.com/vladislavdragonenkov/indiakart/internal/storage/sqlite"
)

var errUnsupportedStorageDriver = errors.New("unsupported storage driver")

// runtimeDependencies — хранилища, выбранные по StorageDriver.
type runtimeDependencies struct {
	snapshots      domain.SnapshotStorage
	sweeper        domain.SnapshotSweeper
	outboxRepo     domain.OutboxRepository
	storageChecker healthcheck.Checker
	closeFn        func() error
}

func (d runtimeDependencies) close(logger *log.Entry) {
	if d.closeFn == nil {
		return
	}
	if err := d.closeFn(); err != nil {
		logger.WithError(err).Warn("failed to close storage")
	}
}

// initRuntimeDependencies открывает хранилище снимков и outbox.
// Outbox хранится в Postgres только для драйвера postgres, иначе в памяти.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (runtimeDependencies, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.StorageDriver))
	if driver == "" {
		driver = StorageDriverMemory
	}
	logger = logger.WithField("storage_driver", driver)

	switch driver {
	case StorageDriverMemory:
		snapshots := memory.NewSnapshotStorage(cfg.SessionTTL)
		logger.Info("using in-memory snapshot storage")
		return runtimeDependencies{
			snapshots:      snapshots,
			sweeper:        snapshots,
			outboxRepo:     memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewPingChecker("storage", snapshots, 0),
		}, nil

	case StorageDriverRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return runtimeDependencies{}, errors.New("redis address is required for redis storage driver")
		}
		snapshots := redisstore.NewSnapshotStorage(redisstore.NewClient(cfg.RedisAddr), cfg.SessionTTL)
		if err := snapshots.Ping(ctx); err != nil {
			_ = snapshots.Close()
			return runtimeDependencies{}, fmt.Errorf("connect redis: %w", err)
		}
		logger.WithField("redis_addr", cfg.RedisAddr).Info("using redis snapshot storage")
		// Истечение ключей делает Redis: sweeper не нужен.
		return runtimeDependencies{
			snapshots:      snapshots,
			outboxRepo:     memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewPingChecker("storage", snapshots, 0),
			closeFn:        snapshots.Close,
		}, nil

	case StorageDriverPostgres:
		dsn := strings.TrimSpace(cfg.PostgresDSN)
		if dsn == "" {
			return runtimeDependencies{}, errors.New("postgres dsn is required for postgres storage driver")
		}
		store, err := postgres.Open(ctx, dsn)
		if err != nil {
			return runtimeDependencies{}, err
		}
		if cfg.PostgresAutoMigrate {
			if err := store.EnsureSchema(ctx); err != nil {
				_ = store.Close()
				return runtimeDependencies{}, fmt.Errorf("apply postgres migrations: %w", err)
			}
		}
		snapshots := postgres.NewSnapshotStorage(store, cfg.SessionTTL)
		logger.Info("using postgres snapshot storage and outbox")
		return runtimeDependencies{
			snapshots:      snapshots,
			sweeper:        snapshots,
			outboxRepo:     postgres.NewOutboxRepository(store),
			storageChecker: healthcheck.NewPingChecker("storage", store, 0),
			closeFn:        store.Close,
		}, nil

	case StorageDriverSQLite:
		snapshots, err := sqlite.Open(ctx, cfg.SQLitePath, cfg.SessionTTL)
		if err != nil {
			return runtimeDependencies{}, err
		}
		logger.WithField("sqlite_path", cfg.SQLitePath).Info("using sqlite snapshot storage")
		return runtimeDependencies{
			snapshots:      snapshots,
			sweeper:        snapshots,
			outboxRepo:     memory.NewOutboxRepository(),
			storageChecker: healthcheck.NewPingChecker("storage", snapshots, 0),
			closeFn:        snapshots.Close,
		}, nil

	default:
		return runtimeDependencies{}, fmt.Errorf("%w: %q", errUnsupportedStorageDriver, cfg.StorageDriver)
	}
}
