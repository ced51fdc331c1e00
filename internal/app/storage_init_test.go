package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	healthcheck "github.com/vladislavdragonenkov/indiakart/internal/health"
)

func TestInitRuntimeDependencies_Memory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverMemory,
		SessionTTL:    time.Hour,
	}, log.WithField("test", "memory-storage"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(memory) failed: %v", err)
	}
	if deps.snapshots == nil {
		t.Fatal("snapshots should not be nil for memory storage")
	}
	if deps.sweeper == nil {
		t.Fatal("sweeper should not be nil for memory storage")
	}
	if deps.outboxRepo == nil {
		t.Fatal("outboxRepo should not be nil for memory storage")
	}
	if check := deps.storageChecker.Check(context.Background()); check.Status != healthcheck.StatusHealthy {
		t.Fatalf("expected healthy storage checker, got %+v", check)
	}
	deps.close(log.WithField("test", "memory-storage"))
}

func TestInitRuntimeDependencies_EmptyDriverMeansMemory(t *testing.T) {
	t.Parallel()

	deps, err := initRuntimeDependencies(context.Background(), Config{}, log.WithField("test", "empty-driver"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(empty) failed: %v", err)
	}
	if deps.snapshots == nil || deps.outboxRepo == nil {
		t.Fatalf("memory dependencies must be initialized: %+v", deps)
	}
}

func TestInitRuntimeDependencies_SQLite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cart.db")
	deps, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverSQLite,
		SQLitePath:    path,
		SessionTTL:    time.Hour,
	}, log.WithField("test", "sqlite-storage"))
	if err != nil {
		t.Fatalf("initRuntimeDependencies(sqlite) failed: %v", err)
	}
	defer deps.close(log.WithField("test", "sqlite-storage"))

	if deps.sweeper == nil {
		t.Fatal("sqlite storage must support sweeping")
	}
	if err := deps.snapshots.Set(context.Background(), "s1:indiakart_cart", "[]"); err != nil {
		t.Fatalf("set snapshot: %v", err)
	}
	if check := deps.storageChecker.Check(context.Background()); check.Status != healthcheck.StatusHealthy {
		t.Fatalf("expected healthy storage checker, got %+v", check)
	}
}

func TestInitRuntimeDependencies_PostgresRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverPostgres,
	}, log.WithField("test", "postgres-missing-dsn"))
	if err == nil {
		t.Fatal("expected error when postgres driver is selected without DSN")
	}
}

func TestInitRuntimeDependencies_RedisRequiresAddr(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: StorageDriverRedis,
	}, log.WithField("test", "redis-missing-addr"))
	if err == nil {
		t.Fatal("expected error when redis driver is selected without address")
	}
}

func TestInitRuntimeDependencies_UnsupportedDriver(t *testing.T) {
	t.Parallel()

	_, err := initRuntimeDependencies(context.Background(), Config{
		StorageDriver: "mongodb",
	}, log.WithField("test", "unsupported-driver"))
	if !errors.Is(err, errUnsupportedStorageDriver) {
		t.Fatalf("expected unsupported storage driver error, got %v", err)
	}
}

func TestInitRuntimeDependencies_PostgresSuccess(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("SHOP_POSTGRES_TEST_DSN"))
	if dsn == "" {
		t.Skip("postgres dsn is not available")
	}

	cfg := DefaultConfig()
	cfg.StorageDriver = StorageDriverPostgres
	cfg.PostgresDSN = dsn
	cfg.PostgresAutoMigrate = true

	deps, err := initRuntimeDependencies(context.Background(), cfg, log.WithField("test", "postgres-init"))
	if err != nil {
		t.Skipf("postgres is not available for app integration test: %v", err)
	}
	defer deps.close(log.WithField("test", "postgres-init"))

	if deps.snapshots == nil || deps.outboxRepo == nil || deps.sweeper == nil {
		t.Fatalf("postgres dependencies must be initialized: %+v", deps)
	}
	check := deps.storageChecker.Check(context.Background())
	if check.Status != healthcheck.StatusHealthy {
		t.Fatalf("expected healthy storage checker, got %+v", check)
	}
}
