// Package sweeper удаляет просроченные снимки корзин из хранилищ, которые
// не умеют делать это сами (memory, postgres, sqlite), и чистит
// опубликованные события outbox старше срока хранения.
package sweeper

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

const (
	defaultInterval  = 10 * time.Minute
	defaultBatchSize = 500
)

// Observer получает итог каждого прохода.
type Observer interface {
	ObserveSweep(deleted int, err error)
}

// Options задаёт параметры Sweeper.
type Options struct {
	Logger    *log.Entry
	Observer  Observer
	Interval  time.Duration
	BatchSize int
	Clock     func() time.Time

	Outbox          domain.OutboxPruner
	OutboxRetention time.Duration
}

// Option настраивает Sweeper.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithObserver подключает метрики.
func WithObserver(observer Observer) Option {
	return func(opts *Options) {
		opts.Observer = observer
	}
}

// WithInterval задаёт интервал между проходами.
func WithInterval(interval time.Duration) Option {
	return func(opts *Options) {
		opts.Interval = interval
	}
}

// WithBatchSize задаёт размер одной порции удаления.
func WithBatchSize(batchSize int) Option {
	return func(opts *Options) {
		opts.BatchSize = batchSize
	}
}

// WithOutboxRetention включает удаление sent-событий outbox старше retention.
// retention <= 0 отключает очистку.
func WithOutboxRetention(pruner domain.OutboxPruner, retention time.Duration) Option {
	return func(opts *Options) {
		opts.Outbox = pruner
		opts.OutboxRetention = retention
	}
}

// WithClock подменяет источник времени.
func WithClock(clock func() time.Time) Option {
	return func(opts *Options) {
		opts.Clock = clock
	}
}

// Sweeper периодически вызывает DeleteExpired у хранилища снимков и
// DeletePublished у outbox.
type Sweeper struct {
	storage   domain.SnapshotSweeper
	outbox    domain.OutboxPruner
	retention time.Duration
	logger    *log.Entry
	observer  Observer
	interval  time.Duration
	batchSize int
	clock     func() time.Time
}

// New создаёт Sweeper. storage == nil означает, что хранилище само
// управляет сроком жизни (redis). Если вдобавок не задан outbox, Run сразу
// возвращается.
func New(storage domain.SnapshotSweeper, options ...Option) *Sweeper {
	opts := Options{
		Interval:  defaultInterval,
		BatchSize: defaultBatchSize,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "snapshot-sweeper")
	}
	if opts.Interval <= 0 {
		opts.Interval = defaultInterval
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = defaultBatchSize
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.OutboxRetention <= 0 {
		opts.Outbox = nil
	}

	return &Sweeper{
		storage:   storage,
		outbox:    opts.Outbox,
		retention: opts.OutboxRetention,
		logger:    logger,
		observer:  opts.Observer,
		interval:  opts.Interval,
		batchSize: opts.BatchSize,
		clock:     opts.Clock,
	}
}

// Run выполняет проходы до отмены ctx.
func (s *Sweeper) Run(ctx context.Context) {
	if s.storage == nil && s.outbox == nil {
		s.logger.Debug("sweeper is disabled: nothing to clean up")
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if s.storage != nil {
		deleted, err := s.Sweep(ctx)
		if errors.Is(err, context.Canceled) {
			return
		}
		if s.observer != nil {
			s.observer.ObserveSweep(deleted, err)
		}
		switch {
		case err != nil:
			s.logger.WithError(err).Warn("snapshot sweep failed")
		case deleted > 0:
			s.logger.WithField("deleted", deleted).Info("expired cart snapshots removed")
		}
	}

	if s.outbox != nil {
		pruned, err := s.PruneOutbox(ctx)
		switch {
		case errors.Is(err, context.Canceled):
		case err != nil:
			s.logger.WithError(err).Warn("outbox prune failed")
		case pruned > 0:
			s.logger.WithField("deleted", pruned).Info("published outbox events removed")
		}
	}
}

// Sweep удаляет все снимки, просроченные к текущему моменту, порциями.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.storage == nil {
		return 0, nil
	}
	return s.drain(ctx, s.clock().UTC(), s.storage.DeleteExpired)
}

// PruneOutbox удаляет sent-события, обновлённые раньше now-retention.
func (s *Sweeper) PruneOutbox(ctx context.Context) (int, error) {
	if s.outbox == nil {
		return 0, nil
	}
	return s.drain(ctx, s.clock().UTC().Add(-s.retention), s.outbox.DeletePublished)
}

// drain повторяет удаление порциями, пока порция не окажется неполной.
func (s *Sweeper) drain(ctx context.Context, before time.Time, deleteBatch func(context.Context, time.Time, int) (int, error)) (int, error) {
	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		deleted, err := deleteBatch(ctx, before, s.batchSize)
		if err != nil {
			return total, err
		}
		total += deleted

		if deleted < s.batchSize {
			return total, nil
		}
	}
}
