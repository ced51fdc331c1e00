package cart

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

const defaultLockStripes = 64

// ManagerOptions задаёт параметры Manager.
type ManagerOptions struct {
	Logger      *log.Entry
	Policy      domain.AddPolicy
	Clock       func() time.Time
	Hooks       []MutationHook
	LockStripes int
}

// Option настраивает Manager.
type Option func(*ManagerOptions)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *ManagerOptions) {
		opts.Logger = logger
	}
}

// WithAddPolicy задаёт поведение повторного добавления товара.
func WithAddPolicy(policy domain.AddPolicy) Option {
	return func(opts *ManagerOptions) {
		opts.Policy = policy
	}
}

// WithClock подменяет часы (используется в тестах).
func WithClock(clock func() time.Time) Option {
	return func(opts *ManagerOptions) {
		opts.Clock = clock
	}
}

// WithMutationHook добавляет хук, вызываемый после каждой сохранённой мутации.
func WithMutationHook(hook MutationHook) Option {
	return func(opts *ManagerOptions) {
		if hook != nil {
			opts.Hooks = append(opts.Hooks, hook)
		}
	}
}

// WithLockStripes задаёт число полос блокировок.
func WithLockStripes(n int) Option {
	return func(opts *ManagerOptions) {
		opts.LockStripes = n
	}
}

// Manager выдаёт Store для клиентской сессии и сериализует запросы одной
// сессии. Разные сессии обрабатываются параллельно.
type Manager struct {
	storage domain.SnapshotStorage
	policy  domain.AddPolicy
	clock   func() time.Time
	logger  *log.Entry
	hooks   []MutationHook
	locks   []sync.Mutex
}

// NewManager создаёт Manager поверх хранилища снимков.
func NewManager(storage domain.SnapshotStorage, options ...Option) *Manager {
	opts := ManagerOptions{
		Policy:      domain.AddPolicyMerge,
		Clock:       time.Now,
		LockStripes: defaultLockStripes,
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "cart-manager")
	}
	if !opts.Policy.Valid() {
		logger.WithField("policy", opts.Policy).Warn("unknown cart add policy, falling back to merge")
		opts.Policy = domain.AddPolicyMerge
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.LockStripes <= 0 {
		opts.LockStripes = defaultLockStripes
	}

	return &Manager{
		storage: storage,
		policy:  opts.Policy,
		clock:   opts.Clock,
		logger:  logger,
		hooks:   opts.Hooks,
		locks:   make([]sync.Mutex, opts.LockStripes),
	}
}

// Policy возвращает активную политику добавления.
func (m *Manager) Policy() domain.AddPolicy {
	return m.policy
}

// StorageKey возвращает ключ снимка для сессии.
func StorageKey(sessionID string) string {
	return sessionID + ":" + domain.CartStorageKey
}

// Do загружает корзину сессии и выполняет fn под блокировкой сессии.
func (m *Manager) Do(ctx context.Context, sessionID string, fn func(*Store) error) error {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.ErrSessionRequired
	}

	mu := m.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	return fn(m.open(ctx, sessionID))
}

// View возвращает снимок корзины сессии без мутаций.
func (m *Manager) View(ctx context.Context, sessionID string) ([]domain.CartLine, error) {
	var lines []domain.CartLine
	err := m.Do(ctx, sessionID, func(store *Store) error {
		lines = store.Snapshot()
		return nil
	})
	return lines, err
}

func (m *Manager) open(ctx context.Context, sessionID string) *Store {
	store := &Store{
		sessionID: sessionID,
		key:       StorageKey(sessionID),
		storage:   m.storage,
		policy:    m.policy,
		clock:     m.clock,
		logger:    m.logger.WithField("session", sessionID),
		hooks:     m.hooks,
	}
	store.load(ctx)
	return store
}

func (m *Manager) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &m.locks[h.Sum32()%uint32(len(m.locks))]
}
