// Package checkout оформляет корзину: считает итоги, выдаёт номер для
// показа покупателю, очищает корзину и ставит событие в outbox.
package checkout

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/vladislavdragonenkov/indiakart/internal/cart"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

const (
	// NoticeEmptyCart показывается при попытке оформить пустую корзину.
	NoticeEmptyCart = "Your cart is empty!"
	// NoticePlaced показывается после успешного оформления.
	NoticePlaced = "Order placed successfully!"

	referenceLength = 8
)

var tracer = otel.Tracer("github.com/vladislavdragonenkov/indiakart/internal/checkout")

// Result — итог попытки оформления.
type Result struct {
	Accepted       bool                `json:"accepted"`
	OrderReference string              `json:"order_reference,omitempty"`
	Summary        domain.OrderSummary `json:"summary"`
	Notice         string              `json:"notice"`
}

// Observer получает результат каждой попытки (метрики).
type Observer interface {
	ObserveCheckout(accepted bool, total float64)
}

// Options задаёт зависимости Service.
type Options struct {
	Logger    *log.Entry
	Outbox    domain.OutboxRepository
	Observer  Observer
	Reference func() string
	Clock     func() time.Time
}

// Option настраивает Service.
type Option func(*Options)

// WithLogger задаёт logger.
func WithLogger(logger *log.Entry) Option {
	return func(opts *Options) {
		opts.Logger = logger
	}
}

// WithOutbox включает постановку checkout.completed в outbox.
func WithOutbox(repo domain.OutboxRepository) Option {
	return func(opts *Options) {
		opts.Outbox = repo
	}
}

// WithObserver задаёт получателя метрик оформления.
func WithObserver(observer Observer) Option {
	return func(opts *Options) {
		opts.Observer = observer
	}
}

// WithReferenceGenerator подменяет генератор номера заказа.
func WithReferenceGenerator(gen func() string) Option {
	return func(opts *Options) {
		opts.Reference = gen
	}
}

// Service оформляет корзины по заданной политике цен.
type Service struct {
	pricing   domain.PricingPolicy
	outbox    domain.OutboxRepository
	observer  Observer
	logger    *log.Entry
	reference func() string
	clock     func() time.Time
}

// NewService создаёт сервис оформления.
func NewService(pricing domain.PricingPolicy, options ...Option) *Service {
	opts := Options{
		Reference: NewOrderReference,
		Clock:     func() time.Time { return time.Now().UTC() },
	}
	for _, option := range options {
		option(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = log.WithField("component", "checkout")
	}
	if opts.Reference == nil {
		opts.Reference = NewOrderReference
	}

	return &Service{
		pricing:   pricing,
		outbox:    opts.Outbox,
		observer:  opts.Observer,
		logger:    logger,
		reference: opts.Reference,
		clock:     opts.Clock,
	}
}

// Pricing возвращает активную политику цен.
func (s *Service) Pricing() domain.PricingPolicy {
	return s.pricing
}

// Checkout оформляет корзину сессии.
//
// Пустая корзина не является ошибкой: Result.Accepted=false, состояние не
// меняется. Итоги считаются до очистки корзины.
func (s *Service) Checkout(ctx context.Context, store *cart.Store) (Result, error) {
	ctx, span := tracer.Start(ctx, "checkout.Checkout")
	defer span.End()

	lines := store.Snapshot()
	summary := domain.ComputeSummary(lines, s.pricing)

	if len(lines) == 0 {
		s.observe(false, summary)
		span.SetAttributes(attribute.Bool("checkout.accepted", false))
		return Result{Accepted: false, Summary: summary, Notice: NoticeEmptyCart}, nil
	}

	reference := s.reference()
	if err := store.Clear(ctx); err != nil {
		span.RecordError(err)
		return Result{}, fmt.Errorf("checkout: clear cart: %w", err)
	}

	s.enqueue(store.SessionID(), reference, summary, lines)
	s.observe(true, summary)

	span.SetAttributes(
		attribute.Bool("checkout.accepted", true),
		attribute.String("checkout.reference", reference),
	)
	s.logger.WithFields(log.Fields{
		"order_reference": reference,
		"items":           summary.ItemCount,
		"total":           summary.Total.String(),
	}).Info("checkout completed")

	return Result{
		Accepted:       true,
		OrderReference: reference,
		Summary:        summary,
		Notice:         NoticePlaced,
	}, nil
}

// enqueue ставит уведомление в outbox. Ошибка outbox не отменяет
// оформление: корзина уже очищена.
func (s *Service) enqueue(sessionID, reference string, summary domain.OrderSummary, lines []domain.CartLine) {
	if s.outbox == nil {
		return
	}

	payload, err := json.Marshal(domain.CheckoutCompleted{
		OrderReference: reference,
		SessionID:      sessionID,
		Summary:        summary,
		Lines:          lines,
		PlacedAt:       s.clock(),
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to encode checkout event")
		return
	}

	if _, err := s.outbox.Enqueue(domain.OutboxMessage{
		AggregateType: domain.AggregateCart,
		AggregateID:   reference,
		EventType:     domain.EventCheckoutCompleted,
		Payload:       payload,
	}); err != nil {
		s.logger.WithError(err).WithField("order_reference", reference).Warn("failed to enqueue checkout event")
	}
}

func (s *Service) observe(accepted bool, summary domain.OrderSummary) {
	if s.observer == nil {
		return
	}
	total, _ := summary.Total.Float64()
	s.observer.ObserveCheckout(accepted, total)
}

// NewOrderReference возвращает 8-символьный номер в верхнем регистре
// (base36 от случайного UUID). Номер только для показа, уникальность не
// гарантируется.
func NewOrderReference() string {
	id := uuid.New()
	encoded := strings.ToUpper(new(big.Int).SetBytes(id[:]).Text(36))
	if len(encoded) < referenceLength {
		encoded = strings.Repeat("0", referenceLength-len(encoded)) + encoded
	}
	return encoded[len(encoded)-referenceLength:]
}
