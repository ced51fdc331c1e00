// Package cart управляет корзиной клиентской сессии: применяет переходы
// состояния и синхронно сохраняет снимок в SnapshotStorage.
package cart

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

// Operation — тип мутации корзины (используется в метриках и хуках).
type Operation string

const (
	OperationAdd            Operation = "add"
	OperationChangeQuantity Operation = "change_quantity"
	OperationRemove         Operation = "remove"
	OperationClear          Operation = "clear"
)

// MutationHook вызывается после успешного сохранения снимка.
type MutationHook func(ctx context.Context, op Operation, lines []domain.CartLine)

var tracer = otel.Tracer("github.com/vladislavdragonenkov/indiakart/internal/cart")

// Store — корзина одной сессии.
//
// Store не потокобезопасен: конкурентный доступ сериализует Manager.
type Store struct {
	sessionID  string
	key        string
	storage    domain.SnapshotStorage
	policy     domain.AddPolicy
	clock      func() time.Time
	logger     *log.Entry
	hooks      []MutationHook
	cart       domain.Cart
	lastIssued int64
}

// SessionID возвращает идентификатор сессии корзины.
func (s *Store) SessionID() string {
	return s.sessionID
}

// Snapshot возвращает копию текущих позиций.
func (s *Store) Snapshot() []domain.CartLine {
	return s.cart.Snapshot()
}

// Summary считает итоги текущего состояния.
func (s *Store) Summary(policy domain.PricingPolicy) domain.OrderSummary {
	return domain.ComputeSummary(s.cart.Lines, policy)
}

// AddItem добавляет товар по названию, цене (строкой) и картинке.
func (s *Store) AddItem(ctx context.Context, productName, unitPrice, imageRef string) (domain.CartLine, error) {
	price, err := domain.ParseUnitPrice(unitPrice)
	if err != nil {
		return domain.CartLine{}, err
	}
	return s.Add(ctx, domain.ProductRef{Name: productName, UnitPrice: price, ImageRef: imageRef})
}

// Add добавляет уже разобранную ссылку на товар.
func (s *Store) Add(ctx context.Context, ref domain.ProductRef) (domain.CartLine, error) {
	ctx, span := s.startSpan(ctx, OperationAdd)
	defer span.End()

	next, line, err := s.cart.Add(ref, s.policy, s.nextID)
	if err != nil {
		recordError(span, err)
		return domain.CartLine{}, err
	}
	if err := s.commit(ctx, OperationAdd, next); err != nil {
		recordError(span, err)
		return domain.CartLine{}, err
	}
	span.SetAttributes(attribute.Int64("cart.line_id", line.ID))
	return line, nil
}

// AddProduct берёт название, цену и картинку товара из каталога.
func (s *Store) AddProduct(ctx context.Context, catalog domain.Catalog, productID int) (domain.CartLine, error) {
	product, err := catalog.Get(productID)
	if err != nil {
		return domain.CartLine{}, err
	}
	return s.Add(ctx, product.Ref())
}

// ChangeQuantity меняет количество позиции на delta. Позиция с итоговым
// количеством меньше 1 удаляется. Неизвестный id — no-op.
func (s *Store) ChangeQuantity(ctx context.Context, lineID int64, delta int) error {
	ctx, span := s.startSpan(ctx, OperationChangeQuantity)
	defer span.End()
	span.SetAttributes(attribute.Int64("cart.line_id", lineID), attribute.Int("cart.delta", delta))

	next, changed := s.cart.ChangeQuantity(lineID, delta)
	if !changed {
		return nil
	}
	if err := s.commit(ctx, OperationChangeQuantity, next); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// RemoveItem удаляет позицию. Неизвестный id — no-op.
func (s *Store) RemoveItem(ctx context.Context, lineID int64) error {
	ctx, span := s.startSpan(ctx, OperationRemove)
	defer span.End()
	span.SetAttributes(attribute.Int64("cart.line_id", lineID))

	next, changed := s.cart.Remove(lineID)
	if !changed {
		return nil
	}
	if err := s.commit(ctx, OperationRemove, next); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// Clear очищает корзину и всегда сохраняет пустой снимок.
func (s *Store) Clear(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, OperationClear)
	defer span.End()

	if err := s.commit(ctx, OperationClear, s.cart.Clear()); err != nil {
		recordError(span, err)
		return err
	}
	return nil
}

// nextID = max(now в миллисекундах, lastIssued+1, maxExisting+1).
func (s *Store) nextID() int64 {
	id := s.clock().UnixMilli()
	if candidate := s.lastIssued + 1; candidate > id {
		id = candidate
	}
	if candidate := s.cart.MaxID() + 1; candidate > id {
		id = candidate
	}
	s.lastIssued = id
	return id
}

func (s *Store) commit(ctx context.Context, op Operation, next domain.Cart) error {
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.cart = next

	lines := next.Snapshot()
	for _, hook := range s.hooks {
		hook(ctx, op, lines)
	}
	return nil
}

// persist сохраняет полный снимок вместе с lastIssued до возврата из мутации.
func (s *Store) persist(ctx context.Context, next domain.Cart) error {
	payload, err := EncodeSnapshot(Snapshot{Seq: s.lastIssued, Lines: next.Lines})
	if err != nil {
		return err
	}
	if err := s.storage.Set(ctx, s.key, payload); err != nil {
		s.logger.WithError(err).WithField("key", s.key).Error("failed to persist cart snapshot")
		return fmt.Errorf("persist cart: %w", err)
	}
	return nil
}

// load читает снимок. Любая проблема со снимком даёт пустую корзину.
func (s *Store) load(ctx context.Context) {
	payload, found, err := s.storage.Get(ctx, s.key)
	if err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("failed to read cart snapshot, starting empty")
		return
	}
	if !found {
		return
	}

	snap, dropped, err := DecodeSnapshot(payload)
	if err != nil {
		s.logger.WithError(err).WithField("key", s.key).Warn("discarding corrupt cart snapshot")
		return
	}
	if dropped > 0 {
		s.logger.WithFields(log.Fields{
			"key":     s.key,
			"dropped": dropped,
		}).Warn("dropped invalid cart lines from snapshot")
	}
	s.cart = domain.NewCart(snap.Lines)
	// старый снимок без seq: опираемся на позиции
	s.lastIssued = max(snap.Seq, s.cart.MaxID())
}

func (s *Store) startSpan(ctx context.Context, op Operation) (context.Context, trace.Span) {
	return tracer.Start(ctx, "cart."+string(op), trace.WithAttributes(
		attribute.String("cart.operation", string(op)),
		attribute.Int("cart.lines", len(s.cart.Lines)),
	))
}

func recordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
