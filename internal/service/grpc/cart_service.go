// Package grpcsvc реализует headless API корзины поверх gRPC.
package grpcsvc

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/indiakart/internal/cart"
	"github.com/vladislavdragonenkov/indiakart/internal/catalog"
	"github.com/vladislavdragonenkov/indiakart/internal/checkout"
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

// SessionMetadataKey — metadata с идентификатором клиентской сессии.
const SessionMetadataKey = "session-id"

// CartService реализует CartServiceServer поверх менеджера корзин.
type CartService struct {
	carts    *cart.Manager
	checkout *checkout.Service
	catalog  *catalog.Catalog
	logger   *log.Entry
}

// NewCartService конструирует сервис с зависимостями.
func NewCartService(carts *cart.Manager, checkoutSvc *checkout.Service, products *catalog.Catalog, logger *log.Entry) *CartService {
	if logger == nil {
		logger = log.WithField("component", "cart-grpc-service")
	}
	return &CartService{
		carts:    carts,
		checkout: checkoutSvc,
		catalog:  products,
		logger:   logger,
	}
}

// GetCart возвращает корзину сессии.
func (s *CartService) GetCart(ctx context.Context, _ *GetCartRequest) (*CartResponse, error) {
	var resp *CartResponse
	err := s.withCart(ctx, "GetCart", func(store *cart.Store) error {
		resp = s.cartResponse(store)
		return nil
	})
	return resp, err
}

// AddItem добавляет товар каталога или произвольную позицию.
func (s *CartService) AddItem(ctx context.Context, req *AddItemRequest) (*AddItemResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}
	if req.ProductID <= 0 && strings.TrimSpace(req.Name) == "" {
		return nil, status.Error(codes.InvalidArgument, "product_id or name is required")
	}

	var resp *AddItemResponse
	err := s.withCart(ctx, "AddItem", func(store *cart.Store) error {
		var (
			line domain.CartLine
			err  error
		)
		if req.ProductID > 0 {
			line, err = store.AddProduct(ctx, s.catalog, req.ProductID)
		} else {
			line, err = store.AddItem(ctx, req.Name, req.Price, req.Image)
		}
		if err != nil {
			return err
		}
		resp = &AddItemResponse{Line: line, Cart: *s.cartResponse(store)}
		return nil
	})
	return resp, err
}

// ChangeQuantity меняет количество позиции.
func (s *CartService) ChangeQuantity(ctx context.Context, req *ChangeQuantityRequest) (*CartResponse, error) {
	if req == nil || req.LineID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "line_id is required")
	}
	return s.mutate(ctx, "ChangeQuantity", func(store *cart.Store) error {
		return store.ChangeQuantity(ctx, req.LineID, req.Delta)
	})
}

// RemoveItem удаляет позицию.
func (s *CartService) RemoveItem(ctx context.Context, req *RemoveItemRequest) (*CartResponse, error) {
	if req == nil || req.LineID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "line_id is required")
	}
	return s.mutate(ctx, "RemoveItem", func(store *cart.Store) error {
		return store.RemoveItem(ctx, req.LineID)
	})
}

// ClearCart очищает корзину.
func (s *CartService) ClearCart(ctx context.Context, _ *ClearCartRequest) (*CartResponse, error) {
	return s.mutate(ctx, "ClearCart", func(store *cart.Store) error {
		return store.Clear(ctx)
	})
}

// Checkout оформляет корзину. Пустая корзина — не ошибка, Accepted=false.
func (s *CartService) Checkout(ctx context.Context, _ *CheckoutRequest) (*CheckoutResponse, error) {
	var resp *CheckoutResponse
	err := s.withCart(ctx, "Checkout", func(store *cart.Store) error {
		result, err := s.checkout.Checkout(ctx, store)
		if err != nil {
			return err
		}
		resp = &CheckoutResponse{
			Accepted:       result.Accepted,
			OrderReference: result.OrderReference,
			Notice:         result.Notice,
			Summary:        result.Summary,
		}
		return nil
	})
	return resp, err
}

// ListProducts возвращает товары каталога по фильтру.
func (s *CartService) ListProducts(_ context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	filter := catalog.Filter{}
	if req != nil {
		if req.Category != "" && req.Category != domain.CategoryAll && !s.catalog.HasCategory(req.Category) {
			return nil, status.Errorf(codes.InvalidArgument, "unknown category %q", req.Category)
		}
		filter = catalog.Filter{Category: req.Category, Search: req.Search, Sort: req.Sort}
	}
	return &ListProductsResponse{Products: s.catalog.Query(filter)}, nil
}

func (s *CartService) mutate(ctx context.Context, operation string, fn func(*cart.Store) error) (*CartResponse, error) {
	var resp *CartResponse
	err := s.withCart(ctx, operation, func(store *cart.Store) error {
		if err := fn(store); err != nil {
			return err
		}
		resp = s.cartResponse(store)
		return nil
	})
	return resp, err
}

func (s *CartService) withCart(ctx context.Context, operation string, fn func(*cart.Store) error) error {
	sessionID, err := readSessionID(ctx)
	if err != nil {
		return err
	}
	if err := s.carts.Do(ctx, sessionID, fn); err != nil {
		return s.toStatus(operation, err)
	}
	return nil
}

func (s *CartService) cartResponse(store *cart.Store) *CartResponse {
	lines := store.Snapshot()
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return &CartResponse{Lines: lines, Summary: store.Summary(s.checkout.Pricing())}
}

// toStatus переводит доменные ошибки в gRPC-коды.
func (s *CartService) toStatus(operation string, err error) error {
	switch {
	case domain.IsInvalidArgument(err), errors.Is(err, domain.ErrSessionRequired):
		return status.Error(codes.InvalidArgument, err.Error())
	case domain.IsNotFound(err):
		return status.Error(codes.NotFound, domain.ErrProductNotFound.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		s.logger.WithError(err).WithField("operation", operation).Error("cart storage unavailable")
		return status.Error(codes.Unavailable, "cart storage unavailable")
	default:
		s.logger.WithError(err).WithField("operation", operation).Error("cart operation failed")
		return status.Error(codes.Internal, "cart operation failed")
	}
}

func readSessionID(ctx context.Context) (string, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(SessionMetadataKey); len(values) > 0 && strings.TrimSpace(values[0]) != "" {
			return strings.TrimSpace(values[0]), nil
		}
	}
	return "", status.Error(codes.InvalidArgument, "session-id metadata is required")
}

var _ CartServiceServer = (*CartService)(nil)
