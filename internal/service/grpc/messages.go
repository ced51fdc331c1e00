package grpcsvc

import (
	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

// GetCartRequest запрашивает корзину сессии из metadata.
type GetCartRequest struct{}

// CartResponse — позиции корзины и итоги.
type CartResponse struct {
	Lines   []domain.CartLine   `json:"lines"`
	Summary domain.OrderSummary `json:"summary"`
}

// AddItemRequest добавляет товар каталога по ProductID либо произвольную
// позицию по Name/Price/Image.
type AddItemRequest struct {
	ProductID int    `json:"product_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Price     string `json:"price,omitempty"`
	Image     string `json:"image,omitempty"`
}

// AddItemResponse возвращает добавленную или объединённую позицию.
type AddItemResponse struct {
	Line domain.CartLine `json:"line"`
	Cart CartResponse    `json:"cart"`
}

// ChangeQuantityRequest меняет количество позиции на Delta.
type ChangeQuantityRequest struct {
	LineID int64 `json:"line_id"`
	Delta  int   `json:"delta"`
}

// RemoveItemRequest удаляет позицию.
type RemoveItemRequest struct {
	LineID int64 `json:"line_id"`
}

// ClearCartRequest очищает корзину.
type ClearCartRequest struct{}

// CheckoutRequest оформляет корзину.
type CheckoutRequest struct{}

// CheckoutResponse — результат оформления.
type CheckoutResponse struct {
	Accepted       bool                `json:"accepted"`
	OrderReference string              `json:"order_reference,omitempty"`
	Notice         string              `json:"notice"`
	Summary        domain.OrderSummary `json:"summary"`
}

// ListProductsRequest фильтрует каталог.
type ListProductsRequest struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
	Sort     string `json:"sort,omitempty"`
}

// ListProductsResponse — найденные товары.
type ListProductsResponse struct {
	Products []domain.ProductRecord `json:"products"`
}
