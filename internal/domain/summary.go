package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// PricingPolicy — набор констант ценообразования: налог, порог бесплатной
// доставки и фиксированная стоимость доставки.
type PricingPolicy struct {
	TaxRate               decimal.Decimal `json:"tax_rate"`
	FreeShippingThreshold decimal.Decimal `json:"free_shipping_threshold"`
	FlatShippingFee       decimal.Decimal `json:"flat_shipping_fee"`
}

// DefaultPricingPolicy возвращает политику страницы корзины: 18% GST,
// бесплатная доставка дороже 499, иначе 49.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		TaxRate:               decimal.RequireFromString("0.18"),
		FreeShippingThreshold: decimal.NewFromInt(499),
		FlatShippingFee:       decimal.NewFromInt(49),
	}
}

// Validate проверяет, что все значения политики неотрицательны.
func (p PricingPolicy) Validate() error {
	switch {
	case p.TaxRate.IsNegative():
		return fmt.Errorf("%w: tax rate must be non-negative", ErrInvalidArgument)
	case p.FreeShippingThreshold.IsNegative():
		return fmt.Errorf("%w: free shipping threshold must be non-negative", ErrInvalidArgument)
	case p.FlatShippingFee.IsNegative():
		return fmt.Errorf("%w: flat shipping fee must be non-negative", ErrInvalidArgument)
	}
	return nil
}

// OrderSummary — производные итоги корзины. Никогда не сохраняется.
type OrderSummary struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	Tax          decimal.Decimal `json:"tax"`
	Shipping     decimal.Decimal `json:"shipping"`
	Total        decimal.Decimal `json:"total"`
	ItemCount    int             `json:"item_count"`
	FreeShipping bool            `json:"free_shipping"`
}

// Equal сравнивает итоги по значению.
func (s OrderSummary) Equal(other OrderSummary) bool {
	return s.Subtotal.Equal(other.Subtotal) &&
		s.Tax.Equal(other.Tax) &&
		s.Shipping.Equal(other.Shipping) &&
		s.Total.Equal(other.Total) &&
		s.ItemCount == other.ItemCount &&
		s.FreeShipping == other.FreeShipping
}

// ComputeSummary считает итоги корзины по политике. Чистая функция.
//
// Налог округляется до целой единицы валюты (половина — от нуля).
// Доставка бесплатна только если subtotal строго больше порога.
func ComputeSummary(lines []CartLine, policy PricingPolicy) OrderSummary {
	subtotal := decimal.Zero
	items := 0
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
		items += line.Quantity
	}

	tax := subtotal.Mul(policy.TaxRate).Round(0)

	free := subtotal.GreaterThan(policy.FreeShippingThreshold)
	shipping := policy.FlatShippingFee
	if free {
		shipping = decimal.Zero
	}

	return OrderSummary{
		Subtotal:     subtotal,
		Tax:          tax,
		Shipping:     shipping,
		Total:        subtotal.Add(tax).Add(shipping),
		ItemCount:    items,
		FreeShipping: free,
	}
}
