package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/indiakart/internal/domain"
)

func line(id int64, price string, qty int) domain.CartLine {
	return domain.CartLine{
		ID:          id,
		ProductName: "p",
		UnitPrice:   decimal.RequireFromString(price),
		Quantity:    qty,
	}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestComputeSummary(t *testing.T) {
	policy := domain.DefaultPricingPolicy()

	cases := []struct {
		name     string
		lines    []domain.CartLine
		subtotal string
		tax      string
		shipping string
		total    string
		items    int
		free     bool
	}{
		{
			name:     "empty cart pays flat fee",
			lines:    nil,
			subtotal: "0", tax: "0", shipping: "49", total: "49",
		},
		{
			name:     "below threshold",
			lines:    []domain.CartLine{line(1, "200", 2)},
			subtotal: "400", tax: "72", shipping: "49", total: "521", items: 2,
		},
		{
			name:     "exactly at threshold is not free",
			lines:    []domain.CartLine{line(1, "499", 1)},
			subtotal: "499", tax: "90", shipping: "49", total: "638", items: 1,
		},
		{
			name:     "one above threshold is free",
			lines:    []domain.CartLine{line(1, "500", 1)},
			subtotal: "500", tax: "90", shipping: "0", total: "590", items: 1, free: true,
		},
		{
			name:     "several lines",
			lines:    []domain.CartLine{line(1, "2499", 1), line(2, "799", 3)},
			subtotal: "4896", tax: "881", shipping: "0", total: "5777", items: 4, free: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := domain.ComputeSummary(tc.lines, policy)
			want := domain.OrderSummary{
				Subtotal:     dec(tc.subtotal),
				Tax:          dec(tc.tax),
				Shipping:     dec(tc.shipping),
				Total:        dec(tc.total),
				ItemCount:    tc.items,
				FreeShipping: tc.free,
			}
			if !got.Equal(want) {
				t.Fatalf("ComputeSummary() = %+v, want %+v", got, want)
			}
		})
	}
}

func TestComputeSummary_TaxRoundsHalfAwayFromZero(t *testing.T) {
	policy := domain.PricingPolicy{
		TaxRate:               dec("0.5"),
		FreeShippingThreshold: dec("1000"),
		FlatShippingFee:       dec("0"),
	}

	got := domain.ComputeSummary([]domain.CartLine{line(1, "5", 1)}, policy)
	if !got.Tax.Equal(dec("3")) {
		t.Fatalf("tax = %s, want 3", got.Tax)
	}
}

func TestComputeSummary_AlternativePolicy(t *testing.T) {
	policy := domain.PricingPolicy{
		TaxRate:               dec("0.18"),
		FreeShippingThreshold: dec("999"),
		FlatShippingFee:       dec("50"),
	}

	got := domain.ComputeSummary([]domain.CartLine{line(1, "999", 1)}, policy)
	if got.FreeShipping || !got.Shipping.Equal(dec("50")) {
		t.Fatalf("999 must not qualify for free shipping: %+v", got)
	}
	if !got.Total.Equal(dec("1229")) {
		t.Fatalf("total = %s, want 1229", got.Total)
	}
}

func TestComputeSummary_Deterministic(t *testing.T) {
	lines := []domain.CartLine{line(1, "123.45", 3), line(2, "10", 1)}
	policy := domain.DefaultPricingPolicy()

	first := domain.ComputeSummary(lines, policy)
	second := domain.ComputeSummary(lines, policy)
	if !first.Equal(second) {
		t.Fatalf("summary must be deterministic: %+v vs %+v", first, second)
	}
	if !first.Total.Equal(first.Subtotal.Add(first.Tax).Add(first.Shipping)) {
		t.Fatal("total must equal subtotal + tax + shipping")
	}
}

func TestPricingPolicyValidate(t *testing.T) {
	if err := domain.DefaultPricingPolicy().Validate(); err != nil {
		t.Fatalf("default policy must be valid: %v", err)
	}
	bad := domain.DefaultPricingPolicy()
	bad.FlatShippingFee = dec("-1")
	if err := bad.Validate(); !domain.IsInvalidArgument(err) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}
