package web

import (
	"strings"

	"github.com/shopspring/decimal"
)

// formatINR форматирует сумму в рупиях с индийской группировкой разрядов:
// 159900 -> ₹1,59,900. Дробная часть выводится только если она есть.
func formatINR(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	whole := amount.Truncate(0)
	fraction := amount.Sub(whole)

	digits := whole.String()
	grouped := digits
	if len(digits) > 3 {
		head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
		var parts []string
		for len(head) > 2 {
			parts = append([]string{head[len(head)-2:]}, parts...)
			head = head[:len(head)-2]
		}
		if head != "" {
			parts = append([]string{head}, parts...)
		}
		grouped = strings.Join(parts, ",") + "," + tail
	}

	if !fraction.IsZero() {
		grouped += strings.TrimPrefix(fraction.StringFixed(2), "0")
	}
	return sign + "₹" + grouped
}
