package web

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatINR(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "0", want: "₹0"},
		{in: "49", want: "₹49"},
		{in: "999", want: "₹999"},
		{in: "3999", want: "₹3,999"},
		{in: "29990", want: "₹29,990"},
		{in: "159900", want: "₹1,59,900"},
		{in: "12345678", want: "₹1,23,45,678"},
		{in: "1227.5", want: "₹1,227.50"},
		{in: "-450", want: "-₹450"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := formatINR(decimal.RequireFromString(tt.in)); got != tt.want {
				t.Fatalf("formatINR(%s) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
