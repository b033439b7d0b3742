package common

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		amount decimal.Decimal
		want   string
	}{
		{decimal.NewFromInt(900), "900.00"},
		{decimal.Zero, "0.00"},
		{decimal.RequireFromString("12.345"), "12.35"},
	}

	for _, tt := range tests {
		if got := FormatAmount(tt.amount); got != tt.want {
			t.Errorf("FormatAmount(%s) = %q, want %q", tt.amount.String(), got, tt.want)
		}
	}
}

func TestBoxPrefix(t *testing.T) {
	if BoxPrefix(true) == BoxPrefix(false) {
		t.Error("Expected the last item to use a closing prefix")
	}
}
