package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestTax(t *testing.T) {
	cases := []struct {
		name     string
		base     string
		rate     string
		wantTax  string
		wantTotal string
	}{
		{"exact half rounds up", "10.00", "2.5", "0.25", "10.25"},
		{"truncating case", "3.33", "7", "0.23", "3.56"},
		{"zero rate", "99.99", "0", "0.00", "99.99"},
		{"zero base", "0.00", "11", "0.00", "0.00"},
		{"half cent boundary", "0.50", "1", "0.01", "0.51"},
		{"large amount", "12345.67", "11", "1358.02", "13703.69"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tax, total := Total(dec(tc.base), dec(tc.rate))
			if tax.String() != dec(tc.wantTax).String() {
				t.Fatalf("tax = %s, want %s", tax, tc.wantTax)
			}
			if total.String() != dec(tc.wantTotal).String() {
				t.Fatalf("total = %s, want %s", total, tc.wantTotal)
			}
		})
	}
}

func TestTaxRoundsOncePerLine(t *testing.T) {
	// Two lines of 3.33 at 7% must give 2 * 3.56, not the tax of 6.66.
	_, line := Total(dec("3.33"), dec("7"))
	sum := line.Add(line)
	if sum.String() != "7.12" {
		t.Fatalf("summed line totals = %s, want 7.12", sum)
	}
	_, recomputed := Total(dec("6.66"), dec("7"))
	if recomputed.String() == sum.String() {
		t.Fatalf("expected per-line rounding to differ from aggregate rounding")
	}
}

func TestLineTotal(t *testing.T) {
	cases := []struct {
		price, qty, rate, want string
	}{
		{"10.00", "1", "0", "10.00"},
		{"10.00", "3", "10", "33.00"},
		{"3.33", "2", "7", "7.13"}, // per-unit tax kept unrounded until the end
		{"2.50", "0.5", "0", "1.25"},
	}
	for _, tc := range cases {
		got := LineTotal(dec(tc.price), dec(tc.qty), dec(tc.rate))
		if got.String() != dec(tc.want).String() {
			t.Fatalf("LineTotal(%s, %s, %s) = %s, want %s", tc.price, tc.qty, tc.rate, got, tc.want)
		}
	}
}
