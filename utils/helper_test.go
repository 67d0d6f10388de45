package utils

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestCalculatePercentageAmount(t *testing.T) {
	got := CalculatePercentageAmount(decimal.RequireFromString("90.00"), decimal.RequireFromString("10"))
	if !got.Equal(decimal.RequireFromString("9")) {
		t.Fatalf("expected 9, got %s", got)
	}

	got = CalculatePercentageAmount(decimal.RequireFromString("33.33"), decimal.RequireFromString("7.5"))
	if !got.Equal(decimal.RequireFromString("2.4998")) {
		t.Fatalf("expected 2.4998, got %s", got)
	}
}

func TestIsValidPercentage(t *testing.T) {
	cases := map[string]bool{
		"0":      true,
		"100":    true,
		"50.5":   true,
		"-0.01":  false,
		"100.01": false,
	}
	for in, want := range cases {
		if got := IsValidPercentage(decimal.RequireFromString(in)); got != want {
			t.Fatalf("IsValidPercentage(%s) = %v, want %v", in, got, want)
		}
	}
}

func TestUniqueSlice(t *testing.T) {
	got := UniqueSlice([]string{"a", "b", "a", "c", "b"})
	if len(got) != 3 {
		t.Fatalf("expected 3 unique values, got %v", got)
	}
}

func TestValidatePhoneNumber(t *testing.T) {
	if err := ValidatePhoneNumber("+12125551234", "US"); err != nil {
		t.Fatalf("valid US number rejected: %v", err)
	}
	if err := ValidatePhoneNumber("212-555-1234", "US"); err != nil {
		t.Fatalf("valid national-format number rejected: %v", err)
	}
	if err := ValidatePhoneNumber("12345", "US"); err == nil {
		t.Fatal("too-short number must be rejected")
	}
	if err := ValidatePhoneNumber("not a phone", "US"); err == nil {
		t.Fatal("non-numeric input must be rejected")
	}
}

func TestCalculateDiscountAmount(t *testing.T) {
	subtotal := decimal.RequireFromString("200.00")

	pct := CalculateDiscountAmount(subtotal, decimal.RequireFromString("10"), "P")
	if !pct.Equal(decimal.RequireFromString("20")) {
		t.Fatalf("percentage discount: expected 20, got %s", pct)
	}

	abs := CalculateDiscountAmount(subtotal, decimal.RequireFromString("15.00"), "A")
	if !abs.Equal(decimal.RequireFromString("15.00")) {
		t.Fatalf("absolute discount: expected 15.00, got %s", abs)
	}
}
