package utils

import (
	"errors"
	"os"

	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"
)

var decimalOneHundred = decimal.NewFromInt(100)

// PhoneRegion is the default region used to parse supplier phone numbers,
// overridable with the PHONE_REGION env var (ISO 3166-1 alpha-2).
var PhoneRegion = phoneRegion()

func phoneRegion() string {
	if r := os.Getenv("PHONE_REGION"); r != "" {
		return r
	}
	return "US"
}

// ValidatePhoneNumber parses and validates the number for the region.
func ValidatePhoneNumber(phoneNumber string, region string) error {
	p, err := libphonenumber.Parse(phoneNumber, region)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(p) {
		return errors.New("phone number is not valid")
	}
	return nil
}

// RoundMoney rounds to the smallest currency unit (two decimal places).
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// CalculatePercentageAmount returns amount * pct / 100 at money precision.
func CalculatePercentageAmount(amount decimal.Decimal, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).DivRound(decimalOneHundred, 4)
}

// CalculateDiscountAmount resolves a discount given as a percentage ("P")
// or as an absolute amount ("A").
func CalculateDiscountAmount(subTotal decimal.Decimal, discount decimal.Decimal, discountType string) decimal.Decimal {

	var discountAmount decimal.Decimal

	if discount.GreaterThan(decimal.Zero) {
		if discountType == "P" {
			discountAmount = subTotal.Mul(discount).DivRound(decimalOneHundred, 4)
		} else {
			discountAmount = discount
		}
	} else {
		discountAmount = decimal.Zero
	}

	return discountAmount
}

// IsValidPercentage reports whether pct lies in [0, 100].
func IsValidPercentage(pct decimal.Decimal) bool {
	return !pct.IsNegative() && pct.LessThanOrEqual(decimalOneHundred)
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

// return de-referenced value of the pointer, or zero value / first of defaults if nil
func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	if len(defaults) > 0 {
		return defaults[0]
	}
	var zero T
	return zero
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
