package models

import (
	"errors"
	"testing"
)

func TestCheckCashRedeemable(t *testing.T) {
	if err := CheckCashRedeemable(1, d("100.00"), d("40.00")); err != nil {
		t.Fatalf("redemption within balance must pass: %v", err)
	}
	if err := CheckCashRedeemable(1, d("100.00"), d("100.00")); err != nil {
		t.Fatalf("redemption of the exact balance must pass: %v", err)
	}

	err := CheckCashRedeemable(1, d("100.00"), d("100.01"))
	var insufficient *InsufficientCashBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientCashBalanceError, got %v", err)
	}
	if !insufficient.Available.Equal(d("100.00")) || !insufficient.Requested.Equal(d("100.01")) {
		t.Fatalf("error must carry the amounts: %+v", insufficient)
	}

	if err := CheckCashRedeemable(1, d("100.00"), d("0")); err == nil {
		t.Fatal("zero redemption must be rejected")
	}
	if err := CheckCashRedeemable(1, d("100.00"), d("-5.00")); err == nil {
		t.Fatal("negative redemption must be rejected")
	}
}
