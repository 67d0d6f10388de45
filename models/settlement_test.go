package models

import (
	"errors"
	"testing"
	"time"
)

func TestComputeSettlementSplit(t *testing.T) {
	split := ComputeSettlementSplit(d("100.00"), d("50"), d("10"))

	if !split.StoreCreditAmount.Equal(d("50.00")) {
		t.Fatalf("expected store credit 50.00, got %s", split.StoreCreditAmount)
	}
	if !split.CashRedemptionAmount.Equal(d("10.00")) {
		t.Fatalf("expected cash redemption 10.00, got %s", split.CashRedemptionAmount)
	}
	if !split.StoreCommissionAmount.Equal(d("40.00")) {
		t.Fatalf("expected commission 40.00, got %s", split.StoreCommissionAmount)
	}
	if !split.NetAmountToSupplier.Equal(d("60.00")) {
		t.Fatalf("expected net 60.00, got %s", split.NetAmountToSupplier)
	}
}

func TestComputeSettlementSplit_SumsToTotal(t *testing.T) {
	totals := []string{"0.01", "33.33", "199.99", "1234.56"}
	for _, total := range totals {
		split := ComputeSettlementSplit(d(total), d("45"), d("22.5"))
		sum := split.StoreCreditAmount.
			Add(split.CashRedemptionAmount).
			Add(split.StoreCommissionAmount)
		if !sum.Equal(d(total)) {
			t.Fatalf("total %s: shares sum to %s", total, sum)
		}
	}
}

func TestComputeSettlementSplit_ZeroPercentages(t *testing.T) {
	split := ComputeSettlementSplit(d("80.00"), d("0"), d("0"))
	if !split.StoreCommissionAmount.Equal(d("80.00")) {
		t.Fatalf("with zero shares the store keeps everything, got %s", split.StoreCommissionAmount)
	}
	if !split.NetAmountToSupplier.IsZero() {
		t.Fatalf("expected zero net, got %s", split.NetAmountToSupplier)
	}
}

func TestEnsurePayable(t *testing.T) {
	pending := Settlement{Status: SettlementStatusPending}
	if err := pending.EnsurePayable(); err != nil {
		t.Fatalf("pending settlement must be payable: %v", err)
	}

	paid := Settlement{Status: SettlementStatusPaid}
	if err := paid.EnsurePayable(); !errors.Is(err, ErrSettlementAlreadyPaid) {
		t.Fatalf("expected ErrSettlementAlreadyPaid, got %v", err)
	}

	cancelled := Settlement{Status: SettlementStatusCancelled}
	if err := cancelled.EnsurePayable(); !errors.Is(err, ErrSettlementAlreadyCancelled) {
		t.Fatalf("expected ErrSettlementAlreadyCancelled, got %v", err)
	}
}

func TestEnsureCancellable(t *testing.T) {
	pending := Settlement{Status: SettlementStatusPending}
	if err := pending.EnsureCancellable(); err != nil {
		t.Fatalf("pending settlement must be cancellable: %v", err)
	}

	paid := Settlement{Status: SettlementStatusPaid}
	if err := paid.EnsureCancellable(); !errors.Is(err, ErrCannotCancelPaidSettlement) {
		t.Fatalf("expected ErrCannotCancelPaidSettlement, got %v", err)
	}

	cancelled := Settlement{Status: SettlementStatusCancelled}
	if err := cancelled.EnsureCancellable(); !errors.Is(err, ErrSettlementAlreadyCancelled) {
		t.Fatalf("expected ErrSettlementAlreadyCancelled, got %v", err)
	}
}

func TestSettlementPeriodEnd(t *testing.T) {
	end := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	bound := SettlementPeriodEnd(end)

	soldLastDay := time.Date(2026, 1, 31, 23, 59, 0, 0, time.UTC)
	if !soldLastDay.Before(bound) {
		t.Fatal("a sale late on the period's last day must fall inside the window")
	}
	soldNextDay := time.Date(2026, 2, 1, 0, 0, 1, 0, time.UTC)
	if soldNextDay.Before(bound) {
		t.Fatal("a sale after the period's last day must fall outside the window")
	}
}
