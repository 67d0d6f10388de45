package models

import (
	"errors"
	"testing"
	"time"
)

func activeCredit(id int, issuedOn time.Time, balance string) *StoreCredit {
	return &StoreCredit{
		ID:             id,
		SupplierId:     1,
		OriginalAmount: d(balance),
		CurrentBalance: d(balance),
		Status:         StoreCreditStatusActive,
		IssuedOn:       issuedOn,
	}
}

func TestPlanCreditConsumption_FIFO(t *testing.T) {
	now := time.Now()
	older := activeCredit(2, now.AddDate(0, -2, 0), "50.00")
	newer := activeCredit(1, now.AddDate(0, -1, 0), "80.00")

	draws, err := PlanCreditConsumption(1, []*StoreCredit{newer, older}, d("60.00"), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(draws) != 2 {
		t.Fatalf("expected 2 draws, got %d", len(draws))
	}
	if draws[0].Credit.ID != older.ID || !draws[0].Amount.Equal(d("50.00")) {
		t.Fatalf("first draw should drain the older instrument: got credit %d amount %s",
			draws[0].Credit.ID, draws[0].Amount)
	}
	if draws[1].Credit.ID != newer.ID || !draws[1].Amount.Equal(d("10.00")) {
		t.Fatalf("second draw should take the remainder from the newer instrument: got credit %d amount %s",
			draws[1].Credit.ID, draws[1].Amount)
	}
}

func TestPlanCreditConsumption_TieBrokenById(t *testing.T) {
	now := time.Now()
	issued := now.AddDate(0, -1, 0)
	first := activeCredit(3, issued, "20.00")
	second := activeCredit(9, issued, "20.00")

	draws, err := PlanCreditConsumption(1, []*StoreCredit{second, first}, d("25.00"), now)
	if err != nil {
		t.Fatal(err)
	}
	if draws[0].Credit.ID != 3 {
		t.Fatalf("expected the lower id first on equal issue dates, got %d", draws[0].Credit.ID)
	}
}

func TestPlanCreditConsumption_StopsExactlyAtAmount(t *testing.T) {
	now := time.Now()
	credit := activeCredit(1, now.AddDate(0, -1, 0), "120.00")

	draws, err := PlanCreditConsumption(1, []*StoreCredit{credit}, d("90.00"), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(draws) != 1 || !draws[0].Amount.Equal(d("90.00")) {
		t.Fatalf("expected one draw of 90.00, got %+v", draws)
	}

	entry, err := credit.apply(StoreCreditTransactionTypeUse, draws[0].Amount.Neg(), 0, "")
	if err != nil {
		t.Fatal(err)
	}
	if !credit.CurrentBalance.Equal(d("30.00")) {
		t.Fatalf("expected remaining balance 30.00, got %s", credit.CurrentBalance)
	}
	if credit.Status != StoreCreditStatusActive {
		t.Fatalf("partially used instrument must stay Active, got %s", credit.Status)
	}
	if !entry.ResultingBalance.Equal(credit.CurrentBalance) {
		t.Fatalf("entry resulting balance %s != instrument balance %s",
			entry.ResultingBalance, credit.CurrentBalance)
	}
}

func TestPlanCreditConsumption_Insufficient(t *testing.T) {
	now := time.Now()
	expired := activeCredit(1, now.AddDate(0, -6, 0), "500.00")
	past := now.AddDate(0, 0, -1)
	expired.ExpiresOn = &past
	usable := activeCredit(2, now.AddDate(0, -1, 0), "40.00")

	_, err := PlanCreditConsumption(1, []*StoreCredit{expired, usable}, d("60.00"), now)
	var insufficient *InsufficientStoreCreditError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStoreCreditError, got %v", err)
	}
	// Expired instruments must not count toward the available total.
	if !insufficient.Available.Equal(d("40.00")) {
		t.Fatalf("expected available 40.00, got %s", insufficient.Available)
	}
}

func TestApply_FullDrainFlipsToFullyUsed(t *testing.T) {
	now := time.Now()
	credit := activeCredit(1, now, "25.00")

	if _, err := credit.apply(StoreCreditTransactionTypeUse, d("-25.00"), 0, ""); err != nil {
		t.Fatal(err)
	}
	if credit.Status != StoreCreditStatusFullyUsed {
		t.Fatalf("expected FullyUsed at zero balance, got %s", credit.Status)
	}
	if !credit.CurrentBalance.IsZero() {
		t.Fatalf("expected zero balance, got %s", credit.CurrentBalance)
	}
}

func TestApply_NeverGoesNegative(t *testing.T) {
	now := time.Now()
	credit := activeCredit(1, now, "10.00")

	if _, err := credit.apply(StoreCreditTransactionTypeAdjustment, d("-10.01"), 0, ""); err == nil {
		t.Fatal("expected error when the balance would go negative")
	}
	if !credit.CurrentBalance.Equal(d("10.00")) {
		t.Fatalf("failed apply must not change the balance, got %s", credit.CurrentBalance)
	}
}

func TestUsable(t *testing.T) {
	now := time.Now()

	credit := activeCredit(1, now, "10.00")
	if !credit.Usable(now) {
		t.Fatal("active instrument with balance should be usable")
	}

	past := now.Add(-time.Hour)
	credit.ExpiresOn = &past
	if credit.Usable(now) {
		t.Fatal("expired instrument must not be usable")
	}

	credit.ExpiresOn = nil
	credit.Status = StoreCreditStatusCancelled
	if credit.Usable(now) {
		t.Fatal("cancelled instrument must not be usable")
	}
}
