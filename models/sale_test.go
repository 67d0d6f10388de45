package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func sellableItem(number string, price string) *Item {
	return &Item{
		IdentificationNumber: number,
		EvaluatedPrice:       d(price),
		Status:               ItemStatusToSell,
		AcquisitionType:      AcquisitionTypeConsignment,
		ReceivedAt:           time.Now(),
	}
}

func TestComputeSaleTotals_GlobalDiscount(t *testing.T) {
	items := []*Item{sellableItem("A202601-0001", "100.00")}
	discounts := []decimal.Decimal{decimal.Zero}

	comp, err := ComputeSaleTotals(items, discounts, d("10"))
	if err != nil {
		t.Fatal(err)
	}
	if !comp.TotalAmount.Equal(d("90.00")) {
		t.Fatalf("expected total 90.00, got %s", comp.TotalAmount)
	}
	if !comp.Lines[0].FinalPrice.Equal(d("90.00")) {
		t.Fatalf("expected line final price 90.00, got %s", comp.Lines[0].FinalPrice)
	}
	if !comp.DiscountAmount.Equal(d("10.00")) {
		t.Fatalf("expected discount 10.00, got %s", comp.DiscountAmount)
	}
}

func TestComputeSaleTotals_PerItemThenGlobal(t *testing.T) {
	items := []*Item{
		sellableItem("A202601-0001", "50.00"),
		sellableItem("A202601-0002", "30.00"),
	}
	discounts := []decimal.Decimal{d("10.00"), decimal.Zero}

	comp, err := ComputeSaleTotals(items, discounts, d("10"))
	if err != nil {
		t.Fatal(err)
	}
	// per-item first: 40 + 30 = 70, then 10% off each remaining price
	if !comp.Lines[0].FinalPrice.Equal(d("36.00")) {
		t.Fatalf("line 0 final price: got %s", comp.Lines[0].FinalPrice)
	}
	if !comp.Lines[1].FinalPrice.Equal(d("27.00")) {
		t.Fatalf("line 1 final price: got %s", comp.Lines[1].FinalPrice)
	}
	if !comp.TotalAmount.Equal(d("63.00")) {
		t.Fatalf("expected total 63.00, got %s", comp.TotalAmount)
	}
}

func TestComputeSaleTotals_LineSumMatchesTotal(t *testing.T) {
	items := []*Item{
		sellableItem("A202601-0001", "19.99"),
		sellableItem("A202601-0002", "7.33"),
		sellableItem("A202601-0003", "0.01"),
	}
	discounts := []decimal.Decimal{decimal.Zero, d("1.00"), decimal.Zero}

	comp, err := ComputeSaleTotals(items, discounts, d("7.5"))
	if err != nil {
		t.Fatal(err)
	}
	var sum decimal.Decimal
	for _, line := range comp.Lines {
		sum = sum.Add(line.FinalPrice)
	}
	if !sum.Equal(comp.TotalAmount) {
		t.Fatalf("line sum %s != total %s", sum, comp.TotalAmount)
	}
	if !comp.Subtotal.Sub(comp.DiscountAmount).Equal(comp.TotalAmount) {
		t.Fatalf("subtotal %s - discount %s != total %s", comp.Subtotal, comp.DiscountAmount, comp.TotalAmount)
	}
}

func TestComputeSaleTotals_Rejections(t *testing.T) {
	item := sellableItem("A202601-0001", "20.00")

	if _, err := ComputeSaleTotals(nil, nil, decimal.Zero); err == nil {
		t.Fatal("expected error for empty sale")
	}
	if _, err := ComputeSaleTotals([]*Item{item}, []decimal.Decimal{d("-1")}, decimal.Zero); err == nil {
		t.Fatal("expected error for negative discount")
	}
	if _, err := ComputeSaleTotals([]*Item{item}, []decimal.Decimal{d("25.00")}, decimal.Zero); err == nil {
		t.Fatal("expected error for discount above price")
	}
	if _, err := ComputeSaleTotals([]*Item{item}, []decimal.Decimal{decimal.Zero}, d("101")); err == nil {
		t.Fatal("expected error for global discount above 100")
	}
}

func TestValidatePayments(t *testing.T) {
	total := d("100.00")

	change, err := ValidatePayments([]NewPayment{
		{Method: PaymentMethodCash, Amount: d("120.00")},
	}, total)
	if err != nil {
		t.Fatal(err)
	}
	if !change.Equal(d("20.00")) {
		t.Fatalf("expected change 20.00, got %s", change)
	}

	_, err = ValidatePayments([]NewPayment{
		{Method: PaymentMethodStoreCredit, Amount: d("40.00"), SupplierId: 7},
		{Method: PaymentMethodCard, Amount: d("60.00")},
	}, total)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := ValidatePayments([]NewPayment{
		{Method: PaymentMethodCash, Amount: d("99.99")},
	}, total); err == nil {
		t.Fatal("expected error when payments do not cover the total")
	}
	if _, err := ValidatePayments([]NewPayment{
		{Method: PaymentMethodStoreCredit, Amount: d("100.00")},
	}, total); err == nil {
		t.Fatal("expected error for store credit payment without supplier")
	}
	if _, err := ValidatePayments([]NewPayment{
		{Method: "Cheque", Amount: d("100.00")},
	}, total); err == nil {
		t.Fatal("expected error for unknown payment method")
	}
	if _, err := ValidatePayments([]NewPayment{
		{Method: PaymentMethodCash, Amount: d("40.00")},
		{Method: PaymentMethodCard, Amount: d("40.00")},
		{Method: PaymentMethodTransfer, Amount: d("40.00")},
	}, total); err == nil {
		t.Fatal("expected error for more than two payment lines")
	}
}
