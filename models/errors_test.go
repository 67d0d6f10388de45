package models

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDomainErrors_MatchThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("processing sale: %w", &ItemNotSellableError{Numbers: []string{"C202601-0001"}})

	var notSellable *ItemNotSellableError
	if !errors.As(wrapped, &notSellable) {
		t.Fatal("ItemNotSellableError must survive wrapping")
	}
	if !strings.Contains(notSellable.Error(), "C202601-0001") {
		t.Fatalf("error must name the offending item: %s", notSellable.Error())
	}

	wrapped = fmt.Errorf("redeeming cash: %w", &InsufficientCashBalanceError{
		SupplierId: 7,
		Available:  decimal.RequireFromString("12.50"),
		Requested:  decimal.RequireFromString("20.00"),
	})
	var insufficientCash *InsufficientCashBalanceError
	if !errors.As(wrapped, &insufficientCash) {
		t.Fatal("InsufficientCashBalanceError must survive wrapping")
	}
	msg := insufficientCash.Error()
	if !strings.Contains(msg, "12.50") || !strings.Contains(msg, "20.00") {
		t.Fatalf("error must report available and requested amounts: %s", msg)
	}
}
