package models

import (
	"testing"
	"time"
)

func TestValidateItemStatusTransition(t *testing.T) {
	legal := []struct{ from, to ItemStatus }{
		{ItemStatusReceived, ItemStatusEvaluated},
		{ItemStatusReceived, ItemStatusRejected},
		{ItemStatusEvaluated, ItemStatusAwaitingAcceptance},
		{ItemStatusEvaluated, ItemStatusToSell},
		{ItemStatusAwaitingAcceptance, ItemStatusToSell},
		{ItemStatusAwaitingAcceptance, ItemStatusReturned},
		{ItemStatusToSell, ItemStatusSold},
		{ItemStatusToSell, ItemStatusReturned},
		{ItemStatusSold, ItemStatusPaid},
		{ItemStatusSold, ItemStatusToSell},
		{ItemStatusRejected, ItemStatusReturned},
	}
	for _, c := range legal {
		if err := ValidateItemStatusTransition(c.from, c.to); err != nil {
			t.Fatalf("%s -> %s should be legal: %v", c.from, c.to, err)
		}
	}

	illegal := []struct{ from, to ItemStatus }{
		{ItemStatusReceived, ItemStatusSold},
		{ItemStatusEvaluated, ItemStatusSold},
		{ItemStatusRejected, ItemStatusToSell},
		{ItemStatusPaid, ItemStatusToSell},
		{ItemStatusPaid, ItemStatusSold},
		{ItemStatusReturned, ItemStatusToSell},
		{ItemStatusSold, ItemStatusReturned},
	}
	for _, c := range illegal {
		if err := ValidateItemStatusTransition(c.from, c.to); err == nil {
			t.Fatalf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}

func TestDaysInStock(t *testing.T) {
	received := time.Now().AddDate(0, 0, -10)
	item := Item{ReceivedAt: received}
	if got := item.DaysInStock(); got != 10 {
		t.Fatalf("expected 10 days in stock, got %d", got)
	}

	soldAt := received.AddDate(0, 0, 3)
	item.SoldAt = &soldAt
	if got := item.DaysInStock(); got != 3 {
		t.Fatalf("sold item counts up to the sale date: expected 3, got %d", got)
	}
}

func TestNewItemValidate(t *testing.T) {
	consignment := NewItem{AcquisitionType: AcquisitionTypeConsignment}
	if err := consignment.validate(); err == nil {
		t.Fatal("consignment item without supplier should be rejected")
	}
	consignment.SupplierId = 3
	if err := consignment.validate(); err != nil {
		t.Fatal(err)
	}

	ownPurchase := NewItem{AcquisitionType: AcquisitionTypeOwnPurchase, SupplierId: 3}
	if err := ownPurchase.validate(); err == nil {
		t.Fatal("own-purchase item with supplier should be rejected")
	}
	ownPurchase.SupplierId = 0
	if err := ownPurchase.validate(); err != nil {
		t.Fatal(err)
	}

	unknown := NewItem{AcquisitionType: "Borrowed"}
	if err := unknown.validate(); err == nil {
		t.Fatal("unknown acquisition type should be rejected")
	}
}
