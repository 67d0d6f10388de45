package workflow

import (
	"errors"
	"testing"

	"github.com/retrove/consign_backend/models"
)

func saleLine(id int, number string) models.SaleLineComputation {
	return models.SaleLineComputation{
		Item: &models.Item{ID: id, IdentificationNumber: number, Status: models.ItemStatusToSell},
	}
}

func TestRelockError(t *testing.T) {
	lines := []models.SaleLineComputation{
		saleLine(1, "C202601-0001"),
		saleLine(2, "C202601-0002"),
	}

	locked := map[int]*models.Item{
		1: {ID: 1, IdentificationNumber: "C202601-0001", Status: models.ItemStatusToSell},
		2: {ID: 2, IdentificationNumber: "C202601-0002", Status: models.ItemStatusToSell},
	}
	if err := relockError(lines, locked); err != nil {
		t.Fatalf("all items still sellable must pass: %v", err)
	}

	// Sold out from under the transaction by another register.
	locked[2] = &models.Item{ID: 2, IdentificationNumber: "C202601-0002", Status: models.ItemStatusSold}
	err := relockError(lines, locked)
	var notSellable *models.ItemNotSellableError
	if !errors.As(err, &notSellable) {
		t.Fatalf("expected ItemNotSellableError, got %v", err)
	}
	if len(notSellable.Numbers) != 1 || notSellable.Numbers[0] != "C202601-0002" {
		t.Fatalf("error must name the sold item: %v", notSellable.Numbers)
	}

	// Deleted between the read and the transaction: reported as missing,
	// never as an empty not-sellable list.
	delete(locked, 1)
	err = relockError(lines, locked)
	var missing *models.ItemsNotFoundError
	if !errors.As(err, &missing) {
		t.Fatalf("expected ItemsNotFoundError, got %v", err)
	}
	if len(missing.Numbers) != 1 || missing.Numbers[0] != "C202601-0001" {
		t.Fatalf("error must name the vanished item: %v", missing.Numbers)
	}
}
