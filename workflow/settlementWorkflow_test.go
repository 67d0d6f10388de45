package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/retrove/consign_backend/models"
)

// fakePayoutBook mirrors the payout transaction in memory: a status guard
// in front of ledger appends, the way PaySettlement guards under its row
// lock. Lets the pay-once and claim-once rules run without a database.
type fakePayoutBook struct {
	settlements map[int]*models.Settlement
	entries     []string
	claimedBy   map[int]int
}

func newFakePayoutBook() *fakePayoutBook {
	return &fakePayoutBook{
		settlements: map[int]*models.Settlement{},
		claimedBy:   map[int]int{},
	}
}

func (b *fakePayoutBook) pay(settlementId int) error {
	settlement := b.settlements[settlementId]
	if err := settlement.EnsurePayable(); err != nil {
		return err
	}
	b.entries = append(b.entries, "store-credit", "cash")
	settlement.Status = models.SettlementStatusPaid
	return nil
}

func (b *fakePayoutBook) claim(settlementId int, lineIds []int) (int, error) {
	claimed := 0
	for _, id := range lineIds {
		if b.claimedBy[id] != 0 {
			continue
		}
		b.claimedBy[id] = settlementId
		claimed++
	}
	if claimed == 0 {
		return 0, models.ErrNoItemsToSettle
	}
	return claimed, nil
}

func TestPaySettlement_SecondCallChangesNothing(t *testing.T) {
	book := newFakePayoutBook()
	book.settlements[1] = &models.Settlement{ID: 1, Status: models.SettlementStatusPending}

	if err := book.pay(1); err != nil {
		t.Fatalf("first pay must succeed: %v", err)
	}
	if len(book.entries) != 2 {
		t.Fatalf("expected 2 ledger entries after payout, got %d", len(book.entries))
	}

	err := book.pay(1)
	if !errors.Is(err, models.ErrSettlementAlreadyPaid) {
		t.Fatalf("expected ErrSettlementAlreadyPaid, got %v", err)
	}
	if len(book.entries) != 2 {
		t.Fatalf("second pay must write no ledger entries, got %d", len(book.entries))
	}
}

func TestSettlementClaim_LinesSettleOnlyOnce(t *testing.T) {
	book := newFakePayoutBook()
	lines := []int{11, 12, 13}

	claimed, err := book.claim(1, lines)
	if err != nil || claimed != 3 {
		t.Fatalf("first settlement must claim all 3 lines, got %d, %v", claimed, err)
	}

	if _, err := book.claim(2, lines); !errors.Is(err, models.ErrNoItemsToSettle) {
		t.Fatalf("overlapping settlement must find nothing to settle, got %v", err)
	}
	for _, id := range lines {
		if book.claimedBy[id] != 1 {
			t.Fatalf("line %d must stay with the first settlement, got %d", id, book.claimedBy[id])
		}
	}
}

func TestStoreCreditExpiry(t *testing.T) {
	issuedOn := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

	t.Setenv("STORE_CREDIT_EXPIRY_DAYS", "")
	if got := storeCreditExpiry(issuedOn); got != nil {
		t.Fatalf("unset env must mean no expiry, got %v", got)
	}

	t.Setenv("STORE_CREDIT_EXPIRY_DAYS", "0")
	if got := storeCreditExpiry(issuedOn); got != nil {
		t.Fatalf("zero days must mean no expiry, got %v", got)
	}

	t.Setenv("STORE_CREDIT_EXPIRY_DAYS", "90")
	got := storeCreditExpiry(issuedOn)
	if got == nil {
		t.Fatal("expected an expiry date")
	}
	want := issuedOn.AddDate(0, 0, 90)
	if !got.Equal(want) {
		t.Fatalf("expected expiry %v, got %v", want, *got)
	}

	t.Setenv("STORE_CREDIT_EXPIRY_DAYS", "not-a-number")
	if got := storeCreditExpiry(issuedOn); got != nil {
		t.Fatalf("unparseable env must mean no expiry, got %v", got)
	}
}
