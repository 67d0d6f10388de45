package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Error taxonomy for the settlement/ledger core.
//
// Validation errors reject malformed input before any state is touched.
// Conflict errors report a state that forbids the operation, with enough
// context (identifiers, available balances) for the caller to react; they
// never leave a ledger partially mutated. Not-found errors are
// distinguishable from conflicts via errors.Is/errors.As.

var (
	ErrRegisterNotOpen            = errors.New("register is not open")
	ErrRegisterOwnershipMismatch  = errors.New("register is opened by another operator")
	ErrNoItemsToSettle            = errors.New("no unsettled sold items in the period")
	ErrSettlementAlreadyPaid      = errors.New("settlement is already paid")
	ErrSettlementAlreadyCancelled = errors.New("settlement is already cancelled")
	ErrCannotCancelPaidSettlement = errors.New("cannot cancel a paid settlement")
	ErrConcurrentModification     = errors.New("concurrent modification, retry the operation")
	ErrInstrumentNotActive        = errors.New("store credit instrument is not active")
)

// ItemsNotFoundError lists the identification numbers that matched no item.
type ItemsNotFoundError struct {
	Numbers []string
}

func (e *ItemsNotFoundError) Error() string {
	return "items not found: " + strings.Join(e.Numbers, ", ")
}

// ItemNotSellableError lists items whose status forbids selling.
type ItemNotSellableError struct {
	Numbers []string
}

func (e *ItemNotSellableError) Error() string {
	return "items not sellable: " + strings.Join(e.Numbers, ", ")
}

// InsufficientStoreCreditError reports the supplier's aggregate active
// balance at the time the payment was rejected.
type InsufficientStoreCreditError struct {
	SupplierId int
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientStoreCreditError) Error() string {
	return fmt.Sprintf("insufficient store credit for supplier %d: available %s, requested %s",
		e.SupplierId, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}

// InsufficientCashBalanceError reports the supplier's cash balance at the
// time the redemption was rejected.
type InsufficientCashBalanceError struct {
	SupplierId int
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientCashBalanceError) Error() string {
	return fmt.Sprintf("insufficient cash balance for supplier %d: available %s, requested %s",
		e.SupplierId, e.Available.StringFixed(2), e.Requested.StringFixed(2))
}
