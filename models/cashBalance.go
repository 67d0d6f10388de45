package models

import (
	"context"
	"errors"
	"time"

	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CashBalanceTransactionType string

const (
	CashBalanceTransactionTypeSettlement CashBalanceTransactionType = "Settlement"
	CashBalanceTransactionTypeRedemption CashBalanceTransactionType = "Redemption"
)

// CashBalanceTransaction is one signed entry in a supplier's
// cash-redeemable ledger: positive entries are credited by settlements,
// negative entries are cash redemptions. The ledger is append-only; the
// supplier's balance is always the sum of entries and is never stored.
type CashBalanceTransaction struct {
	ID           int                        `gorm:"primary_key" json:"id"`
	SupplierId   int                        `gorm:"index;not null" json:"supplier_id"`
	Type         CashBalanceTransactionType `gorm:"type:enum('Settlement','Redemption');not null" json:"type"`
	Amount       decimal.Decimal            `gorm:"type:decimal(20,4);default:0" json:"amount"`
	SettlementId int                        `gorm:"index;default:null" json:"settlement_id"`
	Notes        string                     `gorm:"size:255" json:"notes"`
	RecordedBy   string                     `gorm:"size:100" json:"recorded_by"`
	CreatedAt    time.Time                  `gorm:"autoCreateTime" json:"created_at"`
}

func cashBalanceTx(tx *gorm.DB, supplierId int) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := tx.Model(&CashBalanceTransaction{}).
		Where("supplier_id = ?", supplierId).
		Select("sum(amount)").Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// CashBalance returns the supplier's current cash-redeemable balance.
func CashBalance(ctx context.Context, supplierId int) (decimal.Decimal, error) {
	db := config.GetDB()
	return cashBalanceTx(db.WithContext(ctx), supplierId)
}

// CreditCashFromSettlement writes the positive settlement entry inside the
// caller's transaction.
func CreditCashFromSettlement(tx *gorm.DB, supplierId int, amount decimal.Decimal, settlementId int, recordedBy string) error {
	if !amount.GreaterThan(decimal.Zero) {
		return errors.New("settlement cash amount must be positive")
	}
	entry := CashBalanceTransaction{
		SupplierId:   supplierId,
		Type:         CashBalanceTransactionTypeSettlement,
		Amount:       amount,
		SettlementId: settlementId,
		RecordedBy:   recordedBy,
	}
	return tx.Create(&entry).Error
}

// CheckCashRedeemable is the redemption guard: a redemption must be
// strictly positive and must not draw the balance below zero.
func CheckCashRedeemable(supplierId int, balance decimal.Decimal, amount decimal.Decimal) error {
	if !amount.GreaterThan(decimal.Zero) {
		return errors.New("redemption amount must be positive")
	}
	if balance.LessThan(amount) {
		return &InsufficientCashBalanceError{SupplierId: supplierId, Available: balance, Requested: amount}
	}
	return nil
}

// RedeemCash pays out part of the supplier's cash balance as a single
// negative transaction. The supplier row is locked FOR UPDATE for the
// whole check-then-insert, so a concurrent redemption blocks until this
// one commits and then sees the new entry in its sum. The advisory posting
// lock alone is not enough here: it is released before COMMIT.
func RedeemCash(ctx context.Context, supplierId int, amount decimal.Decimal, notes string, recordedBy string) (*CashBalanceTransaction, error) {

	if !amount.GreaterThan(decimal.Zero) {
		return nil, errors.New("redemption amount must be positive")
	}
	if _, err := GetSupplier(ctx, supplierId); err != nil {
		return nil, err
	}

	db := config.GetDB()
	var entry CashBalanceTransaction
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.AcquireSupplierPostingLock(tx, supplierId); err != nil {
			return err
		}
		defer utils.ReleaseSupplierPostingLock(tx, supplierId)

		var supplier Supplier
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&supplier, supplierId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		balance, err := cashBalanceTx(tx, supplierId)
		if err != nil {
			return err
		}
		if err := CheckCashRedeemable(supplierId, balance, amount); err != nil {
			return err
		}
		entry = CashBalanceTransaction{
			SupplierId: supplierId,
			Type:       CashBalanceTransactionTypeRedemption,
			Amount:     amount.Neg(),
			Notes:      notes,
			RecordedBy: recordedBy,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}
