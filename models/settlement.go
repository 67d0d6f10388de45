package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "Pending"
	SettlementStatusPaid      SettlementStatus = "Paid"
	SettlementStatusCancelled SettlementStatus = "Cancelled"
)

// Settlement is a payout batch for one supplier over a date range. It owns
// the sale-item lines it settles via SaleItem.SettlementId — that link is
// the sole "settled" marker for an item. Once Paid, a settlement owns at
// most one store-credit instrument and zero-or-more cash-balance entries.
type Settlement struct {
	ID                       int              `gorm:"primary_key" json:"id"`
	PublicId                 string           `gorm:"size:36;uniqueIndex;not null" json:"public_id"`
	SettlementNumber         string           `gorm:"size:20;uniqueIndex;not null" json:"settlement_number"`
	NumberPrefix             string           `gorm:"size:20;index;not null" json:"number_prefix"`
	NumberSequence           int              `gorm:"not null" json:"number_sequence"`
	SupplierId               int              `gorm:"index;not null" json:"supplier_id"`
	PeriodStart              time.Time        `gorm:"not null" json:"period_start"`
	PeriodEnd                time.Time        `gorm:"not null" json:"period_end"`
	TotalSalesAmount         decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"total_sales_amount"`
	CreditPercentageInStore  decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"credit_percentage_in_store"`
	CashRedemptionPercentage decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"cash_redemption_percentage"`
	StoreCreditAmount        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"store_credit_amount"`
	CashRedemptionAmount     decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"cash_redemption_amount"`
	StoreCommissionAmount    decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"store_commission_amount"`
	Status                   SettlementStatus `gorm:"type:enum('Pending','Paid','Cancelled');not null;default:'Pending';index" json:"status"`
	Notes                    string           `gorm:"type:text" json:"notes"`
	PaidOn                   *time.Time       `json:"paid_on"`
	PaidBy                   string           `gorm:"size:100" json:"paid_by"`
	StoreCreditId            int              `gorm:"index;default:null" json:"store_credit_id"`
	SaleItems                []SaleItem       `gorm:"foreignKey:SettlementId" json:"sale_items"`
	CreatedAt                time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// SettlementSplit is the payout computation for a settlement period.
type SettlementSplit struct {
	TotalSalesAmount         decimal.Decimal `json:"total_sales_amount"`
	CreditPercentageInStore  decimal.Decimal `json:"credit_percentage_in_store"`
	CashRedemptionPercentage decimal.Decimal `json:"cash_redemption_percentage"`
	StoreCreditAmount        decimal.Decimal `json:"store_credit_amount"`
	CashRedemptionAmount     decimal.Decimal `json:"cash_redemption_amount"`
	StoreCommissionAmount    decimal.Decimal `json:"store_commission_amount"`
	NetAmountToSupplier      decimal.Decimal `json:"net_amount_to_supplier"`
	ItemCount                int             `json:"item_count"`
}

// SettlementSummary is the flat payout payload for the settlement.paid event.
type SettlementSummary struct {
	SettlementNumber     string          `json:"settlement_number"`
	SupplierName         string          `json:"supplier_name"`
	SupplierEmail        string          `json:"supplier_email"`
	PeriodStart          time.Time       `json:"period_start"`
	PeriodEnd            time.Time       `json:"period_end"`
	TotalSalesAmount     decimal.Decimal `json:"total_sales_amount"`
	StoreCreditAmount    decimal.Decimal `json:"store_credit_amount"`
	CashRedemptionAmount decimal.Decimal `json:"cash_redemption_amount"`
	ItemCount            int             `json:"item_count"`
}

// ComputeSettlementSplit derives the payout amounts from the period total
// and the supplier's two percentages. The store keeps whatever the two
// shares leave over.
func ComputeSettlementSplit(total decimal.Decimal, creditPct decimal.Decimal, cashPct decimal.Decimal) SettlementSplit {
	storeCredit := total.Mul(creditPct).DivRound(decimal.NewFromInt(100), 4)
	cashRedemption := total.Mul(cashPct).DivRound(decimal.NewFromInt(100), 4)
	return SettlementSplit{
		TotalSalesAmount:         total,
		CreditPercentageInStore:  creditPct,
		CashRedemptionPercentage: cashPct,
		StoreCreditAmount:        storeCredit,
		CashRedemptionAmount:     cashRedemption,
		StoreCommissionAmount:    total.Sub(storeCredit).Sub(cashRedemption),
		NetAmountToSupplier:      storeCredit.Add(cashRedemption),
	}
}

// EnsurePayable guards the payout: only a Pending settlement may be paid,
// so a repeated pay call is rejected before any ledger entry is written.
func (s *Settlement) EnsurePayable() error {
	switch s.Status {
	case SettlementStatusPaid:
		return ErrSettlementAlreadyPaid
	case SettlementStatusCancelled:
		return ErrSettlementAlreadyCancelled
	}
	return nil
}

// EnsureCancellable guards cancellation: a Paid settlement has already
// posted its ledger entries and can never be released.
func (s *Settlement) EnsureCancellable() error {
	switch s.Status {
	case SettlementStatusPaid:
		return ErrCannotCancelPaidSettlement
	case SettlementStatusCancelled:
		return ErrSettlementAlreadyCancelled
	}
	return nil
}

// SettlementPeriodEnd returns the exclusive upper bound of the selection
// window: the item's sold timestamp is matched inclusively at periodStart
// and exclusively at periodEnd plus one day.
func SettlementPeriodEnd(periodEnd time.Time) time.Time {
	return periodEnd.AddDate(0, 0, 1)
}

// SelectUnsettledSaleItems picks the supplier's sold-and-unsettled
// consignment sale lines inside the period. When forUpdate is set the rows
// are locked so two concurrent settlements cannot claim the same line.
func SelectUnsettledSaleItems(tx *gorm.DB, supplierId int, periodStart time.Time, periodEnd time.Time, forUpdate bool) ([]SaleItem, decimal.Decimal, error) {

	dbCtx := tx.Model(&SaleItem{}).
		Joins("JOIN items ON items.id = sale_items.item_id").
		Where("items.supplier_id = ?", supplierId).
		Where("items.acquisition_type = ?", AcquisitionTypeConsignment).
		Where("items.status = ?", ItemStatusSold).
		Where("items.deleted_at IS NULL").
		Where("items.sold_at >= ? AND items.sold_at < ?", periodStart, SettlementPeriodEnd(periodEnd)).
		Where("sale_items.settlement_id IS NULL OR sale_items.settlement_id = 0")
	if forUpdate {
		dbCtx = dbCtx.Clauses(clause.Locking{Strength: "UPDATE", Table: clause.Table{Name: "sale_items"}})
	}

	var lines []SaleItem
	if err := dbCtx.Select("sale_items.*").Find(&lines).Error; err != nil {
		return nil, decimal.Zero, err
	}

	var total decimal.Decimal
	for _, line := range lines {
		total = total.Add(line.FinalPrice)
	}
	return lines, total, nil
}

// NextSettlementNumber allocates the next monthly settlement number inside
// tx: ST{yyyyMM}-{seq:%03d}.
func NextSettlementNumber(tx *gorm.DB, now time.Time) (string, string, int, error) {
	prefix := "ST" + now.Format("200601")
	var maxSeq *int
	err := tx.Model(&Settlement{}).
		Where("number_prefix = ?", prefix).
		Select("max(number_sequence)").Scan(&maxSeq).Error
	if err != nil {
		return "", "", 0, err
	}
	seq := 1
	if maxSeq != nil {
		seq = *maxSeq + 1
	}
	return fmt.Sprintf("%s-%03d", prefix, seq), prefix, seq, nil
}
