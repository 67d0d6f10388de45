package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/retrove/consign_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaymentMethod string

const (
	PaymentMethodCash        PaymentMethod = "Cash"
	PaymentMethodCard        PaymentMethod = "Card"
	PaymentMethodTransfer    PaymentMethod = "Transfer"
	PaymentMethodStoreCredit PaymentMethod = "StoreCredit"
)

func IsKnownPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCash, PaymentMethodCard, PaymentMethodTransfer, PaymentMethodStoreCredit:
		return true
	}
	return false
}

// Sale is one point-of-sale transaction. TotalAmount = Subtotal -
// DiscountAmount, and the sale-item final prices always sum to
// TotalAmount after global-discount redistribution.
type Sale struct {
	ID                 int             `gorm:"primary_key" json:"id"`
	PublicId           string          `gorm:"size:36;uniqueIndex;not null" json:"public_id"`
	SaleNumber         string          `gorm:"size:20;uniqueIndex;not null" json:"sale_number"`
	SaleDay            string          `gorm:"size:8;index;not null" json:"sale_day"`
	NumberSequence     int             `gorm:"not null" json:"number_sequence"`
	SaleDate           time.Time       `gorm:"index;not null" json:"sale_date"`
	RegisterId         int             `gorm:"index;not null" json:"register_id"`
	OperatorId         int             `gorm:"index;not null" json:"operator_id"`
	Subtotal           decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"subtotal"`
	DiscountPercentage decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	TotalAmount        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_amount"`
	ChangeAmount       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"change_amount"`
	SaleItems          []SaleItem      `gorm:"foreignKey:SaleId" json:"sale_items"`
	Payments           []Payment       `gorm:"foreignKey:SaleId" json:"payments"`
	SoftDelete
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SaleItem is one line of a sale. SettlementId is the sole "is this item
// settled" marker: set when a settlement claims the line, cleared when that
// settlement is cancelled.
type SaleItem struct {
	ID             int             `gorm:"primary_key" json:"id"`
	SaleId         int             `gorm:"index;not null" json:"sale_id"`
	ItemId         int             `gorm:"index;not null" json:"item_id"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_price"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	FinalPrice     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"final_price"`
	SettlementId   int             `gorm:"index;default:null" json:"settlement_id"`
	CreatedAt      time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type Payment struct {
	ID         int             `gorm:"primary_key" json:"id"`
	SaleId     int             `gorm:"index;not null" json:"sale_id"`
	Method     PaymentMethod   `gorm:"type:enum('Cash','Card','Transfer','StoreCredit');not null" json:"method"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"amount"`
	SupplierId int             `gorm:"index;default:null" json:"supplier_id"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSaleLine struct {
	ItemNumber string          `json:"item_number" validate:"required"`
	Discount   decimal.Decimal `json:"discount"`
}

type NewPayment struct {
	Method     PaymentMethod   `json:"method" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	SupplierId int             `json:"supplier_id"`
}

type NewSale struct {
	RegisterId         int              `json:"register_id" validate:"required"`
	Lines              []NewSaleLine    `json:"lines" validate:"required,min=1,dive"`
	Payments           []NewPayment     `json:"payments" validate:"required,min=1,max=2,dive"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage"`
}

// SaleSummary is the flat receipt payload for the sale.completed event.
type SaleSummary struct {
	SaleNumber   string          `json:"sale_number"`
	SaleDate     time.Time       `json:"sale_date"`
	ItemNumbers  []string        `json:"item_numbers"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	ChangeAmount decimal.Decimal `json:"change_amount"`
}

// SaleLineComputation pairs a loaded item with its computed pricing.
type SaleLineComputation struct {
	Item           *Item
	UnitPrice      decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalPrice     decimal.Decimal
}

type SaleComputation struct {
	Lines              []SaleLineComputation
	Subtotal           decimal.Decimal
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
	TotalAmount        decimal.Decimal
}

// ComputeSaleTotals runs the pricing part of the sale algorithm over
// already-loaded items: per-item discounts first, then the global discount
// percentage redistributed proportionally onto each line's remaining final
// price, so that sum(line.FinalPrice) == TotalAmount exactly.
func ComputeSaleTotals(items []*Item, discounts []decimal.Decimal, globalPct decimal.Decimal) (*SaleComputation, error) {

	if len(items) == 0 {
		return nil, errors.New("sale requires at least one item")
	}
	if len(items) != len(discounts) {
		return nil, errors.New("per-item discount count mismatch")
	}
	if !utils.IsValidPercentage(globalPct) {
		return nil, errors.New("global discount percentage must be between 0 and 100")
	}

	comp := SaleComputation{
		Lines:              make([]SaleLineComputation, 0, len(items)),
		DiscountPercentage: globalPct,
	}

	for i, item := range items {
		discount := discounts[i]
		if discount.IsNegative() {
			return nil, fmt.Errorf("negative discount on item %s", item.IdentificationNumber)
		}
		if discount.GreaterThan(item.EvaluatedPrice) {
			return nil, fmt.Errorf("discount exceeds price of item %s", item.IdentificationNumber)
		}
		line := SaleLineComputation{
			Item:           item,
			UnitPrice:      item.EvaluatedPrice,
			DiscountAmount: discount,
			FinalPrice:     item.EvaluatedPrice.Sub(discount),
		}
		comp.Subtotal = comp.Subtotal.Add(item.EvaluatedPrice)
		comp.Lines = append(comp.Lines, line)
	}

	if globalPct.GreaterThan(decimal.Zero) {
		for i := range comp.Lines {
			extra := utils.CalculateDiscountAmount(comp.Lines[i].FinalPrice, globalPct, "P")
			comp.Lines[i].DiscountAmount = comp.Lines[i].DiscountAmount.Add(extra)
			comp.Lines[i].FinalPrice = comp.Lines[i].FinalPrice.Sub(extra)
		}
	}

	for _, line := range comp.Lines {
		comp.DiscountAmount = comp.DiscountAmount.Add(line.DiscountAmount)
	}
	comp.TotalAmount = comp.Subtotal.Sub(comp.DiscountAmount)
	if comp.TotalAmount.IsNegative() {
		return nil, errors.New("sale total must not be negative")
	}
	return &comp, nil
}

// ValidatePayments checks the payment lines against the computed total and
// returns the overage (change, meaningful only for cash).
func ValidatePayments(payments []NewPayment, totalAmount decimal.Decimal) (decimal.Decimal, error) {

	if len(payments) < 1 || len(payments) > 2 {
		return decimal.Zero, errors.New("a sale takes 1 or 2 payment lines")
	}
	var paid decimal.Decimal
	for _, p := range payments {
		if !IsKnownPaymentMethod(p.Method) {
			return decimal.Zero, fmt.Errorf("unknown payment method %q", p.Method)
		}
		if !p.Amount.GreaterThan(decimal.Zero) {
			return decimal.Zero, errors.New("payment amount must be positive")
		}
		if p.Method == PaymentMethodStoreCredit && p.SupplierId == 0 {
			return decimal.Zero, errors.New("store credit payment requires a supplier")
		}
		paid = paid.Add(p.Amount)
	}
	if paid.LessThan(totalAmount) {
		return decimal.Zero, errors.New("payments do not cover the sale total")
	}
	return paid.Sub(totalAmount), nil
}

// NextSaleNumber allocates the next daily sale number inside tx:
// V{yyyyMMdd}-{seq:%03d}. Soft-deleted sales count toward the sequence;
// the unique index is the collision guard and callers retry once on a
// duplicate-key error.
func NextSaleNumber(tx *gorm.DB, day time.Time) (string, string, int, error) {
	saleDay := day.Format("20060102")
	var maxSeq *int
	err := tx.Unscoped().Model(&Sale{}).
		Where("sale_day = ?", saleDay).
		Select("max(number_sequence)").Scan(&maxSeq).Error
	if err != nil {
		return "", "", 0, err
	}
	seq := 1
	if maxSeq != nil {
		seq = *maxSeq + 1
	}
	return fmt.Sprintf("V%s-%03d", saleDay, seq), saleDay, seq, nil
}
