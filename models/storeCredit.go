package models

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StoreCreditStatus string

const (
	StoreCreditStatusActive    StoreCreditStatus = "Active"
	StoreCreditStatusFullyUsed StoreCreditStatus = "FullyUsed"
	StoreCreditStatusExpired   StoreCreditStatus = "Expired"
	StoreCreditStatusCancelled StoreCreditStatus = "Cancelled"
)

type StoreCreditTransactionType string

const (
	StoreCreditTransactionTypeIssue        StoreCreditTransactionType = "Issue"
	StoreCreditTransactionTypeUse          StoreCreditTransactionType = "Use"
	StoreCreditTransactionTypeAdjustment   StoreCreditTransactionType = "Adjustment"
	StoreCreditTransactionTypeExpiration   StoreCreditTransactionType = "Expiration"
	StoreCreditTransactionTypeCancellation StoreCreditTransactionType = "Cancellation"
)

// StoreCredit is one credit instrument issued to a supplier. The
// transaction log is append-only; CurrentBalance is the cached sum of the
// signed transaction amounts and is kept in lockstep inside every mutating
// transaction (cmd/ledger-recheck recomputes it from the log).
type StoreCredit struct {
	ID             int                      `gorm:"primary_key" json:"id"`
	PublicId       string                   `gorm:"size:36;uniqueIndex;not null" json:"public_id"`
	SupplierId     int                      `gorm:"index;not null" json:"supplier_id"`
	OriginalAmount decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"original_amount"`
	CurrentBalance decimal.Decimal          `gorm:"type:decimal(20,4);default:0" json:"current_balance"`
	Status         StoreCreditStatus        `gorm:"type:enum('Active','FullyUsed','Expired','Cancelled');not null;default:'Active';index" json:"status"`
	IssuedOn       time.Time                `gorm:"index;not null" json:"issued_on"`
	ExpiresOn      *time.Time               `gorm:"index" json:"expires_on"`
	SettlementId   int                      `gorm:"index;default:null" json:"settlement_id"`
	Notes          string                   `gorm:"size:255" json:"notes"`
	Transactions   []StoreCreditTransaction `gorm:"foreignKey:StoreCreditId" json:"transactions"`
	CreatedAt      time.Time                `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time                `gorm:"autoUpdateTime" json:"updated_at"`
}

// StoreCreditTransaction is one immutable signed ledger entry.
type StoreCreditTransaction struct {
	ID               int                        `gorm:"primary_key" json:"id"`
	StoreCreditId    int                        `gorm:"index;not null" json:"store_credit_id"`
	Type             StoreCreditTransactionType `gorm:"type:enum('Issue','Use','Adjustment','Expiration','Cancellation');not null" json:"type"`
	Amount           decimal.Decimal            `gorm:"type:decimal(20,4);default:0" json:"amount"`
	ResultingBalance decimal.Decimal            `gorm:"type:decimal(20,4);default:0" json:"resulting_balance"`
	SaleId           int                        `gorm:"index;default:null" json:"sale_id"`
	Notes            string                     `gorm:"size:255" json:"notes"`
	CreatedAt        time.Time                  `gorm:"autoCreateTime" json:"created_at"`
}

func (sc *StoreCredit) isExpired(now time.Time) bool {
	return sc.ExpiresOn != nil && !sc.ExpiresOn.After(now)
}

// Usable reports whether the instrument can cover a debit right now.
func (sc *StoreCredit) Usable(now time.Time) bool {
	return sc.Status == StoreCreditStatusActive && !sc.isExpired(now) &&
		sc.CurrentBalance.GreaterThan(decimal.Zero)
}

// CreditDraw is one instrument's share of a planned consumption.
type CreditDraw struct {
	Credit *StoreCredit
	Amount decimal.Decimal
}

// PlanCreditConsumption plans a FIFO consumption of amount across the given
// instruments: oldest IssuedOn first, ties broken by id. The plan stops
// exactly at amount; if the instruments cannot cover it the error reports
// the available total.
func PlanCreditConsumption(supplierId int, instruments []*StoreCredit, amount decimal.Decimal, now time.Time) ([]CreditDraw, error) {

	if !amount.GreaterThan(decimal.Zero) {
		return nil, errors.New("consumption amount must be positive")
	}

	usable := make([]*StoreCredit, 0, len(instruments))
	var available decimal.Decimal
	for _, sc := range instruments {
		if sc.Usable(now) {
			usable = append(usable, sc)
			available = available.Add(sc.CurrentBalance)
		}
	}
	if available.LessThan(amount) {
		return nil, &InsufficientStoreCreditError{SupplierId: supplierId, Available: available, Requested: amount}
	}

	// deterministic FIFO order
	for i := 1; i < len(usable); i++ {
		for j := i; j > 0; j-- {
			a, b := usable[j-1], usable[j]
			if b.IssuedOn.Before(a.IssuedOn) || (b.IssuedOn.Equal(a.IssuedOn) && b.ID < a.ID) {
				usable[j-1], usable[j] = b, a
			} else {
				break
			}
		}
	}

	var draws []CreditDraw
	remaining := amount
	for _, sc := range usable {
		if !remaining.GreaterThan(decimal.Zero) {
			break
		}
		draw := decimal.Min(sc.CurrentBalance, remaining)
		draws = append(draws, CreditDraw{Credit: sc, Amount: draw})
		remaining = remaining.Sub(draw)
	}
	return draws, nil
}

// apply a signed mutation to the instrument and return the entry to append.
// A zero resulting balance flips the instrument to FullyUsed.
func (sc *StoreCredit) apply(txnType StoreCreditTransactionType, amount decimal.Decimal, saleId int, notes string) (*StoreCreditTransaction, error) {
	next := sc.CurrentBalance.Add(amount)
	if next.IsNegative() {
		return nil, errors.New("store credit balance must not go negative")
	}
	sc.CurrentBalance = next
	if next.IsZero() && sc.Status == StoreCreditStatusActive {
		sc.Status = StoreCreditStatusFullyUsed
	}
	return &StoreCreditTransaction{
		StoreCreditId:    sc.ID,
		Type:             txnType,
		Amount:           amount,
		ResultingBalance: next,
		SaleId:           saleId,
		Notes:            notes,
	}, nil
}

func saveCreditMutation(tx *gorm.DB, sc *StoreCredit, entry *StoreCreditTransaction) error {
	if err := tx.Create(entry).Error; err != nil {
		return err
	}
	return tx.Model(sc).Updates(map[string]interface{}{
		"CurrentBalance": sc.CurrentBalance,
		"Status":         sc.Status,
	}).Error
}

// IssueStoreCredit creates a new instrument with its Issue transaction
// inside the caller's transaction.
func IssueStoreCredit(tx *gorm.DB, supplierId int, amount decimal.Decimal, expiresOn *time.Time, settlementId int, notes string) (*StoreCredit, error) {

	if !amount.GreaterThan(decimal.Zero) {
		return nil, errors.New("issue amount must be positive")
	}

	credit := StoreCredit{
		PublicId:       uuid.NewString(),
		SupplierId:     supplierId,
		OriginalAmount: amount,
		CurrentBalance: amount,
		Status:         StoreCreditStatusActive,
		IssuedOn:       time.Now(),
		ExpiresOn:      expiresOn,
		SettlementId:   settlementId,
		Notes:          notes,
	}
	if err := tx.Create(&credit).Error; err != nil {
		return nil, err
	}
	entry := StoreCreditTransaction{
		StoreCreditId:    credit.ID,
		Type:             StoreCreditTransactionTypeIssue,
		Amount:           amount,
		ResultingBalance: amount,
		Notes:            notes,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &credit, nil
}

// lockActiveCredits loads the supplier's Active instruments FOR UPDATE in
// FIFO order.
func lockActiveCredits(tx *gorm.DB, supplierId int) ([]*StoreCredit, error) {
	var credits []*StoreCredit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("supplier_id = ? AND status = ?", supplierId, StoreCreditStatusActive).
		Order("issued_on, id").
		Find(&credits).Error
	if err != nil {
		return nil, err
	}
	return credits, nil
}

// ConsumeStoreCredit drains amount from the supplier's instruments
// oldest-issue-first inside the caller's transaction, writing one negative
// Use transaction per instrument touched.
func ConsumeStoreCredit(tx *gorm.DB, supplierId int, amount decimal.Decimal, saleId int) ([]CreditDraw, error) {

	credits, err := lockActiveCredits(tx, supplierId)
	if err != nil {
		return nil, err
	}
	draws, err := PlanCreditConsumption(supplierId, credits, amount, time.Now())
	if err != nil {
		return nil, err
	}
	for _, draw := range draws {
		entry, err := draw.Credit.apply(StoreCreditTransactionTypeUse, draw.Amount.Neg(), saleId, "")
		if err != nil {
			return nil, err
		}
		if err := saveCreditMutation(tx, draw.Credit, entry); err != nil {
			return nil, err
		}
	}
	return draws, nil
}

// AvailableStoreCredit returns the supplier's aggregate balance across
// Active, non-expired instruments.
func AvailableStoreCredit(ctx context.Context, supplierId int) (decimal.Decimal, error) {
	db := config.GetDB()
	var total decimal.NullDecimal
	err := db.WithContext(ctx).Model(&StoreCredit{}).
		Where("supplier_id = ? AND status = ?", supplierId, StoreCreditStatusActive).
		Where("expires_on IS NULL OR expires_on > ?", time.Now()).
		Select("sum(current_balance)").Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// AdjustStoreCredit applies a signed manual adjustment to an Active
// instrument. The balance never goes below zero; reaching exactly zero
// flips the instrument to FullyUsed.
func AdjustStoreCredit(ctx context.Context, creditId int, amount decimal.Decimal, notes string) (*StoreCredit, error) {

	if amount.IsZero() {
		return nil, errors.New("adjustment amount must not be zero")
	}

	db := config.GetDB()
	var credit StoreCredit
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&credit, creditId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if credit.Status != StoreCreditStatusActive {
			return ErrInstrumentNotActive
		}
		entry, err := credit.apply(StoreCreditTransactionTypeAdjustment, amount, 0, notes)
		if err != nil {
			return err
		}
		return saveCreditMutation(tx, &credit, entry)
	})
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

// CancelStoreCredit writes one transaction zeroing any remaining balance
// and locks the instrument to Cancelled permanently.
func CancelStoreCredit(ctx context.Context, creditId int, notes string) (*StoreCredit, error) {

	db := config.GetDB()
	var credit StoreCredit
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&credit, creditId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if credit.Status == StoreCreditStatusCancelled {
			return errors.New("store credit is already cancelled")
		}
		entry, err := credit.apply(StoreCreditTransactionTypeCancellation, credit.CurrentBalance.Neg(), 0, notes)
		if err != nil {
			return err
		}
		credit.Status = StoreCreditStatusCancelled
		return saveCreditMutation(tx, &credit, entry)
	})
	if err != nil {
		return nil, err
	}
	return &credit, nil
}

// ExpireDueStoreCredits zeroes and expires every Active instrument whose
// expiry has passed. Returns the ids of the expired instruments.
func ExpireDueStoreCredits(tx *gorm.DB, now time.Time) ([]int, error) {

	var credits []*StoreCredit
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("status = ? AND expires_on IS NOT NULL AND expires_on <= ?", StoreCreditStatusActive, now).
		Find(&credits).Error
	if err != nil {
		return nil, err
	}

	var expired []int
	for _, credit := range credits {
		entry, err := credit.apply(StoreCreditTransactionTypeExpiration, credit.CurrentBalance.Neg(), 0, "expired")
		if err != nil {
			return nil, err
		}
		credit.Status = StoreCreditStatusExpired
		if err := saveCreditMutation(tx, credit, entry); err != nil {
			return nil, err
		}
		expired = append(expired, credit.ID)
	}
	return expired, nil
}

func GetStoreCredit(ctx context.Context, id int) (*StoreCredit, error) {
	return utils.FetchModel[StoreCredit](ctx, id, "Transactions")
}
