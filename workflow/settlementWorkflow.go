package workflow

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/models"
	"github.com/retrove/consign_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NewSettlement struct {
	SupplierId  int       `json:"supplier_id" validate:"required"`
	PeriodStart time.Time `json:"period_start" validate:"required"`
	PeriodEnd   time.Time `json:"period_end" validate:"required"`
	Notes       string    `json:"notes"`
}

// CalculateSettlement previews the payout for the supplier and period
// without writing anything: same selection and split as CreateSettlement,
// but no locks and no linking.
func CalculateSettlement(ctx context.Context, supplierId int, periodStart time.Time, periodEnd time.Time) (*models.SettlementSplit, error) {

	supplier, err := models.GetSupplier(ctx, supplierId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	lines, total, err := models.SelectUnsettledSaleItems(db.WithContext(ctx), supplierId, periodStart, periodEnd, false)
	if err != nil {
		return nil, err
	}

	split := models.ComputeSettlementSplit(total, supplier.CreditPercentageInStore, supplier.CashRedemptionPercentage)
	split.ItemCount = len(lines)
	return &split, nil
}

// CreateSettlement claims the supplier's unsettled sold items for the
// period and records a Pending settlement with the payout split frozen
// from the supplier's current percentages. The claimed sale lines carry
// the settlement id from this point on; only cancellation releases them.
func CreateSettlement(ctx context.Context, input *NewSettlement) (*models.Settlement, error) {

	logger := config.GetLogger()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	supplier, err := models.GetSupplier(ctx, input.SupplierId)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var settlement models.Settlement

	for attempt := 0; attempt < 2; attempt++ {
		settlement = models.Settlement{}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := utils.AcquireSupplierPostingLock(tx, input.SupplierId); err != nil {
				return err
			}
			defer utils.ReleaseSupplierPostingLock(tx, input.SupplierId)

			lines, total, err := models.SelectUnsettledSaleItems(tx, input.SupplierId, input.PeriodStart, input.PeriodEnd, true)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				return models.ErrNoItemsToSettle
			}

			split := models.ComputeSettlementSplit(total, supplier.CreditPercentageInStore, supplier.CashRedemptionPercentage)
			number, prefix, seq, err := models.NextSettlementNumber(tx, time.Now())
			if err != nil {
				return err
			}

			settlement = models.Settlement{
				PublicId:                 uuid.NewString(),
				SettlementNumber:         number,
				NumberPrefix:             prefix,
				NumberSequence:           seq,
				SupplierId:               input.SupplierId,
				PeriodStart:              input.PeriodStart,
				PeriodEnd:                input.PeriodEnd,
				TotalSalesAmount:         split.TotalSalesAmount,
				CreditPercentageInStore:  split.CreditPercentageInStore,
				CashRedemptionPercentage: split.CashRedemptionPercentage,
				StoreCreditAmount:        split.StoreCreditAmount,
				CashRedemptionAmount:     split.CashRedemptionAmount,
				StoreCommissionAmount:    split.StoreCommissionAmount,
				Status:                   models.SettlementStatusPending,
				Notes:                    input.Notes,
			}
			if err := tx.Create(&settlement).Error; err != nil {
				return err
			}

			lineIds := make([]int, 0, len(lines))
			for _, line := range lines {
				lineIds = append(lineIds, line.ID)
			}
			return tx.Model(&models.SaleItem{}).
				Where("id IN ?", lineIds).
				Update("settlement_id", settlement.ID).Error
		})
		if err == nil || !isDuplicateKeyErr(err) {
			break
		}
	}
	if err != nil {
		if err != models.ErrNoItemsToSettle {
			config.LogError(logger, "settlementWorkflow.go", "CreateSettlement", "Transaction", input, err)
		}
		return nil, err
	}
	return &settlement, nil
}

// PaySettlement executes the payout as one atomic unit: issue the store
// credit instrument, credit the cash-redeemable balance, flip the settled
// items Sold -> Paid and mark the settlement Paid. Calling it again on a
// Paid settlement returns ErrSettlementAlreadyPaid and changes nothing.
func PaySettlement(ctx context.Context, settlementId int) (*models.Settlement, error) {

	logger := config.GetLogger()
	operatorName, _ := utils.GetOperatorNameFromContext(ctx)

	db := config.GetDB()
	var settlement models.Settlement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&settlement, settlementId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if err := settlement.EnsurePayable(); err != nil {
			return err
		}

		if err := utils.AcquireSupplierPostingLock(tx, settlement.SupplierId); err != nil {
			return err
		}
		defer utils.ReleaseSupplierPostingLock(tx, settlement.SupplierId)

		now := time.Now()
		if settlement.StoreCreditAmount.GreaterThan(decimal.Zero) {
			credit, err := models.IssueStoreCredit(tx, settlement.SupplierId,
				settlement.StoreCreditAmount, storeCreditExpiry(now), settlement.ID,
				"settlement "+settlement.SettlementNumber)
			if err != nil {
				return err
			}
			settlement.StoreCreditId = credit.ID
		}
		if settlement.CashRedemptionAmount.GreaterThan(decimal.Zero) {
			if err := models.CreditCashFromSettlement(tx, settlement.SupplierId,
				settlement.CashRedemptionAmount, settlement.ID, operatorName); err != nil {
				return err
			}
		}

		if err := tx.Model(&models.Item{}).
			Where("id IN (?)", tx.Session(&gorm.Session{NewDB: true}).
				Model(&models.SaleItem{}).Select("item_id").
				Where("settlement_id = ?", settlement.ID)).
			Where("status = ?", models.ItemStatusSold).
			Update("status", models.ItemStatusPaid).Error; err != nil {
			return err
		}

		settlement.Status = models.SettlementStatusPaid
		settlement.PaidOn = &now
		settlement.PaidBy = operatorName
		if err := tx.Model(&models.Settlement{}).Where("id = ?", settlement.ID).
			Updates(map[string]interface{}{
				"Status":        models.SettlementStatusPaid,
				"PaidOn":        &now,
				"PaidBy":        operatorName,
				"StoreCreditId": settlement.StoreCreditId,
			}).Error; err != nil {
			return err
		}

		supplier := models.Supplier{}
		if err := tx.First(&supplier, settlement.SupplierId).Error; err != nil {
			return err
		}
		var itemCount int64
		if err := tx.Model(&models.SaleItem{}).
			Where("settlement_id = ?", settlement.ID).Count(&itemCount).Error; err != nil {
			return err
		}
		summary := models.SettlementSummary{
			SettlementNumber:     settlement.SettlementNumber,
			SupplierName:         supplier.Name,
			SupplierEmail:        supplier.Email,
			PeriodStart:          settlement.PeriodStart,
			PeriodEnd:            settlement.PeriodEnd,
			TotalSalesAmount:     settlement.TotalSalesAmount,
			StoreCreditAmount:    settlement.StoreCreditAmount,
			CashRedemptionAmount: settlement.CashRedemptionAmount,
			ItemCount:            int(itemCount),
		}
		return models.PublishNotification(ctx, tx, models.EventTypeSettlementPaid,
			settlement.ID, models.ReferenceTypeSettlement, summary)
	})
	if err != nil {
		if err != models.ErrSettlementAlreadyPaid && err != models.ErrSettlementAlreadyCancelled {
			config.LogError(logger, "settlementWorkflow.go", "PaySettlement", "Transaction", settlementId, err)
		}
		return nil, err
	}
	return &settlement, nil
}

// CancelSettlement releases a Pending settlement: the claimed sale lines
// drop their settlement id and become eligible for a future settlement.
// A Paid settlement can never be cancelled.
func CancelSettlement(ctx context.Context, settlementId int) (*models.Settlement, error) {

	db := config.GetDB()
	var settlement models.Settlement
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&settlement, settlementId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if err := settlement.EnsureCancellable(); err != nil {
			return err
		}

		if err := tx.Model(&models.SaleItem{}).
			Where("settlement_id = ?", settlement.ID).
			Update("settlement_id", nil).Error; err != nil {
			return err
		}
		settlement.Status = models.SettlementStatusCancelled
		return tx.Model(&models.Settlement{}).Where("id = ?", settlement.ID).
			Update("status", models.SettlementStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}
	return &settlement, nil
}

// storeCreditExpiry derives the optional expiry date for newly issued
// instruments from STORE_CREDIT_EXPIRY_DAYS. Unset or zero means the
// credit never expires.
func storeCreditExpiry(issuedOn time.Time) *time.Time {
	days, err := strconv.Atoi(os.Getenv("STORE_CREDIT_EXPIRY_DAYS"))
	if err != nil || days <= 0 {
		return nil
	}
	expires := issuedOn.AddDate(0, 0, days)
	return &expires
}
