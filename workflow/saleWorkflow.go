package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/models"
	"github.com/retrove/consign_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessSale runs the whole point-of-sale transaction: register check,
// item loading and sellability checks, pricing, payment validation, then
// one atomic write that marks the items Sold, drains store credit and
// records the sale. Nothing is persisted before the final transaction, so
// a failed sale leaves no trace.
func ProcessSale(ctx context.Context, input *models.NewSale) (*models.Sale, error) {

	logger := config.GetLogger()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	operatorId, ok := utils.GetOperatorIdFromContext(ctx)
	if !ok {
		return nil, errors.New("missing operator in request context")
	}

	register, err := utils.FetchModel[models.Register](ctx, input.RegisterId)
	if err != nil {
		return nil, err
	}
	if err := register.CheckSellable(operatorId); err != nil {
		return nil, err
	}

	numbers := make([]string, 0, len(input.Lines))
	seen := make(map[string]bool, len(input.Lines))
	for _, line := range input.Lines {
		if seen[line.ItemNumber] {
			return nil, fmt.Errorf("item %s appears more than once", line.ItemNumber)
		}
		seen[line.ItemNumber] = true
		numbers = append(numbers, line.ItemNumber)
	}

	loaded, err := models.GetItemsByNumbers(ctx, numbers)
	if err != nil {
		return nil, err
	}
	byNumber := make(map[string]*models.Item, len(loaded))
	for _, item := range loaded {
		byNumber[item.IdentificationNumber] = item
	}

	items := make([]*models.Item, 0, len(input.Lines))
	discounts := make([]decimal.Decimal, 0, len(input.Lines))
	var notSellable []string
	for _, line := range input.Lines {
		item := byNumber[line.ItemNumber]
		if item.Status != models.ItemStatusToSell {
			notSellable = append(notSellable, item.IdentificationNumber)
			continue
		}
		items = append(items, item)
		discounts = append(discounts, line.Discount)
	}
	if len(notSellable) > 0 {
		return nil, &models.ItemNotSellableError{Numbers: notSellable}
	}

	globalPct := utils.DereferencePtr(input.DiscountPercentage, decimal.Zero)
	comp, err := models.ComputeSaleTotals(items, discounts, globalPct)
	if err != nil {
		return nil, err
	}

	change, err := models.ValidatePayments(input.Payments, comp.TotalAmount)
	if err != nil {
		return nil, err
	}
	if change.GreaterThan(decimal.Zero) && !hasCashPayment(input.Payments) {
		return nil, errors.New("only cash payments may exceed the sale total")
	}

	// Fail fast before opening the write transaction; the authoritative
	// check happens again under row locks inside ConsumeStoreCredit.
	for _, p := range input.Payments {
		if p.Method != models.PaymentMethodStoreCredit {
			continue
		}
		available, err := models.AvailableStoreCredit(ctx, p.SupplierId)
		if err != nil {
			return nil, err
		}
		if available.LessThan(p.Amount) {
			return nil, &models.InsufficientStoreCreditError{
				SupplierId: p.SupplierId, Available: available, Requested: p.Amount,
			}
		}
	}

	db := config.GetDB()
	var sale models.Sale

	// Retry once when two registers race for the same daily sale number and
	// the unique index rejects the loser.
	for attempt := 0; attempt < 2; attempt++ {
		sale = models.Sale{}
		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return processSaleTx(ctx, tx, input, comp, change, operatorId, &sale)
		})
		if err == nil || !isDuplicateKeyErr(err) {
			break
		}
	}
	if err != nil {
		config.LogError(logger, "saleWorkflow.go", "ProcessSale", "Transaction", input, err)
		return nil, err
	}
	return &sale, nil
}

// relockError reports what invalidated the sale between the initial read
// and the write transaction: rows that vanished are reported as not found,
// rows that left ToSell as not sellable.
func relockError(lines []models.SaleLineComputation, lockedById map[int]*models.Item) error {
	var missing, notSellable []string
	for _, line := range lines {
		item := lockedById[line.Item.ID]
		if item == nil {
			missing = append(missing, line.Item.IdentificationNumber)
			continue
		}
		if item.Status != models.ItemStatusToSell {
			notSellable = append(notSellable, item.IdentificationNumber)
		}
	}
	if len(missing) > 0 {
		return &models.ItemsNotFoundError{Numbers: missing}
	}
	if len(notSellable) > 0 {
		return &models.ItemNotSellableError{Numbers: notSellable}
	}
	return nil
}

func hasCashPayment(payments []models.NewPayment) bool {
	for _, p := range payments {
		if p.Method == models.PaymentMethodCash {
			return true
		}
	}
	return false
}

func processSaleTx(ctx context.Context, tx *gorm.DB, input *models.NewSale, comp *models.SaleComputation, change decimal.Decimal, operatorId int, out *models.Sale) error {

	now := time.Now()

	// Re-lock the items and re-check sellability: another register may have
	// sold one of them between the read and this transaction.
	itemIds := make([]int, 0, len(comp.Lines))
	for _, line := range comp.Lines {
		itemIds = append(itemIds, line.Item.ID)
	}
	var locked []*models.Item
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", itemIds).Find(&locked).Error; err != nil {
		return err
	}
	lockedById := make(map[int]*models.Item, len(locked))
	for _, item := range locked {
		lockedById[item.ID] = item
	}
	if err := relockError(comp.Lines, lockedById); err != nil {
		return err
	}

	number, day, seq, err := models.NextSaleNumber(tx, now)
	if err != nil {
		return err
	}

	sale := models.Sale{
		PublicId:           uuid.NewString(),
		SaleNumber:         number,
		SaleDay:            day,
		NumberSequence:     seq,
		SaleDate:           now,
		RegisterId:         input.RegisterId,
		OperatorId:         operatorId,
		Subtotal:           comp.Subtotal,
		DiscountPercentage: comp.DiscountPercentage,
		DiscountAmount:     comp.DiscountAmount,
		TotalAmount:        comp.TotalAmount,
		ChangeAmount:       change,
	}
	for _, line := range comp.Lines {
		sale.SaleItems = append(sale.SaleItems, models.SaleItem{
			ItemId:         line.Item.ID,
			UnitPrice:      line.UnitPrice,
			DiscountAmount: line.DiscountAmount,
			FinalPrice:     line.FinalPrice,
		})
	}
	for _, p := range input.Payments {
		sale.Payments = append(sale.Payments, models.Payment{
			Method:     p.Method,
			Amount:     p.Amount,
			SupplierId: p.SupplierId,
		})
	}
	if err := tx.Create(&sale).Error; err != nil {
		return err
	}

	for _, p := range input.Payments {
		if p.Method != models.PaymentMethodStoreCredit {
			continue
		}
		if _, err := models.ConsumeStoreCredit(tx, p.SupplierId, p.Amount, sale.ID); err != nil {
			return err
		}
	}

	suppliers := make(map[int]*models.Supplier)
	itemNumbers := make([]string, 0, len(comp.Lines))
	for _, line := range comp.Lines {
		item := lockedById[line.Item.ID]
		itemNumbers = append(itemNumbers, item.IdentificationNumber)

		updates := map[string]interface{}{
			"Status":         models.ItemStatusSold,
			"FinalSalePrice": line.FinalPrice,
			"SaleId":         sale.ID,
			"SoldAt":         &now,
		}
		// Commission is frozen per item at sale time from the supplier's
		// then-current percentages.
		if item.AcquisitionType == models.AcquisitionTypeConsignment {
			supplier := suppliers[item.SupplierId]
			if supplier == nil {
				supplier = &models.Supplier{}
				if err := tx.First(supplier, item.SupplierId).Error; err != nil {
					return err
				}
				suppliers[item.SupplierId] = supplier
			}
			pct := supplier.CommissionPercentage()
			updates["CommissionPercentage"] = pct
			updates["CommissionAmount"] = utils.CalculatePercentageAmount(line.FinalPrice, pct)
		}
		if err := tx.Model(&models.Item{}).Where("id = ?", item.ID).
			Updates(updates).Error; err != nil {
			return err
		}
	}

	summary := models.SaleSummary{
		SaleNumber:   sale.SaleNumber,
		SaleDate:     sale.SaleDate,
		ItemNumbers:  itemNumbers,
		TotalAmount:  sale.TotalAmount,
		ChangeAmount: sale.ChangeAmount,
	}
	if err := models.PublishNotification(ctx, tx, models.EventTypeSaleCompleted, sale.ID, models.ReferenceTypeSale, summary); err != nil {
		return err
	}

	*out = sale
	return nil
}
