package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemStatus string

const (
	ItemStatusReceived            ItemStatus = "Received"
	ItemStatusEvaluated           ItemStatus = "Evaluated"
	ItemStatusAwaitingAcceptance  ItemStatus = "AwaitingAcceptance"
	ItemStatusToSell              ItemStatus = "ToSell"
	ItemStatusSold                ItemStatus = "Sold"
	ItemStatusPaid                ItemStatus = "Paid"
	ItemStatusRejected            ItemStatus = "Rejected"
	ItemStatusReturned            ItemStatus = "Returned"
)

type AcquisitionType string

const (
	AcquisitionTypeConsignment AcquisitionType = "Consignment"
	AcquisitionTypeOwnPurchase AcquisitionType = "OwnPurchase"
)

// OwnPurchasePrefix is the identification number prefix for items the shop
// bought outright (no supplier).
const OwnPurchasePrefix = "P"

// Item is a single consigned or shop-owned good. FinalSalePrice and SaleId
// are set together exactly once when the item is sold; only the return flow
// resets them. Commission fields are frozen at sale time from the
// supplier's then-current percentages.
type Item struct {
	ID                   int              `gorm:"primary_key" json:"id"`
	PublicId             string           `gorm:"size:36;uniqueIndex;not null" json:"public_id"`
	IdentificationNumber string           `gorm:"size:20;uniqueIndex;not null" json:"identification_number"`
	NumberPrefix         string           `gorm:"size:20;index;not null" json:"number_prefix"`
	NumberSequence       int              `gorm:"not null" json:"number_sequence"`
	Brand                string           `gorm:"size:100" json:"brand"`
	Category             string           `gorm:"size:100" json:"category"`
	Size                 string           `gorm:"size:20" json:"size"`
	Color                string           `gorm:"size:50" json:"color"`
	Condition            string           `gorm:"size:50" json:"condition"`
	EvaluatedPrice       decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"evaluated_price"`
	FinalSalePrice       *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"final_sale_price"`
	CostPrice            *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"cost_price"`
	CommissionPercentage *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"commission_percentage"`
	CommissionAmount     *decimal.Decimal `gorm:"type:decimal(20,4);default:null" json:"commission_amount"`
	Status               ItemStatus       `gorm:"type:enum('Received','Evaluated','AwaitingAcceptance','ToSell','Sold','Paid','Rejected','Returned');not null;default:'Received';index" json:"status"`
	AcquisitionType      AcquisitionType  `gorm:"type:enum('Consignment','OwnPurchase');not null" json:"acquisition_type"`
	RejectionReason      string           `gorm:"size:255" json:"rejection_reason"`
	SupplierId           int              `gorm:"index;default:null" json:"supplier_id"`
	ReceptionId          int              `gorm:"index;default:null" json:"reception_id"`
	SaleId               int              `gorm:"index;default:null" json:"sale_id"`
	SoldAt               *time.Time       `gorm:"index" json:"sold_at"`
	ReceivedAt           time.Time        `gorm:"not null" json:"received_at"`
	SoftDelete
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewItem struct {
	Brand           string           `json:"brand"`
	Category        string           `json:"category"`
	Size            string           `json:"size"`
	Color           string           `json:"color"`
	Condition       string           `json:"condition"`
	AcquisitionType AcquisitionType  `json:"acquisition_type" binding:"required"`
	SupplierId      int              `json:"supplier_id"`
	ReceptionId     int              `json:"reception_id"`
	CostPrice       *decimal.Decimal `json:"cost_price"`
}

type ItemEvaluation struct {
	EvaluatedPrice  decimal.Decimal `json:"evaluated_price"`
	Accepted        bool            `json:"accepted"`
	RejectionReason string          `json:"rejection_reason"`
}

var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemStatusReceived:           {ItemStatusEvaluated, ItemStatusRejected},
	ItemStatusEvaluated:          {ItemStatusAwaitingAcceptance, ItemStatusToSell},
	ItemStatusAwaitingAcceptance: {ItemStatusToSell, ItemStatusReturned},
	ItemStatusToSell:             {ItemStatusSold, ItemStatusReturned},
	// Sold -> ToSell is the sale-return flow; it nulls FinalSalePrice/SaleId.
	ItemStatusSold:     {ItemStatusPaid, ItemStatusToSell},
	ItemStatusRejected: {ItemStatusReturned},
	ItemStatusPaid:     {},
	ItemStatusReturned: {},
}

// ValidateItemStatusTransition reports whether from -> to is a legal move
// in the lifecycle. There is deliberately no path from Received/Evaluated
// straight to Sold.
func ValidateItemStatusTransition(from ItemStatus, to ItemStatus) error {
	for _, allowed := range itemTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("illegal item status transition %s -> %s", from, to)
}

func (item *Item) DaysInStock() int {
	end := time.Now()
	if item.SoldAt != nil {
		end = *item.SoldAt
	}
	days := int(end.Sub(item.ReceivedAt).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

func (input *NewItem) validate() error {
	switch input.AcquisitionType {
	case AcquisitionTypeConsignment:
		if input.SupplierId == 0 {
			return errors.New("consignment item requires a supplier")
		}
	case AcquisitionTypeOwnPurchase:
		if input.SupplierId != 0 {
			return errors.New("own-purchase item must not reference a supplier")
		}
	default:
		return errors.New("unknown acquisition type")
	}
	return nil
}

// NextItemNumber allocates the next identification number for the given
// prefix and month inside tx: {prefix}{yyyyMM}-{seq:%04d}. Soft-deleted
// rows count toward the sequence so numbers are never reissued; the unique
// index on identification_number is the collision guard under concurrency.
func NextItemNumber(tx *gorm.DB, prefix string, now time.Time) (string, string, int, error) {
	numberPrefix := fmt.Sprintf("%s%s", prefix, now.Format("200601"))
	var maxSeq *int
	err := tx.Unscoped().Model(&Item{}).
		Where("number_prefix = ?", numberPrefix).
		Select("max(number_sequence)").Scan(&maxSeq).Error
	if err != nil {
		return "", "", 0, err
	}
	seq := 1
	if maxSeq != nil {
		seq = *maxSeq + 1
	}
	return fmt.Sprintf("%s-%04d", numberPrefix, seq), numberPrefix, seq, nil
}

func CreateItem(ctx context.Context, input *NewItem) (*Item, error) {

	if err := input.validate(); err != nil {
		return nil, err
	}

	prefix := OwnPurchasePrefix
	if input.AcquisitionType == AcquisitionTypeConsignment {
		supplier, err := GetSupplier(ctx, input.SupplierId)
		if err != nil {
			return nil, err
		}
		prefix = supplier.Code
	}

	if input.ReceptionId != 0 {
		reception, err := utils.FetchModel[Reception](ctx, input.ReceptionId)
		if err != nil {
			return nil, err
		}
		if reception.Status != ReceptionStatusOpen {
			return nil, errors.New("reception is already completed")
		}
	}

	db := config.GetDB()
	var item Item
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		number, numberPrefix, seq, err := NextItemNumber(tx, prefix, time.Now())
		if err != nil {
			return err
		}
		item = Item{
			PublicId:             uuid.NewString(),
			IdentificationNumber: number,
			NumberPrefix:         numberPrefix,
			NumberSequence:       seq,
			Brand:                input.Brand,
			Category:             input.Category,
			Size:                 input.Size,
			Color:                input.Color,
			Condition:            input.Condition,
			Status:               ItemStatusReceived,
			AcquisitionType:      input.AcquisitionType,
			SupplierId:           input.SupplierId,
			ReceptionId:          input.ReceptionId,
			CostPrice:            input.CostPrice,
			ReceivedAt:           time.Now(),
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// EvaluateItem records the evaluation outcome for a Received item:
// Evaluated with a list price, or Rejected with a mandatory reason.
func EvaluateItem(ctx context.Context, itemId int, input *ItemEvaluation) (*Item, error) {

	if input.Accepted {
		if !input.EvaluatedPrice.GreaterThan(decimal.Zero) {
			return nil, errors.New("evaluated price must be positive")
		}
	} else if input.RejectionReason == "" {
		return nil, errors.New("rejection reason is required")
	}

	db := config.GetDB()
	var item Item
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&item, itemId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}

		target := ItemStatusEvaluated
		updates := map[string]interface{}{"EvaluatedPrice": input.EvaluatedPrice}
		if !input.Accepted {
			target = ItemStatusRejected
			updates = map[string]interface{}{"RejectionReason": input.RejectionReason}
		}
		if err := ValidateItemStatusTransition(item.Status, target); err != nil {
			return err
		}
		updates["Status"] = target
		if err := tx.Model(&item).Updates(updates).Error; err != nil {
			return err
		}
		item.Status = target
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// ReturnItem hands an unsold item back to its supplier, detaching it from
// any future settlement. Legal only from ToSell, AwaitingAcceptance or
// Rejected.
func ReturnItem(ctx context.Context, itemId int) (*Item, error) {

	db := config.GetDB()
	var item Item
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&item, itemId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if err := ValidateItemStatusTransition(item.Status, ItemStatusReturned); err != nil {
			return err
		}
		if err := tx.Model(&item).Update("Status", ItemStatusReturned).Error; err != nil {
			return err
		}
		item.Status = ItemStatusReturned
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem soft-deletes an item. An item that ever participated in a
// sale or a settlement is kept forever.
func DeleteItem(ctx context.Context, itemId int) (*Item, error) {

	item, err := utils.FetchModel[Item](ctx, itemId)
	if err != nil {
		return nil, err
	}
	if item.SaleId != 0 || item.Status == ItemStatusSold || item.Status == ItemStatusPaid {
		return nil, errors.New("cannot delete an item that participated in a sale or settlement")
	}
	var saleLineCount int64
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(&SaleItem{}).
		Where("item_id = ?", itemId).Count(&saleLineCount).Error; err != nil {
		return nil, err
	}
	if saleLineCount > 0 {
		return nil, errors.New("cannot delete an item that participated in a sale or settlement")
	}

	operatorName, _ := utils.GetOperatorNameFromContext(ctx)
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(item).Update("DeletedBy", operatorName).Error; err != nil {
			return err
		}
		return tx.Delete(item).Error
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func GetItem(ctx context.Context, id int) (*Item, error) {
	return utils.FetchModel[Item](ctx, id)
}

// GetItemsByNumbers loads items by identification number, reporting the
// missing ones. Soft-deleted items are treated as missing.
func GetItemsByNumbers(ctx context.Context, numbers []string) ([]*Item, error) {

	numbers = utils.UniqueSlice(numbers)
	db := config.GetDB()
	var items []*Item
	if err := db.WithContext(ctx).
		Where("identification_number IN ?", numbers).
		Find(&items).Error; err != nil {
		return nil, err
	}
	if len(items) != len(numbers) {
		found := make(map[string]bool, len(items))
		for _, item := range items {
			found[item.IdentificationNumber] = true
		}
		var missing []string
		for _, n := range numbers {
			if !found[n] {
				missing = append(missing, n)
			}
		}
		return nil, &ItemsNotFoundError{Numbers: missing}
	}
	return items, nil
}
