package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReceptionStatus string

const (
	ReceptionStatusOpen      ReceptionStatus = "Open"
	ReceptionStatusCompleted ReceptionStatus = "Completed"
)

// Reception is an intake batch: a supplier drop-off with an expected item
// count. Accepted items move to ToSell only once the whole batch has been
// evaluated.
type Reception struct {
	ID                int             `gorm:"primary_key" json:"id"`
	PublicId          string          `gorm:"size:36;uniqueIndex;not null" json:"public_id"`
	ReceptionNumber   string          `gorm:"size:20;uniqueIndex;not null" json:"reception_number"`
	SupplierId        int             `gorm:"index;not null" json:"supplier_id" binding:"required"`
	ExpectedItemCount int             `gorm:"not null" json:"expected_item_count" binding:"required"`
	Status            ReceptionStatus `gorm:"type:enum('Open','Completed');not null;default:'Open'" json:"status"`
	Notes             string          `gorm:"type:text" json:"notes"`
	ReceivedOn        time.Time       `gorm:"not null" json:"received_on"`
	CompletedAt       *time.Time      `json:"completed_at"`
	Items             []Item          `gorm:"foreignKey:ReceptionId" json:"items"`
	CreatedAt         time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewReception struct {
	SupplierId        int       `json:"supplier_id" binding:"required"`
	ExpectedItemCount int       `json:"expected_item_count" binding:"required,gt=0"`
	Notes             string    `json:"notes"`
	ReceivedOn        time.Time `json:"received_on"`
}

// EvaluationSummary is the flat payload handed to the notification
// dispatcher when a reception finishes evaluation.
type EvaluationSummary struct {
	ReceptionNumber string   `json:"reception_number"`
	SupplierName    string   `json:"supplier_name"`
	SupplierEmail   string   `json:"supplier_email"`
	AcceptedNumbers []string `json:"accepted_numbers"`
	RejectedNumbers []string `json:"rejected_numbers"`
}

func CreateReception(ctx context.Context, input *NewReception) (*Reception, error) {

	if _, err := GetSupplier(ctx, input.SupplierId); err != nil {
		return nil, err
	}

	receivedOn := input.ReceivedOn
	if receivedOn.IsZero() {
		receivedOn = time.Now()
	}

	db := config.GetDB()
	var reception Reception
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Unscoped().Model(&Reception{}).Count(&count).Error; err != nil {
			return err
		}
		reception = Reception{
			PublicId:          uuid.NewString(),
			ReceptionNumber:   fmt.Sprintf("R%s-%03d", receivedOn.Format("20060102"), count+1),
			SupplierId:        input.SupplierId,
			ExpectedItemCount: input.ExpectedItemCount,
			Status:            ReceptionStatusOpen,
			Notes:             input.Notes,
			ReceivedOn:        receivedOn,
		}
		return tx.Create(&reception).Error
	})
	if err != nil {
		return nil, err
	}
	return &reception, nil
}

// CompleteReception closes the batch once every expected item is recorded
// and evaluated, flips accepted items to ToSell and emits the
// evaluation.completed event through the outbox.
func CompleteReception(ctx context.Context, receptionId int) (*Reception, error) {

	db := config.GetDB()
	var reception Reception
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&reception, receptionId).Error; err != nil {
			return utils.ErrorRecordNotFound
		}
		if reception.Status != ReceptionStatusOpen {
			return errors.New("reception is already completed")
		}

		var items []Item
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("reception_id = ?", receptionId).
			Find(&items).Error; err != nil {
			return err
		}
		if len(items) != reception.ExpectedItemCount {
			return fmt.Errorf("reception expects %d items, %d recorded", reception.ExpectedItemCount, len(items))
		}

		var accepted, rejected []string
		for i := range items {
			switch items[i].Status {
			case ItemStatusEvaluated:
				accepted = append(accepted, items[i].IdentificationNumber)
			case ItemStatusRejected:
				rejected = append(rejected, items[i].IdentificationNumber)
			default:
				return fmt.Errorf("item %s is not evaluated yet", items[i].IdentificationNumber)
			}
		}

		if len(accepted) > 0 {
			if err := tx.Model(&Item{}).
				Where("reception_id = ? AND status = ?", receptionId, ItemStatusEvaluated).
				Update("status", ItemStatusToSell).Error; err != nil {
				return err
			}
		}

		now := time.Now()
		if err := tx.Model(&reception).Updates(map[string]interface{}{
			"Status":      ReceptionStatusCompleted,
			"CompletedAt": &now,
		}).Error; err != nil {
			return err
		}
		reception.Status = ReceptionStatusCompleted

		var supplier Supplier
		if err := tx.First(&supplier, reception.SupplierId).Error; err != nil {
			return err
		}
		summary := EvaluationSummary{
			ReceptionNumber: reception.ReceptionNumber,
			SupplierName:    supplier.Name,
			SupplierEmail:   supplier.Email,
			AcceptedNumbers: accepted,
			RejectedNumbers: rejected,
		}
		return PublishNotification(ctx, tx, EventTypeEvaluationCompleted, reception.ID, ReferenceTypeReception, summary)
	})
	if err != nil {
		return nil, err
	}
	return &reception, nil
}

func GetReception(ctx context.Context, id int) (*Reception, error) {
	return utils.FetchModel[Reception](ctx, id, "Items")
}
