package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/retrove/consign_backend/utils"
	"gorm.io/gorm"
)

// SoftDelete is mixed into every entity that supports soft deletion.
// Queries must go through gorm's default scope (DeletedAt IS NULL) so a
// soft-deleted item can never re-surface as sellable.
type SoftDelete struct {
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at"`
	DeletedBy string         `gorm:"size:100;default:null" json:"deleted_by"`
}

// PublishNotification writes the outbox record inside the caller's
// transaction. Actual publishing happens after commit via the dispatcher,
// so a notification outage can never fail a financial operation.
func PublishNotification(ctx context.Context, tx *gorm.DB, eventType string, refId int, refType string, payload interface{}) error {

	payloadInByte, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	record := NotificationOutboxRecord{
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		ReferenceId:   refId,
		ReferenceType: refType,
		Payload:       payloadInByte,
		PublishStatus: OutboxPublishStatusPending,
		CorrelationId: correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}
