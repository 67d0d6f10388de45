package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/models"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const notificationHandlerName = "notification-mailer"

// NotificationSender delivers the outgoing messages. The production
// implementation talks to the mail provider; tests plug in fakes.
type NotificationSender interface {
	SendSaleReceipt(ctx context.Context, summary models.SaleSummary) error
	SendSettlementNotice(ctx context.Context, summary models.SettlementSummary) error
	SendEvaluationNotice(ctx context.Context, summary models.EvaluationSummary) error
}

// LogSender only logs what would be sent. Used until a mail provider is
// configured, and in environments without outbound mail.
type LogSender struct {
	Logger *logrus.Logger
}

func (s *LogSender) SendSaleReceipt(ctx context.Context, summary models.SaleSummary) error {
	s.log("sale receipt", summary.SaleNumber)
	return nil
}

func (s *LogSender) SendSettlementNotice(ctx context.Context, summary models.SettlementSummary) error {
	s.log("settlement notice to "+summary.SupplierEmail, summary.SettlementNumber)
	return nil
}

func (s *LogSender) SendEvaluationNotice(ctx context.Context, summary models.EvaluationSummary) error {
	s.log("evaluation notice to "+summary.SupplierEmail, summary.ReceptionNumber)
	return nil
}

func (s *LogSender) log(kind string, number string) {
	if s.Logger == nil {
		return
	}
	s.Logger.WithFields(logrus.Fields{
		"field":  "LogSender",
		"number": number,
	}).Info("would send " + kind)
}

// ProcessNotificationMessage handles one Pub/Sub push delivery. Durable
// idempotency keyed on the Pub/Sub message id makes redeliveries safe:
// an already-succeeded message is acked without a second send.
func ProcessNotificationMessage(ctx context.Context, db *gorm.DB, logger *logrus.Logger, sender NotificationSender, msg config.PubSubMessage, messageId string) error {

	var skip bool
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		skip, err = BeginIdempotency(tx, notificationHandlerName, messageId)
		return err
	})
	if err != nil {
		return err
	}
	if skip {
		return nil
	}

	sendErr := dispatchNotification(ctx, sender, msg)
	if sendErr != nil {
		config.LogError(logger, "notificationWorkflow.go", "ProcessNotificationMessage", "Send "+msg.EventType, msg.ReferenceId, sendErr)
		_ = MarkIdempotencyFailed(db.WithContext(ctx), notificationHandlerName, messageId, sendErr)
		return sendErr
	}
	return MarkIdempotencySucceeded(db.WithContext(ctx), notificationHandlerName, messageId)
}

func dispatchNotification(ctx context.Context, sender NotificationSender, msg config.PubSubMessage) error {
	switch msg.EventType {
	case models.EventTypeSaleCompleted:
		var summary models.SaleSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			return err
		}
		return sender.SendSaleReceipt(ctx, summary)
	case models.EventTypeSettlementPaid:
		var summary models.SettlementSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			return err
		}
		return sender.SendSettlementNotice(ctx, summary)
	case models.EventTypeEvaluationCompleted:
		var summary models.EvaluationSummary
		if err := json.Unmarshal(msg.Payload, &summary); err != nil {
			return err
		}
		return sender.SendEvaluationNotice(ctx, summary)
	default:
		return fmt.Errorf("unknown event type %q", msg.EventType)
	}
}
