package workflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/retrove/consign_backend/config"
	"github.com/retrove/consign_backend/models"
)

type fakeSender struct {
	receipts    []models.SaleSummary
	settlements []models.SettlementSummary
	evaluations []models.EvaluationSummary
}

func (s *fakeSender) SendSaleReceipt(ctx context.Context, summary models.SaleSummary) error {
	s.receipts = append(s.receipts, summary)
	return nil
}

func (s *fakeSender) SendSettlementNotice(ctx context.Context, summary models.SettlementSummary) error {
	s.settlements = append(s.settlements, summary)
	return nil
}

func (s *fakeSender) SendEvaluationNotice(ctx context.Context, summary models.EvaluationSummary) error {
	s.evaluations = append(s.evaluations, summary)
	return nil
}

func mustMarshal(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestDispatchNotification_RoutesByEventType(t *testing.T) {
	sender := &fakeSender{}
	ctx := context.Background()

	saleMsg := config.PubSubMessage{
		EventType: models.EventTypeSaleCompleted,
		Payload:   mustMarshal(t, models.SaleSummary{SaleNumber: "V20260115-001"}),
	}
	if err := dispatchNotification(ctx, sender, saleMsg); err != nil {
		t.Fatal(err)
	}
	if len(sender.receipts) != 1 || sender.receipts[0].SaleNumber != "V20260115-001" {
		t.Fatalf("sale receipt not routed: %+v", sender.receipts)
	}

	settlementMsg := config.PubSubMessage{
		EventType: models.EventTypeSettlementPaid,
		Payload:   mustMarshal(t, models.SettlementSummary{SettlementNumber: "ST202601-001"}),
	}
	if err := dispatchNotification(ctx, sender, settlementMsg); err != nil {
		t.Fatal(err)
	}
	if len(sender.settlements) != 1 || sender.settlements[0].SettlementNumber != "ST202601-001" {
		t.Fatalf("settlement notice not routed: %+v", sender.settlements)
	}

	evalMsg := config.PubSubMessage{
		EventType: models.EventTypeEvaluationCompleted,
		Payload:   mustMarshal(t, models.EvaluationSummary{ReceptionNumber: "R20260110-001"}),
	}
	if err := dispatchNotification(ctx, sender, evalMsg); err != nil {
		t.Fatal(err)
	}
	if len(sender.evaluations) != 1 {
		t.Fatalf("evaluation notice not routed: %+v", sender.evaluations)
	}
}

func TestDispatchNotification_UnknownEventType(t *testing.T) {
	sender := &fakeSender{}
	err := dispatchNotification(context.Background(), sender, config.PubSubMessage{EventType: "inventory.counted"})
	if err == nil {
		t.Fatal("expected error for unknown event type")
	}
	if len(sender.receipts)+len(sender.settlements)+len(sender.evaluations) != 0 {
		t.Fatal("unknown event must not reach any sender")
	}
}
