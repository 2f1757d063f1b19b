package notifier

import (
	"context"
	"time"

	"restaurante-pedidos/internal/logger"
	"restaurante-pedidos/internal/messaging"
	"restaurante-pedidos/internal/models"
)

// Notifier publishes org-scoped change events after successful
// mutations. Publishing is best-effort: a failed publish is logged and
// never rolls back or blocks the mutation that triggered it, since
// every consumer re-fetches authoritative state on its own schedule.
type Notifier struct {
	publisher *messaging.Publisher
	logger    *logger.Logger
}

// New creates a notifier. A nil publisher yields a no-op notifier,
// which keeps the engine usable without a broker (tests, maintenance).
func New(publisher *messaging.Publisher, log *logger.Logger) *Notifier {
	return &Notifier{
		publisher: publisher,
		logger:    log,
	}
}

// Publish emits a change event for the given order. Fire-and-forget.
func (n *Notifier) Publish(ctx context.Context, orgID int64, eventType models.EventType, orderID int64) {
	if n == nil || n.publisher == nil {
		return
	}

	event := models.ChangeEvent{
		OrgID:     orgID,
		EventType: eventType,
		OrderID:   orderID,
		Timestamp: time.Now().UTC(),
	}

	if err := n.publisher.PublishEvent(ctx, models.EventRoutingKey(orgID, eventType), event); err != nil {
		n.logger.Error("event_publish_failed", "Failed to publish change event", "", err, map[string]any{
			"org_id":     orgID,
			"event_type": string(eventType),
			"order_id":   orderID,
		})
	}
}
