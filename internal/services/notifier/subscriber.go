package notifier

import (
	"context"
	"fmt"

	"restaurante-pedidos/internal/logger"
	"restaurante-pedidos/internal/messaging"
	"restaurante-pedidos/internal/models"
)

// EventHandler receives a decoded change event. The event is an
// invalidation signal only; handlers must re-fetch authoritative state
// and must tolerate at-least-once, unordered delivery.
type EventHandler func(ctx context.Context, event models.ChangeEvent) error

// OrderFetcher re-fetches the authoritative order state for a view.
type OrderFetcher interface {
	GetOrder(ctx context.Context, orgID, orderID int64) (*models.Order, error)
}

// Subscriber consumes the org-scoped change-event stream.
type Subscriber struct {
	conn   *messaging.Connection
	logger *logger.Logger
}

// NewSubscriber creates a subscriber over an established connection.
func NewSubscriber(conn *messaging.Connection, log *logger.Logger) *Subscriber {
	return &Subscriber{
		conn:   conn,
		logger: log,
	}
}

// Subscribe binds a fresh queue to all events of one organization and
// invokes handler for each delivery until ctx is cancelled.
func (s *Subscriber) Subscribe(ctx context.Context, orgID int64, handler EventHandler) error {
	queueName, err := s.conn.DeclareSubscriberQueue(models.SubscriptionKey(orgID))
	if err != nil {
		return fmt.Errorf("failed to declare subscription for org %d: %w", orgID, err)
	}

	consumer := messaging.NewConsumer(s.conn, s.logger, queueName, fmt.Sprintf("org-%d-view", orgID), 1)

	return consumer.StartConsuming(ctx, func(ctx context.Context, body []byte) error {
		var event models.ChangeEvent
		if err := messaging.ParseMessage(body, &event); err != nil {
			// Malformed payloads are dropped, not requeued; the
			// consumer polls/re-fetches as a fallback anyway.
			s.logger.Error("event_parse_failed", "Dropping malformed change event", "", err, nil)
			return nil
		}
		return handler(ctx, event)
	})
}

// RunStatusView subscribes to one organization and logs the
// authoritative state of each changed order. This is the re-fetching
// consumer behind the kitchen/waiter/cashier/customer status views.
func (s *Subscriber) RunStatusView(ctx context.Context, orgID int64, fetcher OrderFetcher) error {
	return s.Subscribe(ctx, orgID, func(ctx context.Context, event models.ChangeEvent) error {
		order, err := fetcher.GetOrder(ctx, event.OrgID, event.OrderID)
		if err != nil {
			s.logger.Error("order_refetch_failed", "Failed to re-fetch order after change event", "", err, map[string]any{
				"org_id":   event.OrgID,
				"order_id": event.OrderID,
			})
			return err
		}

		s.logger.Info("order_changed", "Order state refreshed", "", map[string]any{
			"org_id":     order.OrgID,
			"order_id":   order.ID,
			"event_type": string(event.EventType),
			"status":     string(order.Status),
			"total":      order.Total,
			"tip_amount": order.TipAmount,
		})
		return nil
	})
}
