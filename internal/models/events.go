package models

import (
	"fmt"
	"time"
)

// EventType classifies a change notification.
type EventType string

const (
	EventOrderCreated EventType = "order-created"
	EventOrderUpdate  EventType = "order-update"
)

// ChangeEvent is the payload published after a successful mutation.
// Subscribers treat it purely as an invalidation signal and re-fetch
// authoritative state; nothing here is trusted as data.
type ChangeEvent struct {
	OrgID     int64     `json:"org_id"`
	EventType EventType `json:"event_type"`
	OrderID   int64     `json:"order_id"`
	Timestamp time.Time `json:"timestamp"`
}

// EventRoutingKey builds the org-scoped routing key for a change event.
func EventRoutingKey(orgID int64, eventType EventType) string {
	return fmt.Sprintf("org.%d.%s", orgID, eventType)
}

// SubscriptionKey matches every change event for one organization.
func SubscriptionKey(orgID int64) string {
	return fmt.Sprintf("org.%d.*", orgID)
}
