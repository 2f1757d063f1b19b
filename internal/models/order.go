package models

import (
	"fmt"
	"time"

	"restaurante-pedidos/internal/apperrors"
)

// OrderStatus is the persisted lifecycle status of an order.
type OrderStatus string

const (
	OrderNuevo      OrderStatus = "nuevo"
	OrderEnCocina   OrderStatus = "en_cocina"
	OrderListo      OrderStatus = "listo"
	OrderServido    OrderStatus = "servido"
	OrderListoPagar OrderStatus = "listo_pagar"
	OrderPagado     OrderStatus = "pagado"
	OrderCancelado  OrderStatus = "cancelado"
)

// ItemStatus is the preparation status of a single order line.
type ItemStatus string

const (
	ItemPendiente     ItemStatus = "pendiente"
	ItemEnPreparacion ItemStatus = "en_preparacion"
	ItemListo         ItemStatus = "listo"
	ItemServido       ItemStatus = "servido"
)

// Order is a single table visit. Subtotal and total are price
// snapshots taken at creation/extension time and never re-read from
// the menu.
type Order struct {
	ID          int64       `json:"id"`
	OrgID       int64       `json:"org_id"`
	TableNumber int         `json:"table_number"`
	WaiterID    *int64      `json:"waiter_id,omitempty"`
	Status      OrderStatus `json:"status"`
	Subtotal    float64     `json:"subtotal"`
	Total       float64     `json:"total"`
	TipAmount   float64     `json:"tip_amount"`
	Notes       *string     `json:"notes,omitempty"`
	Items       []OrderItem `json:"items,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OrderItem is one line of an order. UnitPrice is the menu price at
// the moment the line was added. TransactionID is set once the line
// has been fully covered by a payment.
type OrderItem struct {
	ID            int64      `json:"id"`
	OrderID       int64      `json:"order_id"`
	MenuItemID    int64      `json:"menu_item_id"`
	Name          string     `json:"name"`
	Quantity      int        `json:"quantity"`
	UnitPrice     float64    `json:"unit_price"`
	Notes         *string    `json:"notes,omitempty"`
	Status        ItemStatus `json:"status"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	TransactionID *int64     `json:"transaction_id,omitempty"`
}

// Paid reports whether this line has been allocated to a transaction.
func (i OrderItem) Paid() bool { return i.TransactionID != nil }

// OrderItemRequest is one requested line in a create/extend call.
type OrderItemRequest struct {
	MenuItemID int64   `json:"menu_item_id"`
	Quantity   int     `json:"quantity"`
	Notes      *string `json:"notes,omitempty"`
}

// CreateOrderRequest creates a new order for a table.
type CreateOrderRequest struct {
	TableNumber int                `json:"table_number"`
	Items       []OrderItemRequest `json:"items"`
	Note        *string            `json:"note,omitempty"`
}

// ExtendOrderRequest appends lines to an existing, not-yet-paid order.
type ExtendOrderRequest struct {
	Items []OrderItemRequest `json:"items"`
	Note  *string            `json:"note,omitempty"`
}

// Validate checks a create request before any database work.
func (r *CreateOrderRequest) Validate() error {
	if r.TableNumber < 1 {
		return apperrors.ValidationError{Field: "table_number", Message: "table number must be positive"}
	}
	return validateItemRequests(r.Items)
}

// Validate checks an extend request before any database work.
func (r *ExtendOrderRequest) Validate() error {
	return validateItemRequests(r.Items)
}

func validateItemRequests(items []OrderItemRequest) error {
	if len(items) == 0 {
		return apperrors.ValidationError{Field: "items", Message: "at least one item is required"}
	}
	for i, item := range items {
		if item.MenuItemID <= 0 {
			return apperrors.ValidationError{Field: itemField(i, "menu_item_id"), Message: "menu item id is required"}
		}
		if item.Quantity < 1 {
			return apperrors.ValidationError{Field: itemField(i, "quantity"), Message: "quantity must be at least 1"}
		}
	}
	return nil
}

func itemField(index int, name string) string {
	return fmt.Sprintf("items[%d].%s", index, name)
}

// DeriveOrderStatus computes the kitchen-driven order status from its
// item statuses. Manual transitions (listo_pagar, pagado, cancelado)
// are applied by explicit staff actions and are never derived; callers
// only invoke this while the order is in a kitchen-driven state.
func DeriveOrderStatus(items []OrderItem) OrderStatus {
	if len(items) == 0 {
		return OrderNuevo
	}
	allServido := true
	allDone := true
	anyStarted := false
	for _, it := range items {
		switch it.Status {
		case ItemServido:
			anyStarted = true
		case ItemListo:
			allServido = false
			anyStarted = true
		case ItemEnPreparacion:
			allServido = false
			allDone = false
			anyStarted = true
		default:
			allServido = false
			allDone = false
		}
	}
	switch {
	case allServido:
		return OrderServido
	case allDone:
		return OrderListo
	case anyStarted:
		return OrderEnCocina
	default:
		return OrderNuevo
	}
}

// KitchenDriven reports whether the status is still derived from item
// progress, as opposed to a manual or terminal state.
func (s OrderStatus) KitchenDriven() bool {
	switch s {
	case OrderNuevo, OrderEnCocina, OrderListo, OrderServido:
		return true
	}
	return false
}
