package order

import (
	"testing"
	"time"

	"restaurante-pedidos/internal/models"
)

func TestNewOrderItemsDirectItems(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	menuItems := map[int64]*models.MenuItem{
		1: {ID: 1, Name: "Chicha morada", Price: 5000, IsDirect: true},
		2: {ID: 2, Name: "Lomo saltado", Price: 15000},
	}

	items := newOrderItems(9, []models.OrderItemRequest{
		{MenuItemID: 1, Quantity: 2},
		{MenuItemID: 2, Quantity: 1},
	}, menuItems, now)

	if len(items) != 2 {
		t.Fatalf("built %d items, want 2", len(items))
	}

	direct := items[0]
	if direct.Status != models.ItemListo {
		t.Errorf("direct item status = %s, want listo", direct.Status)
	}
	if direct.StartedAt == nil || !direct.StartedAt.Equal(now) || direct.CompletedAt == nil || !direct.CompletedAt.Equal(now) {
		t.Errorf("direct item timestamps = %v/%v, want both %v", direct.StartedAt, direct.CompletedAt, now)
	}
	if direct.UnitPrice != 5000 {
		t.Errorf("direct item unit price = %.2f, want 5000", direct.UnitPrice)
	}

	prepared := items[1]
	if prepared.Status != models.ItemPendiente {
		t.Errorf("prepared item status = %s, want pendiente", prepared.Status)
	}
	if prepared.StartedAt != nil || prepared.CompletedAt != nil {
		t.Errorf("prepared item timestamps = %v/%v, want nil", prepared.StartedAt, prepared.CompletedAt)
	}
}

// An order made only of direct items never sees an item-status change,
// so its status must come out derived at creation rather than sitting
// in nuevo until someone pays it.
func TestNewOrderItemsAllDirectDerivesListo(t *testing.T) {
	now := time.Now().UTC()
	menuItems := map[int64]*models.MenuItem{
		1: {ID: 1, Name: "Inca Kola", Price: 4000, IsDirect: true},
		2: {ID: 2, Name: "Chicha morada", Price: 5000, IsDirect: true},
	}

	items := newOrderItems(3, []models.OrderItemRequest{
		{MenuItemID: 1, Quantity: 1},
		{MenuItemID: 2, Quantity: 2},
	}, menuItems, now)

	if got := models.DeriveOrderStatus(items); got != models.OrderListo {
		t.Errorf("derived status = %s, want listo", got)
	}
}
