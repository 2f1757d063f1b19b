package models

import "testing"

func TestCreateOrderRequestValidate(t *testing.T) {
	valid := CreateOrderRequest{
		TableNumber: 4,
		Items:       []OrderItemRequest{{MenuItemID: 1, Quantity: 2}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	tests := []struct {
		name string
		req  CreateOrderRequest
	}{
		{name: "missing table", req: CreateOrderRequest{Items: valid.Items}},
		{name: "no items", req: CreateOrderRequest{TableNumber: 4}},
		{name: "zero quantity", req: CreateOrderRequest{TableNumber: 4, Items: []OrderItemRequest{{MenuItemID: 1, Quantity: 0}}}},
		{name: "missing menu item id", req: CreateOrderRequest{TableNumber: 4, Items: []OrderItemRequest{{Quantity: 1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestDeriveOrderStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []ItemStatus
		want     OrderStatus
	}{
		{name: "no items", statuses: nil, want: OrderNuevo},
		{name: "all pending", statuses: []ItemStatus{ItemPendiente, ItemPendiente}, want: OrderNuevo},
		{name: "one in preparation", statuses: []ItemStatus{ItemPendiente, ItemEnPreparacion}, want: OrderEnCocina},
		{name: "some done some pending", statuses: []ItemStatus{ItemListo, ItemPendiente}, want: OrderEnCocina},
		{name: "all ready", statuses: []ItemStatus{ItemListo, ItemListo}, want: OrderListo},
		{name: "ready and served", statuses: []ItemStatus{ItemListo, ItemServido}, want: OrderListo},
		{name: "all served", statuses: []ItemStatus{ItemServido, ItemServido}, want: OrderServido},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]OrderItem, len(tt.statuses))
			for i, s := range tt.statuses {
				items[i] = OrderItem{Status: s}
			}
			if got := DeriveOrderStatus(items); got != tt.want {
				t.Errorf("DeriveOrderStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestKitchenDriven(t *testing.T) {
	driven := []OrderStatus{OrderNuevo, OrderEnCocina, OrderListo, OrderServido}
	for _, s := range driven {
		if !s.KitchenDriven() {
			t.Errorf("%s should be kitchen driven", s)
		}
	}
	manual := []OrderStatus{OrderListoPagar, OrderPagado, OrderCancelado}
	for _, s := range manual {
		if s.KitchenDriven() {
			t.Errorf("%s should not be kitchen driven", s)
		}
	}
}
