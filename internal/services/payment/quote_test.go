package payment

import (
	"errors"
	"testing"

	"restaurante-pedidos/internal/apperrors"
	"restaurante-pedidos/internal/models"
)

func TestAmountQuote(t *testing.T) {
	tests := []struct {
		name         string
		remaining    float64
		received     float64
		isCash       bool
		wantSubtotal float64
		wantChange   float64
		wantErr      bool
	}{
		{name: "exact cash", remaining: 20000, received: 20000, isCash: true, wantSubtotal: 20000},
		{name: "cash overpayment yields change", remaining: 20000, received: 25000, isCash: true, wantSubtotal: 20000, wantChange: 5000},
		{name: "partial payment", remaining: 20000, received: 8000, isCash: true, wantSubtotal: 8000},
		{name: "card exact", remaining: 15000, received: 15000, wantSubtotal: 15000},
		{name: "card overpayment rejected", remaining: 15000, received: 15001, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subtotal, change, err := AmountQuote(tt.remaining, tt.received, tt.isCash)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				var ve apperrors.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %T", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if subtotal != tt.wantSubtotal {
				t.Errorf("subtotal = %.2f, want %.2f", subtotal, tt.wantSubtotal)
			}
			if change != tt.wantChange {
				t.Errorf("change = %.2f, want %.2f", change, tt.wantChange)
			}
		})
	}
}

func TestItemsQuote(t *testing.T) {
	paidTxn := int64(7)
	items := []models.OrderItem{
		{ID: 1, Quantity: 2, UnitPrice: 10000},
		{ID: 2, Quantity: 1, UnitPrice: 5000},
		{ID: 3, Quantity: 1, UnitPrice: 8000, TransactionID: &paidTxn},
	}

	t.Run("whole and partial lines", func(t *testing.T) {
		allocations, subtotal, err := ItemsQuote(items, []models.PaymentItemSelection{
			{ID: 1, Quantity: 1},
			{ID: 2, Quantity: 1},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if subtotal != 15000 {
			t.Errorf("subtotal = %.2f, want 15000", subtotal)
		}
		if len(allocations) != 2 {
			t.Fatalf("allocations = %d, want 2", len(allocations))
		}
		// Partial quantity on line 1 must be recorded so the service
		// splits that line before stamping.
		if allocations[0].Quantity >= allocations[0].Item.Quantity {
			t.Errorf("expected partial allocation for line 1, got %d of %d", allocations[0].Quantity, allocations[0].Item.Quantity)
		}
	})

	t.Run("paid line rejected", func(t *testing.T) {
		_, _, err := ItemsQuote(items, []models.PaymentItemSelection{{ID: 3, Quantity: 1}})
		var ce apperrors.ConflictError
		if !errors.As(err, &ce) {
			t.Fatalf("expected ConflictError, got %T: %v", err, err)
		}
	})

	t.Run("unknown line rejected", func(t *testing.T) {
		_, _, err := ItemsQuote(items, []models.PaymentItemSelection{{ID: 99, Quantity: 1}})
		var ne apperrors.NotFoundError
		if !errors.As(err, &ne) {
			t.Fatalf("expected NotFoundError, got %T: %v", err, err)
		}
	})

	t.Run("over-selection rejected", func(t *testing.T) {
		_, _, err := ItemsQuote(items, []models.PaymentItemSelection{{ID: 2, Quantity: 3}})
		var ve apperrors.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %T: %v", err, err)
		}
	})

	t.Run("duplicate selection rejected", func(t *testing.T) {
		_, _, err := ItemsQuote(items, []models.PaymentItemSelection{
			{ID: 1, Quantity: 1},
			{ID: 1, Quantity: 1},
		})
		var ve apperrors.ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("expected ValidationError, got %T: %v", err, err)
		}
	})
}

// A prior amount-mode payment reduces the balance without stamping any
// line, so the still-unpaid lines can sum past what is owed. The quote
// must refuse to book more than the outstanding balance.
func TestResolveQuoteItemsCappedByRemaining(t *testing.T) {
	items := []models.OrderItem{
		{ID: 1, Quantity: 1, UnitPrice: 10000},
		{ID: 2, Quantity: 1, UnitPrice: 15000},
	}
	req := &models.PaymentRequest{
		Mode:    models.PaymentByItems,
		Items:   []models.PaymentItemSelection{{ID: 1, Quantity: 1}, {ID: 2, Quantity: 1}},
		TipMode: models.TipNone,
	}

	// Order total 25000 with 10000 already paid by amount.
	_, err := ResolveQuote(items, true, 15000, req, 0)
	var ce apperrors.ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected ConflictError for 25000 selected against 15000 remaining, got %T: %v", err, err)
	}

	// Selecting only the line the balance still covers goes through.
	req.Items = req.Items[1:]
	quote, err := ResolveQuote(items, true, 15000, req, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Subtotal != 15000 {
		t.Errorf("subtotal = %.2f, want 15000", quote.Subtotal)
	}
}

// The tip is funded from the tendered cash, so it can never exceed the
// overpayment: 21000 against a 20000 balance at 10 percent books the
// 1000 actually left over, not the full 2000.
func TestResolveQuoteTipCappedByTender(t *testing.T) {
	req := &models.PaymentRequest{
		Mode:    models.PaymentByAmount,
		Amount:  21000,
		TipMode: models.TipPercent,
	}

	quote, err := ResolveQuote(nil, true, 20000, req, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Subtotal != 20000 {
		t.Errorf("subtotal = %.2f, want 20000", quote.Subtotal)
	}
	if quote.Tip != 1000 {
		t.Errorf("tip = %.2f, want 1000", quote.Tip)
	}
	if quote.Change != 0 {
		t.Errorf("change = %.2f, want 0", quote.Change)
	}
	if booked := quote.Subtotal + quote.Tip - quote.Change; booked != req.Amount {
		t.Errorf("booked %.2f of %.2f tendered", booked, req.Amount)
	}
}

// The worked settlement example through the full resolver: a 20000
// balance paid with 25000 cash at 10 percent books a 20000 subtotal,
// a 2000 tip and 3000 change.
func TestResolveQuoteCashExample(t *testing.T) {
	req := &models.PaymentRequest{
		Mode:    models.PaymentByAmount,
		Amount:  25000,
		TipMode: models.TipPercent,
	}

	quote, err := ResolveQuote(nil, true, 20000, req, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Subtotal != 20000 || quote.Tip != 2000 || quote.Change != 3000 {
		t.Errorf("quote = subtotal %.2f tip %.2f change %.2f, want 20000/2000/3000",
			quote.Subtotal, quote.Tip, quote.Change)
	}
}

func TestComputeTip(t *testing.T) {
	override := 15.0
	custom := 3000.0

	tests := []struct {
		name       string
		mode       models.TipMode
		value      *float64
		subtotal   float64
		orgPercent float64
		want       float64
	}{
		{name: "none", mode: models.TipNone, subtotal: 20000, orgPercent: 10, want: 0},
		{name: "org default percent", mode: models.TipPercent, subtotal: 20000, orgPercent: 10, want: 2000},
		{name: "percent override", mode: models.TipPercent, value: &override, subtotal: 20000, orgPercent: 10, want: 3000},
		{name: "custom absolute", mode: models.TipCustom, value: &custom, subtotal: 20000, orgPercent: 10, want: 3000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTip(tt.mode, tt.value, tt.subtotal, tt.orgPercent)
			if got != tt.want {
				t.Errorf("ComputeTip() = %.2f, want %.2f", got, tt.want)
			}
		})
	}
}
