package payment

import (
	"fmt"

	"restaurante-pedidos/internal/apperrors"
	"restaurante-pedidos/internal/models"
)

// Allocation binds a quantity of one order line to a payment. When
// Quantity is below the line quantity the line must be split before
// stamping, so the paid part gets its own row.
type Allocation struct {
	Item     models.OrderItem
	Quantity int
}

// Quote is the computed shape of a payment before anything commits:
// the subtotal applied to the balance, the tip, the change owed to a
// cash payer, and (items mode) the lines to stamp.
type Quote struct {
	Subtotal    float64
	Tip         float64
	Change      float64
	Allocations []Allocation
}

// AmountQuote resolves an amount-mode payment against the remaining
// balance. Cash may overpay, with the excess returned as change;
// non-cash methods must not exceed the balance.
func AmountQuote(remaining, received float64, isCash bool) (subtotal, change float64, err error) {
	if received > remaining {
		if !isCash {
			return 0, 0, apperrors.ValidationError{
				Field:   "amount",
				Message: fmt.Sprintf("amount %.2f exceeds the remaining balance %.2f", received, remaining),
			}
		}
		return remaining, received - remaining, nil
	}
	return received, 0, nil
}

// ItemsQuote resolves an items-mode payment: each selection is matched
// against an unpaid line and priced at the line's snapshot price. The
// returned allocations record where a partial quantity requires a
// split.
func ItemsQuote(items []models.OrderItem, selections []models.PaymentItemSelection) ([]Allocation, float64, error) {
	byID := make(map[int64]models.OrderItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	seen := make(map[int64]bool, len(selections))
	allocations := make([]Allocation, 0, len(selections))
	var subtotal float64
	for _, sel := range selections {
		if seen[sel.ID] {
			return nil, 0, apperrors.ValidationError{Field: "items", Message: fmt.Sprintf("item %d selected twice", sel.ID)}
		}
		seen[sel.ID] = true

		item, ok := byID[sel.ID]
		if !ok {
			return nil, 0, apperrors.NotFoundError{Resource: "order item", ID: fmt.Sprintf("%d", sel.ID)}
		}
		if item.Paid() {
			return nil, 0, apperrors.ConflictError{Message: fmt.Sprintf("item %d is already paid", sel.ID)}
		}
		if sel.Quantity > item.Quantity {
			return nil, 0, apperrors.ValidationError{
				Field:   "items",
				Message: fmt.Sprintf("item %d has %d units, %d selected", sel.ID, item.Quantity, sel.Quantity),
			}
		}

		allocations = append(allocations, Allocation{Item: item, Quantity: sel.Quantity})
		subtotal += item.UnitPrice * float64(sel.Quantity)
	}
	return allocations, subtotal, nil
}

// ResolveQuote turns a validated payment request into the final quote
// against the order's remaining balance. Neither mode may book more
// against the balance than is outstanding: amount mode caps or rejects
// inside AmountQuote, and an items-mode selection whose snapshot sum
// exceeds the balance (lines left unstamped by earlier amount-mode
// payments) is rejected outright.
func ResolveQuote(items []models.OrderItem, isCash bool, remaining float64, req *models.PaymentRequest, tipPercent float64) (*Quote, error) {
	var quote Quote
	switch req.Mode {
	case models.PaymentByAmount:
		subtotal, change, err := AmountQuote(remaining, req.Amount, isCash)
		if err != nil {
			return nil, err
		}
		quote.Subtotal = subtotal
		quote.Change = change
	case models.PaymentByItems:
		allocations, subtotal, err := ItemsQuote(items, req.Items)
		if err != nil {
			return nil, err
		}
		if subtotal > remaining {
			return nil, apperrors.ConflictError{
				Message: fmt.Sprintf("selected items sum %.2f exceeds the remaining balance %.2f", subtotal, remaining),
			}
		}
		quote.Subtotal = subtotal
		quote.Allocations = allocations
	}

	quote.Tip = ComputeTip(req.TipMode, req.TipValue, quote.Subtotal, tipPercent)

	// A cash overpayment funds the tip before change is returned; the
	// tip can never take more than was actually tendered.
	if quote.Change > 0 {
		if quote.Tip > quote.Change {
			quote.Tip = quote.Change
		}
		quote.Change -= quote.Tip
	}
	return &quote, nil
}

// ComputeTip resolves the tip for a payment against its subtotal.
// Percent mode uses the caller's override when given, otherwise the
// organization default.
func ComputeTip(mode models.TipMode, value *float64, subtotal, orgDefaultPercent float64) float64 {
	switch mode {
	case models.TipPercent:
		percent := orgDefaultPercent
		if value != nil {
			percent = *value
		}
		return subtotal * percent / 100
	case models.TipCustom:
		return *value
	default:
		return 0
	}
}
