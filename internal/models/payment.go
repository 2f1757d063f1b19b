package models

import (
	"time"

	"restaurante-pedidos/internal/apperrors"
)

// PaymentMode selects how the payable subtotal is determined.
type PaymentMode string

const (
	PaymentByAmount PaymentMode = "amount" // caller supplies a received amount
	PaymentByItems  PaymentMode = "items"  // caller selects unpaid lines
)

// TipMode selects how the tip for this payment is computed.
type TipMode string

const (
	TipNone    TipMode = "none"
	TipPercent TipMode = "percent" // org default percent, or explicit override
	TipCustom  TipMode = "custom"  // caller-supplied absolute amount
)

// PaymentMethod is a way of paying configured per organization.
// Cash-like methods can produce change on overpayment.
type PaymentMethod struct {
	ID     int64  `json:"id"`
	OrgID  int64  `json:"org_id"`
	Name   string `json:"name"`
	IsCash bool   `json:"is_cash"`
}

// Transaction records one committed payment against an order. Amount
// is the subtotal portion; the tip is tracked separately so that the
// sum of transaction amounts can be compared against the order total.
type Transaction struct {
	ID            int64     `json:"id"`
	OrderID       int64     `json:"order_id"`
	Amount        float64   `json:"amount"`
	TipAmount     float64   `json:"tip_amount"`
	PaymentMethod string    `json:"payment_method"`
	Completed     bool      `json:"completed"`
	CreatedAt     time.Time `json:"created_at"`
}

// PaymentItemSelection selects a quantity of one order line for an
// items-mode payment.
type PaymentItemSelection struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

// PaymentRequest settles part or all of an order's balance.
type PaymentRequest struct {
	Mode          PaymentMode            `json:"mode"`
	Amount        float64                `json:"amount,omitempty"`
	Items         []PaymentItemSelection `json:"items,omitempty"`
	TipMode       TipMode                `json:"tip_mode"`
	TipValue      *float64               `json:"tip_value,omitempty"`
	PaymentMethod string                 `json:"payment_method"`
}

// Validate checks a payment request before any database work.
func (r *PaymentRequest) Validate() error {
	switch r.Mode {
	case PaymentByAmount:
		if r.Amount <= 0 {
			return apperrors.ValidationError{Field: "amount", Message: "amount must be positive"}
		}
	case PaymentByItems:
		if len(r.Items) == 0 {
			return apperrors.ValidationError{Field: "items", Message: "at least one item selection is required"}
		}
		for _, sel := range r.Items {
			if sel.ID <= 0 {
				return apperrors.ValidationError{Field: "items", Message: "item id is required"}
			}
			if sel.Quantity < 1 {
				return apperrors.ValidationError{Field: "items", Message: "selected quantity must be at least 1"}
			}
		}
	default:
		return apperrors.ValidationError{Field: "mode", Message: "mode must be amount or items"}
	}

	switch r.TipMode {
	case TipNone, TipPercent:
	case TipCustom:
		if r.TipValue == nil || *r.TipValue < 0 {
			return apperrors.ValidationError{Field: "tip_value", Message: "custom tip requires a non-negative value"}
		}
	default:
		return apperrors.ValidationError{Field: "tip_mode", Message: "tip mode must be none, percent or custom"}
	}

	if r.PaymentMethod == "" {
		return apperrors.ValidationError{Field: "payment_method", Message: "payment method is required"}
	}
	return nil
}

// PaymentResult is the response of a committed payment.
type PaymentResult struct {
	Transaction Transaction `json:"transaction"`
	Order       Order       `json:"order"`
	Change      float64     `json:"change"`
	Remaining   float64     `json:"remaining"`
}
