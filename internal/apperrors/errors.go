package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ValidationError reports a malformed request field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Shortfall describes one menu item whose requested quantity exceeds
// the currently available stock.
type Shortfall struct {
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// InsufficientStockError carries the per-item shortfall detail for a
// rejected order submission. The whole submission is rejected; no
// partial order is created.
type InsufficientStockError struct {
	Shortfalls []Shortfall `json:"shortfalls"`
}

func (e InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s (requested %d, available %d)", s.Name, s.Requested, s.Available))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// NotFoundError reports a missing order, item, menu item or payment method.
type NotFoundError struct {
	Resource string `json:"resource"`
	ID       string `json:"id"`
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConflictError reports a lost claim race or an operation against an
// order that is already settled or cancelled.
type ConflictError struct {
	Message string `json:"message"`
}

func (e ConflictError) Error() string { return e.Message }

// UnauthorizedError reports a caller whose role does not permit the action.
type UnauthorizedError struct {
	Message string `json:"message"`
}

func (e UnauthorizedError) Error() string { return e.Message }

// HTTPStatus maps a domain error to the status code the HTTP layer returns.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	var (
		ve ValidationError
		se InsufficientStockError
		ne NotFoundError
		ce ConflictError
		ue UnauthorizedError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &se):
		return http.StatusConflict
	case errors.As(err, &ne):
		return http.StatusNotFound
	case errors.As(err, &ce):
		return http.StatusConflict
	case errors.As(err, &ue):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
