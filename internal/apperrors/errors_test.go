package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: ValidationError{Field: "items", Message: "required"}, want: http.StatusBadRequest},
		{name: "insufficient stock", err: InsufficientStockError{}, want: http.StatusConflict},
		{name: "not found", err: NotFoundError{Resource: "order", ID: "5"}, want: http.StatusNotFound},
		{name: "conflict", err: ConflictError{Message: "claimed"}, want: http.StatusConflict},
		{name: "unauthorized", err: UnauthorizedError{Message: "no"}, want: http.StatusForbidden},
		{name: "wrapped domain error", err: fmt.Errorf("pay order: %w", NotFoundError{Resource: "order", ID: "5"}), want: http.StatusNotFound},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.want {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestInsufficientStockErrorMessage(t *testing.T) {
	err := InsufficientStockError{Shortfalls: []Shortfall{
		{Name: "Ceviche", Requested: 3, Available: 1},
	}}
	want := "insufficient stock: Ceviche (requested 3, available 1)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
