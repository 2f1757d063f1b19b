package kitchen

import (
	"errors"
	"testing"

	"restaurante-pedidos/internal/apperrors"
	"restaurante-pedidos/internal/models"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		name     string
		from     models.ItemStatus
		to       models.ItemStatus
		wantNoop bool
		wantErr  bool
	}{
		{name: "start preparation", from: models.ItemPendiente, to: models.ItemEnPreparacion},
		{name: "finish preparation", from: models.ItemEnPreparacion, to: models.ItemListo},
		{name: "serve", from: models.ItemListo, to: models.ItemServido},
		{name: "skip preparation", from: models.ItemPendiente, to: models.ItemListo},
		{name: "same status is a no-op", from: models.ItemListo, to: models.ItemListo, wantNoop: true},
		{name: "backwards is rejected", from: models.ItemListo, to: models.ItemEnPreparacion, wantErr: true},
		{name: "served is final", from: models.ItemServido, to: models.ItemPendiente, wantErr: true},
		{name: "unknown target", from: models.ItemPendiente, to: models.ItemStatus("quemado"), wantErr: true},
		{name: "unknown source", from: models.ItemStatus(""), to: models.ItemListo, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			noop, err := ValidateTransition(tt.from, tt.to)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ValidateTransition(%s, %s) expected error, got nil", tt.from, tt.to)
				}
				return
			}
			if err != nil {
				t.Fatalf("ValidateTransition(%s, %s) unexpected error: %v", tt.from, tt.to, err)
			}
			if noop != tt.wantNoop {
				t.Errorf("ValidateTransition(%s, %s) noop = %v, want %v", tt.from, tt.to, noop, tt.wantNoop)
			}
		})
	}
}

func TestValidateTransitionBackwardsIsConflict(t *testing.T) {
	_, err := ValidateTransition(models.ItemServido, models.ItemListo)
	var conflict apperrors.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %T: %v", err, err)
	}
}
