package stock

import (
	"math"
	"testing"

	"restaurante-pedidos/internal/models"
)

func TestAvailableUnits(t *testing.T) {
	tests := []struct {
		name string
		item models.MenuItem
		want int
	}{
		{
			name: "flat counter",
			item: models.MenuItem{Stock: models.StockMode{Kind: models.StockFlat, Units: 7}},
			want: 7,
		},
		{
			name: "flat zero",
			item: models.MenuItem{Stock: models.StockMode{Kind: models.StockFlat, Units: 0}},
			want: 0,
		},
		{
			name: "recipe limited by scarcest ingredient",
			item: models.MenuItem{Stock: models.StockMode{Kind: models.StockRecipe, Recipe: []models.RecipeIngredient{
				{InventoryItemID: 1, QuantityRequired: 2, CurrentStock: 10},  // 5 units
				{InventoryItemID: 2, QuantityRequired: 0.5, CurrentStock: 1}, // 2 units
			}}},
			want: 2,
		},
		{
			name: "recipe with fractional leftover floors",
			item: models.MenuItem{Stock: models.StockMode{Kind: models.StockRecipe, Recipe: []models.RecipeIngredient{
				{InventoryItemID: 1, QuantityRequired: 3, CurrentStock: 10},
			}}},
			want: 3,
		},
		{
			name: "empty recipe means untracked",
			item: models.MenuItem{Stock: models.StockMode{Kind: models.StockRecipe}},
			want: math.MaxInt32,
		},
		{
			name: "no stock mode means untracked",
			item: models.MenuItem{},
			want: math.MaxInt32,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AvailableUnits(tt.item); got != tt.want {
				t.Errorf("AvailableUnits() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMergeRequests(t *testing.T) {
	merged := MergeRequests([]models.StockRequest{
		{MenuItemID: 3, Quantity: 1},
		{MenuItemID: 1, Quantity: 2},
		{MenuItemID: 3, Quantity: 2},
	})

	want := []models.StockRequest{
		{MenuItemID: 1, Quantity: 2},
		{MenuItemID: 3, Quantity: 3},
	}
	if len(merged) != len(want) {
		t.Fatalf("merged %d requests, want %d", len(merged), len(want))
	}
	for i, req := range merged {
		if req != want[i] {
			t.Errorf("merged[%d] = %+v, want %+v", i, req, want[i])
		}
	}
}

func TestCollectShortfalls(t *testing.T) {
	items := map[int64]*models.MenuItem{
		1: {ID: 1, Name: "Lomo saltado", Stock: models.StockMode{Kind: models.StockFlat, Units: 2}},
		2: {ID: 2, Name: "Chicha morada", Stock: models.StockMode{Kind: models.StockFlat, Units: 10}},
	}

	t.Run("combined quantity exceeds stock", func(t *testing.T) {
		shortfalls := CollectShortfalls(items, MergeRequests([]models.StockRequest{
			{MenuItemID: 1, Quantity: 2},
			{MenuItemID: 1, Quantity: 1},
			{MenuItemID: 2, Quantity: 4},
		}))
		if len(shortfalls) != 1 {
			t.Fatalf("got %d shortfalls, want 1", len(shortfalls))
		}
		sf := shortfalls[0]
		if sf.Name != "Lomo saltado" || sf.Requested != 3 || sf.Available != 2 {
			t.Errorf("shortfall = %+v, want Lomo saltado requested 3 available 2", sf)
		}
	})

	t.Run("everything available", func(t *testing.T) {
		shortfalls := CollectShortfalls(items, []models.StockRequest{
			{MenuItemID: 1, Quantity: 2},
			{MenuItemID: 2, Quantity: 10},
		})
		if len(shortfalls) != 0 {
			t.Errorf("got %d shortfalls, want 0", len(shortfalls))
		}
	})
}
