package models

// StockKind selects which stock-accounting mode a menu item uses.
// Exactly one mode is active per item.
type StockKind string

const (
	StockFlat   StockKind = "flat"   // a simple unit counter on the item itself
	StockRecipe StockKind = "recipe" // derived from ingredient inventory
)

// RecipeIngredient is one line of a recipe: how much of an inventory
// item a single unit of the menu item consumes.
type RecipeIngredient struct {
	InventoryItemID  int64   `json:"inventory_item_id"`
	Name             string  `json:"name"`
	QuantityRequired float64 `json:"quantity_required"`
	CurrentStock     float64 `json:"current_stock"`
}

// StockMode is the tagged variant for a menu item's stock accounting.
// Flat items carry a unit counter; recipe items carry ingredient lines.
type StockMode struct {
	Kind    StockKind          `json:"kind"`
	Units   int                `json:"units,omitempty"`
	Recipe  []RecipeIngredient `json:"recipe,omitempty"`
}

// MenuItem is the snapshot of a menu item the engine needs: price to
// snapshot onto order lines, the direct flag, and the stock mode.
type MenuItem struct {
	ID       int64     `json:"id"`
	OrgID    int64     `json:"org_id"`
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Price    float64   `json:"price"`
	IsDirect bool      `json:"is_direct"`
	Stock    StockMode `json:"stock"`
}

// InventoryItem is a raw ingredient tracked by the stock ledger.
type InventoryItem struct {
	ID           int64   `json:"id"`
	OrgID        int64   `json:"org_id"`
	Name         string  `json:"name"`
	Unit         string  `json:"unit"`
	CurrentStock float64 `json:"current_stock"`
	MinStock     float64 `json:"min_stock"`
}

// StockRequest asks whether (and then commits that) quantity units of a
// menu item can be drawn from stock.
type StockRequest struct {
	MenuItemID int64 `json:"menu_item_id"`
	Quantity   int   `json:"quantity"`
}
