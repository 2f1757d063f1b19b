package stock

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/jackc/pgx/v5"

	"restaurante-pedidos/internal/apperrors"
	"restaurante-pedidos/internal/database"
	"restaurante-pedidos/internal/logger"
	"restaurante-pedidos/internal/models"
)

// Ledger validates and atomically decrements stock for ordered
// quantities. Deduction always happens inside the caller's transaction
// with the affected rows locked, so two concurrent submissions can
// never both pass validation against the same finite stock.
type Ledger struct {
	db     *database.DB
	logger *logger.Logger
}

// NewLedger creates a stock ledger.
func NewLedger(db *database.DB, log *logger.Logger) *Ledger {
	return &Ledger{db: db, logger: log}
}

// AvailableUnits computes how many units of a menu item can currently
// be drawn from stock: the flat counter, or the minimum across recipe
// ingredients of floor(ingredientStock / quantityRequired). Items with
// no stock accounting are treated as unlimited.
func AvailableUnits(item models.MenuItem) int {
	switch item.Stock.Kind {
	case models.StockFlat:
		return item.Stock.Units
	case models.StockRecipe:
		if len(item.Stock.Recipe) == 0 {
			return math.MaxInt32
		}
		available := math.MaxInt32
		for _, ing := range item.Stock.Recipe {
			units := int(math.Floor(ing.CurrentStock / ing.QuantityRequired))
			if units < available {
				available = units
			}
		}
		return available
	default:
		return math.MaxInt32
	}
}

// CollectShortfalls returns one entry per request whose quantity
// exceeds availability. An empty result means the whole batch may
// proceed.
func CollectShortfalls(items map[int64]*models.MenuItem, needs []models.StockRequest) []apperrors.Shortfall {
	var shortfalls []apperrors.Shortfall
	for _, need := range needs {
		item, ok := items[need.MenuItemID]
		if !ok {
			continue
		}
		available := AvailableUnits(*item)
		if need.Quantity > available {
			shortfalls = append(shortfalls, apperrors.Shortfall{
				Name:      item.Name,
				Requested: need.Quantity,
				Available: available,
			})
		}
	}
	return shortfalls
}

// MergeRequests sums duplicate menu-item requests so availability is
// checked against the combined quantity, and returns the merged set
// ordered by menu item id (stable lock ordering).
func MergeRequests(reqs []models.StockRequest) []models.StockRequest {
	byItem := make(map[int64]int, len(reqs))
	for _, r := range reqs {
		byItem[r.MenuItemID] += r.Quantity
	}
	merged := make([]models.StockRequest, 0, len(byItem))
	for id, qty := range byItem {
		merged = append(merged, models.StockRequest{MenuItemID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].MenuItemID < merged[j].MenuItemID })
	return merged
}

// ValidateStock computes shortfalls for the requested batch against a
// plain read. This is the advisory pre-check; the authoritative check
// runs again under locks inside the order transaction.
func (l *Ledger) ValidateStock(ctx context.Context, orgID int64, reqs []models.StockRequest) ([]apperrors.Shortfall, error) {
	merged := MergeRequests(reqs)
	items := make(map[int64]*models.MenuItem, len(merged))
	for _, req := range merged {
		item, err := l.loadMenuItem(ctx, l.db.Pool, orgID, req.MenuItemID, false)
		if err != nil {
			return nil, err
		}
		items[item.ID] = item
	}
	return CollectShortfalls(items, merged), nil
}

// Reserve locks the stock rows behind the requested items, verifies
// availability, and deducts. On shortfall it returns
// InsufficientStockError and the caller must roll back; no partial
// deduction survives. The loaded menu items are returned so the caller
// can snapshot prices without a second read.
func (l *Ledger) Reserve(ctx context.Context, tx pgx.Tx, orgID int64, reqs []models.StockRequest) (map[int64]*models.MenuItem, error) {
	merged := MergeRequests(reqs)

	items := make(map[int64]*models.MenuItem, len(merged))
	for _, req := range merged {
		item, err := l.loadMenuItem(ctx, tx, orgID, req.MenuItemID, true)
		if err != nil {
			return nil, err
		}
		items[item.ID] = item
	}

	if shortfalls := CollectShortfalls(items, merged); len(shortfalls) > 0 {
		return nil, apperrors.InsufficientStockError{Shortfalls: shortfalls}
	}

	for _, req := range merged {
		if err := l.deduct(ctx, tx, items[req.MenuItemID], req.Quantity); err != nil {
			return nil, err
		}
	}

	return items, nil
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// loadMenuItem reads a menu item and, for recipe items, its ingredient
// lines. With forUpdate set the rows stay locked until the surrounding
// transaction finishes.
func (l *Ledger) loadMenuItem(ctx context.Context, q querier, orgID, menuItemID int64, forUpdate bool) (*models.MenuItem, error) {
	itemSQL := database.GetMenuItemSQL
	recipeSQL := database.GetRecipeSQL
	if forUpdate {
		itemSQL = database.GetMenuItemForUpdateSQL
		recipeSQL = database.GetRecipeForUpdateSQL
	}

	var (
		item      models.MenuItem
		flatStock *int
	)
	err := q.QueryRow(ctx, itemSQL, menuItemID, orgID).Scan(
		&item.ID, &item.Name, &item.Category, &item.Price, &item.IsDirect, &flatStock,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFoundError{Resource: "menu item", ID: fmt.Sprintf("%d", menuItemID)}
		}
		return nil, fmt.Errorf("failed to load menu item %d: %w", menuItemID, err)
	}
	item.OrgID = orgID

	if flatStock != nil {
		item.Stock = models.StockMode{Kind: models.StockFlat, Units: *flatStock}
		return &item, nil
	}

	rows, err := q.Query(ctx, recipeSQL, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe for menu item %d: %w", menuItemID, err)
	}
	defer rows.Close()

	var recipe []models.RecipeIngredient
	for rows.Next() {
		var ing models.RecipeIngredient
		if err := rows.Scan(&ing.InventoryItemID, &ing.Name, &ing.QuantityRequired, &ing.CurrentStock); err != nil {
			return nil, fmt.Errorf("failed to scan recipe ingredient: %w", err)
		}
		recipe = append(recipe, ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read recipe rows: %w", err)
	}

	item.Stock = models.StockMode{Kind: models.StockRecipe, Recipe: recipe}
	return &item, nil
}

// deduct decrements either the flat counter or each recipe
// ingredient, guarded by "stock >= 0 after decrement". A failed guard
// means another transaction got there first despite the row locks;
// the caller's transaction aborts with the shortfall shape.
func (l *Ledger) deduct(ctx context.Context, tx pgx.Tx, item *models.MenuItem, quantity int) error {
	switch item.Stock.Kind {
	case models.StockFlat:
		tag, err := tx.Exec(ctx, database.DeductFlatStockSQL, item.ID, quantity)
		if err != nil {
			return fmt.Errorf("failed to deduct stock for %s: %w", item.Name, err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.InsufficientStockError{Shortfalls: []apperrors.Shortfall{
				{Name: item.Name, Requested: quantity, Available: item.Stock.Units},
			}}
		}
	case models.StockRecipe:
		for _, ing := range item.Stock.Recipe {
			needed := ing.QuantityRequired * float64(quantity)
			tag, err := tx.Exec(ctx, database.DeductIngredientStockSQL, ing.InventoryItemID, needed)
			if err != nil {
				return fmt.Errorf("failed to deduct ingredient %s: %w", ing.Name, err)
			}
			if tag.RowsAffected() == 0 {
				return apperrors.InsufficientStockError{Shortfalls: []apperrors.Shortfall{
					{Name: item.Name, Requested: quantity, Available: AvailableUnits(*item)},
				}}
			}
		}
	}
	return nil
}

// ListLowStock returns inventory items at or below their minimum
// stock level for one organization.
func (l *Ledger) ListLowStock(ctx context.Context, orgID int64) ([]models.InventoryItem, error) {
	rows, err := l.db.Query(ctx, database.ListLowStockSQL, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock: %w", err)
	}
	defer rows.Close()

	var items []models.InventoryItem
	for rows.Next() {
		var it models.InventoryItem
		if err := rows.Scan(&it.ID, &it.OrgID, &it.Name, &it.Unit, &it.CurrentStock, &it.MinStock); err != nil {
			return nil, fmt.Errorf("failed to scan inventory item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
