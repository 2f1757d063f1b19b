package database

// Stock queries
const (
	// Menu item row is locked so that concurrent submissions serialize on
	// the same finite stock ("read-then-decrement" race).
	GetMenuItemForUpdateSQL = `
		SELECT id, name, category, price, is_direct, current_stock
		FROM menu_items
		WHERE id = $1 AND org_id = $2
		FOR UPDATE`

	GetMenuItemSQL = `
		SELECT id, name, category, price, is_direct, current_stock
		FROM menu_items
		WHERE id = $1 AND org_id = $2`

	GetRecipeForUpdateSQL = `
		SELECT ri.inventory_item_id, ii.name, ri.quantity_required, ii.current_stock
		FROM recipe_ingredients ri
		JOIN inventory_items ii ON ii.id = ri.inventory_item_id
		WHERE ri.menu_item_id = $1
		ORDER BY ri.inventory_item_id
		FOR UPDATE OF ii`

	GetRecipeSQL = `
		SELECT ri.inventory_item_id, ii.name, ri.quantity_required, ii.current_stock
		FROM recipe_ingredients ri
		JOIN inventory_items ii ON ii.id = ri.inventory_item_id
		WHERE ri.menu_item_id = $1
		ORDER BY ri.inventory_item_id`

	// Guarded decrements: zero rows affected means the guard failed and
	// the surrounding transaction must abort.
	DeductFlatStockSQL = `
		UPDATE menu_items
		SET current_stock = current_stock - $2
		WHERE id = $1 AND current_stock >= $2`

	DeductIngredientStockSQL = `
		UPDATE inventory_items
		SET current_stock = current_stock - $2
		WHERE id = $1 AND current_stock >= $2`

	ListLowStockSQL = `
		SELECT id, org_id, name, unit, current_stock, min_stock
		FROM inventory_items
		WHERE org_id = $1 AND current_stock <= min_stock
		ORDER BY name`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (org_id, table_number, waiter_id, status, subtotal, total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (order_id, menu_item_id, name, quantity, unit_price, notes, status, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	GetOrderSQL = `
		SELECT id, org_id, table_number, waiter_id, status, subtotal, total, tip_amount, notes, created_at, updated_at
		FROM orders
		WHERE id = $1 AND org_id = $2`

	GetOrderForUpdateSQL = `
		SELECT id, org_id, table_number, waiter_id, status, subtotal, total, tip_amount, notes, created_at, updated_at
		FROM orders
		WHERE id = $1 AND org_id = $2
		FOR UPDATE`

	GetOrderItemsSQL = `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price, notes, status, started_at, completed_at, transaction_id
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	ListOrdersSQL = `
		SELECT id, org_id, table_number, waiter_id, status, subtotal, total, tip_amount, notes, created_at, updated_at
		FROM orders
		WHERE org_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at DESC
		LIMIT 200`

	// Conditional claim: succeeds only if the order is still unassigned
	// at commit time. Zero rows affected means the claim race was lost.
	ClaimOrderSQL = `
		UPDATE orders
		SET waiter_id = $3, updated_at = NOW()
		WHERE id = $1 AND org_id = $2 AND waiter_id IS NULL`

	CancelOrderSQL = `
		UPDATE orders
		SET status = 'cancelado', updated_at = NOW()
		WHERE id = $1 AND org_id = $2 AND status NOT IN ('pagado', 'cancelado')`

	CleanupCancelledSQL = `
		DELETE FROM orders
		WHERE org_id = $1 AND status = 'cancelado'`

	ExtendOrderTotalsSQL = `
		UPDATE orders
		SET subtotal = subtotal + $2, total = total + $2, updated_at = NOW()
		WHERE id = $1`

	UpdateOrderNoteSQL = `
		UPDATE orders SET notes = $2, updated_at = NOW() WHERE id = $1`

	UpdateOrderStatusSQL = `
		UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	OccupyTableSQL = `
		UPDATE tables
		SET status = 'ocupada'
		WHERE org_id = $1 AND number = $2 AND blockable`

	FreeTableSQL = `
		UPDATE tables
		SET status = 'libre'
		WHERE org_id = $1 AND number = $2 AND blockable`
)

// Kitchen queries
const (
	GetItemForUpdateSQL = `
		SELECT oi.id, oi.order_id, oi.menu_item_id, oi.name, oi.quantity, oi.unit_price,
		       oi.notes, oi.status, oi.started_at, oi.completed_at, oi.transaction_id, o.org_id
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE oi.id = $1 AND o.org_id = $2
		FOR UPDATE OF oi`

	SetItemStatusSQL = `
		UPDATE order_items
		SET status = $2, started_at = $3, completed_at = $4
		WHERE id = $1`

	GetTimeStatForUpdateSQL = `
		SELECT menu_item_id, stat_date, total_preparations, avg_time_minutes, min_time_minutes, max_time_minutes
		FROM item_time_stats
		WHERE menu_item_id = $1 AND stat_date = $2
		FOR UPDATE`

	InsertTimeStatSQL = `
		INSERT INTO item_time_stats (menu_item_id, stat_date, total_preparations, avg_time_minutes, min_time_minutes, max_time_minutes)
		VALUES ($1, $2, $3, $4, $5, $6)`

	UpdateTimeStatSQL = `
		UPDATE item_time_stats
		SET total_preparations = $3, avg_time_minutes = $4, min_time_minutes = $5, max_time_minutes = $6
		WHERE menu_item_id = $1 AND stat_date = $2`
)

// Payment queries
const (
	GetPaymentMethodSQL = `
		SELECT id, org_id, name, is_cash
		FROM payment_methods
		WHERE org_id = $1 AND name = $2`

	GetOrgTipPercentSQL = `
		SELECT default_tip_percent FROM organizations WHERE id = $1`

	InsertTransactionSQL = `
		INSERT INTO transactions (order_id, amount, tip_amount, payment_method_id, completed)
		VALUES ($1, $2, $3, $4, TRUE)
		RETURNING id, created_at`

	// Stamp only lines not yet allocated to a transaction.
	StampItemSQL = `
		UPDATE order_items
		SET transaction_id = $2
		WHERE id = $1 AND transaction_id IS NULL`

	SumPaidSQL = `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE order_id = $1 AND completed`

	AddOrderTipSQL = `
		UPDATE orders SET tip_amount = tip_amount + $2, updated_at = NOW() WHERE id = $1`

	UpdateItemQuantitySQL = `
		UPDATE order_items SET quantity = $2 WHERE id = $1`
)
