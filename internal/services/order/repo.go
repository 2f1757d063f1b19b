package order

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"restaurante-pedidos/internal/apperrors"
	"restaurante-pedidos/internal/database"
	"restaurante-pedidos/internal/models"
)

// rowQuerier is satisfied by both pgx.Tx and *pgxpool.Pool.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxScanner interface {
	Scan(dest ...any) error
}

func scanOrderInto(row pgxScanner, order *models.Order) error {
	return row.Scan(
		&order.ID, &order.OrgID, &order.TableNumber, &order.WaiterID, &order.Status,
		&order.Subtotal, &order.Total, &order.TipAmount, &order.Notes,
		&order.CreatedAt, &order.UpdatedAt,
	)
}

// scanOrder scans a single-order query, mapping no-rows to NotFound.
func scanOrder(row pgx.Row, orderID int64) (*models.Order, error) {
	var order models.Order
	if err := scanOrderInto(row, &order); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFoundError{Resource: "order", ID: fmt.Sprintf("%d", orderID)}
		}
		return nil, fmt.Errorf("failed to scan order %d: %w", orderID, err)
	}
	return &order, nil
}

func scanOrderRow(rows pgx.Rows) (*models.Order, error) {
	var order models.Order
	if err := scanOrderInto(rows, &order); err != nil {
		return nil, fmt.Errorf("failed to scan order row: %w", err)
	}
	return &order, nil
}

// LockOrder reads an order under FOR UPDATE within the transaction.
func LockOrder(ctx context.Context, tx pgx.Tx, orgID, orderID int64) (*models.Order, error) {
	return scanOrder(tx.QueryRow(ctx, database.GetOrderForUpdateSQL, orderID, orgID), orderID)
}

// LoadItems returns an order's lines ordered by id.
func LoadItems(ctx context.Context, q rowQuerier, orderID int64) ([]models.OrderItem, error) {
	rows, err := q.Query(ctx, database.GetOrderItemsSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []models.OrderItem
	for rows.Next() {
		var it models.OrderItem
		err := rows.Scan(
			&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPrice,
			&it.Notes, &it.Status, &it.StartedAt, &it.CompletedAt, &it.TransactionID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// LockItem reads one order line under FOR UPDATE, scoped to the
// caller's organization through the owning order.
func LockItem(ctx context.Context, tx pgx.Tx, orgID, itemID int64) (*models.OrderItem, error) {
	var (
		it        models.OrderItem
		itemOrgID int64
	)
	err := tx.QueryRow(ctx, database.GetItemForUpdateSQL, itemID, orgID).Scan(
		&it.ID, &it.OrderID, &it.MenuItemID, &it.Name, &it.Quantity, &it.UnitPrice,
		&it.Notes, &it.Status, &it.StartedAt, &it.CompletedAt, &it.TransactionID,
		&itemOrgID,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFoundError{Resource: "order item", ID: fmt.Sprintf("%d", itemID)}
		}
		return nil, fmt.Errorf("failed to lock order item %d: %w", itemID, err)
	}
	return &it, nil
}

type SplitResult struct {
	Remainder models.OrderItem // the original line, quantity reduced
	Carved    models.OrderItem // the new line carrying the split quantity
}

// SplitLine carves quantity units off an unpaid line into a new line
// with the same snapshot price and status. Both remain independently
// payable afterwards.
func SplitLine(ctx context.Context, tx pgx.Tx, item *models.OrderItem, quantity int) (*SplitResult, error) {
	remainder := *item
	remainder.Quantity = item.Quantity - quantity
	if _, err := tx.Exec(ctx, database.UpdateItemQuantitySQL, item.ID, remainder.Quantity); err != nil {
		return nil, fmt.Errorf("failed to reduce split line %d: %w", item.ID, err)
	}

	carved := *item
	carved.Quantity = quantity
	err := tx.QueryRow(ctx, database.InsertOrderItemSQL,
		carved.OrderID, carved.MenuItemID, carved.Name, carved.Quantity, carved.UnitPrice,
		carved.Notes, carved.Status, carved.StartedAt, carved.CompletedAt,
	).Scan(&carved.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert split line: %w", err)
	}

	return &SplitResult{Remainder: remainder, Carved: carved}, nil
}

// SyncOrderStatus recomputes the kitchen-driven order status from the
// current item statuses, inside the caller's transaction. Manual and
// terminal statuses are left alone, so there is a single source of
// truth: items drive the order until staff take over.
func SyncOrderStatus(ctx context.Context, tx pgx.Tx, orgID, orderID int64) (models.OrderStatus, error) {
	order, err := LockOrder(ctx, tx, orgID, orderID)
	if err != nil {
		return "", err
	}
	if !order.Status.KitchenDriven() {
		return order.Status, nil
	}

	items, err := LoadItems(ctx, tx, orderID)
	if err != nil {
		return "", err
	}

	derived := models.DeriveOrderStatus(items)
	if derived == order.Status {
		return derived, nil
	}
	if _, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, orderID, derived); err != nil {
		return "", fmt.Errorf("failed to sync order status: %w", err)
	}
	return derived, nil
}
