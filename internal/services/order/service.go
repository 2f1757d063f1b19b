package order

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"restaurante-pedidos/internal/apperrors"
	"restaurante-pedidos/internal/database"
	"restaurante-pedidos/internal/logger"
	"restaurante-pedidos/internal/models"
	"restaurante-pedidos/internal/services/notifier"
	"restaurante-pedidos/internal/services/stock"
)

// Service owns order and line-item creation and mutation: price
// snapshotting, table-occupancy side effects, claim/cancel and the
// cancelled-order cleanup. Stock validation and deduction run inside
// the same transaction that creates or extends the order.
type Service struct {
	db       *database.DB
	ledger   *stock.Ledger
	notifier *notifier.Notifier
	logger   *logger.Logger
}

// NewService creates an order service.
func NewService(db *database.DB, ledger *stock.Ledger, n *notifier.Notifier, log *logger.Logger) *Service {
	return &Service{db: db, ledger: ledger, notifier: n, logger: log}
}

// CreateOrder creates an order with its lines as one atomic unit:
// stock reservation, price snapshots, item insertion and table
// occupancy all commit together or not at all.
func (s *Service) CreateOrder(ctx context.Context, orgID int64, waiterID *int64, req *models.CreateOrderRequest, requestID string) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		menuItems, err := s.ledger.Reserve(ctx, tx, orgID, stockRequests(req.Items))
		if err != nil {
			return err
		}

		subtotal := snapshotSubtotal(req.Items, menuItems)

		order = &models.Order{
			OrgID:       orgID,
			TableNumber: req.TableNumber,
			WaiterID:    waiterID,
			Status:      models.OrderNuevo,
			Subtotal:    subtotal,
			Total:       subtotal,
			Notes:       req.Note,
		}
		err = tx.QueryRow(ctx, database.InsertOrderSQL,
			orgID, order.TableNumber, order.WaiterID, order.Status, order.Subtotal, order.Total, order.Notes,
		).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		order.Items, err = insertItems(ctx, tx, order.ID, req.Items, menuItems)
		if err != nil {
			return err
		}

		if err := applyDerivedStatus(ctx, tx, order); err != nil {
			return err
		}

		// Occupancy only applies to blockable table types; the
		// update is a no-op otherwise.
		if _, err := tx.Exec(ctx, database.OccupyTableSQL, orgID, req.TableNumber); err != nil {
			return fmt.Errorf("failed to occupy table %d: %w", req.TableNumber, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_created", "Order created", requestID, map[string]any{
		"order_id": order.ID,
		"table":    order.TableNumber,
		"total":    order.Total,
	})
	s.notifier.Publish(ctx, orgID, models.EventOrderCreated, order.ID)
	return order, nil
}

// ExtendOrder appends lines to an existing, not-yet-paid order under
// the same snapshot, validation and deduction rules as creation.
// Existing lines are untouched; a kitchen-driven order status is
// re-derived over the grown line set.
func (s *Service) ExtendOrder(ctx context.Context, orgID, orderID int64, req *models.ExtendOrderRequest, requestID string) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = LockOrder(ctx, tx, orgID, orderID)
		if err != nil {
			return err
		}
		if order.Status == models.OrderPagado || order.Status == models.OrderCancelado {
			return apperrors.ConflictError{Message: fmt.Sprintf("order %d is %s and cannot be extended", orderID, order.Status)}
		}

		menuItems, err := s.ledger.Reserve(ctx, tx, orgID, stockRequests(req.Items))
		if err != nil {
			return err
		}

		if _, err := insertItems(ctx, tx, orderID, req.Items, menuItems); err != nil {
			return err
		}

		added := snapshotSubtotal(req.Items, menuItems)
		if _, err := tx.Exec(ctx, database.ExtendOrderTotalsSQL, orderID, added); err != nil {
			return fmt.Errorf("failed to update order totals: %w", err)
		}
		order.Subtotal += added
		order.Total += added

		if req.Note != nil {
			if _, err := tx.Exec(ctx, database.UpdateOrderNoteSQL, orderID, req.Note); err != nil {
				return fmt.Errorf("failed to update order note: %w", err)
			}
			order.Notes = req.Note
		}

		order.Items, err = LoadItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		return applyDerivedStatus(ctx, tx, order)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_extended", "Order extended", requestID, map[string]any{
		"order_id": orderID,
		"total":    order.Total,
	})
	s.notifier.Publish(ctx, orgID, models.EventOrderUpdate, orderID)
	return order, nil
}

// ClaimOrder assigns an unattended order to a waiter through a
// conditional update; losing a concurrent claim race yields Conflict.
func (s *Service) ClaimOrder(ctx context.Context, orgID, orderID, waiterID int64, requestID string) (*models.Order, error) {
	tag, err := s.db.Pool.Exec(ctx, database.ClaimOrderSQL, orderID, orgID, waiterID)
	if err != nil {
		return nil, fmt.Errorf("failed to claim order %d: %w", orderID, err)
	}
	if tag.RowsAffected() == 0 {
		// Either the order does not exist or someone claimed it first.
		if _, err := s.GetOrder(ctx, orgID, orderID); err != nil {
			return nil, err
		}
		return nil, apperrors.ConflictError{Message: fmt.Sprintf("order %d is already claimed", orderID)}
	}

	s.logger.Info("order_claimed", "Order claimed", requestID, map[string]any{
		"order_id":  orderID,
		"waiter_id": waiterID,
	})
	s.notifier.Publish(ctx, orgID, models.EventOrderUpdate, orderID)
	return s.GetOrder(ctx, orgID, orderID)
}

// CancelOrder moves any not-yet-paid order to cancelado and frees its
// table. Deducted stock is not restored.
func (s *Service) CancelOrder(ctx context.Context, orgID, orderID int64, requestID string) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, database.CancelOrderSQL, orderID, orgID)
		if err != nil {
			return fmt.Errorf("failed to cancel order %d: %w", orderID, err)
		}
		if tag.RowsAffected() == 0 {
			existing, err := LockOrder(ctx, tx, orgID, orderID)
			if err != nil {
				return err
			}
			return apperrors.ConflictError{Message: fmt.Sprintf("order %d is %s and cannot be cancelled", orderID, existing.Status)}
		}

		order, err = LockOrder(ctx, tx, orgID, orderID)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, database.FreeTableSQL, orgID, order.TableNumber); err != nil {
			return fmt.Errorf("failed to free table %d: %w", order.TableNumber, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_cancelled", "Order cancelled", requestID, map[string]any{"order_id": orderID})
	s.notifier.Publish(ctx, orgID, models.EventOrderUpdate, orderID)
	return order, nil
}

// SendToCashier applies the manual transition to listo_pagar.
func (s *Service) SendToCashier(ctx context.Context, orgID, orderID int64, requestID string) (*models.Order, error) {
	var order *models.Order
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = LockOrder(ctx, tx, orgID, orderID)
		if err != nil {
			return err
		}
		switch order.Status {
		case models.OrderPagado, models.OrderCancelado:
			return apperrors.ConflictError{Message: fmt.Sprintf("order %d is %s", orderID, order.Status)}
		case models.OrderListoPagar:
			return nil // idempotent
		}
		if _, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, orderID, models.OrderListoPagar); err != nil {
			return fmt.Errorf("failed to update order status: %w", err)
		}
		order.Status = models.OrderListoPagar
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_sent_to_cashier", "Order sent to cashier", requestID, map[string]any{"order_id": orderID})
	s.notifier.Publish(ctx, orgID, models.EventOrderUpdate, orderID)
	return order, nil
}

// SplitItem splits an unpaid line into two independently payable
// lines: the original keeps quantity-n units, the new line carries n.
func (s *Service) SplitItem(ctx context.Context, orgID, itemID int64, quantity int, requestID string) ([]models.OrderItem, error) {
	if quantity < 1 {
		return nil, apperrors.ValidationError{Field: "quantity", Message: "split quantity must be at least 1"}
	}

	var result []models.OrderItem
	var orderID int64
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		item, err := LockItem(ctx, tx, orgID, itemID)
		if err != nil {
			return err
		}
		orderID = item.OrderID

		if item.Paid() {
			return apperrors.ConflictError{Message: fmt.Sprintf("item %d is already paid", itemID)}
		}
		if quantity >= item.Quantity {
			return apperrors.ValidationError{Field: "quantity", Message: "split quantity must be less than the line quantity"}
		}

		split, err := SplitLine(ctx, tx, item, quantity)
		if err != nil {
			return err
		}
		result = []models.OrderItem{split.Remainder, split.Carved}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("item_split", "Order item split", requestID, map[string]any{
		"item_id":  itemID,
		"order_id": orderID,
		"quantity": quantity,
	})
	s.notifier.Publish(ctx, orgID, models.EventOrderUpdate, orderID)
	return result, nil
}

// CleanupCancelled deletes every cancelled order of one organization
// and returns the count. No other status is touched.
func (s *Service) CleanupCancelled(ctx context.Context, orgID int64, requestID string) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, database.CleanupCancelledSQL, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup cancelled orders: %w", err)
	}

	count := tag.RowsAffected()
	s.logger.Info("orders_cleaned_up", "Cancelled orders deleted", requestID, map[string]any{
		"org_id": orgID,
		"count":  count,
	})
	return count, nil
}

// GetOrder returns the authoritative order state with its lines.
func (s *Service) GetOrder(ctx context.Context, orgID, orderID int64) (*models.Order, error) {
	order, err := scanOrder(s.db.QueryRow(ctx, database.GetOrderSQL, orderID, orgID), orderID)
	if err != nil {
		return nil, err
	}
	order.Items, err = LoadItems(ctx, s.db.Pool, orderID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns recent orders for an organization, optionally
// filtered by status.
func (s *Service) ListOrders(ctx context.Context, orgID int64, status *models.OrderStatus) ([]models.Order, error) {
	var statusArg *string
	if status != nil {
		v := string(*status)
		statusArg = &v
	}
	rows, err := s.db.Query(ctx, database.ListOrdersSQL, orgID, statusArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range orders {
		orders[i].Items, err = LoadItems(ctx, s.db.Pool, orders[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func stockRequests(items []models.OrderItemRequest) []models.StockRequest {
	reqs := make([]models.StockRequest, 0, len(items))
	for _, it := range items {
		reqs = append(reqs, models.StockRequest{MenuItemID: it.MenuItemID, Quantity: it.Quantity})
	}
	return reqs
}

// snapshotSubtotal sums unit-price snapshots for the requested lines.
// Prices come from the rows locked by the stock reservation, so later
// menu edits never change this order's totals.
func snapshotSubtotal(items []models.OrderItemRequest, menuItems map[int64]*models.MenuItem) float64 {
	var subtotal float64
	for _, it := range items {
		if mi, ok := menuItems[it.MenuItemID]; ok {
			subtotal += mi.Price * float64(it.Quantity)
		}
	}
	return subtotal
}

// newOrderItems builds the line models for the requested items. Direct
// items skip kitchen preparation entirely: they are created in listo
// with both timestamps set to creation time.
func newOrderItems(orderID int64, reqs []models.OrderItemRequest, menuItems map[int64]*models.MenuItem, now time.Time) []models.OrderItem {
	items := make([]models.OrderItem, 0, len(reqs))
	for _, req := range reqs {
		mi := menuItems[req.MenuItemID]

		item := models.OrderItem{
			OrderID:    orderID,
			MenuItemID: mi.ID,
			Name:       mi.Name,
			Quantity:   req.Quantity,
			UnitPrice:  mi.Price,
			Notes:      req.Notes,
			Status:     models.ItemPendiente,
		}
		if mi.IsDirect {
			item.Status = models.ItemListo
			item.StartedAt = &now
			item.CompletedAt = &now
		}
		items = append(items, item)
	}
	return items
}

// insertItems persists the requested lines.
func insertItems(ctx context.Context, tx pgx.Tx, orderID int64, reqs []models.OrderItemRequest, menuItems map[int64]*models.MenuItem) ([]models.OrderItem, error) {
	items := newOrderItems(orderID, reqs, menuItems, time.Now().UTC())
	for i := range items {
		item := &items[i]
		err := tx.QueryRow(ctx, database.InsertOrderItemSQL,
			orderID, item.MenuItemID, item.Name, item.Quantity, item.UnitPrice,
			item.Notes, item.Status, item.StartedAt, item.CompletedAt,
		).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item %s: %w", item.Name, err)
		}
	}
	return items, nil
}

// applyDerivedStatus recomputes the kitchen-driven status from items
// already in hand and persists it when it moved. Without this, an
// order made entirely of direct items would sit in nuevo forever: its
// lines are born listo, so no later item change ever re-derives it.
func applyDerivedStatus(ctx context.Context, tx pgx.Tx, order *models.Order) error {
	if !order.Status.KitchenDriven() {
		return nil
	}
	derived := models.DeriveOrderStatus(order.Items)
	if derived == order.Status {
		return nil
	}
	if _, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, order.ID, derived); err != nil {
		return fmt.Errorf("failed to derive order status: %w", err)
	}
	order.Status = derived
	return nil
}
