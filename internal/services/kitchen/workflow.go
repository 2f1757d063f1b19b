package kitchen

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
	"restaurante-pedidos/internal/services/order"
)

// Service drives the per-item preparation state machine and keeps the
// running preparation-time statistics per menu item per day.
type Service struct {
	db       *database.DB
	notifier *notifier.Notifier
	logger   *logger.Logger
}

// NewService creates a kitchen workflow service.
func NewService(db *database.DB, n *notifier.Notifier, log *logger.Logger) *Service {
	return &Service{db: db, notifier: n, logger: log}
}

var statusRank = map[models.ItemStatus]int{
	models.ItemPendiente:     0,
	models.ItemEnPreparacion: 1,
	models.ItemListo:         2,
	models.ItemServido:       3,
}

// ValidateTransition reports whether an item may move from one status
// to another. Re-applying the current status is an idempotent no-op;
// moving backwards is rejected.
func ValidateTransition(from, to models.ItemStatus) (noop bool, err error) {
	fromRank, ok := statusRank[from]
	if !ok {
		return false, apperrors.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", from)}
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false, apperrors.ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", to)}
	}
	if toRank == fromRank {
		return true, nil
	}
	if toRank < fromRank {
		return false, apperrors.ConflictError{Message: fmt.Sprintf("item cannot move from %s back to %s", from, to)}
	}
	return false, nil
}

// SetItemStatus applies one target status to one item atomically. The
// owning order's kitchen-driven status is recomputed in the same
// transaction, so order and item state never drift apart.
func (s *Service) SetItemStatus(ctx context.Context, orgID, itemID int64, target models.ItemStatus, requestID string) (*models.OrderItem, error) {
	var (
		item    *models.OrderItem
		orderID int64
	)
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		var err error
		item, err = order.LockItem(ctx, tx, orgID, itemID)
		if err != nil {
			return err
		}
		orderID = item.OrderID

		noop, err := ValidateTransition(item.Status, target)
		if err != nil {
			return err
		}
		if noop {
			return nil
		}

		now := time.Now().UTC()
		switch target {
		case models.ItemEnPreparacion:
			item.StartedAt = &now
		case models.ItemListo:
			item.CompletedAt = &now
		}
		item.Status = target

		if _, err := tx.Exec(ctx, database.SetItemStatusSQL, item.ID, item.Status, item.StartedAt, item.CompletedAt); err != nil {
			return fmt.Errorf("failed to update item %d status: %w", item.ID, err)
		}

		// Completing preparation contributes a timing sample, except
		// for items that never entered preparation (direct items).
		if target == models.ItemListo && item.StartedAt != nil {
			elapsed := item.CompletedAt.Sub(*item.StartedAt).Minutes()
			if err := s.recordSample(ctx, tx, item.MenuItemID, now, elapsed); err != nil {
				return err
			}
		}

		_, err = order.SyncOrderStatus(ctx, tx, orgID, orderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("item_status_changed", "Order item status updated", requestID, map[string]any{
		"item_id":  itemID,
		"order_id": orderID,
		"status":   string(item.Status),
	})
	s.notifier.Publish(ctx, orgID, models.EventOrderUpdate, orderID)
	return item, nil
}

// BatchSetItemStatus applies one target status to a set of items. The
// batch is not all-or-nothing: each item updates atomically on its
// own, and the first failure stops the batch with the already-updated
// items returned alongside the error.
func (s *Service) BatchSetItemStatus(ctx context.Context, orgID int64, itemIDs []int64, target models.ItemStatus, requestID string) ([]models.OrderItem, error) {
	updated := make([]models.OrderItem, 0, len(itemIDs))
	for _, id := range itemIDs {
		item, err := s.SetItemStatus(ctx, orgID, id, target, requestID)
		if err != nil {
			return updated, err
		}
		updated = append(updated, *item)
	}
	return updated, nil
}

// recordSample folds one preparation time into the item's per-day
// running statistic inside the caller's transaction.
func (s *Service) recordSample(ctx context.Context, tx pgx.Tx, menuItemID int64, completedAt time.Time, elapsedMinutes float64) error {
	statDate := completedAt.Truncate(24 * time.Hour)

	var stat models.ItemTimeStat
	err := tx.QueryRow(ctx, database.GetTimeStatForUpdateSQL, menuItemID, statDate).Scan(
		&stat.MenuItemID, &stat.StatDate, &stat.TotalPreparations,
		&stat.AvgTimeMinutes, &stat.MinTimeMinutes, &stat.MaxTimeMinutes,
	)
	switch err {
	case nil:
		stat = stat.Fold(elapsedMinutes)
		_, err = tx.Exec(ctx, database.UpdateTimeStatSQL,
			menuItemID, statDate, stat.TotalPreparations,
			stat.AvgTimeMinutes, stat.MinTimeMinutes, stat.MaxTimeMinutes)
		if err != nil {
			return fmt.Errorf("failed to update time stat: %w", err)
		}
	case pgx.ErrNoRows:
		stat = models.ItemTimeStat{MenuItemID: menuItemID, StatDate: statDate}.Fold(elapsedMinutes)
		_, err = tx.Exec(ctx, database.InsertTimeStatSQL,
			menuItemID, statDate, stat.TotalPreparations,
			stat.AvgTimeMinutes, stat.MinTimeMinutes, stat.MaxTimeMinutes)
		if err != nil {
			return fmt.Errorf("failed to insert time stat: %w", err)
		}
	default:
		return fmt.Errorf("failed to read time stat: %w", err)
	}
	return nil
}
