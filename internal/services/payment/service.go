package payment

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"restaurante-pedidos/internal/apperrors"
	"restaurante-pedidos/internal/database"
	"restaurante-pedidos/internal/logger"
	"restaurante-pedidos/internal/models"
	"restaurante-pedidos/internal/services/notifier"
	"restaurante-pedidos/internal/services/order"
)

// Service settles orders: it turns a payment request into a committed
// transaction, stamps paid lines, accumulates tips and closes the
// order when the balance reaches zero. Everything for one payment
// happens in one database transaction under the order's row lock.
type Service struct {
	db                *database.DB
	notifier          *notifier.Notifier
	logger            *logger.Logger
	defaultTipPercent float64
}

// NewService creates a payment service. defaultTipPercent applies when
// an organization has no tip percent of its own.
func NewService(db *database.DB, n *notifier.Notifier, log *logger.Logger, defaultTipPercent float64) *Service {
	return &Service{db: db, notifier: n, logger: log, defaultTipPercent: defaultTipPercent}
}

// PayOrder settles part or all of an order's balance. Amount mode pays
// against the remaining balance; items mode pays selected lines at
// their snapshot prices, splitting a line when only part of its
// quantity is selected. When the paid sum covers the total the order
// moves to pagado and its table is freed.
func (s *Service) PayOrder(ctx context.Context, orgID, orderID int64, req *models.PaymentRequest, requestID string) (*models.PaymentResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var result models.PaymentResult
	err := s.db.WithTx(ctx, func(tx pgx.Tx) error {
		ord, err := order.LockOrder(ctx, tx, orgID, orderID)
		if err != nil {
			return err
		}
		if ord.Status == models.OrderPagado || ord.Status == models.OrderCancelado {
			return apperrors.ConflictError{Message: fmt.Sprintf("order %d is %s", orderID, ord.Status)}
		}

		method, err := s.getPaymentMethod(ctx, tx, orgID, req.PaymentMethod)
		if err != nil {
			return err
		}

		paid, err := sumPaid(ctx, tx, orderID)
		if err != nil {
			return err
		}
		remaining := ord.Total - paid
		if remaining <= 0 {
			return apperrors.ConflictError{Message: fmt.Sprintf("order %d has no outstanding balance", orderID)}
		}

		quote, err := s.buildQuote(ctx, tx, ord, method, remaining, req)
		if err != nil {
			return err
		}
		if quote.Subtotal <= 0 {
			return apperrors.ValidationError{Field: "amount", Message: "payment does not cover any balance"}
		}

		txn := models.Transaction{
			OrderID:       orderID,
			Amount:        quote.Subtotal,
			TipAmount:     quote.Tip,
			PaymentMethod: method.Name,
			Completed:     true,
		}
		err = tx.QueryRow(ctx, database.InsertTransactionSQL,
			orderID, txn.Amount, txn.TipAmount, method.ID,
		).Scan(&txn.ID, &txn.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert transaction: %w", err)
		}

		if err := s.stampAllocations(ctx, tx, txn.ID, quote.Allocations); err != nil {
			return err
		}

		if quote.Tip > 0 {
			if _, err := tx.Exec(ctx, database.AddOrderTipSQL, orderID, quote.Tip); err != nil {
				return fmt.Errorf("failed to add tip: %w", err)
			}
			ord.TipAmount += quote.Tip
		}

		paid, err = sumPaid(ctx, tx, orderID)
		if err != nil {
			return err
		}
		remaining = ord.Total - paid

		if remaining <= 0 {
			if _, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, orderID, models.OrderPagado); err != nil {
				return fmt.Errorf("failed to close order: %w", err)
			}
			ord.Status = models.OrderPagado
			if _, err := tx.Exec(ctx, database.FreeTableSQL, orgID, ord.TableNumber); err != nil {
				return fmt.Errorf("failed to free table %d: %w", ord.TableNumber, err)
			}
		}

		ord.Items, err = order.LoadItems(ctx, tx, orderID)
		if err != nil {
			return err
		}

		result = models.PaymentResult{
			Transaction: txn,
			Order:       *ord,
			Change:      quote.Change,
			Remaining:   remaining,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment_committed", "Payment committed", requestID, map[string]any{
		"order_id":       orderID,
		"transaction_id": result.Transaction.ID,
		"amount":         result.Transaction.Amount,
		"tip":            result.Transaction.TipAmount,
		"change":         result.Change,
		"remaining":      result.Remaining,
		"settled":        result.Order.Status == models.OrderPagado,
	})
	s.notifier.Publish(ctx, orgID, models.EventOrderUpdate, orderID)
	return &result, nil
}

// buildQuote gathers the inputs the quote needs from the order's
// transaction and resolves it, without committing anything.
func (s *Service) buildQuote(ctx context.Context, tx pgx.Tx, ord *models.Order, method *models.PaymentMethod, remaining float64, req *models.PaymentRequest) (*Quote, error) {
	var items []models.OrderItem
	if req.Mode == models.PaymentByItems {
		var err error
		items, err = order.LoadItems(ctx, tx, ord.ID)
		if err != nil {
			return nil, err
		}
	}

	tipPercent := 0.0
	if req.TipMode == models.TipPercent && req.TipValue == nil {
		var err error
		tipPercent, err = s.orgTipPercent(ctx, tx, ord.OrgID)
		if err != nil {
			return nil, err
		}
	}

	return ResolveQuote(items, method.IsCash, remaining, req, tipPercent)
}

// stampAllocations marks paid lines with the transaction id, splitting
// a line first when only part of its quantity was selected. A stamp
// that affects no row means another payment took the line between our
// read and write, which aborts the whole payment.
func (s *Service) stampAllocations(ctx context.Context, tx pgx.Tx, txnID int64, allocations []Allocation) error {
	for _, alloc := range allocations {
		itemID := alloc.Item.ID
		if alloc.Quantity < alloc.Item.Quantity {
			split, err := order.SplitLine(ctx, tx, &alloc.Item, alloc.Quantity)
			if err != nil {
				return err
			}
			itemID = split.Carved.ID
		}

		tag, err := tx.Exec(ctx, database.StampItemSQL, itemID, txnID)
		if err != nil {
			return fmt.Errorf("failed to stamp item %d: %w", itemID, err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ConflictError{Message: fmt.Sprintf("item %d is already paid", itemID)}
		}
	}
	return nil
}

func (s *Service) getPaymentMethod(ctx context.Context, tx pgx.Tx, orgID int64, name string) (*models.PaymentMethod, error) {
	var method models.PaymentMethod
	err := tx.QueryRow(ctx, database.GetPaymentMethodSQL, orgID, name).Scan(
		&method.ID, &method.OrgID, &method.Name, &method.IsCash,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NotFoundError{Resource: "payment method", ID: name}
		}
		return nil, fmt.Errorf("failed to load payment method %s: %w", name, err)
	}
	return &method, nil
}

func (s *Service) orgTipPercent(ctx context.Context, tx pgx.Tx, orgID int64) (float64, error) {
	var percent float64
	if err := tx.QueryRow(ctx, database.GetOrgTipPercentSQL, orgID).Scan(&percent); err != nil {
		return 0, fmt.Errorf("failed to load org tip percent: %w", err)
	}
	if percent <= 0 {
		percent = s.defaultTipPercent
	}
	return percent, nil
}

func sumPaid(ctx context.Context, tx pgx.Tx, orderID int64) (float64, error) {
	var paid float64
	if err := tx.QueryRow(ctx, database.SumPaidSQL, orderID).Scan(&paid); err != nil {
		return 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return paid, nil
}
