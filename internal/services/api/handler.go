package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"restaurante-pedidos/internal/apperrors"
	"restaurante-pedidos/internal/database"
	"restaurante-pedidos/internal/logger"
	"restaurante-pedidos/internal/messaging"
	"restaurante-pedidos/internal/models"
	"restaurante-pedidos/internal/services/kitchen"
	"restaurante-pedidos/internal/services/order"
	"restaurante-pedidos/internal/services/payment"
	"restaurante-pedidos/internal/services/stock"
)

// Handler exposes the order, kitchen, payment and stock services over
// HTTP. Every route is scoped to the caller's organization through the
// gateway identity headers.
type Handler struct {
	orders   *order.Service
	kitchen  *kitchen.Service
	payments *payment.Service
	ledger   *stock.Ledger
	db       *database.DB
	mq       *messaging.Connection
	logger   *logger.Logger
}

// NewHandler creates the HTTP handler over the wired services.
func NewHandler(orders *order.Service, kit *kitchen.Service, payments *payment.Service, ledger *stock.Ledger, db *database.DB, mq *messaging.Connection, log *logger.Logger) *Handler {
	return &Handler{
		orders:   orders,
		kitchen:  kit,
		payments: payments,
		ledger:   ledger,
		db:       db,
		mq:       mq,
		logger:   log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /orders", h.withLogging(h.CreateOrder))
	mux.HandleFunc("GET /orders", h.withLogging(h.ListOrders))
	mux.HandleFunc("GET /orders/{id}", h.withLogging(h.GetOrder))
	mux.HandleFunc("POST /orders/{id}/items", h.withLogging(h.ExtendOrder))
	mux.HandleFunc("POST /orders/{id}/claim", h.withLogging(h.ClaimOrder))
	mux.HandleFunc("POST /orders/{id}/cancel", h.withLogging(h.CancelOrder))
	mux.HandleFunc("POST /orders/{id}/cashier", h.withLogging(h.SendToCashier))
	mux.HandleFunc("POST /orders/{id}/pay", h.withLogging(h.PayOrder))
	mux.HandleFunc("POST /orders/cleanup", h.withLogging(h.CleanupCancelled))

	mux.HandleFunc("POST /items/{id}/split", h.withLogging(h.SplitItem))
	mux.HandleFunc("POST /items/{id}/status", h.withLogging(h.SetItemStatus))
	mux.HandleFunc("POST /items/status", h.withLogging(h.BatchSetItemStatus))

	mux.HandleFunc("POST /stock/validate", h.withLogging(h.ValidateStock))
	mux.HandleFunc("GET /stock/low", h.withLogging(h.ListLowStock))

	mux.HandleFunc("GET /health", h.withLogging(h.HealthCheck))

	return mux
}

// CreateOrder handles POST /orders requests
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleMesero)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var req models.CreateOrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, requestID, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	ord, err := h.orders.CreateOrder(ctx, id.OrgID, id.UserID, &req, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, ord, requestID)
}

// ListOrders handles GET /orders requests, optionally filtered with
// ?status=
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var status *models.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := models.OrderStatus(raw)
		status = &s
	}

	orders, err := h.orders.ListOrders(r.Context(), id.OrgID, status)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"orders": orders}, requestID)
}

// GetOrder handles GET /orders/{id} requests
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	ord, err := h.orders.GetOrder(r.Context(), id.OrgID, orderID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ord, requestID)
}

// ExtendOrder handles POST /orders/{id}/items requests
func (h *Handler) ExtendOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleMesero)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var req models.ExtendOrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, requestID, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	ord, err := h.orders.ExtendOrder(ctx, id.OrgID, orderID, &req, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ord, requestID)
}

// ClaimOrder handles POST /orders/{id}/claim requests. The claiming
// waiter is the authenticated caller.
func (h *Handler) ClaimOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleMesero)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	if id.UserID == nil {
		h.writeError(w, requestID, apperrors.UnauthorizedError{Message: "claiming requires " + headerUserID})
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	ord, err := h.orders.ClaimOrder(r.Context(), id.OrgID, orderID, *id.UserID, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ord, requestID)
}

// CancelOrder handles POST /orders/{id}/cancel requests
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleMesero, RoleCajero)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	ord, err := h.orders.CancelOrder(r.Context(), id.OrgID, orderID, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ord, requestID)
}

// SendToCashier handles POST /orders/{id}/cashier requests
func (h *Handler) SendToCashier(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleMesero, RoleCajero)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	ord, err := h.orders.SendToCashier(r.Context(), id.OrgID, orderID, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ord, requestID)
}

// PayOrder handles POST /orders/{id}/pay requests
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleCajero)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	orderID, err := pathID(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var req models.PaymentRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, requestID, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	result, err := h.payments.PayOrder(ctx, id.OrgID, orderID, &req, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result, requestID)
}

// CleanupCancelled handles POST /orders/cleanup requests
func (h *Handler) CleanupCancelled(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleAdmin)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	count, err := h.orders.CleanupCancelled(r.Context(), id.OrgID, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"deleted": count}, requestID)
}

type splitItemRequest struct {
	Quantity int `json:"quantity"`
}

// SplitItem handles POST /items/{id}/split requests
func (h *Handler) SplitItem(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleMesero, RoleCajero)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var req splitItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, requestID, err)
		return
	}

	items, err := h.orders.SplitItem(r.Context(), id.OrgID, itemID, req.Quantity, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": items}, requestID)
}

type itemStatusRequest struct {
	Status models.ItemStatus `json:"status"`
}

// SetItemStatus handles POST /items/{id}/status requests
func (h *Handler) SetItemStatus(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleCocina, RoleMesero)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	itemID, err := pathID(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var req itemStatusRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, requestID, err)
		return
	}

	item, err := h.kitchen.SetItemStatus(r.Context(), id.OrgID, itemID, req.Status, requestID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item, requestID)
}

type batchItemStatusRequest struct {
	ItemIDs []int64           `json:"item_ids"`
	Status  models.ItemStatus `json:"status"`
}

// BatchSetItemStatus handles POST /items/status requests. The batch is
// not atomic: already-updated items stay updated when a later one
// fails, and the response reports both.
func (h *Handler) BatchSetItemStatus(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err == nil {
		err = id.Require(RoleCocina, RoleMesero)
	}
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var req batchItemStatusRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, requestID, err)
		return
	}
	if len(req.ItemIDs) == 0 {
		h.writeError(w, requestID, apperrors.ValidationError{Field: "item_ids", Message: "at least one item id is required"})
		return
	}

	updated, err := h.kitchen.BatchSetItemStatus(r.Context(), id.OrgID, req.ItemIDs, req.Status, requestID)
	if err != nil {
		h.writeJSON(w, apperrors.HTTPStatus(err), map[string]any{
			"updated": updated,
			"error":   err.Error(),
		}, requestID)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"updated": updated}, requestID)
}

type validateStockRequest struct {
	Items []models.StockRequest `json:"items"`
}

// ValidateStock handles POST /stock/validate requests: an advisory
// availability check without any reservation.
func (h *Handler) ValidateStock(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	var req validateStockRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, requestID, err)
		return
	}

	shortfalls, err := h.ledger.ValidateStock(r.Context(), id.OrgID, req.Items)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"available":  len(shortfalls) == 0,
		"shortfalls": shortfalls,
	}, requestID)
}

// ListLowStock handles GET /stock/low requests
func (h *Handler) ListLowStock(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	id, err := identityFromRequest(r)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}

	items, err := h.ledger.ListLowStock(r.Context(), id.OrgID)
	if err != nil {
		h.writeError(w, requestID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": items}, requestID)
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	healthy := h.db.Ping(ctx) == nil && h.mq != nil && !h.mq.IsClosed()

	response := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "order-service",
		"healthy":   healthy,
	}

	w.Header().Set("Content-Type", "application/json")
	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		response["status"] = "unhealthy"
	}
	json.NewEncoder(w).Encode(response)
}

// pathID parses the {id} path segment.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.ValidationError{Field: "id", Message: "id must be a positive integer"}
	}
	return id, nil
}

// decodeBody parses a JSON request body, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.ValidationError{Field: "body", Message: "invalid JSON format"}
	}
	return nil
}

// writeJSON writes a successful response in JSON format
func (h *Handler) writeJSON(w http.ResponseWriter, statusCode int, payload any, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// writeError maps a domain error to its HTTP status and writes the
// JSON error body. Internal errors are logged and masked.
func (h *Handler) writeError(w http.ResponseWriter, requestID string, err error) {
	statusCode := apperrors.HTTPStatus(err)
	message := err.Error()
	if statusCode == http.StatusInternalServerError {
		h.logger.Error("request_failed", "Unhandled error", requestID, err, nil)
		message = "Internal server error"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]any{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

// withLogging adds request logging middleware
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
				"user_agent":  r.Header.Get("User-Agent"),
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}
		next(rw, r)

		duration := time.Since(start)
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]any{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
