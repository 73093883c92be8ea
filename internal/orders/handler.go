package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"time"

	"github.com/cafeflow/cafeflow/internal/domain"
	"github.com/cafeflow/cafeflow/internal/products"
)

type eventPublisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Handler struct {
	repo     *OrderRepository
	catalog  *products.ProductRepository
	producer eventPublisher
	logger   *slog.Logger
}

// NewHandler builds the orders HTTP handler. producer may be nil, in which
// case order events are not published.
func NewHandler(repo *OrderRepository, catalog *products.ProductRepository, producer eventPublisher, logger *slog.Logger) *Handler {
	return &Handler{
		repo:     repo,
		catalog:  catalog,
		producer: producer,
		logger:   logger,
	}
}

type cartLineRequest struct {
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
}

type createOrderRequest struct {
	Name         string            `json:"name"`
	Email        string            `json:"email"`
	Cart         []cartLineRequest `json:"cart"`
	Instructions string            `json:"instructions"`
	Total        *float64          `json:"total"`
	TableNumber  int               `json:"tableNumber"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Cart) == 0 {
		h.writeError(w, http.StatusBadRequest, domain.ErrEmptyCart.Error())
		return
	}
	if req.TableNumber < 0 {
		h.writeError(w, http.StatusBadRequest, "invalid table number")
		return
	}

	productIDs := make([]string, 0, len(req.Cart))
	for _, line := range req.Cart {
		if line.Product == "" || line.Quantity < 1 {
			h.writeError(w, http.StatusBadRequest, domain.ErrInvalidLine.Error())
			return
		}
		productIDs = append(productIDs, line.Product)
	}

	catalog, err := h.catalog.GetByIDs(r.Context(), productIDs)
	if err != nil {
		h.logger.Error("failed to resolve cart products", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	order := &domain.Order{
		CustomerName:  req.Name,
		CustomerEmail: req.Email,
		Instructions:  req.Instructions,
		TableNumber:   req.TableNumber,
		Status:        domain.OrderStatusPending,
		PlacedAt:      time.Now().UTC(),
	}

	// The total is always recomputed from current catalog prices; a
	// client-supplied total is only a display hint.
	for _, line := range req.Cart {
		product, ok := catalog[line.Product]
		if !ok {
			h.writeError(w, http.StatusBadRequest, "unknown product in cart")
			return
		}
		order.Cart = append(order.Cart, domain.OrderLine{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  line.Quantity,
		})
	}
	order.Total = order.Revenue()

	if req.Total != nil && math.Abs(*req.Total-order.Total) > 0.005 {
		h.logger.Warn("client total differs from computed total",
			"client_total", *req.Total, "computed_total", order.Total)
	}

	if err := h.repo.Create(r.Context(), order); err != nil {
		h.logger.Error("failed to create order", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if h.producer != nil {
		event := domain.OrderEvent{
			Type:    domain.EventOrderPlaced,
			OrderID: order.ID,
			Placed: &domain.OrderPlacedEvent{
				CustomerName:  order.CustomerName,
				CustomerEmail: order.CustomerEmail,
				Cart:          order.Cart,
				Total:         order.Total,
				TableNumber:   order.TableNumber,
				PlacedAt:      order.PlacedAt,
			},
		}
		if err := h.producer.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish order placed event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order placed", "order_id", order.ID, "total", order.Total, "table", order.TableNumber)
	h.writeJSON(w, http.StatusCreated, map[string]any{"success": true, "order": order})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.repo.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "orders": orders})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if !req.Status.Valid() {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidStatus.Error())
		return
	}

	current, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if current == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	// Any recognized status may overwrite any other; transitions outside the
	// normal lifecycle are treated as manual overrides and logged.
	if !domain.CanTransition(current.Status, req.Status) {
		h.logger.Warn("status transition outside normal lifecycle",
			"order_id", id, "from", current.Status, "to", req.Status)
	}

	order, err := h.repo.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if h.producer != nil {
		event := domain.OrderEvent{
			Type:    domain.EventOrderStatusChanged,
			OrderID: order.ID,
			StatusChanged: &domain.OrderStatusChangedEvent{
				From:      current.Status,
				To:        order.Status,
				Timestamp: time.Now().UTC(),
			},
		}
		if err := h.producer.Publish(r.Context(), order.ID, event); err != nil {
			h.logger.Error("failed to publish status change event", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	deleted, err := h.repo.Delete(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to delete order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if !deleted {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.logger.Info("order deleted", "order_id", id)
	h.writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]any{"success": false, "message": message})
}
