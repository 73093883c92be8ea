package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cafeflow/cafeflow/internal/domain"
)

type orderStore interface {
	FindInRange(ctx context.Context, start, end time.Time) ([]domain.Order, error)
}

type productCatalog interface {
	GetByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
}

type Handler struct {
	store   orderStore
	catalog productCatalog
	logger  *slog.Logger
}

func NewHandler(store orderStore, catalog productCatalog, logger *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		catalog: catalog,
		logger:  logger,
	}
}

type analyticsResponse struct {
	Success bool `json:"success"`
	Report
}

// HandleAnalytics computes the dashboard statistics for the requested date
// range and granularity. The whole report is computed or the request fails;
// there is no partial payload.
func (h *Handler) HandleAnalytics(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	rng, err := ParseRange(query.Get("startDate"), query.Get("endDate"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	granularity, err := ParseGranularity(query.Get("view"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	current, err := h.store.FindInRange(r.Context(), rng.Start, rng.End)
	if err != nil {
		h.logger.Error("failed to fetch orders for analytics", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	prevRange := rng.Previous()
	previous, err := h.store.FindInRange(r.Context(), prevRange.Start, prevRange.End)
	if err != nil {
		h.logger.Error("failed to fetch previous period orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	categories, err := h.resolveCategories(r.Context(), current)
	if err != nil {
		h.logger.Error("failed to resolve product categories", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	report := Compute(current, previous, rng, granularity, categories)

	h.logger.Info("analytics computed",
		"start", rng.Start.Format(dateLayout), "end", query.Get("endDate"),
		"view", string(granularity), "orders", report.TotalOrders)
	h.writeJSON(w, http.StatusOK, analyticsResponse{Success: true, Report: report})
}

func (h *Handler) resolveCategories(ctx context.Context, orders []domain.Order) (map[string]string, error) {
	seen := make(map[string]bool)
	var ids []string
	for _, order := range orders {
		for _, line := range order.Cart {
			if line.ProductID != "" && !seen[line.ProductID] {
				seen[line.ProductID] = true
				ids = append(ids, line.ProductID)
			}
		}
	}

	catalog, err := h.catalog.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	categories := make(map[string]string, len(catalog))
	for id, product := range catalog {
		categories[id] = product.Category
	}
	return categories, nil
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
