package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cafeflow/cafeflow/internal/domain"
)

// Handler consumes order events and drives the follow-up work: confirming
// freshly placed orders through the orders API and notifying customers by
// email when their order changes state.
type Handler struct {
	ordersBaseURL string
	authToken     string
	httpClient    *http.Client
	mailer        Mailer
	logger        *slog.Logger
}

func NewHandler(ordersBaseURL, authToken string, client *http.Client, mailer Mailer, logger *slog.Logger) *Handler {
	return &Handler{
		ordersBaseURL: ordersBaseURL,
		authToken:     authToken,
		httpClient:    client,
		mailer:        mailer,
		logger:        logger,
	}
}

func (h *Handler) Handle(ctx context.Context, key, payload []byte) error {
	var event domain.OrderEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order event: %w", err)
	}

	switch event.Type {
	case domain.EventOrderPlaced:
		if event.Placed == nil {
			return fmt.Errorf("order event %s missing placed payload", event.OrderID)
		}
		return h.handlePlaced(ctx, event.OrderID, *event.Placed)
	case domain.EventOrderStatusChanged:
		if event.StatusChanged == nil {
			return fmt.Errorf("order event %s missing status payload", event.OrderID)
		}
		return h.handleStatusChanged(ctx, event.OrderID, *event.StatusChanged)
	default:
		h.logger.Warn("skipping unrecognized order event", "type", event.Type, "order_id", event.OrderID)
		return nil
	}
}

func (h *Handler) handlePlaced(ctx context.Context, orderID string, event domain.OrderPlacedEvent) error {
	h.logger.Info("processing placed order", "order_id", orderID, "customer", event.CustomerName)

	if event.CustomerEmail != "" {
		subject := "Order received: " + orderID
		body := fmt.Sprintf("Hi %s, we received your order of %d items (%.2f total) and will confirm it shortly.",
			event.CustomerName, len(event.Cart), event.Total)
		if err := h.mailer.Send(ctx, event.CustomerEmail, subject, body); err != nil {
			h.logger.Error("failed to send receipt email", "error", err, "order_id", orderID)
			return fmt.Errorf("send receipt email: %w", err)
		}
	}

	if err := h.updateOrderStatus(ctx, orderID, domain.OrderStatusConfirmed); err != nil {
		h.logger.Error("failed to confirm order", "error", err, "order_id", orderID)
		return fmt.Errorf("confirm order: %w", err)
	}

	h.logger.Info("order confirmed", "order_id", orderID)
	return nil
}

func (h *Handler) handleStatusChanged(ctx context.Context, orderID string, event domain.OrderStatusChangedEvent) error {
	var subject, body string
	switch event.To {
	case domain.OrderStatusReady:
		subject = "Order ready: " + orderID
		body = fmt.Sprintf("Your order %s is ready for pickup.", orderID)
	case domain.OrderStatusCancelled:
		subject = "Order cancelled: " + orderID
		body = fmt.Sprintf("Your order %s has been cancelled. If you already paid you will be reimbursed.", orderID)
	default:
		return nil
	}

	order, err := h.fetchOrder(ctx, orderID)
	if err != nil {
		h.logger.Error("failed to fetch order", "error", err, "order_id", orderID)
		return fmt.Errorf("fetch order: %w", err)
	}
	if order.CustomerEmail == "" {
		h.logger.Info("order has no customer email, skipping notification", "order_id", orderID)
		return nil
	}

	if err := h.mailer.Send(ctx, order.CustomerEmail, subject, body); err != nil {
		h.logger.Error("failed to send status email", "error", err, "order_id", orderID)
		return fmt.Errorf("send status email: %w", err)
	}

	h.logger.Info("customer notified", "order_id", orderID, "status", event.To)
	return nil
}

func (h *Handler) fetchOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	url := fmt.Sprintf("%s/api/orders/%s", h.ordersBaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+h.authToken)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("orders API returned status %d", resp.StatusCode)
	}

	var payload struct {
		Order *domain.Order `json:"order"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Order == nil {
		return nil, fmt.Errorf("orders API response missing order")
	}

	return payload.Order, nil
}

func (h *Handler) updateOrderStatus(ctx context.Context, orderID string, status domain.OrderStatus) error {
	body := map[string]string{"status": string(status)}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/api/orders/%s/status", h.ordersBaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.authToken)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("orders API returned status %d", resp.StatusCode)
	}

	return nil
}
