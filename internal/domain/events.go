package domain

import "time"

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)

// OrderEvent is the envelope written to the order events topic. Exactly one
// of the payload fields is set, according to Type.
type OrderEvent struct {
	Type          string                   `json:"type"`
	OrderID       string                   `json:"order_id"`
	Placed        *OrderPlacedEvent        `json:"placed,omitempty"`
	StatusChanged *OrderStatusChangedEvent `json:"status_changed,omitempty"`
}

type OrderPlacedEvent struct {
	CustomerName  string      `json:"customer_name"`
	CustomerEmail string      `json:"customer_email,omitempty"`
	Cart          []OrderLine `json:"cart"`
	Total         float64     `json:"total"`
	TableNumber   int         `json:"table_number"`
	PlacedAt      time.Time   `json:"placed_at"`
}

type OrderStatusChangedEvent struct {
	From      OrderStatus `json:"from"`
	To        OrderStatus `json:"to"`
	Timestamp time.Time   `json:"timestamp"`
}
