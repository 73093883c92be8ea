package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusPreparing OrderStatus = "preparing"
	OrderStatusPacking   OrderStatus = "packing"
	OrderStatusReady     OrderStatus = "ready"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid reports whether s belongs to the recognized status set.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusPreparing,
		OrderStatusPacking, OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

var statusFlow = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusConfirmed, OrderStatusPreparing},
	OrderStatusConfirmed: {OrderStatusPacking},
	OrderStatusPreparing: {OrderStatusPacking},
	OrderStatusPacking:   {OrderStatusReady, OrderStatusCompleted},
	OrderStatusReady:     {OrderStatusCompleted},
}

// CanTransition reports whether moving from one status to the other follows
// the normal order lifecycle. Cancellation is allowed from any non-terminal
// state. Status writes are not blocked on this check; callers use it to flag
// manual overrides.
func CanTransition(from, to OrderStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if from.Terminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	for _, next := range statusFlow[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderLine is one product/quantity pair in an order's cart. Name and Price
// are snapshots of the product at placement time; a line with an empty Name
// no longer resolves to a product and is rendered as "unknown item".
type OrderLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Resolved reports whether the line still carries a product snapshot.
func (l OrderLine) Resolved() bool {
	return l.Name != ""
}

type Order struct {
	ID            string      `json:"id"`
	CustomerName  string      `json:"name"`
	CustomerEmail string      `json:"email,omitempty"`
	Cart          []OrderLine `json:"cart"`
	Instructions  string      `json:"instructions,omitempty"`
	Total         float64     `json:"total"`
	TableNumber   int         `json:"tableNumber"`
	Status        OrderStatus `json:"status"`
	PlacedAt      time.Time   `json:"placedAt"`
}

// Revenue is the order's monetary contribution: the sum of snapshot unit
// price times quantity over its lines.
func (o Order) Revenue() float64 {
	var total float64
	for _, line := range o.Cart {
		total += line.Price * float64(line.Quantity)
	}
	return total
}
