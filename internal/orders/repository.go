package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/cafeflow/cafeflow/internal/domain"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create persists the order and its cart lines in one transaction. The line
// name and price columns are snapshots of the product at placement time.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	order.ID = uuid.New().String()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, customer_name, customer_email, instructions, total, table_number, status, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, order.ID, order.CustomerName, order.CustomerEmail, order.Instructions,
		order.Total, order.TableNumber, order.Status, order.PlacedAt)
	if err != nil {
		return err
	}

	for _, line := range order.Cart {
		lineID := uuid.New().String()
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (id, order_id, product_id, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, lineID, order.ID, line.ProductID, line.Name, line.Price, line.Quantity)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order := &domain.Order{}
	var email, instructions sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, customer_name, customer_email, instructions, total, table_number, status, placed_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.CustomerName, &email, &instructions,
		&order.Total, &order.TableNumber, &order.Status, &order.PlacedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	order.CustomerEmail = email.String
	order.Instructions = instructions.String

	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, name, price, quantity
		FROM order_lines
		WHERE order_id = $1
	`, id)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Cart = []domain.OrderLine{}
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		order.Cart = append(order.Cart, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

// List returns all orders newest first.
func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx, `
		SELECT id, customer_name, customer_email, instructions, total, table_number, status, placed_at
		FROM orders
		ORDER BY placed_at DESC
	`)
}

// FindInRange returns orders placed within [start, end] inclusive, oldest
// first. The aggregation engine consumes this.
func (r *OrderRepository) FindInRange(ctx context.Context, start, end time.Time) ([]domain.Order, error) {
	return r.query(ctx, `
		SELECT id, customer_name, customer_email, instructions, total, table_number, status, placed_at
		FROM orders
		WHERE placed_at >= $1 AND placed_at <= $2
		ORDER BY placed_at ASC
	`, start, end)
}

func (r *OrderRepository) query(ctx context.Context, q string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		var order domain.Order
		var email, instructions sql.NullString
		if err := rows.Scan(&order.ID, &order.CustomerName, &email, &instructions,
			&order.Total, &order.TableNumber, &order.Status, &order.PlacedAt); err != nil {
			return nil, err
		}
		order.CustomerEmail = email.String
		order.Instructions = instructions.String
		order.Cart = []domain.OrderLine{}
		orderMap[order.ID] = &order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	lineRows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, price, quantity
		FROM order_lines
		WHERE order_id = ANY($1)
	`, pq.Array(orderIDs))
	if err != nil {
		return nil, err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		var orderID string
		var line domain.OrderLine
		var name sql.NullString
		if err := lineRows.Scan(&orderID, &line.ProductID, &name, &line.Price, &line.Quantity); err != nil {
			return nil, err
		}
		line.Name = name.String
		order := orderMap[orderID]
		order.Cart = append(order.Cart, line)
	}

	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

// UpdateStatus writes the new status unconditionally (last write wins) and
// returns the updated order, or nil when the id does not resolve.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET status = $1
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}

// Delete hard-deletes the order and its lines. Returns false when the id
// does not resolve.
func (r *OrderRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM orders
		WHERE id = $1
	`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

type lineScanner interface {
	Scan(dest ...any) error
}

func scanLine(s lineScanner) (domain.OrderLine, error) {
	var line domain.OrderLine
	var name sql.NullString
	if err := s.Scan(&line.ProductID, &name, &line.Price, &line.Quantity); err != nil {
		return domain.OrderLine{}, err
	}
	line.Name = name.String
	return line, nil
}
