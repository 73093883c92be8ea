package orders

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cafeflow/cafeflow/internal/domain"
)

func newMockRepo(t *testing.T) (*OrderRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return NewOrderRepository(db), mock
}

func orderColumns() []string {
	return []string{"id", "customer_name", "customer_email", "instructions", "total", "table_number", "status", "placed_at"}
}

func TestOrderRepository_Create(t *testing.T) {
	repo, mock := newMockRepo(t)

	order := &domain.Order{
		CustomerName:  "Alice",
		CustomerEmail: "alice@example.com",
		Cart: []domain.OrderLine{
			{ProductID: "p1", Name: "Espresso", Price: 120, Quantity: 2},
			{ProductID: "p2", Name: "Croissant", Price: 90, Quantity: 1},
		},
		Total:       330,
		TableNumber: 4,
		Status:      domain.OrderStatusPending,
		PlacedAt:    time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs(sqlmock.AnyArg(), "Alice", "alice@example.com", "", 330.0, 4, domain.OrderStatusPending, order.PlacedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_lines").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p1", "Espresso", 120.0, 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_lines").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "p2", "Croissant", 90.0, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Create(context.Background(), order)
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_CreateRollsBackOnLineFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	order := &domain.Order{
		CustomerName: "Bob",
		Cart:         []domain.OrderLine{{ProductID: "p1", Name: "Espresso", Price: 120, Quantity: 1}},
		Status:       domain.OrderStatusPending,
		PlacedAt:     time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO order_lines").WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.Create(context.Background(), order)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		placedAt := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
		mock.ExpectQuery("FROM orders").
			WithArgs("o1").
			WillReturnRows(sqlmock.NewRows(orderColumns()).
				AddRow("o1", "Alice", "alice@example.com", "no sugar", 330.0, 4, "pending", placedAt))
		mock.ExpectQuery("FROM order_lines").
			WithArgs("o1").
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "price", "quantity"}).
				AddRow("p1", "Espresso", 120.0, 2).
				AddRow("p2", "Croissant", 90.0, 1))

		order, err := repo.GetByID(context.Background(), "o1")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, "Alice", order.CustomerName)
		assert.Equal(t, "no sugar", order.Instructions)
		assert.Len(t, order.Cart, 2)
		assert.Equal(t, "Espresso", order.Cart[0].Name)
	})

	t.Run("missing returns nil", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("FROM orders").
			WithArgs("nope").
			WillReturnError(sql.ErrNoRows)

		order, err := repo.GetByID(context.Background(), "nope")
		require.NoError(t, err)
		assert.Nil(t, order)
	})

	t.Run("null email and instructions", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery("FROM orders").
			WithArgs("o2").
			WillReturnRows(sqlmock.NewRows(orderColumns()).
				AddRow("o2", "Bob", nil, nil, 120.0, 0, "pending", time.Now()))
		mock.ExpectQuery("FROM order_lines").
			WithArgs("o2").
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "price", "quantity"}))

		order, err := repo.GetByID(context.Background(), "o2")
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Empty(t, order.CustomerEmail)
		assert.Empty(t, order.Instructions)
		assert.Empty(t, order.Cart)
	})
}

func TestOrderRepository_FindInRange(t *testing.T) {
	repo, mock := newMockRepo(t)

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 2, 23, 59, 59, 999000000, time.UTC)

	mock.ExpectQuery("FROM orders").
		WithArgs(start, end).
		WillReturnRows(sqlmock.NewRows(orderColumns()).
			AddRow("o1", "Alice", nil, nil, 240.0, 1, "completed", start.Add(9*time.Hour)).
			AddRow("o2", "Bob", nil, nil, 90.0, 2, "completed", start.Add(26*time.Hour)))
	mock.ExpectQuery("FROM order_lines").
		WillReturnRows(sqlmock.NewRows([]string{"order_id", "product_id", "name", "price", "quantity"}).
			AddRow("o1", "p1", "Espresso", 120.0, 2).
			AddRow("o2", "p2", "Croissant", 90.0, 1))

	orders, err := repo.FindInRange(context.Background(), start, end)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Len(t, orders[0].Cart, 1)
	assert.Equal(t, "Espresso", orders[0].Cart[0].Name)
	assert.Len(t, orders[1].Cart, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	t.Run("updates and reloads", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec("UPDATE orders SET status").
			WithArgs(domain.OrderStatusReady, "o1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery("FROM orders").
			WithArgs("o1").
			WillReturnRows(sqlmock.NewRows(orderColumns()).
				AddRow("o1", "Alice", nil, nil, 330.0, 4, "ready", time.Now()))
		mock.ExpectQuery("FROM order_lines").
			WithArgs("o1").
			WillReturnRows(sqlmock.NewRows([]string{"product_id", "name", "price", "quantity"}))

		order, err := repo.UpdateStatus(context.Background(), "o1", domain.OrderStatusReady)
		require.NoError(t, err)
		require.NotNil(t, order)
		assert.Equal(t, domain.OrderStatusReady, order.Status)
	})

	t.Run("missing returns nil", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec("UPDATE orders SET status").
			WithArgs(domain.OrderStatusReady, "nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		order, err := repo.UpdateStatus(context.Background(), "nope", domain.OrderStatusReady)
		require.NoError(t, err)
		assert.Nil(t, order)
	})
}

func TestOrderRepository_Delete(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec("DELETE FROM orders").
			WithArgs("o1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		deleted, err := repo.Delete(context.Background(), "o1")
		require.NoError(t, err)
		assert.True(t, deleted)
	})

	t.Run("missing", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectExec("DELETE FROM orders").
			WithArgs("nope").
			WillReturnResult(sqlmock.NewResult(0, 0))

		deleted, err := repo.Delete(context.Background(), "nope")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
