package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cafeflow/cafeflow/internal/domain"
)

type fakeStore struct {
	orders map[string][]domain.Order
	err    error
	calls  []time.Time
}

func (s *fakeStore) FindInRange(_ context.Context, start, end time.Time) ([]domain.Order, error) {
	s.calls = append(s.calls, start, end)
	if s.err != nil {
		return nil, s.err
	}
	return s.orders[start.Format("2006-01-02")], nil
}

type fakeCatalog struct {
	products map[string]domain.Product
	err      error
}

func (c *fakeCatalog) GetByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := make(map[string]domain.Product)
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_HandleAnalytics(t *testing.T) {
	t.Run("computes report with previous period comparison", func(t *testing.T) {
		store := &fakeStore{orders: map[string][]domain.Order{
			"2024-06-03": {
				{
					ID:       "o1",
					Total:    240,
					PlacedAt: time.Date(2024, 6, 3, 9, 15, 0, 0, time.UTC),
					Cart:     []domain.OrderLine{{ProductID: "p1", Name: "Espresso", Price: 120, Quantity: 2}},
				},
			},
			"2024-06-01": {
				{
					ID:       "o0",
					Total:    120,
					PlacedAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
					Cart:     []domain.OrderLine{{ProductID: "p1", Name: "Espresso", Price: 120, Quantity: 1}},
				},
			},
		}}
		catalog := &fakeCatalog{products: map[string]domain.Product{
			"p1": {ID: "p1", Name: "Espresso", Category: "coffee"},
		}}

		handler := NewHandler(store, catalog, discardLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/analytics?startDate=2024-06-03&endDate=2024-06-04&view=daily", nil)
		rec := httptest.NewRecorder()

		handler.HandleAnalytics(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var resp struct {
			Success      bool    `json:"success"`
			TotalRevenue float64 `json:"totalRevenue"`
			TotalOrders  int     `json:"totalOrders"`
			PeakHour     string  `json:"peakHour"`
			PopularItems []struct {
				Name     string `json:"name"`
				Category string `json:"category"`
				Sold     int    `json:"sold"`
			} `json:"popularItems"`
			RevenueData []struct {
				Date    string  `json:"date"`
				Revenue float64 `json:"revenue"`
			} `json:"revenueData"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if !resp.Success {
			t.Error("expected success true")
		}
		if resp.TotalRevenue != 240 {
			t.Errorf("expected revenue 240, got %v", resp.TotalRevenue)
		}
		if resp.TotalOrders != 1 {
			t.Errorf("expected 1 order, got %d", resp.TotalOrders)
		}
		if resp.PeakHour != "9:00" {
			t.Errorf("expected peak hour 9:00, got %q", resp.PeakHour)
		}
		if len(resp.PopularItems) != 1 || resp.PopularItems[0].Category != "coffee" {
			t.Errorf("expected Espresso annotated with coffee category, got %+v", resp.PopularItems)
		}
		if len(resp.RevenueData) != 2 {
			t.Errorf("expected 2 trend points, got %d", len(resp.RevenueData))
		}

		// Two-day window ending 2024-06-04 compares against the two days
		// before 2024-06-03.
		if len(store.calls) != 4 {
			t.Fatalf("expected 2 store queries, got %d calls", len(store.calls)/2)
		}
		if got := store.calls[2].Format("2006-01-02"); got != "2024-06-01" {
			t.Errorf("expected previous period to start 2024-06-01, got %s", got)
		}
	})

	t.Run("rejects invalid range", func(t *testing.T) {
		handler := NewHandler(&fakeStore{}, &fakeCatalog{}, discardLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/analytics?startDate=2024-06-04&endDate=2024-06-01&view=daily", nil)
		rec := httptest.NewRecorder()

		handler.HandleAnalytics(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("rejects unknown view", func(t *testing.T) {
		handler := NewHandler(&fakeStore{}, &fakeCatalog{}, discardLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/analytics?startDate=2024-06-01&endDate=2024-06-02&view=hourly", nil)
		rec := httptest.NewRecorder()

		handler.HandleAnalytics(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("store failure yields no partial payload", func(t *testing.T) {
		store := &fakeStore{err: errors.New("connection refused")}
		handler := NewHandler(store, &fakeCatalog{}, discardLogger())

		req := httptest.NewRequest(http.MethodGet, "/api/analytics?startDate=2024-06-01&endDate=2024-06-02&view=daily", nil)
		rec := httptest.NewRecorder()

		handler.HandleAnalytics(rec, req)

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected status 500, got %d", rec.Code)
		}

		var resp map[string]any
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["success"] != false {
			t.Error("expected success false")
		}
		if _, ok := resp["totalRevenue"]; ok {
			t.Error("error response must not carry report fields")
		}
	})
}
