package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cafeflow/cafeflow/internal/domain"
)

type Granularity string

const (
	GranularityDaily   Granularity = "daily"
	GranularityMonthly Granularity = "monthly"
	GranularityYearly  Granularity = "yearly"
)

// ParseGranularity maps the dashboard's "view" query parameter onto a
// granularity. Unknown values fail with domain.ErrInvalidRange.
func ParseGranularity(view string) (Granularity, error) {
	switch Granularity(view) {
	case GranularityDaily, GranularityMonthly, GranularityYearly:
		return Granularity(view), nil
	}
	return "", fmt.Errorf("%w: unknown view %q", domain.ErrInvalidRange, view)
}

// Range is a closed interval of order timestamps. End is inclusive through
// the last millisecond of the end date.
type Range struct {
	Start time.Time
	End   time.Time
}

const dateLayout = "2006-01-02"

// ParseRange parses YYYY-MM-DD start/end dates into a range covering
// [startDate 00:00:00.000, endDate 23:59:59.999] UTC. Missing or malformed
// dates, or an end before the start, fail with domain.ErrInvalidRange.
func ParseRange(startDate, endDate string) (Range, error) {
	if startDate == "" || endDate == "" {
		return Range{}, fmt.Errorf("%w: startDate and endDate are required", domain.ErrInvalidRange)
	}

	start, err := time.ParseInLocation(dateLayout, startDate, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad startDate %q", domain.ErrInvalidRange, startDate)
	}

	end, err := time.ParseInLocation(dateLayout, endDate, time.UTC)
	if err != nil {
		return Range{}, fmt.Errorf("%w: bad endDate %q", domain.ErrInvalidRange, endDate)
	}

	if end.Before(start) {
		return Range{}, fmt.Errorf("%w: endDate before startDate", domain.ErrInvalidRange)
	}

	return Range{
		Start: start,
		End:   end.AddDate(0, 0, 1).Add(-time.Millisecond),
	}, nil
}

// Previous is the immediately preceding period of equal duration:
// [start - duration, start - 1ms].
func (r Range) Previous() Range {
	duration := r.End.Sub(r.Start) + time.Millisecond
	return Range{
		Start: r.Start.Add(-duration),
		End:   r.Start.Add(-time.Millisecond),
	}
}

// Contains reports whether t falls within the range.
func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

type RevenuePoint struct {
	Date    string  `json:"date"`
	Revenue float64 `json:"revenue"`
}

type OrderPoint struct {
	Date   string `json:"date"`
	Orders int    `json:"orders"`
}

type PopularItem struct {
	Name       string `json:"name"`
	Category   string `json:"category"`
	Sold       int    `json:"sold"`
	Percentage int    `json:"percentage"`
}

// Report is the dashboard-ready aggregation over one period, with
// period-over-period deltas against the preceding period of equal length.
type Report struct {
	TotalRevenue   float64        `json:"totalRevenue"`
	TotalOrders    int            `json:"totalOrders"`
	AvgOrderValue  float64        `json:"avgOrderValue"`
	PeakHour       string         `json:"peakHour"`
	PeakHourOrders int            `json:"peakHourOrders"`
	RevenueChange  float64        `json:"revenueChange"`
	OrdersChange   float64        `json:"ordersChange"`
	AvgOrderChange float64        `json:"avgOrderChange"`
	RevenueData    []RevenuePoint `json:"revenueData"`
	OrderData      []OrderPoint   `json:"orderData"`
	PopularItems   []PopularItem  `json:"popularItems"`
}

const popularItemLimit = 6

// Compute aggregates the current period's orders into a Report. It is pure:
// it mutates nothing and identical inputs produce identical output. previous
// holds the orders of the immediately preceding equal-length period and only
// feeds the percentage-change fields. categories maps product id to current
// category for annotating popularity rankings.
func Compute(current, previous []domain.Order, rng Range, granularity Granularity, categories map[string]string) Report {
	report := Report{
		TotalOrders:  len(current),
		RevenueData:  []RevenuePoint{},
		OrderData:    []OrderPoint{},
		PopularItems: []PopularItem{},
	}

	for _, order := range current {
		report.TotalRevenue += order.Revenue()
	}
	if report.TotalOrders > 0 {
		report.AvgOrderValue = report.TotalRevenue / float64(report.TotalOrders)
	}

	report.PeakHour, report.PeakHourOrders = peakHour(current)

	prevRevenue := 0.0
	for _, order := range previous {
		prevRevenue += order.Revenue()
	}
	prevOrders := len(previous)
	prevAvg := 0.0
	if prevOrders > 0 {
		prevAvg = prevRevenue / float64(prevOrders)
	}
	report.RevenueChange = percentChange(report.TotalRevenue, prevRevenue)
	report.OrdersChange = percentChange(float64(report.TotalOrders), float64(prevOrders))
	report.AvgOrderChange = percentChange(report.AvgOrderValue, prevAvg)

	report.RevenueData, report.OrderData = trendSeries(current, rng, granularity)
	report.PopularItems = popularItems(current, categories)

	return report
}

// peakHour finds the hour of day (0-23, UTC) with the most orders across the
// whole range, ignoring the date. Ties break toward the lowest hour so the
// result is deterministic. With no orders it reports the dashboard's empty
// placeholder.
func peakHour(orders []domain.Order) (string, int) {
	var byHour [24]int
	for _, order := range orders {
		byHour[order.PlacedAt.UTC().Hour()]++
	}

	best, count := 0, 0
	for hour, n := range byHour {
		if n > count {
			best, count = hour, n
		}
	}
	if count == 0 {
		return "--:--", 0
	}
	return fmt.Sprintf("%d:00", best), count
}

// percentChange is the period-over-period delta rounded to one decimal,
// defined as 0 when the previous period is empty.
func percentChange(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return math.Round((current-previous)/previous*1000) / 10
}

// trendSeries emits one point per calendar bucket in the range, zero-filling
// buckets with no orders so the series has no gaps.
func trendSeries(orders []domain.Order, rng Range, granularity Granularity) ([]RevenuePoint, []OrderPoint) {
	layout, truncate, step := bucketing(granularity)

	revenueByBucket := make(map[string]float64)
	ordersByBucket := make(map[string]int)
	for _, order := range orders {
		key := order.PlacedAt.UTC().Format(layout)
		revenueByBucket[key] += order.Revenue()
		ordersByBucket[key]++
	}

	revenue := []RevenuePoint{}
	counts := []OrderPoint{}
	for cur := truncate(rng.Start); !cur.After(rng.End); cur = step(cur) {
		key := cur.Format(layout)
		revenue = append(revenue, RevenuePoint{Date: key, Revenue: revenueByBucket[key]})
		counts = append(counts, OrderPoint{Date: key, Orders: ordersByBucket[key]})
	}
	return revenue, counts
}

func bucketing(granularity Granularity) (layout string, truncate func(time.Time) time.Time, step func(time.Time) time.Time) {
	switch granularity {
	case GranularityMonthly:
		return "2006-01",
			func(t time.Time) time.Time {
				return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
			},
			func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }
	case GranularityYearly:
		return "2006",
			func(t time.Time) time.Time {
				return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
			},
			func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }
	default:
		return dateLayout,
			func(t time.Time) time.Time {
				return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			},
			func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }
	}
}

// popularItems ranks products by quantity sold. Lines whose product snapshot
// is gone are skipped. Sorted descending by quantity with name as the
// tie-break; at most six entries, each annotated with its share of the top
// seller.
func popularItems(orders []domain.Order, categories map[string]string) []PopularItem {
	type seller struct {
		name     string
		category string
		sold     int
	}

	byName := make(map[string]*seller)
	for _, order := range orders {
		for _, line := range order.Cart {
			if !line.Resolved() {
				continue
			}
			s, ok := byName[line.Name]
			if !ok {
				s = &seller{name: line.Name, category: categories[line.ProductID]}
				byName[line.Name] = s
			}
			s.sold += line.Quantity
		}
	}

	ranked := make([]*seller, 0, len(byName))
	for _, s := range byName {
		ranked = append(ranked, s)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].sold != ranked[j].sold {
			return ranked[i].sold > ranked[j].sold
		}
		return ranked[i].name < ranked[j].name
	})

	if len(ranked) > popularItemLimit {
		ranked = ranked[:popularItemLimit]
	}

	items := make([]PopularItem, 0, len(ranked))
	for _, s := range ranked {
		items = append(items, PopularItem{
			Name:       s.name,
			Category:   s.category,
			Sold:       s.sold,
			Percentage: int(math.Round(float64(s.sold) / float64(ranked[0].sold) * 100)),
		})
	}
	return items
}
