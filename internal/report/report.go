// Package report aggregates orders into the admin sales report.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nagulan13/oboma/internal/money"
	"github.com/Nagulan13/oboma/internal/order"
)

type MonthSummary struct {
	Month       string   `json:"month"`
	Year        int      `json:"year"`
	TotalSales  float64  `json:"totalSales"`
	TotalOrders int      `json:"totalOrders"`
	OrderIDs    []string `json:"orderIds"`

	monthNum time.Month
	minor    int64
}

// MonthlySales groups orders by calendar month in loc, oldest month first.
// Cancelled orders are not sales and are skipped.
func MonthlySales(orders []order.Order, loc *time.Location) []MonthSummary {
	if loc == nil {
		loc = time.UTC
	}
	byKey := make(map[string]*MonthSummary)
	for _, o := range orders {
		if o.Status == order.StatusCancelled {
			continue
		}
		d := o.OrderDate.In(loc)
		key := fmt.Sprintf("%s %d", d.Month(), d.Year())
		m, ok := byKey[key]
		if !ok {
			m = &MonthSummary{Month: key, Year: d.Year(), monthNum: d.Month()}
			byKey[key] = m
		}
		m.minor += money.ToMinor(decimal.NewFromFloat(o.TotalPrice))
		m.TotalOrders++
		m.OrderIDs = append(m.OrderIDs, o.ID)
	}

	out := make([]MonthSummary, 0, len(byKey))
	for _, m := range byKey {
		m.TotalSales = money.FromMinor(m.minor)
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].monthNum < out[j].monthNum
	})
	return out
}

type OrderLister interface {
	ListBetween(ctx context.Context, from, to time.Time) ([]order.Order, error)
}

type Service struct {
	orders OrderLister
	loc    *time.Location
}

func NewService(orders OrderLister, loc *time.Location) *Service {
	return &Service{orders: orders, loc: loc}
}

// Monthly reports the months of orders placed in [from, to).
func (s *Service) Monthly(ctx context.Context, from, to time.Time) ([]MonthSummary, error) {
	orders, err := s.orders.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list orders for report: %w", err)
	}
	return MonthlySales(orders, s.loc), nil
}
