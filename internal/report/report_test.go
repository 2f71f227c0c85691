package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nagulan13/oboma/internal/order"
)

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestMonthlySales(t *testing.T) {
	orders := []order.Order{
		{ID: "o3", OrderDate: at(2025, time.February, 3), TotalPrice: 12.50, Status: order.StatusCompleted},
		{ID: "o1", OrderDate: at(2024, time.December, 30), TotalPrice: 8.00, Status: order.StatusCompleted},
		{ID: "o2", OrderDate: at(2025, time.January, 5), TotalPrice: 0.10, Status: order.StatusPending},
		{ID: "o4", OrderDate: at(2025, time.January, 20), TotalPrice: 0.20, Status: order.StatusCompleted},
		{ID: "o5", OrderDate: at(2025, time.January, 21), TotalPrice: 99, Status: order.StatusCancelled},
	}

	got := MonthlySales(orders, time.UTC)
	require.Len(t, got, 3)

	assert.Equal(t, "December 2024", got[0].Month)
	assert.Equal(t, "January 2025", got[1].Month)
	assert.Equal(t, 2025, got[1].Year)
	assert.Equal(t, 0.30, got[1].TotalSales)
	assert.Equal(t, 2, got[1].TotalOrders)
	assert.Equal(t, []string{"o2", "o4"}, got[1].OrderIDs)
	assert.Equal(t, "February 2025", got[2].Month)
}

func TestMonthlySalesUsesLocation(t *testing.T) {
	kl := time.FixedZone("MYT", 8*60*60)
	orders := []order.Order{
		{ID: "o1", OrderDate: time.Date(2025, time.January, 31, 18, 0, 0, 0, time.UTC), TotalPrice: 5},
	}

	got := MonthlySales(orders, kl)
	require.Len(t, got, 1)
	assert.Equal(t, "February 2025", got[0].Month)
}

type orderLister []order.Order

func (l orderLister) ListBetween(context.Context, time.Time, time.Time) ([]order.Order, error) {
	return l, nil
}

func TestServiceMonthly(t *testing.T) {
	s := NewService(orderLister{{ID: "o1", OrderDate: at(2025, time.March, 1), TotalPrice: 20}}, nil)

	got, err := s.Monthly(context.Background(), at(2025, time.March, 1), at(2025, time.April, 1))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 20.0, got[0].TotalSales)
}
