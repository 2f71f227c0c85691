package events

import (
	"encoding/json"
	"time"

	"github.com/Nagulan13/oboma/internal/order"
)

type DocumentChangedPayload struct {
	Path    string          `json:"path"`
	Data    json.RawMessage `json:"data,omitempty"`
	Deleted bool            `json:"deleted,omitempty"`
}

type OrderLine struct {
	MenuItemID string  `json:"menuItemId"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unitPrice"`
}

type OrderCreatedPayload struct {
	OrderID    string      `json:"orderId"`
	CustomerID string      `json:"customerId"`
	TotalPrice float64     `json:"totalPrice"`
	Items      []OrderLine `json:"items"`
	OrderDate  time.Time   `json:"orderDate"`
}

type OrderStatusChangedPayload struct {
	OrderID    string       `json:"orderId"`
	CustomerID string       `json:"customerId"`
	From       order.Status `json:"from"`
	To         order.Status `json:"to"`
	UpdatedBy  string       `json:"updatedBy"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

func orderCreatedPayload(o order.Order) OrderCreatedPayload {
	p := OrderCreatedPayload{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		TotalPrice: o.TotalPrice,
		OrderDate:  o.OrderDate,
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, OrderLine{
			MenuItemID: it.MenuItemID,
			Quantity:   it.Quantity,
			UnitPrice:  it.UnitPrice,
		})
	}
	return p
}

func orderStatusChangedPayload(o order.Order, from order.Status, fallback time.Time) OrderStatusChangedPayload {
	at := fallback
	if o.UpdatedAt != nil {
		at = *o.UpdatedAt
	}
	return OrderStatusChangedPayload{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		From:       from,
		To:         o.Status,
		UpdatedBy:  o.UpdatedBy,
		UpdatedAt:  at,
	}
}
