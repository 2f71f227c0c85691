package order

import "time"

// Item is a frozen copy of a cart line at checkout time.
type Item struct {
	MenuItemID     string  `json:"menuItemId"`
	Name           string  `json:"name"`
	UnitPrice      float64 `json:"unitPrice"`
	Quantity       int     `json:"quantity"`
	SpecialRequest string  `json:"specialRequest"`
	ImageURL       string  `json:"imageUrl"`
}

type Order struct {
	ID         string     `json:"orderId"`
	CustomerID string     `json:"customerId"`
	Items      []Item     `json:"items"`
	TotalPrice float64    `json:"totalPrice"`
	OrderDate  time.Time  `json:"orderDate"`
	Status     Status     `json:"orderStatus"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	UpdatedBy  string     `json:"updatedBy,omitempty"`
	PickedUpAt *time.Time `json:"pickedUpDate,omitempty"`

	NeedsReconciliation  bool   `json:"needsReconciliation,omitempty"`
	ReconciliationReason string `json:"reconciliationReason,omitempty"`
}

// HasItem reports whether menuItemID is one of the order's lines.
func (o Order) HasItem(menuItemID string) bool {
	for _, it := range o.Items {
		if it.MenuItemID == menuItemID {
			return true
		}
	}
	return false
}

func Path(id string) string { return "orders/" + id }

// Transition describes one guarded status write.
type Transition struct {
	OrderID   string
	From      Status
	To        Status
	UpdatedBy string
	At        time.Time
}
