package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nagulan13/oboma/internal/money"
)

type Item struct {
	MenuItemID     string  `json:"menuItemId"`
	Name           string  `json:"name"`
	UnitPrice      float64 `json:"unitPrice"`
	Quantity       int     `json:"quantity"`
	SpecialRequest string  `json:"specialRequest"`
	ImageURL       string  `json:"imageUrl"`
}

// LineKey identifies a line inside a cart. The same menu item with a
// different special request is a different line.
type LineKey struct {
	MenuItemID     string `json:"menuItemId"`
	SpecialRequest string `json:"specialRequest"`
}

func (it Item) Key() LineKey {
	return LineKey{MenuItemID: it.MenuItemID, SpecialRequest: it.SpecialRequest}
}

// Cart is the document stored at carts/{userId}. A cart that exists is
// never empty.
type Cart struct {
	UserID    string    `json:"userId"`
	Items     []Item    `json:"items"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Update holds the mutable fields of a line; nil leaves the field unchanged.
type Update struct {
	SpecialRequest *string `json:"specialRequest,omitempty"`
	Quantity       *int    `json:"quantity,omitempty"`
}

func Path(userID string) string { return "carts/" + userID }

// PayableAmount is sum(unitPrice*quantity) in minor units, rounded half away
// from zero. It is always derived from the current lines.
func PayableAmount(c Cart) int64 {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(money.Line(it.UnitPrice, it.Quantity))
	}
	return money.ToMinor(total)
}

func (c Cart) find(key LineKey) int {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i
		}
	}
	return -1
}

// add merges item into an existing line with the same key or appends it.
func (c *Cart) add(item Item) {
	if i := c.find(item.Key()); i >= 0 {
		c.Items[i].Quantity += item.Quantity
		return
	}
	c.Items = append(c.Items, item)
}

// update applies u to the line at key. When the edited line collides with
// another line the two are merged at the position of the other line.
func (c *Cart) update(key LineKey, u Update) bool {
	i := c.find(key)
	if i < 0 {
		return false
	}
	edited := c.Items[i]
	if u.SpecialRequest != nil {
		edited.SpecialRequest = *u.SpecialRequest
	}
	if u.Quantity != nil {
		edited.Quantity = *u.Quantity
	}

	if j := c.find(edited.Key()); j >= 0 && j != i {
		c.Items[j].Quantity += edited.Quantity
		c.Items = append(c.Items[:i], c.Items[i+1:]...)
		return true
	}
	c.Items[i] = edited
	return true
}

func (c *Cart) remove(key LineKey) bool {
	i := c.find(key)
	if i < 0 {
		return false
	}
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
	return true
}
