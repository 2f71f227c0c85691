package http

import (
	"context"
	"net/http"
	"time"

	"github.com/Nagulan13/oboma/internal/auth"
	"github.com/Nagulan13/oboma/internal/cart"
)

func cartView(c cart.Cart) cart.View {
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	return cart.NewView(c)
}

func (h *handler) getCart(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// No cart is 404; a cart that exists always has lines.
	c, err := h.deps.Carts.Get(ctx, id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

type addItemRequest struct {
	MenuItemID     string `json:"menuItemId"`
	Quantity       int    `json:"quantity"`
	SpecialRequest string `json:"specialRequest"`
}

func (h *handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var in addItemRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.deps.Carts.AddItem(ctx, id.UserID, in.MenuItemID, in.Quantity, in.SpecialRequest)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

// updateItemRequest addresses a line by its current key and carries the
// fields to change.
type updateItemRequest struct {
	Key cart.LineKey `json:"key"`
	cart.Update
}

func (h *handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var in updateItemRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.deps.Carts.UpdateItem(ctx, id.UserID, in.Key, in.Update)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}

func (h *handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	q := r.URL.Query()
	key := cart.LineKey{MenuItemID: q.Get("menuItemId"), SpecialRequest: q.Get("specialRequest")}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	c, err := h.deps.Carts.RemoveItem(ctx, id.UserID, key)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cartView(c))
}
