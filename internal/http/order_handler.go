package http

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/auth"
	"github.com/Nagulan13/oboma/internal/order"
)

// orderView adds the display colour of the status label.
type orderView struct {
	order.Order
	StatusColor string `json:"statusColor"`
}

func viewOrders(orders []order.Order) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, orderView{Order: o, StatusColor: order.StatusColor(o.Status)})
	}
	return out
}

func (h *handler) listMyOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.deps.Orders.ListByCustomer(ctx, id.UserID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrders(orders))
}

// ownedOrder loads an order the caller may read: their own, or any for staff.
func (h *handler) ownedOrder(ctx context.Context, id auth.Identity, orderID string) (order.Order, error) {
	o, err := h.deps.Orders.GetByID(ctx, orderID)
	if err != nil {
		return order.Order{}, err
	}
	if o.CustomerID != id.UserID && !id.Allows(auth.RoleStaff) {
		return order.Order{}, fmt.Errorf("order %s: %w", orderID, apperr.ErrNotFound)
	}
	return o, nil
}

func (h *handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.ownedOrder(ctx, id, chi.URLParam(r, "orderId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{Order: o, StatusColor: order.StatusColor(o.Status)})
}

func (h *handler) getOrderPayment(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.ownedOrder(ctx, id, chi.URLParam(r, "orderId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.deps.Payments.GetByOrder(ctx, o.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// inboxSize caps the payment inbox.
const inboxSize = 10

func (h *handler) listMyPayments(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	payments, err := h.deps.Payments.ListByCustomer(ctx, id.UserID, inboxSize)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *handler) listOrdersByStatus(w http.ResponseWriter, r *http.Request) {
	status := order.StatusPending
	if q := r.URL.Query().Get("status"); q != "" {
		status = order.Status(q)
	}
	if !status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.deps.Orders.ListByStatus(ctx, status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrders(orders))
}

func (h *handler) searchOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orders, err := h.deps.Orders.SearchByID(ctx, strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOrders(orders))
}

func (h *handler) advanceOrder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status order.Status `json:"status"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.deps.Status.Advance(ctx, chi.URLParam(r, "orderId"), in.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{Order: o, StatusColor: order.StatusColor(o.Status)})
}

func (h *handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.deps.Status.Cancel(ctx, chi.URLParam(r, "orderId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orderView{Order: o, StatusColor: order.StatusColor(o.Status)})
}
