package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nagulan13/oboma/internal/auth"
	"github.com/Nagulan13/oboma/internal/checkout"
)

// checkoutResponse returns the attempt even when it failed so clients can
// show the failure reason.
type checkoutResponse struct {
	Attempt checkout.Attempt `json:"attempt"`
	Error   string           `json:"error,omitempty"`
}

func (h *handler) writeAttempt(w http.ResponseWriter, r *http.Request, status int, a checkout.Attempt, err error) {
	if err != nil {
		status = errorStatus(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error().Err(err).Str("attempt_id", a.ID).Msg("checkout failed")
		}
		if a.ID == "" {
			writeError(w, status, errorMessage(err, status))
			return
		}
		writeJSON(w, status, checkoutResponse{Attempt: a, Error: errorMessage(err, status)})
		return
	}
	writeJSON(w, status, checkoutResponse{Attempt: a})
}

func (h *handler) publishableKey(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	key, err := h.deps.Checkout.PublishableKey(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publishableKey": key})
}

func (h *handler) beginCheckout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	a, err := h.deps.Checkout.Begin(ctx, id.UserID)
	h.writeAttempt(w, r, http.StatusCreated, a, err)
}

func (h *handler) getCheckout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	a, err := h.deps.Checkout.Get(id.UserID, chi.URLParam(r, "attemptId"))
	h.writeAttempt(w, r, http.StatusOK, a, err)
}

func (h *handler) confirmCheckout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var in struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &in); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	// The commit must not be cut short by a client disconnect.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 15*time.Second)
	defer cancel()

	a, err := h.deps.Checkout.Confirm(ctx, id.UserID, chi.URLParam(r, "attemptId"), in.PaymentIntentID)
	h.writeAttempt(w, r, http.StatusOK, a, err)
}

func (h *handler) cancelCheckout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	a, err := h.deps.Checkout.Cancel(r.Context(), id.UserID, chi.URLParam(r, "attemptId"))
	h.writeAttempt(w, r, http.StatusOK, a, err)
}
