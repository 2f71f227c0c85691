package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nagulan13/oboma/internal/auth"
	"github.com/Nagulan13/oboma/internal/feedback"
	"github.com/Nagulan13/oboma/internal/menu"
	"github.com/Nagulan13/oboma/internal/settings"
)

func (h *handler) listMenu(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.deps.Menu.List(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if items == nil {
		items = []menu.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	it, err := h.deps.Menu.Get(ctx, chi.URLParam(r, "itemId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *handler) saveMenuItem(w http.ResponseWriter, r *http.Request) {
	var it menu.Item
	if err := decodeJSON(w, r, &it); err != nil {
		h.fail(w, r, err)
		return
	}
	it.ID = chi.URLParam(r, "itemId")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	saved, err := h.deps.Menu.Save(ctx, it)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *handler) deleteMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.deps.Menu.Delete(ctx, chi.URLParam(r, "itemId")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listItemFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.deps.Feedback.ListVisible(ctx, chi.URLParam(r, "itemId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if out == nil {
		out = []feedback.PublicFeedback{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) listFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := h.deps.Feedback.List(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if out == nil {
		out = []feedback.Feedback{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) feedbackEligibility(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	q := r.URL.Query()

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ok, err := h.deps.Feedback.Eligible(ctx, id.UserID, q.Get("orderId"), q.Get("itemId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"eligible": ok})
}

func (h *handler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var in feedback.Submission
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f, err := h.deps.Feedback.Submit(ctx, id.UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *handler) setFeedbackVisible(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Visible *bool `json:"visible"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	if in.Visible == nil {
		writeError(w, http.StatusBadRequest, "visible: is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	f, err := h.deps.Feedback.SetVisible(ctx, chi.URLParam(r, "id"), *in.Visible)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

type jobVacancyResponse struct {
	settings.JobVacancySetting
	Visibility settings.Visibility `json:"visibility"`
}

func (h *handler) getJobVacancy(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.deps.Settings.Get(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobVacancyResponse{JobVacancySetting: s, Visibility: settings.VisibilityOf(s)})
}

func (h *handler) setJobVacancy(w http.ResponseWriter, r *http.Request) {
	var in struct {
		JobVacancyOpen *bool `json:"jobVacancyOpen"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}
	if in.JobVacancyOpen == nil {
		writeError(w, http.StatusBadRequest, "jobVacancyOpen: is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	s, err := h.deps.Settings.SetJobVacancyOpen(ctx, *in.JobVacancyOpen)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, jobVacancyResponse{JobVacancySetting: s, Visibility: settings.VisibilityOf(s)})
}
