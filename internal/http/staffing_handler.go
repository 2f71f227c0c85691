package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Nagulan13/oboma/internal/apperr"
	"github.com/Nagulan13/oboma/internal/auth"
	"github.com/Nagulan13/oboma/internal/report"
	"github.com/Nagulan13/oboma/internal/staffing"
)

func (h *handler) submitApplication(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.FromContext(r.Context())
	var in staffing.Applicant
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	a, err := h.deps.Staffing.Submit(ctx, id.UserID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *handler) listApplications(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.deps.Staffing.ListApplications(ctx, r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if out == nil {
		out = []staffing.Application{}
	}
	writeJSON(w, http.StatusOK, out)
}

type decisionRequest struct {
	Remarks string `json:"remarks"`
}

func (h *handler) approveApplication(w http.ResponseWriter, r *http.Request) {
	var in decisionRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st, err := h.deps.Staffing.Approve(ctx, chi.URLParam(r, "id"), in.Remarks)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) rejectApplication(w http.ResponseWriter, r *http.Request) {
	var in decisionRequest
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	a, err := h.deps.Staffing.Reject(ctx, chi.URLParam(r, "id"), in.Remarks)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *handler) listStaff(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	out, err := h.deps.Staffing.ListStaff(ctx)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if out == nil {
		out = []staffing.Staff{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) terminateStaff(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	st, err := h.deps.Staffing.Terminate(ctx, chi.URLParam(r, "id"), in.Reason)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

const dateLayout = "2006-01-02"

// monthlyReport defaults to the current calendar year.
func (h *handler) monthlyReport(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	from := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	to := now

	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			h.fail(w, r, apperr.Invalid("from", "must be YYYY-MM-DD"))
			return
		}
		from = t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(dateLayout, v)
		if err != nil {
			h.fail(w, r, apperr.Invalid("to", "must be YYYY-MM-DD"))
			return
		}
		to = t
	}
	if !from.Before(to) {
		h.fail(w, r, apperr.Invalid("from", "must be before to"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	out, err := h.deps.Reports.Monthly(ctx, from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if out == nil {
		out = []report.MonthSummary{}
	}
	writeJSON(w, http.StatusOK, out)
}
