package transaction

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
	"github.com/MrJamesThe3rd/spendsight/internal/summary"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

// Handler exposes the same guarded reads the agent uses, for dashboards and
// for checking what the agent was given.
type Handler struct {
	svc     *transaction.Service
	summary *summary.Service
	guard   *guardrail.Enforcer
}

func NewHandler(svc *transaction.Service, summary *summary.Service, guard *guardrail.Enforcer) *Handler {
	return &Handler{svc: svc, summary: summary, guard: guard}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/{accountId}/transactions", h.list)
	r.Get("/{accountId}/total", h.total)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.DateOnly, r.URL.Query().Get("from"))
	if err != nil {
		http.Error(w, "invalid from date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	to, err := time.Parse(time.DateOnly, r.URL.Query().Get("to"))
	if err != nil {
		http.Error(w, "invalid to date, expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	listing, err := h.svc.List(r.Context(), chi.URLParam(r, "accountId"), from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, toListingResponse(from, to, listing))
}

func (h *Handler) total(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountId")

	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "invalid year", http.StatusBadRequest)
		return
	}

	month, err := strconv.Atoi(r.URL.Query().Get("month"))
	if err != nil {
		http.Error(w, "invalid month", http.StatusBadRequest)
		return
	}

	if err := h.guard.ValidateRequest(accountID, year, month); err != nil {
		writeError(w, err)
		return
	}

	total, err := h.summary.MonthlyTotal(r.Context(), accountID, year, month)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, toTotalResponse(total))
}

func writeError(w http.ResponseWriter, err error) {
	var tooLarge *guardrail.RangeTooLargeError

	switch {
	case guardrail.IsValidation(err), errors.Is(err, guardrail.ErrInvalidRange), errors.As(err, &tooLarge):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		slog.Error("failed to read transactions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
