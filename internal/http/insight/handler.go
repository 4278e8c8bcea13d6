package insight

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/spendsight/internal/guardrail"
	"github.com/MrJamesThe3rd/spendsight/internal/http/middleware"
	"github.com/MrJamesThe3rd/spendsight/internal/insight"
)

type Handler struct {
	svc *insight.Service
}

func NewHandler(svc *insight.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/insights", h.insights)
}

var validationMessages = []struct {
	err error
	msg string
}{
	{guardrail.ErrInvalidAccountID, "Invalid accountId format"},
	{guardrail.ErrInvalidYear, "Invalid year"},
	{guardrail.ErrInvalidMonth, "Invalid month"},
	{guardrail.ErrFutureMonth, "Future months are not allowed"},
}

func (h *Handler) insights(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	year, err := strconv.Atoi(q.Get("year"))
	if err != nil {
		http.Error(w, "Invalid year", http.StatusBadRequest)
		return
	}

	month, err := strconv.Atoi(q.Get("month"))
	if err != nil {
		http.Error(w, "Invalid month", http.StatusBadRequest)
		return
	}

	text, err := h.svc.Generate(r.Context(), middleware.SessionID(r.Context()), q.Get("accountId"), year, month)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	for _, v := range validationMessages {
		if errors.Is(err, v.err) {
			http.Error(w, v.msg, http.StatusBadRequest)
			return
		}
	}

	var genErr *insight.GenerationError
	if errors.As(err, &genErr) {
		http.Error(w, "Failed to generate insight: "+genErr.Message(), http.StatusBadGateway)
		return
	}

	slog.Error("unexpected insight error", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
