// Package spend serves the free text query endpoint. It passes the query
// straight to the agent without the guarded prompt or output redaction, and
// marks every response with X-Guardrails: reduced.
package spend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/spendsight/internal/http/middleware"
	"github.com/MrJamesThe3rd/spendsight/internal/insight"
)

const guardrailsHeader = "X-Guardrails"

type Handler struct {
	svc *insight.Service
}

func NewHandler(svc *insight.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/analyse", h.analyse)
}

type analyseRequest struct {
	Query string `json:"query"`
}

func (h *Handler) analyse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(guardrailsHeader, "reduced")

	var req analyseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	text, err := h.svc.Analyse(r.Context(), middleware.SessionID(r.Context()), req.Query)
	if err != nil {
		if errors.Is(err, insight.ErrEmptyQuery) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		var genErr *insight.GenerationError
		if errors.As(err, &genErr) {
			http.Error(w, "Failed to analyse query: "+genErr.Message(), http.StatusBadGateway)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if _, err := w.Write([]byte(text)); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
