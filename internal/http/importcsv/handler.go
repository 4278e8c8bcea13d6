package importcsv

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/spendsight/internal/importer"
	"github.com/MrJamesThe3rd/spendsight/internal/transaction"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	importSvc *importer.Service
	txSvc     *transaction.Service
}

func NewHandler(importSvc *importer.Service, txSvc *transaction.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		txSvc:     txSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importCSV)
}

type importResponse struct {
	Format          string   `json:"format"`
	AccountsCreated int      `json:"accounts_created"`
	Imported        int      `json:"imported"`
	Accounts        []string `json:"accounts"`
}

// importCSV accepts a multipart upload with a "file" field and an optional
// "format" field, defaulting to the ledger CSV layout.
func (h *Handler) importCSV(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatLedgerCSV
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	batch, err := h.importSvc.Parse(format, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.txSvc.Import(r.Context(), batch.Accounts, batch.Transactions)
	if err != nil {
		slog.Error("failed to import batch", "error", err)
		http.Error(w, "failed to import: "+err.Error(), http.StatusUnprocessableEntity)

		return
	}

	resp := importResponse{
		Format:          string(format),
		AccountsCreated: result.AccountsCreated,
		Imported:        result.Imported,
		Accounts:        make([]string, 0, len(batch.Accounts)),
	}

	for _, acc := range batch.Accounts {
		resp.Accounts = append(resp.Accounts, acc.ID)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
