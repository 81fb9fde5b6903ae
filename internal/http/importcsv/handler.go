package importcsv

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/expense"
	"github.com/MrJamesThe3rd/haulbook/internal/importer"
)

const maxUpload = 10 << 20

type Handler struct {
	importSvc  *importer.Service
	expenseSvc *expense.Service
}

func NewHandler(importSvc *importer.Service, expenseSvc *expense.Service) *Handler {
	return &Handler{
		importSvc:  importSvc,
		expenseSvc: expenseSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/expenses", h.importExpenses)
}

type lineResponse struct {
	ID                 *uuid.UUID `json:"id,omitempty"`
	CategoryID         uuid.UUID  `json:"categoryId"`
	Amount             int64      `json:"amount"`
	ExpenseDate        time.Time  `json:"expenseDate"`
	RelatedPlateNumber string     `json:"relatedPlateNumber,omitempty"`
	Description        string     `json:"description"`
}

type importResponse struct {
	Imported []lineResponse `json:"imported"`
	Skipped  []lineResponse `json:"skipped"`
}

// importExpenses takes a multipart upload with a "file" field and an
// optional "provider" (fuel, tolls). Lines already on file are skipped, so
// uploading the same statement twice is harmless.
func (h *Handler) importExpenses(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUpload); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	params, err := h.importSvc.Import(r.Context(), importer.Provider(r.FormValue("provider")), file)
	if err != nil {
		if errors.Is(err, importer.ErrNoCategory) {
			slog.Error("statement category missing", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)

			return
		}

		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	result, err := h.expenseSvc.ImportBatch(r.Context(), params)
	if err != nil {
		if errors.Is(err, expense.ErrValidation) || errors.Is(err, expense.ErrDiscountManaged) {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		slog.Error("expense import failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	resp := importResponse{
		Imported: make([]lineResponse, 0, len(result.Imported)),
		Skipped:  make([]lineResponse, 0, len(result.Skipped)),
	}

	for _, e := range result.Imported {
		resp.Imported = append(resp.Imported, lineResponse{
			ID:                 &e.ID,
			CategoryID:         e.CategoryID,
			Amount:             e.Amount,
			ExpenseDate:        e.ExpenseDate,
			RelatedPlateNumber: e.RelatedPlateNumber,
			Description:        e.Description,
		})
	}

	for _, p := range result.Skipped {
		resp.Skipped = append(resp.Skipped, lineResponse{
			CategoryID:         p.CategoryID,
			Amount:             p.Amount,
			ExpenseDate:        p.ExpenseDate,
			RelatedPlateNumber: p.RelatedPlateNumber,
			Description:        p.Description,
		})
	}

	status := http.StatusOK
	if len(resp.Imported) > 0 {
		status = http.StatusCreated
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
