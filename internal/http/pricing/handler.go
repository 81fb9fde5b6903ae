package pricing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/haulbook/internal/pricing"
)

type Handler struct {
	svc *pricing.Service
}

func NewHandler(svc *pricing.Service) *Handler {
	return &Handler{svc: svc}
}

// RuleRoutes serves /pricing-rules.
func (h *Handler) RuleRoutes(r chi.Router) {
	r.Get("/", h.listRules)
	r.Post("/", h.createRule)
	r.Get("/{id}", h.getRule)
	r.Post("/{id}/deactivate", h.deactivateRule)
}

// LocationRoutes serves /locations.
func (h *Handler) LocationRoutes(r chi.Router) {
	r.Get("/", h.listLocations)
	r.Post("/", h.createLocation)
}

type createRuleRequest struct {
	LocationID uuid.UUID `json:"locationId"`
	Name       string    `json:"name"`
	Price      int64     `json:"price"`
}

func (r createRuleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LocationID, validation.By(func(any) error {
			if r.LocationID == uuid.Nil {
				return errors.New("cannot be blank")
			}

			return nil
		})),
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Price, validation.Min(int64(0))),
	)
}

type createLocationRequest struct {
	Name string `json:"name"`
}

func (r createLocationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 100)),
	)
}

func (h *Handler) listRules(w http.ResponseWriter, r *http.Request) {
	filter := pricing.RuleFilter{}

	if s := r.URL.Query().Get("locationId"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			http.Error(w, "invalid locationId", http.StatusBadRequest)
			return
		}

		filter.LocationID = &id
	}

	if s := r.URL.Query().Get("active"); s != "" {
		active, err := strconv.ParseBool(s)
		if err != nil {
			http.Error(w, "invalid active flag", http.StatusBadRequest)
			return
		}

		filter.ActiveOnly = active
	}

	rules, err := h.svc.ListRules(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]ruleResponse, len(rules))
	for i, rule := range rules {
		resp[i] = toRuleResponse(rule)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createRule(w http.ResponseWriter, r *http.Request) {
	var req createRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	rule, err := h.svc.CreateRule(r.Context(), pricing.CreateRuleParams{
		LocationID: req.LocationID,
		Name:       req.Name,
		Price:      req.Price,
	})
	if err != nil {
		if errors.Is(err, pricing.ErrNotFound) {
			http.Error(w, "unknown location", http.StatusUnprocessableEntity)
			return
		}

		writeError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, toRuleResponse(rule))
}

func (h *Handler) getRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	rule, err := h.svc.GetRule(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toRuleResponse(rule))
}

func (h *Handler) deactivateRule(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	if err := h.svc.DeactivateRule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listLocations(w http.ResponseWriter, r *http.Request) {
	locs, err := h.svc.ListLocations(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	resp := make([]locationResponse, len(locs))
	for i, l := range locs {
		resp[i] = toLocationResponse(l)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) createLocation(w http.ResponseWriter, r *http.Request) {
	var req createLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	loc, err := h.svc.CreateLocation(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLocationResponse(loc))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, pricing.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, pricing.ErrAlreadyExists):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, pricing.ErrValidation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		slog.Error("pricing request failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
