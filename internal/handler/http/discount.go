package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/moni-del/dragon-d/internal/repository"
	"github.com/moni-del/dragon-d/internal/service"
	"github.com/moni-del/dragon-d/pkg/httputil"
	"github.com/moni-del/dragon-d/pkg/pagination"
	"github.com/moni-del/dragon-d/pkg/validator"
)

// DiscountHandler handles admin HTTP requests for the discount registry.
type DiscountHandler struct {
	service *service.DiscountService
	logger  *slog.Logger
}

// NewDiscountHandler creates a new discount HTTP handler.
func NewDiscountHandler(svc *service.DiscountService, logger *slog.Logger) *DiscountHandler {
	return &DiscountHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateDiscountRequest is the JSON request body for creating a code.
type CreateDiscountRequest struct {
	Code               string     `json:"code" validate:"required,discount_code"`
	KeyByCode          bool       `json:"key_by_code"`
	Description        string     `json:"description" validate:"max=500"`
	Type               string     `json:"type" validate:"required,oneof=percentage fixed"`
	Value              float64    `json:"value" validate:"gte=0"`
	MinOrderValue      float64    `json:"min_order_value" validate:"gte=0"`
	MaxUses            int        `json:"max_uses" validate:"gte=0"`
	IsActive           *bool      `json:"is_active"`
	ExpiresAt          *time.Time `json:"expires_at"`
	ApplicableProducts []string   `json:"applicable_products"`
}

// UpdateDiscountRequest is the JSON request body for updating a code.
type UpdateDiscountRequest struct {
	Description        *string    `json:"description" validate:"omitempty,max=500"`
	Type               *string    `json:"type" validate:"omitempty,oneof=percentage fixed"`
	Value              *float64   `json:"value" validate:"omitempty,gte=0"`
	MinOrderValue      *float64   `json:"min_order_value" validate:"omitempty,gte=0"`
	MaxUses            *int       `json:"max_uses" validate:"omitempty,gte=0"`
	IsActive           *bool      `json:"is_active"`
	ExpiresAt          *time.Time `json:"expires_at"`
	ClearExpiry        bool       `json:"clear_expiry"`
	ApplicableProducts []string   `json:"applicable_products"`
}

// --- Handlers ---

// ListDiscounts handles GET /api/v1/admin/discounts
// Query: page, per_page, active.
func (h *DiscountHandler) ListDiscounts(w http.ResponseWriter, r *http.Request) {
	params := pagination.FromRequest(r)
	filter := repository.DiscountFilter{Page: params.Page, PerPage: params.PerPage}
	if v := r.URL.Query().Get("active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_PARAMETER", Message: "active must be true or false"},
			})
			return
		}
		filter.Active = &active
	}

	result, err := h.service.ListDiscounts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

// GetDiscount handles GET /api/v1/admin/discounts/{id}
func (h *DiscountHandler) GetDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.RequireParam(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	dc, err := h.service.GetDiscount(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, dc)
}

// CreateDiscount handles POST /api/v1/admin/discounts
func (h *DiscountHandler) CreateDiscount(w http.ResponseWriter, r *http.Request) {
	var req CreateDiscountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	dc, err := h.service.CreateDiscount(r.Context(), &service.CreateDiscountInput{
		Code:               req.Code,
		KeyByCode:          req.KeyByCode,
		Description:        req.Description,
		Type:               req.Type,
		Value:              req.Value,
		MinOrderValue:      req.MinOrderValue,
		MaxUses:            req.MaxUses,
		IsActive:           active,
		ExpiresAt:          req.ExpiresAt,
		ApplicableProducts: req.ApplicableProducts,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusCreated, dc)
}

// UpdateDiscount handles PUT /api/v1/admin/discounts/{id}
func (h *DiscountHandler) UpdateDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.RequireParam(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req UpdateDiscountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	dc, err := h.service.UpdateDiscount(r.Context(), id, &service.UpdateDiscountInput{
		Description:        req.Description,
		Type:               req.Type,
		Value:              req.Value,
		MinOrderValue:      req.MinOrderValue,
		MaxUses:            req.MaxUses,
		IsActive:           req.IsActive,
		ExpiresAt:          req.ExpiresAt,
		ClearExpiry:        req.ClearExpiry,
		ApplicableProducts: req.ApplicableProducts,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, dc)
}

// ToggleDiscount handles POST /api/v1/admin/discounts/{id}/toggle
func (h *DiscountHandler) ToggleDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.RequireParam(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	dc, err := h.service.ToggleActive(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, dc)
}

// DeleteDiscount handles DELETE /api/v1/admin/discounts/{id}
func (h *DiscountHandler) DeleteDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.RequireParam(w, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteDiscount(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
