package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/internal/service"
	"github.com/moni-del/dragon-d/pkg/httputil"
	"github.com/moni-del/dragon-d/pkg/i18n"
	"github.com/moni-del/dragon-d/pkg/middleware"
	"github.com/moni-del/dragon-d/pkg/validator"
)

// CartHandler handles HTTP requests for the shopper's cart.
type CartHandler struct {
	service    *service.SessionService
	translator *i18n.Translator
	logger     *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.SessionService, translator *i18n.Translator, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service:    svc,
		translator: translator,
		logger:     logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding an item to the cart.
type AddItemRequest struct {
	ProductID string       `json:"product_id" validate:"required,max=64"`
	Origin    domain.Point `json:"origin"`
}

// UpdateQuantityRequest is the JSON request body for setting a quantity.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required,lte=999"`
}

// ApplyDiscountRequest is the JSON request body for applying a code.
type ApplyDiscountRequest struct {
	Code string `json:"code" validate:"max=64"`
}

// --- Response DTOs ---

// CartResponse is the cart as shown to the shopper.
type CartResponse struct {
	ID              string            `json:"id"`
	Lines           []domain.CartLine `json:"lines"`
	DiscountCode    string            `json:"discount_code,omitempty"`
	DiscountPercent float64           `json:"discount_percent"`
	DiscountApplied bool              `json:"discount_applied"`
	Totals          domain.Totals     `json:"totals"`
	State           domain.CartState  `json:"state"`
	Version         int               `json:"version"`
}

// AddItemResponse carries the cart and the flying-item hint for the add.
type AddItemResponse struct {
	Cart       CartResponse      `json:"cart"`
	FlyingItem domain.FlyingItem `json:"flying_item"`
}

// DiscountResponse is the outcome of applying a code. Failures use HTTP 200.
type DiscountResponse struct {
	domain.ApplyResult
	Message string       `json:"message,omitempty"`
	Cart    CartResponse `json:"cart"`
}

// CheckoutResponse is returned by a finalized purchase.
type CheckoutResponse struct {
	Receipt *service.Receipt `json:"receipt"`
	Message string           `json:"message"`
	Cart    CartResponse     `json:"cart"`
}

func newCartResponse(s *domain.CartSession) CartResponse {
	lines := s.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return CartResponse{
		ID:              s.ID,
		Lines:           lines,
		DiscountCode:    s.DiscountCode,
		DiscountPercent: s.DiscountPercent,
		DiscountApplied: s.DiscountApplied,
		Totals:          s.Totals(),
		State:           s.State(),
		Version:         s.Version,
	}
}

// --- Handlers ---

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, item, err := h.service.AddItem(r.Context(), middleware.SessionIDFromContext(r.Context()), req.ProductID, req.Origin)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, AddItemResponse{Cart: newCartResponse(cart), FlyingItem: item})
}

// SetQuantity handles PUT /api/v1/cart/items/{productId}
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.RequireParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	var req UpdateQuantityRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, err := h.service.SetQuantity(r.Context(), middleware.SessionIDFromContext(r.Context()), productID, *req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// RemoveItem handles DELETE /api/v1/cart/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.RequireParam(w, "productId", chi.URLParam(r, "productId"))
	if !ok {
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), middleware.SessionIDFromContext(r.Context()), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Clear(r.Context(), middleware.SessionIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, newCartResponse(cart))
}

// ApplyDiscount handles POST /api/v1/cart/discount
func (h *CartHandler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	var req ApplyDiscountRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	cart, res, err := h.service.ApplyDiscount(r.Context(), middleware.SessionIDFromContext(r.Context()), req.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	tag := i18n.ResolveTag(r)
	resp := DiscountResponse{ApplyResult: res, Cart: newCartResponse(cart)}
	if res.Success {
		resp.Message = h.translator.Sprintf(tag, i18n.MsgDiscountApplied)
	} else {
		resp.Error = h.discountMessage(r, res)
	}
	httputil.WriteData(w, http.StatusOK, resp)
}

// Checkout handles POST /api/v1/cart/checkout
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	sessionID := middleware.SessionIDFromContext(r.Context())
	receipt, err := h.service.Finalize(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.service.GetCart(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, http.StatusOK, CheckoutResponse{
		Receipt: receipt,
		Message: h.translator.Sprintf(i18n.ResolveTag(r), i18n.MsgPurchaseComplete),
		Cart:    newCartResponse(cart),
	})
}

// FlyingItems handles GET /api/v1/cart/flying
func (h *CartHandler) FlyingItems(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, http.StatusOK, h.service.FlyingItems(middleware.SessionIDFromContext(r.Context())))
}

func (h *CartHandler) discountMessage(r *http.Request, res domain.ApplyResult) string {
	tag := i18n.ResolveTag(r)
	switch res.Kind {
	case domain.KindEmptyCode:
		return h.translator.Sprintf(tag, i18n.MsgDiscountEmpty)
	case domain.KindAlreadyApplied:
		return h.translator.Sprintf(tag, i18n.MsgDiscountAlready)
	case domain.KindInactiveCode:
		return h.translator.Sprintf(tag, i18n.MsgDiscountInactive)
	case domain.KindExpiredCode:
		return h.translator.Sprintf(tag, i18n.MsgDiscountExpired)
	case domain.KindExhaustedCode:
		return h.translator.Sprintf(tag, i18n.MsgDiscountExhausted)
	case domain.KindBelowMinimumOrder:
		return h.translator.Sprintf(tag, i18n.MsgDiscountMinOrder, strconv.FormatFloat(res.MinOrderValue, 'f', -1, 64))
	case domain.KindApplyInProgress:
		return h.translator.Sprintf(tag, i18n.MsgDiscountInProgress)
	default:
		// InvalidCode and RegistryUnavailable read the same to shoppers.
		return h.translator.Sprintf(tag, i18n.MsgDiscountInvalid)
	}
}
