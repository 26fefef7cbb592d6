package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/internal/repository"
	apperrors "github.com/moni-del/dragon-d/pkg/errors"
)

// EngineDeps are the collaborators of a cart engine. Usage and Flying may
// be nil.
type EngineDeps struct {
	Registry  repository.DiscountRegistry
	Usage     *UsageWriter
	Flying    FlyingItemSink
	FlyingTTL time.Duration
	Logger    *slog.Logger
	Now       func() time.Time
}

// Engine owns one cart session and applies the cart and discount rules to
// it. All methods are safe for concurrent use; a second ApplyDiscount
// while one is looking up its code fails with ApplyInProgress.
type Engine struct {
	mu       sync.Mutex
	session  *domain.CartSession
	deps     EngineDeps
	applying bool
	// legacy is true when the current code came from the built-in table.
	legacy bool
}

// NewEngine wraps session. The engine mutates session in place.
func NewEngine(session *domain.CartSession, deps EngineDeps) *Engine {
	if deps.FlyingTTL <= 0 {
		deps.FlyingTTL = DefaultFlyingItemTTL
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Engine{session: session, deps: deps}
}

// AddItem adds one unit of product and emits a flying-item hint starting
// at origin. The hint never affects cart state.
func (e *Engine) AddItem(ctx context.Context, product domain.Product, origin domain.Point) domain.FlyingItem {
	e.mu.Lock()
	now := e.deps.Now()
	e.session.Add(product)
	e.session.UpdatedAt = now
	item := domain.FlyingItem{
		ID:        uuid.NewString(),
		SessionID: e.session.ID,
		ProductID: product.ID,
		Image:     product.Image,
		Start:     origin,
		CreatedAt: now,
		ExpiresAt: now.Add(e.deps.FlyingTTL),
	}
	e.mu.Unlock()

	if e.deps.Flying != nil {
		e.deps.Flying.Emit(item)
	}
	e.deps.Logger.DebugContext(ctx, "item added to cart",
		slog.String("session_id", item.SessionID),
		slog.String("product_id", product.ID),
	)
	return item
}

// RemoveItem deletes the product's line if present.
func (e *Engine) RemoveItem(productID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Remove(productID)
	e.session.UpdatedAt = e.deps.Now()
}

// SetQuantity overwrites a line's quantity; quantity <= 0 removes it.
func (e *Engine) SetQuantity(productID string, quantity int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.SetQuantity(productID, quantity)
	e.session.UpdatedAt = e.deps.Now()
}

// Clear empties the cart and drops any applied code.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.session.Clear()
	e.session.UpdatedAt = e.deps.Now()
	e.legacy = false
}

// Totals returns the derived totals.
func (e *Engine) Totals() domain.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Totals()
}

// FinalizePurchase completes a simulated purchase by resetting the cart.
// Usage was recorded when the code was applied, so nothing is re-validated.
func (e *Engine) FinalizePurchase(ctx context.Context) {
	e.Clear()
	e.deps.Logger.InfoContext(ctx, "purchase finalized",
		slog.String("session_id", e.session.ID),
	)
}

// Session returns a snapshot of the cart session.
func (e *Engine) Session() *domain.CartSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.Clone()
}

// Wait blocks until pending usage writes have finished.
func (e *Engine) Wait() {
	if e.deps.Usage != nil {
		e.deps.Usage.Wait()
	}
}

// ApplyDiscount validates codeText and applies it to the cart. Failures
// are returned as results and leave the cart unchanged.
func (e *Engine) ApplyDiscount(ctx context.Context, codeText string) domain.ApplyResult {
	code := domain.NormalizeCode(codeText)

	e.mu.Lock()
	switch {
	case code == "":
		e.mu.Unlock()
		return e.fail(ctx, code, domain.NewDiscountError(domain.KindEmptyCode))
	case e.session.HasCode(code):
		e.mu.Unlock()
		return e.fail(ctx, code, domain.NewDiscountError(domain.KindAlreadyApplied))
	case e.applying:
		e.mu.Unlock()
		return e.fail(ctx, code, domain.NewDiscountError(domain.KindApplyInProgress))
	}
	e.applying = true
	e.mu.Unlock()

	dc, lookupErr := e.lookup(ctx, code)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.applying = false

	if dc != nil {
		return e.applyRegistryCode(ctx, code, dc)
	}

	if pct, ok := domain.LegacyPercent(code); ok {
		e.session.ApplyPercent(code, pct)
		e.session.UpdatedAt = e.deps.Now()
		e.legacy = true
		discountApplications.WithLabelValues(resultLegacy).Inc()
		e.deps.Logger.InfoContext(ctx, "legacy discount applied",
			slog.String("session_id", e.session.ID),
			slog.String("code", code),
			slog.Float64("percent", pct),
		)
		return domain.ApplyResult{Success: true}
	}

	if lookupErr != nil {
		return e.fail(ctx, code, domain.NewDiscountError(domain.KindRegistryUnavailable))
	}
	return e.fail(ctx, code, domain.NewDiscountError(domain.KindInvalidCode))
}

// applyRegistryCode runs with e.mu held.
func (e *Engine) applyRegistryCode(ctx context.Context, code string, dc *domain.DiscountCode) domain.ApplyResult {
	if err := dc.Check(e.deps.Now(), e.session.Subtotal()); err != nil {
		return e.fail(ctx, code, err)
	}

	switch dc.Type {
	case domain.DiscountTypePercentage:
		e.session.ApplyPercent(code, dc.Value)
	case domain.DiscountTypeFixed:
		e.session.ApplyFixed(code, dc.Value)
	default:
		e.deps.Logger.WarnContext(ctx, "discount code has unknown type",
			slog.String("discount_id", dc.ID),
			slog.String("type", string(dc.Type)),
		)
		return e.fail(ctx, code, domain.NewDiscountError(domain.KindInvalidCode))
	}
	e.session.UpdatedAt = e.deps.Now()
	e.legacy = false

	if e.deps.Usage != nil {
		e.deps.Usage.Record(ctx, dc.ID, code)
	}

	discountApplications.WithLabelValues(resultApplied).Inc()
	e.deps.Logger.InfoContext(ctx, "discount applied",
		slog.String("session_id", e.session.ID),
		slog.String("code", code),
		slog.String("discount_id", dc.ID),
		slog.Float64("amount", e.session.DiscountAmount),
	)
	return domain.ApplyResult{Success: true}
}

// lookup queries the registry by document identity and then by code
// field. A registry error counts as not found but is returned so the
// caller can tell the two apart.
func (e *Engine) lookup(ctx context.Context, code string) (*domain.DiscountCode, error) {
	if e.deps.Registry == nil {
		return nil, nil
	}

	var regErr error

	dc, err := e.deps.Registry.GetByKey(ctx, code)
	if err == nil {
		return dc, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		regErr = err
		e.logRegistryError(ctx, "get_by_key", code, err)
	}

	dc, err = e.deps.Registry.FindByCode(ctx, code)
	if err == nil {
		return dc, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		regErr = err
		e.logRegistryError(ctx, "find_by_code", code, err)
	}

	return nil, regErr
}

func (e *Engine) logRegistryError(ctx context.Context, op, code string, err error) {
	e.deps.Logger.ErrorContext(ctx, "discount registry lookup failed",
		slog.String("op", op),
		slog.String("code", code),
		slog.String("error_kind", "registry_unavailable"),
		slog.String("error", err.Error()),
	)
}

func (e *Engine) fail(ctx context.Context, code string, err error) domain.ApplyResult {
	res := domain.Failed(err)
	discountApplications.WithLabelValues(string(res.Kind)).Inc()
	e.deps.Logger.DebugContext(ctx, "discount rejected",
		slog.String("code", code),
		slog.String("kind", string(res.Kind)),
	)
	return res
}
