package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/internal/event"
	"github.com/moni-del/dragon-d/internal/repository"
	apperrors "github.com/moni-del/dragon-d/pkg/errors"
	"github.com/moni-del/dragon-d/pkg/logger"
)

// DefaultApplyLockTTL bounds how long one discount application may hold a
// session's apply lock.
const DefaultApplyLockTTL = 10 * time.Second

// ProductLookup resolves catalog products for the cart.
type ProductLookup interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// SessionDeps are the collaborators of SessionService. Flying may be nil.
type SessionDeps struct {
	Sessions  repository.SessionRepository
	Registry  repository.DiscountRegistry
	Products  ProductLookup
	Usage     *UsageWriter
	Flying    *FlyingFeed
	Producer  *event.Producer
	Logger    *slog.Logger
	FlyingTTL time.Duration
	LockTTL   time.Duration
	Now       func() time.Time
}

// Receipt describes a finalized purchase.
type Receipt struct {
	SessionID    string            `json:"session_id"`
	Lines        []domain.CartLine `json:"lines"`
	DiscountCode string            `json:"discount_code,omitempty"`
	Totals       domain.Totals     `json:"totals"`
	CompletedAt  time.Time         `json:"completed_at"`
}

// SessionService loads a shopper's cart session, runs one engine operation
// on it and stores it back with optimistic versioning.
type SessionService struct {
	deps SessionDeps
}

// NewSessionService creates a new session service.
func NewSessionService(deps SessionDeps) *SessionService {
	if deps.LockTTL <= 0 {
		deps.LockTTL = DefaultApplyLockTTL
	}
	if deps.Now == nil {
		deps.Now = func() time.Time { return time.Now().UTC() }
	}
	return &SessionService{deps: deps}
}

// GetCart returns the session's cart, or an empty one if none exists yet.
func (s *SessionService) GetCart(ctx context.Context, sessionID string) (*domain.CartSession, error) {
	return s.load(ctx, sessionID)
}

// AddItem adds one unit of productID and returns the flying-item hint for
// the add. The hint reaches the feed only once the cart is stored.
func (s *SessionService) AddItem(ctx context.Context, sessionID, productID string, origin domain.Point) (*domain.CartSession, domain.FlyingItem, error) {
	if productID == "" {
		return nil, domain.FlyingItem{}, apperrors.InvalidInput("product id is required")
	}

	product, err := s.deps.Products.GetProduct(ctx, productID)
	if err != nil {
		return nil, domain.FlyingItem{}, err
	}
	if !product.InStock {
		return nil, domain.FlyingItem{}, apperrors.InvalidInput("product is out of stock")
	}

	var item domain.FlyingItem
	cart, err := s.mutate(ctx, sessionID, func(e *Engine) error {
		item = e.AddItem(ctx, *product, origin)
		return nil
	})
	if err != nil {
		return nil, domain.FlyingItem{}, err
	}
	if s.deps.Flying != nil {
		s.deps.Flying.Emit(item)
	}
	return cart, item, nil
}

// RemoveItem deletes the product's line.
func (s *SessionService) RemoveItem(ctx context.Context, sessionID, productID string) (*domain.CartSession, error) {
	return s.mutate(ctx, sessionID, func(e *Engine) error {
		e.RemoveItem(productID)
		return nil
	})
}

// SetQuantity overwrites the product's quantity; zero or less removes it.
func (s *SessionService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (*domain.CartSession, error) {
	return s.mutate(ctx, sessionID, func(e *Engine) error {
		e.SetQuantity(productID, quantity)
		return nil
	})
}

// Clear empties the cart.
func (s *SessionService) Clear(ctx context.Context, sessionID string) (*domain.CartSession, error) {
	cart, err := s.mutate(ctx, sessionID, func(e *Engine) error {
		e.Clear()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.deps.Producer.PublishCartCleared(ctx, cart); err != nil {
		s.deps.Logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	return cart, nil
}

// ApplyDiscount applies codeText to the session's cart. Validation
// failures come back in the result with a nil error; the error is only set
// when the session itself could not be loaded or stored.
func (s *SessionService) ApplyDiscount(ctx context.Context, sessionID, codeText string) (*domain.CartSession, domain.ApplyResult, error) {
	if sessionID == "" {
		return nil, domain.ApplyResult{}, apperrors.InvalidInput("session id is required")
	}

	if domain.NormalizeCode(codeText) != "" {
		token, err := s.deps.Sessions.AcquireLock(ctx, sessionID, s.deps.LockTTL)
		switch {
		case err != nil:
			s.deps.Logger.WarnContext(ctx, "apply lock unavailable, continuing without it",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		case token == "":
			cart, err := s.load(ctx, sessionID)
			if err != nil {
				return nil, domain.ApplyResult{}, err
			}
			res := domain.Failed(domain.NewDiscountError(domain.KindApplyInProgress))
			discountApplications.WithLabelValues(string(res.Kind)).Inc()
			return cart, res, nil
		default:
			defer s.releaseLock(ctx, sessionID, token)
		}
	}

	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, domain.ApplyResult{}, err
	}
	expected := cart.Version

	e := s.engine(cart)
	res := e.ApplyDiscount(ctx, codeText)
	if !res.Success {
		return cart, res, nil
	}

	saved, err := s.save(ctx, e.Session(), expected)
	if err != nil {
		return nil, domain.ApplyResult{}, err
	}

	if err := s.deps.Producer.PublishDiscountApplied(ctx, saved, e.legacy); err != nil {
		s.deps.Logger.ErrorContext(ctx, "failed to publish cart.discount_applied event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
	return saved, res, nil
}

// Finalize completes the simulated purchase: the cart is reset and a
// receipt for what it held is returned.
func (s *SessionService) Finalize(ctx context.Context, sessionID string) (*Receipt, error) {
	var before *domain.CartSession
	_, err := s.mutate(ctx, sessionID, func(e *Engine) error {
		before = e.Session()
		if before.IsEmpty() {
			return apperrors.InvalidInput("cart is empty")
		}
		e.FinalizePurchase(ctx)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.deps.Producer.PublishPurchaseFinalized(ctx, before); err != nil {
		s.deps.Logger.ErrorContext(ctx, "failed to publish purchase.finalized event",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}

	return &Receipt{
		SessionID:    before.ID,
		Lines:        before.Lines,
		DiscountCode: before.DiscountCode,
		Totals:       before.Totals(),
		CompletedAt:  s.deps.Now(),
	}, nil
}

// FlyingItems lists the session's live flying-item hints.
func (s *SessionService) FlyingItems(sessionID string) []domain.FlyingItem {
	if s.deps.Flying == nil {
		return []domain.FlyingItem{}
	}
	return s.deps.Flying.Active(sessionID)
}

func (s *SessionService) engine(cart *domain.CartSession) *Engine {
	return NewEngine(cart, EngineDeps{
		Registry:  s.deps.Registry,
		Usage:     s.deps.Usage,
		FlyingTTL: s.deps.FlyingTTL,
		Logger:    s.deps.Logger,
		Now:       s.deps.Now,
	})
}

func (s *SessionService) load(ctx context.Context, sessionID string) (*domain.CartSession, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	cart, err := s.deps.Sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCartSession(sessionID, logger.UserIDFromContext(ctx), s.deps.Now()), nil
		}
		return nil, fmt.Errorf("get cart session: %w", err)
	}
	return cart, nil
}

func (s *SessionService) mutate(ctx context.Context, sessionID string, op func(e *Engine) error) (*domain.CartSession, error) {
	cart, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	expected := cart.Version

	e := s.engine(cart)
	if err := op(e); err != nil {
		return nil, err
	}
	return s.save(ctx, e.Session(), expected)
}

func (s *SessionService) save(ctx context.Context, cart *domain.CartSession, expected int) (*domain.CartSession, error) {
	ok, err := s.deps.Sessions.SaveIfVersion(ctx, cart, expected)
	if err != nil {
		return nil, fmt.Errorf("save cart session: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("cart was modified concurrently, please retry")
	}
	return cart, nil
}

func (s *SessionService) releaseLock(ctx context.Context, sessionID, token string) {
	if err := s.deps.Sessions.ReleaseLock(context.WithoutCancel(ctx), sessionID, token); err != nil {
		s.deps.Logger.WarnContext(ctx, "failed to release apply lock",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()),
		)
	}
}
