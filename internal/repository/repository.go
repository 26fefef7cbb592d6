package repository

import (
	"context"
	"time"

	"github.com/moni-del/dragon-d/internal/domain"
)

// DiscountRegistry is the read side of the discount registry used by the
// cart engine. Lookups return apperrors.ErrNotFound when nothing matches;
// any other error means the registry could not be consulted.
type DiscountRegistry interface {
	// GetByKey looks the code up as a document identity.
	GetByKey(ctx context.Context, code string) (*domain.DiscountCode, error)

	// FindByCode looks the code up by its code field.
	FindByCode(ctx context.Context, code string) (*domain.DiscountCode, error)

	// IncrementUsage atomically bumps the used count of the document id.
	IncrementUsage(ctx context.Context, id string) error
}

// DiscountFilter defines filter criteria for listing discount codes.
type DiscountFilter struct {
	Active  *bool
	Page    int
	PerPage int
}

// DiscountRepository is the full registry used by the admin surface.
type DiscountRepository interface {
	DiscountRegistry

	// Create inserts a new code.
	Create(ctx context.Context, code *domain.DiscountCode) error

	// Update overwrites a code's mutable fields.
	Update(ctx context.Context, code *domain.DiscountCode) error

	// Delete removes a code by document id.
	Delete(ctx context.Context, id string) error

	// List returns codes matching the filter along with the total count.
	List(ctx context.Context, filter DiscountFilter) ([]domain.DiscountCode, int, error)
}

// ProductFilter defines filter criteria for listing products.
type ProductFilter struct {
	CategoryID *string
	Rarity     *string
	Page       int
	PerPage    int
}

// ProductRepository defines catalog product persistence.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]domain.Product, int, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
}

// CategoryRepository defines catalog category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, c *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	List(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, c *domain.Category) error
	Delete(ctx context.Context, id string) error
}

// SessionRepository stores cart sessions.
type SessionRepository interface {
	// Get returns apperrors.ErrNotFound for unknown or expired sessions.
	Get(ctx context.Context, id string) (*domain.CartSession, error)

	// SaveIfVersion stores the session only if the stored version still
	// equals expected (0 for a new session) and bumps Version on success.
	// It reports false when another writer got there first.
	SaveIfVersion(ctx context.Context, session *domain.CartSession, expected int) (bool, error)

	// Delete removes a session.
	Delete(ctx context.Context, id string) error

	// AcquireLock takes the per-session apply lock for ttl. It returns a
	// token for ReleaseLock, or "" when the lock is held elsewhere.
	AcquireLock(ctx context.Context, id string, ttl time.Duration) (string, error)

	// ReleaseLock frees the lock if token still owns it.
	ReleaseLock(ctx context.Context, id, token string) error
}

// ProductCache is a read-through cache in front of ProductRepository.
type ProductCache interface {
	// Get returns (nil, nil) on a miss.
	Get(ctx context.Context, id string) (*domain.Product, error)
	Set(ctx context.Context, p *domain.Product) error
	Invalidate(ctx context.Context, id string) error
}
