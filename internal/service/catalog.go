package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/internal/event"
	"github.com/moni-del/dragon-d/internal/repository"
	apperrors "github.com/moni-del/dragon-d/pkg/errors"
	"github.com/moni-del/dragon-d/pkg/pagination"
	"github.com/moni-del/dragon-d/pkg/slug"
)

// CatalogService serves the product catalog to shoppers and admins.
type CatalogService struct {
	products   repository.ProductRepository
	categories repository.CategoryRepository
	cache      repository.ProductCache
	producer   *event.Producer
	logger     *slog.Logger
}

// NewCatalogService creates a new catalog service. cache may be nil.
func NewCatalogService(
	products repository.ProductRepository,
	categories repository.CategoryRepository,
	cache repository.ProductCache,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	return &CatalogService{
		products:   products,
		categories: categories,
		cache:      cache,
		producer:   producer,
		logger:     logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
type CreateProductInput struct {
	Name          string
	NameAr        string
	Description   string
	DescriptionAr string
	Price         float64
	OriginalPrice *float64
	CategoryID    string
	Rarity        string
	Image         string
	Gradient      string
	InStock       bool
}

// UpdateProductInput holds the parameters for a partial product update.
type UpdateProductInput struct {
	Name          *string
	NameAr        *string
	Description   *string
	DescriptionAr *string
	Price         *float64
	OriginalPrice *float64
	CategoryID    *string
	Rarity        *string
	Image         *string
	Gradient      *string
	InStock       *bool
}

// CategoryInput holds the parameters for creating a category.
type CategoryInput struct {
	ID        string
	Name      string
	NameAr    string
	Icon      string
	SortOrder int
}

// UpdateCategoryInput holds the parameters for a partial category update.
type UpdateCategoryInput struct {
	Name      *string
	NameAr    *string
	Icon      *string
	SortOrder *int
}

// ListProducts returns a filtered page of products.
func (s *CatalogService) ListProducts(ctx context.Context, filter repository.ProductFilter) (pagination.Result[domain.Product], error) {
	if filter.Rarity != nil && !domain.IsValidRarity(*filter.Rarity) {
		return pagination.Result[domain.Product]{}, apperrors.InvalidInput(fmt.Sprintf("invalid rarity %q", *filter.Rarity))
	}
	params := pagination.New(filter.Page, filter.PerPage)
	filter.Page, filter.PerPage = params.Page, params.PerPage

	products, total, err := s.products.List(ctx, filter)
	if err != nil {
		return pagination.Result[domain.Product]{}, fmt.Errorf("list products: %w", err)
	}
	return pagination.NewResult(products, total, params), nil
}

// GetProduct returns a product, served from the cache when possible.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "product cache read failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
		if cached != nil {
			return cached, nil
		}
	}

	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.logger.WarnContext(ctx, "product cache write failed",
				slog.String("product_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return p, nil
}

// CreateProduct adds a product to the catalog.
func (s *CatalogService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.CategoryID == "" {
		return nil, apperrors.InvalidInput("category id is required")
	}
	if err := validateProductValues(input.Price, input.Rarity); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &domain.Product{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(input.Name),
		NameAr:        strings.TrimSpace(input.NameAr),
		Description:   input.Description,
		DescriptionAr: input.DescriptionAr,
		Price:         input.Price,
		OriginalPrice: input.OriginalPrice,
		CategoryID:    input.CategoryID,
		Rarity:        domain.Rarity(input.Rarity),
		Image:         input.Image,
		Gradient:      input.Gradient,
		InStock:       input.InStock,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	p.NormalizeOriginalPrice()

	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.publishProduct(ctx, event.ActionCreated, p)
	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", p.ID),
		slog.String("name", p.Name),
	)
	return p, nil
}

// UpdateProduct applies a partial product update.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	p, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.NameAr != nil {
		p.NameAr = strings.TrimSpace(*input.NameAr)
	}
	if input.Description != nil {
		p.Description = *input.Description
	}
	if input.DescriptionAr != nil {
		p.DescriptionAr = *input.DescriptionAr
	}
	if input.Price != nil {
		p.Price = *input.Price
	}
	if input.OriginalPrice != nil {
		p.OriginalPrice = input.OriginalPrice
	}
	if input.CategoryID != nil {
		p.CategoryID = *input.CategoryID
	}
	if input.Rarity != nil {
		p.Rarity = domain.Rarity(*input.Rarity)
	}
	if input.Image != nil {
		p.Image = *input.Image
	}
	if input.Gradient != nil {
		p.Gradient = *input.Gradient
	}
	if input.InStock != nil {
		p.InStock = *input.InStock
	}

	if err := validateProductValues(p.Price, string(p.Rarity)); err != nil {
		return nil, err
	}
	p.NormalizeOriginalPrice()
	p.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	s.invalidate(ctx, p.ID)
	s.publishProduct(ctx, event.ActionUpdated, p)
	s.logger.InfoContext(ctx, "product updated", slog.String("product_id", p.ID))
	return p, nil
}

// DeleteProduct removes a product. Carts that already hold it keep their
// copy.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.invalidate(ctx, id)
	s.publishProduct(ctx, event.ActionDeleted, &domain.Product{ID: id})
	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	return nil
}

// ListCategories returns every category in display order.
func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	return categories, nil
}

// GetCategory returns a category by id.
func (s *CatalogService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// CreateCategory adds a category. An empty id is derived from the name,
// falling back to a UUID when the name has no Latin letters or digits.
func (s *CatalogService) CreateCategory(ctx context.Context, input *CategoryInput) (*domain.Category, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("category name is required")
	}

	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = slug.Generate(name)
	}
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	c := &domain.Category{
		ID:        id,
		Name:      name,
		NameAr:    strings.TrimSpace(input.NameAr),
		Icon:      input.Icon,
		SortOrder: input.SortOrder,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.categories.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.InfoContext(ctx, "category created", slog.String("category_id", c.ID))
	return c, nil
}

// UpdateCategory applies a partial category update.
func (s *CatalogService) UpdateCategory(ctx context.Context, id string, input *UpdateCategoryInput) (*domain.Category, error) {
	c, err := s.categories.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get category for update: %w", err)
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.InvalidInput("category name must not be empty")
		}
		c.Name = strings.TrimSpace(*input.Name)
	}
	if input.NameAr != nil {
		c.NameAr = strings.TrimSpace(*input.NameAr)
	}
	if input.Icon != nil {
		c.Icon = *input.Icon
	}
	if input.SortOrder != nil {
		c.SortOrder = *input.SortOrder
	}
	c.UpdatedAt = time.Now().UTC()

	if err := s.categories.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	s.logger.InfoContext(ctx, "category updated", slog.String("category_id", c.ID))
	return c, nil
}

// DeleteCategory removes an empty category.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	s.logger.InfoContext(ctx, "category deleted", slog.String("category_id", id))
	return nil
}

func (s *CatalogService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "product cache invalidation failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (s *CatalogService) publishProduct(ctx context.Context, action event.Action, p *domain.Product) {
	if err := s.producer.PublishProduct(ctx, action, p); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product event",
			slog.String("action", string(action)),
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

func validateProductValues(price float64, rarity string) error {
	if price < 0 {
		return apperrors.InvalidInput("price must not be negative")
	}
	if !domain.IsValidRarity(rarity) {
		return apperrors.InvalidInput(fmt.Sprintf("invalid rarity %q, must be one of: common, rare, epic, legendary", rarity))
	}
	return nil
}
