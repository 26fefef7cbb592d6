package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/internal/repository"
	"github.com/moni-del/dragon-d/pkg/database"
	apperrors "github.com/moni-del/dragon-d/pkg/errors"
)

// productColumns is the standard SELECT column list for products.
const productColumns = `id, name, name_ar, description, description_ar, price, original_price,
	category_id, rarity, image, gradient, in_stock, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool   database.DBTX
	tracer *database.QueryTracer
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX, tracer *database.QueryTracer) *ProductRepository {
	return &ProductRepository{pool: pool, tracer: tracer}
}

// Create inserts a new product.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (id, name, name_ar, description, description_ar, price, original_price,
			category_id, rarity, image, gradient, in_stock, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	ctx, end := r.tracer.Trace(ctx, "product.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.NameAr,
		p.Description,
		p.DescriptionAr,
		p.Price,
		p.OriginalPrice,
		p.CategoryID,
		string(p.Rarity),
		p.Image,
		p.Gradient,
		p.InStock,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperrors.AlreadyExists("product", "id", p.ID)
		case isForeignKeyViolation(err):
			return apperrors.InvalidInput(fmt.Sprintf("unknown category %q", p.CategoryID))
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (p *domain.Product, err error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)
	ctx, end := r.tracer.Trace(ctx, "product.GetByID", query)
	defer func() { end(ignoreNotFound(err)) }()

	var rarity string
	p = &domain.Product{}
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.NameAr, &p.Description, &p.DescriptionAr, &p.Price, &p.OriginalPrice,
		&p.CategoryID, &rarity, &p.Image, &p.Gradient, &p.InStock, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("product", id)
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	p.Rarity = domain.Rarity(rarity)
	return p, nil
}

// List returns products matching the filter, ordered for the storefront,
// with the total count.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductFilter) (products []domain.Product, total int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)
	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}
	if filter.Rarity != nil {
		conditions = append(conditions, fmt.Sprintf("rarity = $%d", argIndex))
		args = append(args, *filter.Rarity)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY created_at, id
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause, argIndex, argIndex+1,
	)
	ctx, end := r.tracer.Trace(ctx, "product.List", query)
	defer func() { end(err) }()

	limit, offset := pageBounds(filter.Page, filter.PerPage)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = []domain.Product{}
	for rows.Next() {
		var (
			p      domain.Product
			rarity string
		)
		if err := rows.Scan(
			&p.ID, &p.Name, &p.NameAr, &p.Description, &p.DescriptionAr, &p.Price, &p.OriginalPrice,
			&p.CategoryID, &rarity, &p.Image, &p.Gradient, &p.InStock, &p.CreatedAt, &p.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		p.Rarity = domain.Rarity(rarity)
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, total, nil
}

// Update overwrites a product's mutable fields.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products
		SET name = $1, name_ar = $2, description = $3, description_ar = $4, price = $5,
		    original_price = $6, category_id = $7, rarity = $8, image = $9, gradient = $10,
		    in_stock = $11, updated_at = $12
		WHERE id = $13`
	ctx, end := r.tracer.Trace(ctx, "product.Update", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.NameAr,
		p.Description,
		p.DescriptionAr,
		p.Price,
		p.OriginalPrice,
		p.CategoryID,
		string(p.Rarity),
		p.Image,
		p.Gradient,
		p.InStock,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.InvalidInput(fmt.Sprintf("unknown category %q", p.CategoryID))
		}
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`
	ctx, end := r.tracer.Trace(ctx, "product.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}
