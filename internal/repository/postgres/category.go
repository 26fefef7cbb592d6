package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/pkg/database"
	apperrors "github.com/moni-del/dragon-d/pkg/errors"
)

const categoryColumns = `id, name, name_ar, icon, sort_order, created_at, updated_at`

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	pool   database.DBTX
	tracer *database.QueryTracer
}

// NewCategoryRepository creates a new PostgreSQL-backed category repository.
func NewCategoryRepository(pool database.DBTX, tracer *database.QueryTracer) *CategoryRepository {
	return &CategoryRepository{pool: pool, tracer: tracer}
}

// Create inserts a new category.
func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) (err error) {
	query := `
		INSERT INTO categories (id, name, name_ar, icon, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	ctx, end := r.tracer.Trace(ctx, "category.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query, c.ID, c.Name, c.NameAr, c.Icon, c.SortOrder, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "id", c.ID)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// GetByID retrieves a category by its identifier.
func (r *CategoryRepository) GetByID(ctx context.Context, id string) (c *domain.Category, err error) {
	query := fmt.Sprintf(`SELECT %s FROM categories WHERE id = $1`, categoryColumns)
	ctx, end := r.tracer.Trace(ctx, "category.GetByID", query)
	defer func() { end(ignoreNotFound(err)) }()

	c = &domain.Category{}
	err = r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.NameAr, &c.Icon, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("category", id)
		}
		return nil, fmt.Errorf("scan category: %w", err)
	}
	return c, nil
}

// List returns every category in display order.
func (r *CategoryRepository) List(ctx context.Context) (categories []domain.Category, err error) {
	query := fmt.Sprintf(`SELECT %s FROM categories ORDER BY sort_order, id`, categoryColumns)
	ctx, end := r.tracer.Trace(ctx, "category.List", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories = []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.NameAr, &c.Icon, &c.SortOrder, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

// Update overwrites a category's mutable fields.
func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) (err error) {
	c.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE categories
		SET name = $1, name_ar = $2, icon = $3, sort_order = $4, updated_at = $5
		WHERE id = $6`
	ctx, end := r.tracer.Trace(ctx, "category.Update", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, c.Name, c.NameAr, c.Icon, c.SortOrder, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", c.ID)
	}
	return nil
}

// Delete removes a category. Categories that still hold products cannot be
// deleted.
func (r *CategoryRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM categories WHERE id = $1`
	ctx, end := r.tracer.Trace(ctx, "category.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return apperrors.Conflict(fmt.Sprintf("category %q still has products", id))
		}
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", id)
	}
	return nil
}
