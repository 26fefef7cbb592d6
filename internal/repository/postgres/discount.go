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

// discountColumns is the standard SELECT column list for discount codes.
const discountColumns = `id, code, description, type, value, min_order_value,
	max_uses, used_count, is_active, expires_at, applicable_products, created_at, updated_at`

// DiscountRepository implements repository.DiscountRepository using PostgreSQL.
// Rows keep the document identity (id) separate from the code text so codes
// stored under their own name and codes stored under a generated id coexist.
type DiscountRepository struct {
	pool   database.DBTX
	tracer *database.QueryTracer
}

// NewDiscountRepository creates a new PostgreSQL-backed discount registry.
func NewDiscountRepository(pool database.DBTX, tracer *database.QueryTracer) *DiscountRepository {
	return &DiscountRepository{pool: pool, tracer: tracer}
}

// GetByKey retrieves a discount code whose document identity equals code.
func (r *DiscountRepository) GetByKey(ctx context.Context, code string) (d *domain.DiscountCode, err error) {
	query := fmt.Sprintf(`SELECT %s FROM discount_codes WHERE id = $1`, discountColumns)
	ctx, end := r.tracer.Trace(ctx, "discount.GetByKey", query)
	defer func() { end(ignoreNotFound(err)) }()

	return r.scanDiscount(ctx, query, code)
}

// FindByCode retrieves the first discount code whose code field equals code.
func (r *DiscountRepository) FindByCode(ctx context.Context, code string) (d *domain.DiscountCode, err error) {
	query := fmt.Sprintf(`SELECT %s FROM discount_codes WHERE code = $1 ORDER BY created_at LIMIT 1`, discountColumns)
	ctx, end := r.tracer.Trace(ctx, "discount.FindByCode", query)
	defer func() { end(ignoreNotFound(err)) }()

	return r.scanDiscount(ctx, query, code)
}

// IncrementUsage atomically increments the used count of a discount code.
func (r *DiscountRepository) IncrementUsage(ctx context.Context, id string) (err error) {
	query := `
		UPDATE discount_codes
		SET used_count = used_count + 1, updated_at = NOW()
		WHERE id = $1`
	ctx, end := r.tracer.Trace(ctx, "discount.IncrementUsage", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("increment discount usage: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("discount code", id)
	}
	return nil
}

// Create inserts a new discount code.
func (r *DiscountRepository) Create(ctx context.Context, d *domain.DiscountCode) (err error) {
	query := `
		INSERT INTO discount_codes (id, code, description, type, value, min_order_value,
			max_uses, used_count, is_active, expires_at, applicable_products, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	ctx, end := r.tracer.Trace(ctx, "discount.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		d.ID,
		d.Code,
		d.Description,
		string(d.Type),
		d.Value,
		d.MinOrderValue,
		d.MaxUses,
		d.UsedCount,
		d.IsActive,
		d.ExpiresAt,
		nonNil(d.ApplicableProducts),
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("discount code", "code", d.Code)
		}
		return fmt.Errorf("insert discount code: %w", err)
	}
	return nil
}

// Update overwrites the editable fields of a discount code. used_count is
// only ever changed by IncrementUsage; the stored value is read back into d.
func (r *DiscountRepository) Update(ctx context.Context, d *domain.DiscountCode) (err error) {
	d.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE discount_codes
		SET code = $1, description = $2, type = $3, value = $4, min_order_value = $5,
		    max_uses = $6, is_active = $7, expires_at = $8,
		    applicable_products = $9, updated_at = $10
		WHERE id = $11
		RETURNING used_count`
	ctx, end := r.tracer.Trace(ctx, "discount.Update", query)
	defer func() { end(err) }()

	err = r.pool.QueryRow(ctx, query,
		d.Code,
		d.Description,
		string(d.Type),
		d.Value,
		d.MinOrderValue,
		d.MaxUses,
		d.IsActive,
		d.ExpiresAt,
		nonNil(d.ApplicableProducts),
		d.UpdatedAt,
		d.ID,
	).Scan(&d.UsedCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("discount code", d.ID)
		}
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("discount code", "code", d.Code)
		}
		return fmt.Errorf("update discount code: %w", err)
	}
	return nil
}

// Delete removes a discount code by document id.
func (r *DiscountRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM discount_codes WHERE id = $1`
	ctx, end := r.tracer.Trace(ctx, "discount.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete discount code: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("discount code", id)
	}
	return nil
}

// List returns discount codes matching the filter, newest first, with the
// total count.
func (r *DiscountRepository) List(ctx context.Context, filter repository.DiscountFilter) (codes []domain.DiscountCode, total int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argIndex))
		args = append(args, *filter.Active)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM discount_codes
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		discountColumns, whereClause, argIndex, argIndex+1,
	)
	ctx, end := r.tracer.Trace(ctx, "discount.List", query)
	defer func() { end(err) }()

	limit, offset := pageBounds(filter.Page, filter.PerPage)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list discount codes: %w", err)
	}
	defer rows.Close()

	codes = []domain.DiscountCode{}
	for rows.Next() {
		var (
			d     domain.DiscountCode
			dtype string
		)
		if err := rows.Scan(
			&d.ID, &d.Code, &d.Description, &dtype, &d.Value, &d.MinOrderValue,
			&d.MaxUses, &d.UsedCount, &d.IsActive, &d.ExpiresAt, &d.ApplicableProducts,
			&d.CreatedAt, &d.UpdatedAt, &total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan discount code row: %w", err)
		}
		d.Type = domain.DiscountType(dtype)
		d.ApplicableProducts = nonNil(d.ApplicableProducts)
		codes = append(codes, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate discount code rows: %w", err)
	}

	return codes, total, nil
}

// scanDiscount executes a query expected to return a single discount row.
func (r *DiscountRepository) scanDiscount(ctx context.Context, query string, args ...any) (*domain.DiscountCode, error) {
	var (
		d     domain.DiscountCode
		dtype string
	)
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&d.ID, &d.Code, &d.Description, &dtype, &d.Value, &d.MinOrderValue,
		&d.MaxUses, &d.UsedCount, &d.IsActive, &d.ExpiresAt, &d.ApplicableProducts,
		&d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan discount code: %w", err)
	}
	d.Type = domain.DiscountType(dtype)
	d.ApplicableProducts = nonNil(d.ApplicableProducts)
	return &d, nil
}

// ignoreNotFound keeps expected misses out of span error status.
func ignoreNotFound(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil
	}
	return err
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
