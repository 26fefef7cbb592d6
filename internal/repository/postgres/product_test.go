package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moni-del/dragon-d/internal/domain"
	"github.com/moni-del/dragon-d/internal/repository"
	"github.com/moni-del/dragon-d/pkg/database"
	apperrors "github.com/moni-del/dragon-d/pkg/errors"
)

func setupCatalog(t *testing.T) (*ProductRepository, *CategoryRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock := database.NewMockPool(t)
	tracer := database.NewQueryTracer(0, nil)
	return NewProductRepository(mock, tracer), NewCategoryRepository(mock, tracer), mock
}

func sampleProduct() *domain.Product {
	now := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	original := 49.99
	return &domain.Product{
		ID:            "1",
		Name:          "Dragon Flame Car",
		NameAr:        "سيارة التنين الناري",
		Description:   "Legendary dragon-themed car skin with flame effects",
		DescriptionAr: "سكن سيارة أسطوري",
		Price:         29.99,
		OriginalPrice: &original,
		CategoryID:    "cars",
		Rarity:        domain.RarityLegendary,
		Image:         "/products/car-dragon.png",
		Gradient:      "from-orange-500 via-red-500 to-yellow-500",
		InStock:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func productColumnNames() []string {
	return []string{
		"id", "name", "name_ar", "description", "description_ar", "price", "original_price",
		"category_id", "rarity", "image", "gradient", "in_stock", "created_at", "updated_at",
	}
}

func productValues(p *domain.Product) []any {
	return []any{
		p.ID, p.Name, p.NameAr, p.Description, p.DescriptionAr, p.Price, p.OriginalPrice,
		p.CategoryID, string(p.Rarity), p.Image, p.Gradient, p.InStock, p.CreatedAt, p.UpdatedAt,
	}
}

func TestProductRepository_GetByID(t *testing.T) {
	products, _, mock := setupCatalog(t)
	want := sampleProduct()

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("1").
		WillReturnRows(pgxmock.NewRows(productColumnNames()).AddRow(productValues(want)...))

	got, err := products.GetByID(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	products, _, mock := setupCatalog(t)

	mock.ExpectQuery(`SELECT .+ FROM products WHERE id = \$1`).
		WithArgs("404").
		WillReturnError(pgx.ErrNoRows)

	_, err := products.GetByID(context.Background(), "404")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_List_Filters(t *testing.T) {
	products, _, mock := setupCatalog(t)
	p := sampleProduct()
	category, rarity := "cars", "legendary"

	mock.ExpectQuery(`FROM products\s+WHERE category_id = \$1 AND rarity = \$2\s+ORDER BY created_at, id\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("cars", "legendary", 20, 0).
		WillReturnRows(pgxmock.NewRows(append(productColumnNames(), "total_count")).
			AddRow(append(productValues(p), 1)...))

	list, total, err := products.List(context.Background(), repository.ProductFilter{CategoryID: &category, Rarity: &rarity})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, domain.RarityLegendary, list[0].Rarity)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_UnknownCategory(t *testing.T) {
	products, _, mock := setupCatalog(t)
	p := sampleProduct()

	mock.ExpectExec(`INSERT INTO products`).
		WithArgs(productValues(p)...).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err := products.Create(context.Background(), p)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestProductRepository_Delete_NotFound(t *testing.T) {
	products, _, mock := setupCatalog(t)

	mock.ExpectExec(`DELETE FROM products WHERE id = \$1`).
		WithArgs("99").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, products.Delete(context.Background(), "99"), apperrors.ErrNotFound)
}

func TestCategoryRepository_List(t *testing.T) {
	_, categories, mock := setupCatalog(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`SELECT .+ FROM categories ORDER BY sort_order, id`).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "name_ar", "icon", "sort_order", "created_at", "updated_at"}).
			AddRow("cars", "Car skins", "سكنات سيارات", "🏎️", 1, now, now).
			AddRow("weapons", "Weapon skins", "سكنات أسلحة", "🔫", 2, now, now))

	list, err := categories.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "weapons", list[1].ID)
}

func TestCategoryRepository_Delete_StillReferenced(t *testing.T) {
	_, categories, mock := setupCatalog(t)

	mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
		WithArgs("cars").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	assert.ErrorIs(t, categories.Delete(context.Background(), "cars"), apperrors.ErrConflict)
}

func TestMigrations_Embedded(t *testing.T) {
	fsys := Migrations()
	for _, name := range []string{"0001_schema.up.sql", "0002_seed_catalog.up.sql"} {
		_, err := fsys.Open(name)
		assert.NoError(t, err, name)
	}
}
