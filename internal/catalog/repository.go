// AngelaMos | 2026
// repository.go

package catalog

import (
	"context"
	"fmt"

	"github.com/repuestospro/backend/internal/core"
)

type Repository interface {
	CreateCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id string) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id string) error
	CountCategoryProducts(ctx context.Context, id string) (int, error)

	CreateSubcategory(ctx context.Context, s *Subcategory) error
	GetSubcategory(ctx context.Context, id string) (*Subcategory, error)
	ListSubcategories(ctx context.Context) ([]Subcategory, error)
	UpdateSubcategory(ctx context.Context, s *Subcategory) error
	DeleteSubcategory(ctx context.Context, id string) error

	CreateBrand(ctx context.Context, b *Brand) error
	GetBrand(ctx context.Context, id string) (*Brand, error)
	ListBrands(ctx context.Context) ([]Brand, error)
	UpdateBrand(ctx context.Context, b *Brand) error
	DeleteBrand(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func insertErr(op string, err error) error {
	if core.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", op, core.ErrDuplicateKey)
	}
	if core.IsForeignKeyError(err) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return core.MapNoRows(err, op)
}

func (r *repository) CreateCategory(ctx context.Context, c *Category) error {
	query := `
		INSERT INTO categories (id, name, slug, description, sort_order)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		c.ID, c.Name, c.Slug, c.Description, c.SortOrder,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return insertErr("create category", err)
	}

	return nil
}

func (r *repository) GetCategory(ctx context.Context, id string) (*Category, error) {
	query := `
		SELECT id, name, slug, description, sort_order, created_at, updated_at
		FROM categories WHERE id = $1`

	var c Category
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, core.MapNoRows(err, "get category")
	}

	return &c, nil
}

func (r *repository) ListCategories(ctx context.Context) ([]Category, error) {
	query := `
		SELECT id, name, slug, description, sort_order, created_at, updated_at
		FROM categories
		ORDER BY sort_order ASC, name ASC`

	categories := []Category{}
	if err := r.db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return categories, nil
}

func (r *repository) UpdateCategory(ctx context.Context, c *Category) error {
	query := `
		UPDATE categories
		SET name = $2, slug = $3, description = $4, sort_order = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &c.UpdatedAt, query,
		c.ID, c.Name, c.Slug, c.Description, c.SortOrder)
	if err != nil {
		return insertErr("update category", err)
	}

	return nil
}

func (r *repository) DeleteCategory(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("delete category: %w", core.ErrConflict)
		}
		return fmt.Errorf("delete category: %w", err)
	}

	return core.ExpectAffected(result, "delete category")
}

// CountCategoryProducts counts every product row, trashed ones included,
// since they still reference the category.
func (r *repository) CountCategoryProducts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM products WHERE category_id = $1`, id)
	if err != nil {
		return 0, fmt.Errorf("count category products: %w", err)
	}

	return n, nil
}

func (r *repository) CreateSubcategory(ctx context.Context, s *Subcategory) error {
	query := `
		INSERT INTO subcategories (id, category_id, name, slug)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		s.ID, s.CategoryID, s.Name, s.Slug,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return insertErr("create subcategory", err)
	}

	return nil
}

func (r *repository) GetSubcategory(ctx context.Context, id string) (*Subcategory, error) {
	query := `
		SELECT id, category_id, name, slug, created_at, updated_at
		FROM subcategories WHERE id = $1`

	var s Subcategory
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, core.MapNoRows(err, "get subcategory")
	}

	return &s, nil
}

func (r *repository) ListSubcategories(ctx context.Context) ([]Subcategory, error) {
	query := `
		SELECT id, category_id, name, slug, created_at, updated_at
		FROM subcategories
		ORDER BY name ASC`

	subcategories := []Subcategory{}
	if err := r.db.SelectContext(ctx, &subcategories, query); err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}

	return subcategories, nil
}

func (r *repository) UpdateSubcategory(ctx context.Context, s *Subcategory) error {
	query := `
		UPDATE subcategories
		SET category_id = $2, name = $3, slug = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &s.UpdatedAt, query, s.ID, s.CategoryID, s.Name, s.Slug)
	if err != nil {
		return insertErr("update subcategory", err)
	}

	return nil
}

func (r *repository) DeleteSubcategory(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM subcategories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete subcategory: %w", err)
	}

	return core.ExpectAffected(result, "delete subcategory")
}

func (r *repository) CreateBrand(ctx context.Context, b *Brand) error {
	query := `
		INSERT INTO brands (id, name, slug)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, b.ID, b.Name, b.Slug).
		Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return insertErr("create brand", err)
	}

	return nil
}

func (r *repository) GetBrand(ctx context.Context, id string) (*Brand, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM brands WHERE id = $1`

	var b Brand
	if err := r.db.GetContext(ctx, &b, query, id); err != nil {
		return nil, core.MapNoRows(err, "get brand")
	}

	return &b, nil
}

func (r *repository) ListBrands(ctx context.Context) ([]Brand, error) {
	query := `SELECT id, name, slug, created_at, updated_at FROM brands ORDER BY name ASC`

	brands := []Brand{}
	if err := r.db.SelectContext(ctx, &brands, query); err != nil {
		return nil, fmt.Errorf("list brands: %w", err)
	}

	return brands, nil
}

func (r *repository) UpdateBrand(ctx context.Context, b *Brand) error {
	query := `
		UPDATE brands SET name = $2, slug = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	if err := r.db.GetContext(ctx, &b.UpdatedAt, query, b.ID, b.Name, b.Slug); err != nil {
		return insertErr("update brand", err)
	}

	return nil
}

func (r *repository) DeleteBrand(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM brands WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete brand: %w", err)
	}

	return core.ExpectAffected(result, "delete brand")
}
