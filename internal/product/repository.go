// AngelaMos | 2026
// repository.go

package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/repuestospro/backend/internal/core"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	GetVisible(ctx context.Context, id string) (*Listing, error)
	List(ctx context.Context, params ListParams) ([]Listing, int, error)
	ListByStore(ctx context.Context, storeID string, params StoreListParams) ([]Product, int, error)
	Update(ctx context.Context, p *Product) error
	AdjustStock(ctx context.Context, id string, delta int) (int, error)
	SetStock(ctx context.Context, id string, stock int) error
	SetImage(ctx context.Context, id, url string) error
	SoftDelete(ctx context.Context, id string) error
	Restore(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const productColumns = `p.id, p.store_id, p.name, p.description, p.sku, p.price, p.stock,
		p.category_id, p.subcategory_id, p.brand_id, p.vehicle_compatibility,
		p.image_url, p.is_active, p.deleted, p.deleted_at, p.created_at, p.updated_at`

// visibleWhere restricts to products a customer can buy.
const visibleWhere = `p.deleted = FALSE AND p.is_active = TRUE
		AND s.deleted_at IS NULL AND s.is_active = TRUE`

func (r *repository) Create(ctx context.Context, p *Product) error {
	query := `
		INSERT INTO products (
			id, store_id, name, description, sku, price, stock, category_id,
			subcategory_id, brand_id, vehicle_compatibility, is_active
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		p.ID, p.StoreID, p.Name, p.Description, p.SKU, p.Price, p.Stock, p.CategoryID,
		p.SubcategoryID, p.BrandID, p.VehicleCompatibility, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create product: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create product: %w", err)
	}

	return nil
}

// GetByID returns the product whether or not it is trashed.
func (r *repository) GetByID(ctx context.Context, id string) (*Product, error) {
	query := `SELECT ` + productColumns + ` FROM products p WHERE p.id = $1`

	var p Product
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, core.MapNoRows(err, "get product")
	}

	return &p, nil
}

func (r *repository) GetVisible(ctx context.Context, id string) (*Listing, error) {
	query := `SELECT ` + productColumns + `, s.name AS store_name
		FROM products p
		JOIN stores s ON s.id = p.store_id
		WHERE p.id = $1 AND ` + visibleWhere

	var l Listing
	if err := r.db.GetContext(ctx, &l, query, id); err != nil {
		return nil, core.MapNoRows(err, "get product")
	}

	return &l, nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Listing, int, error) {
	params.Normalize()

	conditions := []string{visibleWhere}
	var args []any

	add := func(cond string, val any) {
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}

	if params.StoreID != "" {
		add("p.store_id = $%d", params.StoreID)
	}
	if params.CategoryID != "" {
		add("p.category_id = $%d", params.CategoryID)
	}
	if params.SubcategoryID != "" {
		add("p.subcategory_id = $%d", params.SubcategoryID)
	}
	if params.BrandID != "" {
		add("p.brand_id = $%d", params.BrandID)
	}
	if params.MinPrice != nil {
		add("p.price >= $%d", *params.MinPrice)
	}
	if params.MaxPrice != nil {
		add("p.price <= $%d", *params.MaxPrice)
	}
	if params.InStock {
		conditions = append(conditions, "p.stock > 0")
	}
	if params.Search != "" {
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.sku ILIKE $%d OR p.description ILIKE $%d OR p.vehicle_compatibility ILIKE $%d)",
			n, n, n, n))
	}

	where := strings.Join(conditions, " AND ")
	from := ` FROM products p JOIN stores s ON s.id = p.store_id WHERE `

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+from+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	order, ok := sortOrders[params.Sort]
	if !ok {
		order = sortOrders[SortNewest]
	}

	query := fmt.Sprintf(`SELECT %s, s.name AS store_name%s%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		productColumns, from, where, order, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	listings := []Listing{}
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return listings, total, nil
}

func (r *repository) ListByStore(
	ctx context.Context,
	storeID string,
	params StoreListParams,
) ([]Product, int, error) {
	params.Normalize()

	conditions := []string{"p.store_id = $1", "p.deleted = $2"}
	args := []any{storeID, params.Deleted}

	if params.Search != "" {
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.sku ILIKE $%d)", len(args), len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM products p WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count store products: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM products p WHERE %s
		ORDER BY p.updated_at DESC, p.id ASC LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	products := []Product{}
	if err := r.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list store products: %w", err)
	}

	return products, total, nil
}

func (r *repository) Update(ctx context.Context, p *Product) error {
	query := `
		UPDATE products
		SET name = $2, description = $3, sku = $4, price = $5, category_id = $6,
		    subcategory_id = $7, brand_id = $8, vehicle_compatibility = $9,
		    is_active = $10, updated_at = NOW()
		WHERE id = $1 AND deleted = FALSE
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &p.UpdatedAt, query,
		p.ID, p.Name, p.Description, p.SKU, p.Price, p.CategoryID,
		p.SubcategoryID, p.BrandID, p.VehicleCompatibility, p.IsActive,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("update product: %w", core.ErrDuplicateKey)
		}
		return core.MapNoRows(err, "update product")
	}

	return nil
}

// AdjustStock moves stock by delta and returns the new level. It fails
// with ErrInsufficientStock rather than going below zero.
func (r *repository) AdjustStock(ctx context.Context, id string, delta int) (int, error) {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND deleted = FALSE AND stock + $2 >= 0
		RETURNING stock`

	var stock int
	err := r.db.GetContext(ctx, &stock, query, id, delta)
	if err == nil {
		return stock, nil
	}

	if mapped := core.MapNoRows(err, "adjust stock"); errors.Is(mapped, core.ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return 0, getErr
		}
		return 0, fmt.Errorf("adjust stock: %w", ErrInsufficientStock)
	}

	return 0, fmt.Errorf("adjust stock: %w", err)
}

func (r *repository) SetStock(ctx context.Context, id string, stock int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1 AND deleted = FALSE`,
		id, stock)
	if err != nil {
		return fmt.Errorf("set stock: %w", err)
	}

	return core.ExpectAffected(result, "set stock")
}

func (r *repository) SetImage(ctx context.Context, id, url string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE products SET image_url = $2, updated_at = NOW() WHERE id = $1 AND deleted = FALSE`,
		id, url)
	if err != nil {
		return fmt.Errorf("set product image: %w", err)
	}

	return core.ExpectAffected(result, "set product image")
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE products
		SET deleted = TRUE, deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted = FALSE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	return core.ExpectAffected(result, "delete product")
}

// Restore fails with ErrDuplicateKey when another live product of the
// store took the SKU meanwhile.
func (r *repository) Restore(ctx context.Context, id string) error {
	query := `
		UPDATE products
		SET deleted = FALSE, deleted_at = NULL, updated_at = NOW()
		WHERE id = $1 AND deleted = TRUE`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("restore product: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("restore product: %w", err)
	}

	return core.ExpectAffected(result, "restore product")
}
