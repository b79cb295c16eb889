// AngelaMos | 2026
// repository.go

package promotion

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/repuestospro/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, p *Promotion) error
	GetByID(ctx context.Context, id string) (*Promotion, error)
	ListByStore(ctx context.Context, storeID string) ([]Promotion, error)
	RunningForStores(ctx context.Context, storeIDs []string, now time.Time) ([]Promotion, error)
	Update(ctx context.Context, p *Promotion) error
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
	CountStoreProducts(ctx context.Context, storeID string, productIDs []string) (int, error)
	CountCategories(ctx context.Context, categoryIDs []string) (int, error)
}

type repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

const promotionColumns = `id, store_id, name, description, type, value, scope,
		starts_at, ends_at, is_active, created_by, created_at, updated_at`

func (r *repository) Create(ctx context.Context, p *Promotion) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO promotions (
				id, store_id, name, description, type, value, scope,
				starts_at, ends_at, is_active, created_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING created_at, updated_at`

		err := tx.QueryRowxContext(ctx, query,
			p.ID, p.StoreID, p.Name, p.Description, p.Type, p.Value, p.Scope,
			p.StartsAt, p.EndsAt, p.IsActive, p.CreatedBy,
		).Scan(&p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("create promotion: %w", err)
		}

		return insertLinks(ctx, tx, p)
	})
}

func (r *repository) GetByID(ctx context.Context, id string) (*Promotion, error) {
	query := `SELECT ` + promotionColumns + ` FROM promotions WHERE id = $1`

	var p Promotion
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		return nil, core.MapNoRows(err, "get promotion")
	}

	promotions := []Promotion{p}
	if err := r.loadLinks(ctx, promotions); err != nil {
		return nil, err
	}

	return &promotions[0], nil
}

func (r *repository) ListByStore(ctx context.Context, storeID string) ([]Promotion, error) {
	query := `SELECT ` + promotionColumns + `
		FROM promotions
		WHERE store_id = $1
		ORDER BY starts_at DESC, created_at DESC`

	promotions := []Promotion{}
	if err := r.db.SelectContext(ctx, &promotions, query, storeID); err != nil {
		return nil, fmt.Errorf("list promotions: %w", err)
	}

	if err := r.loadLinks(ctx, promotions); err != nil {
		return nil, err
	}

	return promotions, nil
}

// RunningForStores returns enabled promotions of the stores whose window
// contains now, oldest first.
func (r *repository) RunningForStores(
	ctx context.Context,
	storeIDs []string,
	now time.Time,
) ([]Promotion, error) {
	promotions := []Promotion{}
	if len(storeIDs) == 0 {
		return promotions, nil
	}

	query, args, err := sqlx.In(`SELECT `+promotionColumns+`
		FROM promotions
		WHERE store_id IN (?) AND is_active = TRUE AND starts_at <= ? AND ends_at > ?
		ORDER BY created_at ASC`, storeIDs, now, now)
	if err != nil {
		return nil, fmt.Errorf("build running promotions query: %w", err)
	}

	if err := r.db.SelectContext(ctx, &promotions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list running promotions: %w", err)
	}

	if err := r.loadLinks(ctx, promotions); err != nil {
		return nil, err
	}

	return promotions, nil
}

func (r *repository) Update(ctx context.Context, p *Promotion) error {
	return core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		query := `
			UPDATE promotions
			SET name = $2, description = $3, type = $4, value = $5, scope = $6,
			    starts_at = $7, ends_at = $8, is_active = $9, updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at`

		err := tx.GetContext(ctx, &p.UpdatedAt, query,
			p.ID, p.Name, p.Description, p.Type, p.Value, p.Scope,
			p.StartsAt, p.EndsAt, p.IsActive,
		)
		if err != nil {
			return core.MapNoRows(err, "update promotion")
		}

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM promotion_products WHERE promotion_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear promotion products: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM promotion_categories WHERE promotion_id = $1`, p.ID); err != nil {
			return fmt.Errorf("clear promotion categories: %w", err)
		}

		return insertLinks(ctx, tx, p)
	})
}

func (r *repository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE promotions SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("set promotion active: %w", err)
	}

	return core.ExpectAffected(result, "set promotion active")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM promotions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete promotion: %w", err)
	}

	return core.ExpectAffected(result, "delete promotion")
}

func (r *repository) CountStoreProducts(
	ctx context.Context,
	storeID string,
	productIDs []string,
) (int, error) {
	if len(productIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
		SELECT COUNT(*) FROM products
		WHERE store_id = ? AND deleted = FALSE AND id IN (?)`, storeID, productIDs)
	if err != nil {
		return 0, fmt.Errorf("build store products query: %w", err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count store products: %w", err)
	}

	return n, nil
}

func (r *repository) CountCategories(ctx context.Context, categoryIDs []string) (int, error) {
	if len(categoryIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`SELECT COUNT(*) FROM categories WHERE id IN (?)`, categoryIDs)
	if err != nil {
		return 0, fmt.Errorf("build categories query: %w", err)
	}

	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("count categories: %w", err)
	}

	return n, nil
}

func insertLinks(ctx context.Context, tx *sqlx.Tx, p *Promotion) error {
	for _, id := range p.ProductIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO promotion_products (promotion_id, product_id) VALUES ($1, $2)`,
			p.ID, id); err != nil {
			return fmt.Errorf("link promotion product: %w", err)
		}
	}

	for _, id := range p.CategoryIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO promotion_categories (promotion_id, category_id) VALUES ($1, $2)`,
			p.ID, id); err != nil {
			return fmt.Errorf("link promotion category: %w", err)
		}
	}

	return nil
}

type link struct {
	PromotionID string `db:"promotion_id"`
	TargetID    string `db:"target_id"`
}

// loadLinks fills ProductIDs and CategoryIDs of the given promotions in
// two queries.
func (r *repository) loadLinks(ctx context.Context, promotions []Promotion) error {
	if len(promotions) == 0 {
		return nil
	}

	ids := make([]string, 0, len(promotions))
	index := make(map[string]int, len(promotions))
	for i := range promotions {
		ids = append(ids, promotions[i].ID)
		index[promotions[i].ID] = i
	}

	products, err := r.selectLinks(ctx,
		`SELECT promotion_id, product_id AS target_id FROM promotion_products WHERE promotion_id IN (?)`,
		ids)
	if err != nil {
		return fmt.Errorf("load promotion products: %w", err)
	}
	for _, l := range products {
		p := &promotions[index[l.PromotionID]]
		p.ProductIDs = append(p.ProductIDs, l.TargetID)
	}

	categories, err := r.selectLinks(ctx,
		`SELECT promotion_id, category_id AS target_id FROM promotion_categories WHERE promotion_id IN (?)`,
		ids)
	if err != nil {
		return fmt.Errorf("load promotion categories: %w", err)
	}
	for _, l := range categories {
		p := &promotions[index[l.PromotionID]]
		p.CategoryIDs = append(p.CategoryIDs, l.TargetID)
	}

	return nil
}

func (r *repository) selectLinks(ctx context.Context, query string, ids []string) ([]link, error) {
	q, args, err := sqlx.In(query, ids)
	if err != nil {
		return nil, err
	}

	links := []link{}
	if err := r.db.SelectContext(ctx, &links, r.db.Rebind(q), args...); err != nil {
		return nil, err
	}

	return links, nil
}
