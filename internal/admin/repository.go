// AngelaMos | 2026
// repository.go

package admin

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/repuestospro/backend/internal/core"
)

type Repository interface {
	Marketplace(ctx context.Context) (*MarketplaceStats, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

type groupCount struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

func (r *repository) Marketplace(ctx context.Context) (*MarketplaceStats, error) {
	stats := &MarketplaceStats{}

	var err error
	stats.UsersByRole, stats.TotalUsers, err = r.grouped(ctx, `
		SELECT role AS key, COUNT(*) AS count FROM users
		WHERE deleted_at IS NULL GROUP BY role`)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	if err := r.db.GetContext(ctx, &stats.Stores, `
		SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_active) AS active
		FROM stores WHERE deleted_at IS NULL`); err != nil {
		return nil, fmt.Errorf("count stores: %w", err)
	}

	if err := r.db.GetContext(ctx, &stats.Products, `
		SELECT
			COUNT(*) FILTER (WHERE NOT deleted AND is_active) AS listed,
			COUNT(*) FILTER (WHERE NOT deleted AND NOT is_active) AS inactive,
			COUNT(*) FILTER (WHERE deleted) AS deleted
		FROM products`); err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	stats.OrdersByStatus, stats.TotalOrders, err = r.grouped(ctx, `
		SELECT status AS key, COUNT(*) AS count FROM orders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count orders: %w", err)
	}

	var revenue decimal.NullDecimal
	if err := r.db.GetContext(ctx, &revenue,
		`SELECT SUM(total) FROM orders WHERE status = 'delivered'`); err != nil {
		return nil, fmt.Errorf("sum revenue: %w", err)
	}
	stats.DeliveredRevenue = revenue.Decimal

	if err := r.db.GetContext(ctx, &stats.PointsOutstanding, `
		SELECT COALESCE(SUM(loyalty_points), 0) FROM users
		WHERE deleted_at IS NULL`); err != nil {
		return nil, fmt.Errorf("sum points: %w", err)
	}

	return stats, nil
}

func (r *repository) grouped(ctx context.Context, query string) (map[string]int, int, error) {
	rows := []groupCount{}
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, 0, err
	}

	counts := make(map[string]int, len(rows))
	total := 0
	for _, row := range rows {
		counts[row.Key] = row.Count
		total += row.Count
	}
	return counts, total, nil
}
