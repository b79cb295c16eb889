// AngelaMos | 2026
// repository.go

package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/repuestospro/backend/internal/core"
)

var ErrInsufficientPoints = errors.New("insufficient loyalty points")

// Repository reads and writes orders. Methods called inside InTx share
// one transaction.
type Repository interface {
	InTx(ctx context.Context, fn func(tx Repository) error) error

	LockProducts(ctx context.Context, ids []string) ([]StockRow, error)
	AdjustStock(ctx context.Context, productID string, delta int) error
	AdjustPoints(ctx context.Context, userID string, delta int, reason, orderID string) error
	Insert(ctx context.Context, o *Order) error
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	SaveStatus(ctx context.Context, o *Order) error

	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, params ListParams) ([]Order, int, error)
}

type repository struct {
	db   core.DBTX
	conn *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db, conn: db}
}

func (r *repository) InTx(ctx context.Context, fn func(tx Repository) error) error {
	if r.conn == nil {
		return fn(r)
	}
	return core.InTx(ctx, r.conn, func(tx *sqlx.Tx) error {
		return fn(&repository{db: tx})
	})
}

const orderColumns = `id, user_id, store_id, status, subtotal, discount, points_redeemed,
		points_discount, delivery_fee, total, points_earned, delivery_address,
		delivery_latitude, delivery_longitude, notes, delivery_user_id, cancel_reason,
		created_at, updated_at`

// LockProducts locks the rows in id order so concurrent orders touching
// the same products cannot deadlock.
func (r *repository) LockProducts(ctx context.Context, ids []string) ([]StockRow, error) {
	rows := []StockRow{}
	if len(ids) == 0 {
		return rows, nil
	}

	query, args, err := sqlx.In(`
		SELECT id, store_id, name, sku, price, stock, category_id, is_active, deleted
		FROM products
		WHERE id IN (?)
		ORDER BY id
		FOR UPDATE`, ids)
	if err != nil {
		return nil, fmt.Errorf("build lock products query: %w", err)
	}

	if err := r.db.SelectContext(ctx, &rows, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		return nil, fmt.Errorf("lock products: %w", err)
	}

	return rows, nil
}

func (r *repository) AdjustStock(ctx context.Context, productID string, delta int) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0`, productID, delta)
	if err != nil {
		return fmt.Errorf("adjust stock: %w", err)
	}

	return core.ExpectAffected(result, "adjust stock")
}

// AdjustPoints moves a user's balance and writes the ledger entry. It
// fails with ErrInsufficientPoints instead of going negative.
func (r *repository) AdjustPoints(
	ctx context.Context,
	userID string,
	delta int,
	reason, orderID string,
) error {
	query := `
		WITH updated AS (
			UPDATE users
			SET loyalty_points = loyalty_points + $2, updated_at = NOW()
			WHERE id = $1 AND loyalty_points + $2 >= 0
			RETURNING id
		)
		INSERT INTO loyalty_transactions (user_id, delta, reason, order_id)
		SELECT id, $2, $3, $4 FROM updated`

	result, err := r.db.ExecContext(ctx, query, userID, delta, reason, orderID)
	if err != nil {
		return fmt.Errorf("adjust points: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("adjust points: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("adjust points: %w", ErrInsufficientPoints)
	}

	return nil
}

func (r *repository) Insert(ctx context.Context, o *Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, store_id, status, subtotal, discount, points_redeemed,
			points_discount, delivery_fee, total, delivery_address,
			delivery_latitude, delivery_longitude, notes
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query,
		o.ID, o.UserID, o.StoreID, o.Status, o.Subtotal, o.Discount, o.PointsRedeemed,
		o.PointsDiscount, o.DeliveryFee, o.Total, o.DeliveryAddress,
		o.DeliveryLatitude, o.DeliveryLongitude, o.Notes,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = o.ID
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO order_items (
				id, order_id, product_id, name, sku, quantity,
				unit_price, unit_discount, line_total
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			it.ID, it.OrderID, it.ProductID, it.Name, it.SKU, it.Quantity,
			it.UnitPrice, it.UnitDiscount, it.LineTotal,
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return nil
}

func (r *repository) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (r *repository) GetByID(ctx context.Context, id string) (*Order, error) {
	return r.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (r *repository) get(ctx context.Context, query, id string) (*Order, error) {
	var o Order
	if err := r.db.GetContext(ctx, &o, query, id); err != nil {
		return nil, core.MapNoRows(err, "get order")
	}

	orders := []Order{o}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	return &orders[0], nil
}

func (r *repository) SaveStatus(ctx context.Context, o *Order) error {
	query := `
		UPDATE orders
		SET status = $2, points_earned = $3, delivery_user_id = $4,
		    cancel_reason = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &o.UpdatedAt, query,
		o.ID, o.Status, o.PointsEarned, o.DeliveryUserID, o.CancelReason)
	if err != nil {
		return core.MapNoRows(err, "save order status")
	}

	return nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Order, int, error) {
	params.Normalize()

	conditions := []string{"TRUE"}
	var args []any

	add := func(column, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("user_id", params.UserID)
	add("store_id", params.StoreID)
	add("delivery_user_id", params.DeliveryUserID)
	add("status", params.Status)

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM orders WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s
		ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d`,
		orderColumns, where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	orders := []Order{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

func (r *repository) loadItems(ctx context.Context, orders []Order) error {
	if len(orders) == 0 {
		return nil
	}

	ids := make([]string, 0, len(orders))
	index := make(map[string]int, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
		index[orders[i].ID] = i
		orders[i].Items = []Item{}
	}

	query, args, err := sqlx.In(`
		SELECT id, order_id, product_id, name, sku, quantity, unit_price, unit_discount, line_total
		FROM order_items
		WHERE order_id IN (?)
		ORDER BY name ASC, id ASC`, ids)
	if err != nil {
		return fmt.Errorf("build order items query: %w", err)
	}

	items := []Item{}
	if err := r.db.SelectContext(ctx, &items, sqlx.Rebind(sqlx.DOLLAR, query), args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return fmt.Errorf("load order items: %w", err)
	}

	for _, it := range items {
		o := &orders[index[it.OrderID]]
		o.Items = append(o.Items, it)
	}

	return nil
}
