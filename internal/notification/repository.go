// AngelaMos | 2026
// repository.go

package notification

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/repuestospro/backend/internal/core"
)

type Repository interface {
	InsertMany(ctx context.Context, items []Notification) error
	List(ctx context.Context, params ListParams) ([]Notification, int, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// InsertMany writes the notifications with a single multi-row INSERT.
func (r *repository) InsertMany(ctx context.Context, items []Notification) error {
	if len(items) == 0 {
		return nil
	}

	query := `INSERT INTO notifications (id, user_id, kind, title, body, order_id)
		VALUES (:id, :user_id, :kind, :title, :body, :order_id)`

	if _, err := sqlx.NamedExecContext(ctx, r.db, query, items); err != nil {
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("insert notifications: %w", core.ErrNotFound)
		}
		return fmt.Errorf("insert notifications: %w", err)
	}

	return nil
}

func (r *repository) List(ctx context.Context, params ListParams) ([]Notification, int, error) {
	params.Normalize()

	where := `user_id = $1`
	if params.UnreadOnly {
		where += ` AND read_at IS NULL`
	}

	var total int
	if err := r.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM notifications WHERE `+where, params.UserID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := `SELECT id, user_id, kind, title, body, order_id, read_at, created_at
		FROM notifications WHERE ` + where + `
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	items := []Notification{}
	if err := r.db.SelectContext(ctx, &items, query,
		params.UserID, params.PageSize, params.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}

	return items, total, nil
}

// MarkRead is idempotent; a notification owned by someone else is not found.
func (r *repository) MarkRead(ctx context.Context, id, userID string) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}

	return core.ExpectAffected(result, "mark notification read")
}

func (r *repository) MarkAllRead(ctx context.Context, userID string) (int, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE notifications SET read_at = NOW()
		WHERE user_id = $1 AND read_at IS NULL`, userID)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}

	return int(n), nil
}
