// AngelaMos | 2026
// repository.go

package registration

import (
	"context"
	"fmt"

	"github.com/repuestospro/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, code *Code) error
	GetByID(ctx context.Context, id string) (*Code, error)
	GetByCode(ctx context.Context, code string) (*Code, error)
	List(ctx context.Context, params ListParams) ([]Code, int, error)
	Consume(ctx context.Context, code, email string) (*Code, error)
	AttachUser(ctx context.Context, id, userID string) error
	Release(ctx context.Context, id string) error
	Revoke(ctx context.Context, id string) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// Pending codes past their expiry are reported as expired without
// rewriting the row.
const codeColumns = `id, code, role, email,
		CASE WHEN status = 'pending' AND expires_at <= NOW() THEN 'expired' ELSE status END AS status,
		expires_at, created_by, used_by, used_at, created_at`

const effectiveStatus = `CASE WHEN status = 'pending' AND expires_at <= NOW() THEN 'expired' ELSE status END`

func (r *repository) Create(ctx context.Context, code *Code) error {
	query := `
		INSERT INTO registration_codes (id, code, role, email, expires_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING status, created_at`

	err := r.db.GetContext(ctx, code, query,
		code.ID,
		code.Code,
		code.Role,
		code.Email,
		code.ExpiresAt,
		code.CreatedBy,
	)
	if err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("create registration code: %w", core.ErrDuplicateKey)
		}
		return fmt.Errorf("create registration code: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Code, error) {
	query := `SELECT ` + codeColumns + ` FROM registration_codes WHERE id = $1`

	var c Code
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, core.MapNoRows(err, "get registration code")
	}

	return &c, nil
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Code, error) {
	query := `SELECT ` + codeColumns + ` FROM registration_codes WHERE code = $1`

	var c Code
	if err := r.db.GetContext(ctx, &c, query, code); err != nil {
		return nil, core.MapNoRows(err, "get registration code")
	}

	return &c, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Code, int, error) {
	params.Normalize()

	where := "TRUE"
	var args []any
	if params.Status != "" {
		where = effectiveStatus + " = $1"
		args = append(args, params.Status)
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM registration_codes WHERE ` + where
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count registration codes: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT `+codeColumns+`
		FROM registration_codes
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	codes := []Code{}
	if err := r.db.SelectContext(ctx, &codes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list registration codes: %w", err)
	}

	return codes, total, nil
}

// Consume flips a usable code to used. Codes bound to an email only match
// that email. ErrNotFound means the code cannot be used.
func (r *repository) Consume(
	ctx context.Context,
	code, email string,
) (*Code, error) {
	query := `
		UPDATE registration_codes
		SET status = 'used', used_at = NOW()
		WHERE code = $1
		  AND status = 'pending'
		  AND expires_at > NOW()
		  AND (email = '' OR email = $2)
		RETURNING id, code, role, email, status, expires_at,
		          created_by, used_by, used_at, created_at`

	var c Code
	if err := r.db.GetContext(ctx, &c, query, code, email); err != nil {
		return nil, core.MapNoRows(err, "consume registration code")
	}

	return &c, nil
}

func (r *repository) AttachUser(ctx context.Context, id, userID string) error {
	query := `UPDATE registration_codes SET used_by = $2 WHERE id = $1 AND status = 'used'`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("attach registration code user: %w", err)
	}

	return core.ExpectAffected(result, "attach registration code user")
}

func (r *repository) Release(ctx context.Context, id string) error {
	query := `
		UPDATE registration_codes
		SET status = 'pending', used_at = NULL, used_by = NULL
		WHERE id = $1 AND status = 'used' AND used_by IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("release registration code: %w", err)
	}

	return core.ExpectAffected(result, "release registration code")
}

func (r *repository) Revoke(ctx context.Context, id string) error {
	query := `
		UPDATE registration_codes
		SET status = 'revoked'
		WHERE id = $1 AND status = 'pending' AND expires_at > NOW()`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("revoke registration code: %w", err)
	}

	return core.ExpectAffected(result, "revoke registration code")
}
