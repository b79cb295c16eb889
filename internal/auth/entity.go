// AngelaMos | 2026
// entity.go

package auth

import (
	"time"

	"github.com/repuestospro/backend/internal/core"
)

type RefreshToken struct {
	ID           string     `db:"id"`
	UserID       string     `db:"user_id"`
	TokenHash    string     `db:"token_hash"`
	FamilyID     string     `db:"family_id"`
	ExpiresAt    time.Time  `db:"expires_at"`
	CreatedAt    time.Time  `db:"created_at"`
	IsUsed       bool       `db:"is_used"`
	UsedAt       *time.Time `db:"used_at"`
	RevokedAt    *time.Time `db:"revoked_at"`
	ReplacedByID *string    `db:"replaced_by_id"`
	UserAgent    string     `db:"user_agent"`
	IPAddress    string     `db:"ip_address"`
}

// Check reports why a presented refresh token cannot be rotated. A token
// that was already used signals theft and is reported as ErrTokenReuse.
func (t *RefreshToken) Check(now time.Time) error {
	switch {
	case t.IsUsed:
		return ErrTokenReuse
	case t.RevokedAt != nil:
		return core.ErrTokenRevoked
	case now.After(t.ExpiresAt):
		return core.ErrTokenExpired
	default:
		return nil
	}
}

type BackupCode struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	CodeHash  string     `db:"code_hash"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

// TwoFactorChallenge is the pending second step of a login, keyed by the
// temp token handed to the client.
type TwoFactorChallenge struct {
	UserID   string
	Attempts int
}
