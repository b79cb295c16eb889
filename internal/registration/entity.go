// AngelaMos | 2026
// entity.go

package registration

import (
	"time"
)

const (
	StatusPending = "pending"
	StatusUsed    = "used"
	StatusRevoked = "revoked"
	StatusExpired = "expired"
)

const (
	codeLength          = 12
	defaultExpiresHours = 72
	maxExpiresHours     = 720
)

// Code is an invite that lets its holder register with an elevated role.
// Email is empty when the code is not bound to an address.
type Code struct {
	ID        string     `db:"id"`
	Code      string     `db:"code"`
	Role      string     `db:"role"`
	Email     string     `db:"email"`
	Status    string     `db:"status"`
	ExpiresAt time.Time  `db:"expires_at"`
	CreatedBy *string    `db:"created_by"`
	UsedBy    *string    `db:"used_by"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (c *Code) IsUsable(now time.Time) bool {
	return c.Status == StatusPending && now.Before(c.ExpiresAt)
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusUsed, StatusRevoked, StatusExpired:
		return true
	}
	return false
}
