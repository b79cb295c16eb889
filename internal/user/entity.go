// AngelaMos | 2026
// entity.go

package user

import (
	"time"

	"github.com/repuestospro/backend/internal/middleware"
)

type User struct {
	ID               string     `db:"id"`
	Email            string     `db:"email"`
	PasswordHash     string     `db:"password_hash"`
	Name             string     `db:"name"`
	Phone            string     `db:"phone"`
	Role             string     `db:"role"`
	LoyaltyPoints    int        `db:"loyalty_points"`
	TokenVersion     int        `db:"token_version"`
	TwoFactorEnabled bool       `db:"two_factor_enabled"`
	TwoFactorSecret  *string    `db:"two_factor_secret"`
	CreatedAt        time.Time  `db:"created_at"`
	UpdatedAt        time.Time  `db:"updated_at"`
	DeletedAt        *time.Time `db:"deleted_at"`
}

func (u *User) IsDeleted() bool {
	return u.DeletedAt != nil
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

const (
	RoleClient       = middleware.RoleClient
	RoleStoreManager = middleware.RoleStoreManager
	RoleAdmin        = middleware.RoleAdmin
	RoleDelivery     = middleware.RoleDelivery
)

func IsValidRole(role string) bool {
	switch role {
	case RoleClient, RoleStoreManager, RoleAdmin, RoleDelivery:
		return true
	}
	return false
}

// LoyaltyTransaction is one entry of the points ledger.
type LoyaltyTransaction struct {
	ID        string    `db:"id"         json:"id"`
	UserID    string    `db:"user_id"    json:"-"`
	Delta     int       `db:"delta"      json:"delta"`
	Reason    string    `db:"reason"     json:"reason"`
	OrderID   *string   `db:"order_id"   json:"order_id,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const (
	PointsReasonAdjustment = "admin_adjustment"
)
