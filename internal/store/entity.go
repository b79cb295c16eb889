// AngelaMos | 2026
// entity.go

package store

import (
	"time"
)

type Store struct {
	ID          string     `db:"id"`
	Name        string     `db:"name"`
	Description string     `db:"description"`
	OwnerID     string     `db:"owner_id"`
	Address     string     `db:"address"`
	City        string     `db:"city"`
	State       string     `db:"state"`
	Phone       string     `db:"phone"`
	Email       string     `db:"email"`
	Latitude    *float64   `db:"latitude"`
	Longitude   *float64   `db:"longitude"`
	LogoURL     string     `db:"logo_url"`
	IsActive    bool       `db:"is_active"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	DeletedAt   *time.Time `db:"deleted_at"`
}

// Listing is a store row from a search, with the distance to the search
// point when one was given.
type Listing struct {
	Store
	DistanceKm *float64 `db:"distance_km"`
}

type Manager struct {
	UserID    string    `db:"user_id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	IsOwner   bool      `db:"is_owner"`
	CreatedAt time.Time `db:"created_at"`
}
