// AngelaMos | 2026
// dto.go

package store

import (
	"time"

	"github.com/repuestospro/backend/internal/core"
)

type CreateStoreRequest struct {
	Name        string   `json:"name"                  validate:"required,min=2,max=150"`
	Description string   `json:"description,omitempty" validate:"max=2000"`
	Address     string   `json:"address"               validate:"required,max=255"`
	City        string   `json:"city"                  validate:"required,max=100"`
	State       string   `json:"state,omitempty"       validate:"max=100"`
	Phone       string   `json:"phone,omitempty"       validate:"max=32"`
	Email       string   `json:"email,omitempty"       validate:"omitempty,email,max=255"`
	Latitude    *float64 `json:"latitude,omitempty"    validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty"   validate:"omitempty,longitude"`
}

type UpdateStoreRequest struct {
	Name        *string  `json:"name,omitempty"        validate:"omitempty,min=2,max=150"`
	Description *string  `json:"description,omitempty" validate:"omitempty,max=2000"`
	Address     *string  `json:"address,omitempty"     validate:"omitempty,max=255"`
	City        *string  `json:"city,omitempty"        validate:"omitempty,max=100"`
	State       *string  `json:"state,omitempty"       validate:"omitempty,max=100"`
	Phone       *string  `json:"phone,omitempty"       validate:"omitempty,max=32"`
	Email       *string  `json:"email,omitempty"       validate:"omitempty,email,max=255"`
	Latitude    *float64 `json:"latitude,omitempty"    validate:"omitempty,latitude"`
	Longitude   *float64 `json:"longitude,omitempty"   validate:"omitempty,longitude"`
	IsActive    *bool    `json:"is_active,omitempty"`
}

type AddManagerRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
}

type StoreResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"owner_id"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	State       string    `json:"state"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email"`
	Latitude    *float64  `json:"latitude,omitempty"`
	Longitude   *float64  `json:"longitude,omitempty"`
	LogoURL     string    `json:"logo_url"`
	IsActive    bool      `json:"is_active"`
	DistanceKm  *float64  `json:"distance_km,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ManagerResponse struct {
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	IsOwner   bool      `json:"is_owner"`
	CreatedAt time.Time `json:"created_at"`
}

// ListParams filters the public directory. Lat, Lng and RadiusKm must be
// given together to search nearby stores.
type ListParams struct {
	core.PageParams
	Search   string
	City     string
	Lat      *float64
	Lng      *float64
	RadiusKm float64
}

func (p ListParams) Nearby() bool {
	return p.Lat != nil && p.Lng != nil
}

func ToStoreResponse(s *Store) StoreResponse {
	return StoreResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		OwnerID:     s.OwnerID,
		Address:     s.Address,
		City:        s.City,
		State:       s.State,
		Phone:       s.Phone,
		Email:       s.Email,
		Latitude:    s.Latitude,
		Longitude:   s.Longitude,
		LogoURL:     s.LogoURL,
		IsActive:    s.IsActive,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func ToListingResponses(listings []Listing) []StoreResponse {
	out := make([]StoreResponse, 0, len(listings))
	for i := range listings {
		resp := ToStoreResponse(&listings[i].Store)
		resp.DistanceKm = listings[i].DistanceKm
		out = append(out, resp)
	}
	return out
}

func ToStoreResponses(stores []Store) []StoreResponse {
	out := make([]StoreResponse, 0, len(stores))
	for i := range stores {
		out = append(out, ToStoreResponse(&stores[i]))
	}
	return out
}

func ToManagerResponses(managers []Manager) []ManagerResponse {
	out := make([]ManagerResponse, 0, len(managers))
	for _, m := range managers {
		out = append(out, ManagerResponse(m))
	}
	return out
}
