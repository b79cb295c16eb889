// AngelaMos | 2026
// repository.go

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/repuestospro/backend/internal/core"
)

type Repository interface {
	Create(ctx context.Context, s *Store) error
	GetByID(ctx context.Context, id string) (*Store, error)
	List(ctx context.Context, params ListParams) ([]Listing, int, error)
	ListForUser(ctx context.Context, userID string) ([]Store, error)
	Update(ctx context.Context, s *Store) error
	SetLogo(ctx context.Context, id, url string) error
	SoftDelete(ctx context.Context, id string) error
	IsStaff(ctx context.Context, storeID, userID string) (bool, error)
	StaffIDs(ctx context.Context, storeID string) ([]string, error)
	AddManager(ctx context.Context, storeID, userID string) error
	RemoveManager(ctx context.Context, storeID, userID string) error
	ListManagers(ctx context.Context, storeID string) ([]Manager, error)
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

const storeColumns = `s.id, s.name, s.description, s.owner_id, s.address, s.city, s.state,
		s.phone, s.email, s.latitude, s.longitude, s.logo_url, s.is_active,
		s.created_at, s.updated_at, s.deleted_at`

// distanceExpr is the haversine great-circle distance in km between the
// store and the point ($1, $2).
const distanceExpr = `6371 * 2 * ASIN(SQRT(
		POWER(SIN(RADIANS(s.latitude - $1) / 2), 2) +
		COS(RADIANS($1)) * COS(RADIANS(s.latitude)) *
		POWER(SIN(RADIANS(s.longitude - $2) / 2), 2)))`

func (r *repository) Create(ctx context.Context, s *Store) error {
	query := `
		INSERT INTO stores (
			id, name, description, owner_id, address, city, state,
			phone, email, latitude, longitude
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING is_active, logo_url, created_at, updated_at`

	err := r.db.GetContext(ctx, s, query,
		s.ID, s.Name, s.Description, s.OwnerID, s.Address, s.City, s.State,
		s.Phone, s.Email, s.Latitude, s.Longitude,
	)
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}

	return nil
}

func (r *repository) GetByID(ctx context.Context, id string) (*Store, error) {
	query := `SELECT ` + storeColumns + `
		FROM stores s
		WHERE s.id = $1 AND s.deleted_at IS NULL`

	var s Store
	if err := r.db.GetContext(ctx, &s, query, id); err != nil {
		return nil, core.MapNoRows(err, "get store")
	}

	return &s, nil
}

func (r *repository) List(
	ctx context.Context,
	params ListParams,
) ([]Listing, int, error) {
	params.Normalize()

	conditions := []string{"s.deleted_at IS NULL", "s.is_active = TRUE"}
	var args []any
	distance := "NULL::double precision"

	if params.Nearby() {
		args = append(args, *params.Lat, *params.Lng)
		distance = distanceExpr
		conditions = append(conditions,
			"s.latitude IS NOT NULL",
			"s.longitude IS NOT NULL",
			fmt.Sprintf("%s <= $3", distanceExpr),
		)
		args = append(args, params.RadiusKm)
	}

	if params.Search != "" {
		args = append(args, "%"+core.EscapeLike(params.Search)+"%")
		conditions = append(conditions, fmt.Sprintf(
			"(s.name ILIKE $%d OR s.description ILIKE $%d)", len(args), len(args)))
	}

	if params.City != "" {
		args = append(args, params.City)
		conditions = append(conditions, fmt.Sprintf("LOWER(s.city) = LOWER($%d)", len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM stores s WHERE "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count stores: %w", err)
	}

	order := "s.name ASC"
	if params.Nearby() {
		order = "distance_km ASC, s.name ASC"
	}

	query := fmt.Sprintf(`
		SELECT %s, %s AS distance_km
		FROM stores s
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		storeColumns, distance, where, order, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, params.Offset())

	listings := []Listing{}
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list stores: %w", err)
	}

	return listings, total, nil
}

func (r *repository) ListForUser(ctx context.Context, userID string) ([]Store, error) {
	query := `SELECT ` + storeColumns + `
		FROM stores s
		WHERE s.deleted_at IS NULL
		  AND (s.owner_id = $1 OR EXISTS (
				SELECT 1 FROM store_managers m
				WHERE m.store_id = s.id AND m.user_id = $1))
		ORDER BY s.name ASC`

	stores := []Store{}
	if err := r.db.SelectContext(ctx, &stores, query, userID); err != nil {
		return nil, fmt.Errorf("list user stores: %w", err)
	}

	return stores, nil
}

func (r *repository) Update(ctx context.Context, s *Store) error {
	query := `
		UPDATE stores
		SET name = $2, description = $3, address = $4, city = $5, state = $6,
		    phone = $7, email = $8, latitude = $9, longitude = $10,
		    is_active = $11, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &s.UpdatedAt, query,
		s.ID, s.Name, s.Description, s.Address, s.City, s.State,
		s.Phone, s.Email, s.Latitude, s.Longitude, s.IsActive,
	)
	if err != nil {
		return core.MapNoRows(err, "update store")
	}

	return nil
}

func (r *repository) SetLogo(ctx context.Context, id, url string) error {
	query := `UPDATE stores SET logo_url = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id, url)
	if err != nil {
		return fmt.Errorf("set store logo: %w", err)
	}

	return core.ExpectAffected(result, "set store logo")
}

func (r *repository) SoftDelete(ctx context.Context, id string) error {
	query := `
		UPDATE stores
		SET deleted_at = NOW(), is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete store: %w", err)
	}

	return core.ExpectAffected(result, "delete store")
}

func (r *repository) IsStaff(ctx context.Context, storeID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM stores WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL
			UNION ALL
			SELECT 1 FROM store_managers WHERE store_id = $1 AND user_id = $2
		)`

	var ok bool
	if err := r.db.GetContext(ctx, &ok, query, storeID, userID); err != nil {
		return false, fmt.Errorf("check store staff: %w", err)
	}

	return ok, nil
}

// StaffIDs returns the owner followed by every manager.
func (r *repository) StaffIDs(ctx context.Context, storeID string) ([]string, error) {
	query := `
		SELECT owner_id FROM stores WHERE id = $1
		UNION
		SELECT user_id FROM store_managers WHERE store_id = $1`

	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, storeID); err != nil {
		return nil, fmt.Errorf("list store staff: %w", err)
	}

	return ids, nil
}

func (r *repository) AddManager(ctx context.Context, storeID, userID string) error {
	query := `INSERT INTO store_managers (store_id, user_id) VALUES ($1, $2)`

	if _, err := r.db.ExecContext(ctx, query, storeID, userID); err != nil {
		if core.IsDuplicateKeyError(err) {
			return fmt.Errorf("add store manager: %w", core.ErrDuplicateKey)
		}
		if core.IsForeignKeyError(err) {
			return fmt.Errorf("add store manager: %w", core.ErrNotFound)
		}
		return fmt.Errorf("add store manager: %w", err)
	}

	return nil
}

func (r *repository) RemoveManager(ctx context.Context, storeID, userID string) error {
	query := `DELETE FROM store_managers WHERE store_id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, storeID, userID)
	if err != nil {
		return fmt.Errorf("remove store manager: %w", err)
	}

	return core.ExpectAffected(result, "remove store manager")
}

func (r *repository) ListManagers(ctx context.Context, storeID string) ([]Manager, error) {
	query := `
		SELECT u.id AS user_id, u.name, u.email, TRUE AS is_owner, s.created_at
		FROM stores s
		JOIN users u ON u.id = s.owner_id
		WHERE s.id = $1
		UNION ALL
		SELECT u.id AS user_id, u.name, u.email, FALSE AS is_owner, m.created_at
		FROM store_managers m
		JOIN users u ON u.id = m.user_id
		WHERE m.store_id = $1 AND u.deleted_at IS NULL
		ORDER BY is_owner DESC, created_at ASC`

	managers := []Manager{}
	if err := r.db.SelectContext(ctx, &managers, query, storeID); err != nil {
		return nil, fmt.Errorf("list store managers: %w", err)
	}

	return managers, nil
}
