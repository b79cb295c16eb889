// AngelaMos | 2026
// service.go

package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/media"
	"github.com/repuestospro/backend/internal/middleware"
)

const (
	defaultRadiusKm = 10
	maxRadiusKm     = 200
)

// UserRoles looks up the role of an active user.
type UserRoles interface {
	GetRole(ctx context.Context, userID string) (string, error)
}

type Service struct {
	repo   Repository
	users  UserRoles
	images *media.Uploader
}

func NewService(repo Repository, users UserRoles, images *media.Uploader) *Service {
	return &Service{repo: repo, users: users, images: images}
}

func (s *Service) Create(
	ctx context.Context,
	ownerID string,
	req CreateStoreRequest,
) (*Store, error) {
	if err := validateCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}

	store := &Store{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		OwnerID:     ownerID,
		Address:     req.Address,
		City:        strings.TrimSpace(req.City),
		State:       req.State,
		Phone:       req.Phone,
		Email:       strings.ToLower(req.Email),
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
	}

	if err := s.repo.Create(ctx, store); err != nil {
		return nil, err
	}

	return store, nil
}

// Get hides inactive stores from everyone but their staff and admins.
func (s *Service) Get(ctx context.Context, id, viewerID, viewerRole string) (*Store, error) {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !store.IsActive {
		if viewerID == "" {
			return nil, fmt.Errorf("get store: %w", core.ErrNotFound)
		}
		if err := s.CanManage(ctx, viewerID, viewerRole, id); err != nil {
			return nil, fmt.Errorf("get store: %w", core.ErrNotFound)
		}
	}

	return store, nil
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Listing, int, error) {
	if (params.Lat == nil) != (params.Lng == nil) {
		return nil, 0, core.ValidationError("lat and lng must be given together")
	}

	if params.Nearby() {
		if err := validateCoordinates(params.Lat, params.Lng); err != nil {
			return nil, 0, err
		}
		if params.RadiusKm <= 0 {
			params.RadiusKm = defaultRadiusKm
		}
		if params.RadiusKm > maxRadiusKm {
			params.RadiusKm = maxRadiusKm
		}
	}

	return s.repo.List(ctx, params)
}

func (s *Service) ListMine(ctx context.Context, userID string) ([]Store, error) {
	return s.repo.ListForUser(ctx, userID)
}

// CanManage reports nil when the user may administer the store: admins,
// the owner and its managers. A missing store yields ErrNotFound.
func (s *Service) CanManage(ctx context.Context, userID, role, storeID string) error {
	if role == middleware.RoleAdmin {
		_, err := s.repo.GetByID(ctx, storeID)
		return err
	}

	ok, err := s.repo.IsStaff(ctx, storeID, userID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if _, err := s.repo.GetByID(ctx, storeID); err != nil {
		return err
	}
	return fmt.Errorf("manage store: %w", core.ErrForbidden)
}

// ManagerIDs lists the owner and managers of a store.
func (s *Service) ManagerIDs(ctx context.Context, storeID string) ([]string, error) {
	return s.repo.StaffIDs(ctx, storeID)
}

// IsActive reports whether a store exists and accepts orders.
func (s *Service) IsActive(ctx context.Context, storeID string) (bool, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if errors.Is(err, core.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return store.IsActive, nil
}

func (s *Service) Update(
	ctx context.Context,
	userID, role, id string,
	req UpdateStoreRequest,
) (*Store, error) {
	if err := s.CanManage(ctx, userID, role, id); err != nil {
		return nil, err
	}

	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		store.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		store.Description = *req.Description
	}
	if req.Address != nil {
		store.Address = *req.Address
	}
	if req.City != nil {
		store.City = strings.TrimSpace(*req.City)
	}
	if req.State != nil {
		store.State = *req.State
	}
	if req.Phone != nil {
		store.Phone = *req.Phone
	}
	if req.Email != nil {
		store.Email = strings.ToLower(*req.Email)
	}
	if req.Latitude != nil {
		store.Latitude = req.Latitude
	}
	if req.Longitude != nil {
		store.Longitude = req.Longitude
	}
	if req.IsActive != nil {
		store.IsActive = *req.IsActive
	}

	if err := validateCoordinates(store.Latitude, store.Longitude); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, store); err != nil {
		return nil, err
	}

	return store, nil
}

// Delete is reserved to the owner and admins.
func (s *Service) Delete(ctx context.Context, userID, role, id string) error {
	store, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if role != middleware.RoleAdmin && store.OwnerID != userID {
		return fmt.Errorf("delete store: %w", core.ErrForbidden)
	}

	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) AddManager(ctx context.Context, userID, role, storeID, targetID string) error {
	if err := s.CanManage(ctx, userID, role, storeID); err != nil {
		return err
	}

	targetRole, err := s.users.GetRole(ctx, targetID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ValidationError("user does not exist")
		}
		return err
	}
	if targetRole != middleware.RoleStoreManager {
		return core.ValidationError("only users with the store_manager role can manage a store")
	}

	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return err
	}
	if store.OwnerID == targetID {
		return core.ConflictError("user already owns this store")
	}

	err = s.repo.AddManager(ctx, storeID, targetID)
	if errors.Is(err, core.ErrDuplicateKey) {
		return core.ConflictError("user already manages this store")
	}
	return err
}

func (s *Service) RemoveManager(ctx context.Context, userID, role, storeID, targetID string) error {
	if err := s.CanManage(ctx, userID, role, storeID); err != nil {
		return err
	}
	return s.repo.RemoveManager(ctx, storeID, targetID)
}

func (s *Service) ListManagers(ctx context.Context, userID, role, storeID string) ([]Manager, error) {
	if err := s.CanManage(ctx, userID, role, storeID); err != nil {
		return nil, err
	}
	return s.repo.ListManagers(ctx, storeID)
}

// SetLogo stores the new logo URL and deletes the previous object.
func (s *Service) SetLogo(ctx context.Context, storeID, url string) (*Store, error) {
	store, err := s.repo.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetLogo(ctx, storeID, url); err != nil {
		return nil, err
	}

	if err := s.images.RemoveURL(ctx, store.LogoURL); err != nil {
		slog.Warn("remove old store logo", "store_id", storeID, "error", err)
	}

	store.LogoURL = url
	return store, nil
}

func validateCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return core.ValidationError("latitude and longitude must be given together")
	}
	if lat == nil {
		return nil
	}
	if *lat < -90 || *lat > 90 || *lng < -180 || *lng > 180 {
		return core.ValidationError("coordinates out of range")
	}
	return nil
}
