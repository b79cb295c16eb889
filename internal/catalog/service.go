// AngelaMos | 2026
// service.go

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/repuestospro/backend/internal/core"
)

const (
	treeCacheKey   = "categories:tree"
	brandsCacheKey = "brands"
)

// Cache is the subset of core.Cache the catalog reads through.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type Service struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
}

// NewService builds the catalog service. cache may be nil.
func NewService(repo Repository, cache Cache, ttl time.Duration) *Service {
	return &Service{repo: repo, cache: cache, ttl: ttl}
}

func (s *Service) Tree(ctx context.Context) ([]CategoryNode, error) {
	var tree []CategoryNode
	if s.readCache(ctx, treeCacheKey, &tree) {
		return tree, nil
	}

	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	subcategories, err := s.repo.ListSubcategories(ctx)
	if err != nil {
		return nil, err
	}

	tree = BuildTree(categories, subcategories)
	s.writeCache(ctx, treeCacheKey, tree)

	return tree, nil
}

func (s *Service) Brands(ctx context.Context) ([]BrandResponse, error) {
	var brands []BrandResponse
	if s.readCache(ctx, brandsCacheKey, &brands) {
		return brands, nil
	}

	rows, err := s.repo.ListBrands(ctx)
	if err != nil {
		return nil, err
	}

	brands = ToBrandResponses(rows)
	s.writeCache(ctx, brandsCacheKey, brands)

	return brands, nil
}

// ValidateRefs checks that a product's category exists, that the
// subcategory belongs to it and that the brand exists.
func (s *Service) ValidateRefs(
	ctx context.Context,
	categoryID string,
	subcategoryID, brandID *string,
) error {
	if _, err := s.repo.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.ValidationError("category does not exist")
		}
		return err
	}

	if subcategoryID != nil && *subcategoryID != "" {
		sub, err := s.repo.GetSubcategory(ctx, *subcategoryID)
		if errors.Is(err, core.ErrNotFound) {
			return core.ValidationError("subcategory does not exist")
		}
		if err != nil {
			return err
		}
		if sub.CategoryID != categoryID {
			return core.ValidationError("subcategory does not belong to the category")
		}
	}

	if brandID != nil && *brandID != "" {
		if _, err := s.repo.GetBrand(ctx, *brandID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return core.ValidationError("brand does not exist")
			}
			return err
		}
	}

	return nil
}

func (s *Service) CreateCategory(ctx context.Context, req CreateCategoryRequest) (*Category, error) {
	name := strings.TrimSpace(req.Name)
	c := &Category{
		ID:          uuid.New().String(),
		Name:        name,
		Slug:        Slugify(name),
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}
	if c.Slug == "" {
		return nil, core.ValidationError("name must contain letters or digits")
	}

	if err := s.repo.CreateCategory(ctx, c); err != nil {
		return nil, slugConflict(err, "category")
	}

	s.invalidate(ctx, treeCacheKey)
	return c, nil
}

func (s *Service) UpdateCategory(
	ctx context.Context,
	id string,
	req UpdateCategoryRequest,
) (*Category, error) {
	c, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		c.Name = strings.TrimSpace(*req.Name)
		c.Slug = Slugify(c.Name)
		if c.Slug == "" {
			return nil, core.ValidationError("name must contain letters or digits")
		}
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.SortOrder != nil {
		c.SortOrder = *req.SortOrder
	}

	if err := s.repo.UpdateCategory(ctx, c); err != nil {
		return nil, slugConflict(err, "category")
	}

	s.invalidate(ctx, treeCacheKey)
	return c, nil
}

// DeleteCategory refuses to remove a category still referenced by products.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	n, err := s.repo.CountCategoryProducts(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return core.ConflictError(fmt.Sprintf("category has %d products", n))
	}

	err = s.repo.DeleteCategory(ctx, id)
	if errors.Is(err, core.ErrConflict) {
		return core.ConflictError("category has products")
	}
	if err != nil {
		return err
	}

	s.invalidate(ctx, treeCacheKey)
	return nil
}

func (s *Service) CreateSubcategory(
	ctx context.Context,
	req CreateSubcategoryRequest,
) (*Subcategory, error) {
	if _, err := s.repo.GetCategory(ctx, req.CategoryID); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, core.ValidationError("category does not exist")
		}
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	sub := &Subcategory{
		ID:         uuid.New().String(),
		CategoryID: req.CategoryID,
		Name:       name,
		Slug:       Slugify(name),
	}
	if sub.Slug == "" {
		return nil, core.ValidationError("name must contain letters or digits")
	}

	if err := s.repo.CreateSubcategory(ctx, sub); err != nil {
		return nil, slugConflict(err, "subcategory")
	}

	s.invalidate(ctx, treeCacheKey)
	return sub, nil
}

func (s *Service) UpdateSubcategory(
	ctx context.Context,
	id string,
	req UpdateSubcategoryRequest,
) (*Subcategory, error) {
	sub, err := s.repo.GetSubcategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.CategoryID != nil && *req.CategoryID != sub.CategoryID {
		if _, err := s.repo.GetCategory(ctx, *req.CategoryID); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				return nil, core.ValidationError("category does not exist")
			}
			return nil, err
		}
		sub.CategoryID = *req.CategoryID
	}
	if req.Name != nil {
		sub.Name = strings.TrimSpace(*req.Name)
		sub.Slug = Slugify(sub.Name)
		if sub.Slug == "" {
			return nil, core.ValidationError("name must contain letters or digits")
		}
	}

	if err := s.repo.UpdateSubcategory(ctx, sub); err != nil {
		return nil, slugConflict(err, "subcategory")
	}

	s.invalidate(ctx, treeCacheKey)
	return sub, nil
}

func (s *Service) DeleteSubcategory(ctx context.Context, id string) error {
	if err := s.repo.DeleteSubcategory(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, treeCacheKey)
	return nil
}

func (s *Service) CreateBrand(ctx context.Context, req BrandRequest) (*Brand, error) {
	name := strings.TrimSpace(req.Name)
	b := &Brand{ID: uuid.New().String(), Name: name, Slug: Slugify(name)}
	if b.Slug == "" {
		return nil, core.ValidationError("name must contain letters or digits")
	}

	if err := s.repo.CreateBrand(ctx, b); err != nil {
		return nil, slugConflict(err, "brand")
	}

	s.invalidate(ctx, brandsCacheKey)
	return b, nil
}

func (s *Service) UpdateBrand(ctx context.Context, id string, req BrandRequest) (*Brand, error) {
	b, err := s.repo.GetBrand(ctx, id)
	if err != nil {
		return nil, err
	}

	b.Name = strings.TrimSpace(req.Name)
	b.Slug = Slugify(b.Name)
	if b.Slug == "" {
		return nil, core.ValidationError("name must contain letters or digits")
	}

	if err := s.repo.UpdateBrand(ctx, b); err != nil {
		return nil, slugConflict(err, "brand")
	}

	s.invalidate(ctx, brandsCacheKey)
	return b, nil
}

func (s *Service) DeleteBrand(ctx context.Context, id string) error {
	if err := s.repo.DeleteBrand(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx, brandsCacheKey)
	return nil
}

func slugConflict(err error, resource string) error {
	if errors.Is(err, core.ErrDuplicateKey) {
		return core.ConflictError("a " + resource + " with this name already exists")
	}
	return err
}

// Cache failures degrade to database reads.
func (s *Service) readCache(ctx context.Context, key string, dest any) bool {
	if s.cache == nil {
		return false
	}

	hit, err := s.cache.GetJSON(ctx, key, dest)
	if err != nil {
		slog.Warn("catalog cache read", "key", key, "error", err)
		return false
	}
	return hit
}

func (s *Service) writeCache(ctx context.Context, key string, value any) {
	if s.cache == nil {
		return
	}

	if err := s.cache.SetJSON(ctx, key, value, s.ttl); err != nil {
		slog.Warn("catalog cache write", "key", key, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Delete(ctx, keys...); err != nil {
		slog.Warn("catalog cache invalidate", "keys", keys, "error", err)
	}
}
