// AngelaMos | 2026
// service.go

package product

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/media"
	"github.com/repuestospro/backend/internal/promotion"
)

type StoreAccess interface {
	CanManage(ctx context.Context, userID, role, storeID string) error
}

type CatalogRefs interface {
	ValidateRefs(ctx context.Context, categoryID string, subcategoryID, brandID *string) error
}

type Pricer interface {
	Resolve(ctx context.Context, items []promotion.Item) ([]*promotion.Applied, error)
}

type Deps struct {
	Repo    Repository
	Stores  StoreAccess
	Catalog CatalogRefs
	Pricer  Pricer
	Images  *media.Uploader
}

type Service struct {
	repo    Repository
	stores  StoreAccess
	catalog CatalogRefs
	pricer  Pricer
	images  *media.Uploader
}

func NewService(deps Deps) *Service {
	return &Service{
		repo:    deps.Repo,
		stores:  deps.Stores,
		catalog: deps.Catalog,
		pricer:  deps.Pricer,
		images:  deps.Images,
	}
}

// Priced pairs a product with the promotion that applies to it.
type Priced struct {
	Product   *Product
	StoreName string
	Applied   *promotion.Applied
}

func (p Priced) Response() ProductResponse {
	return ToProductResponse(p.Product, p.StoreName, p.Applied)
}

func (s *Service) List(ctx context.Context, params ListParams) ([]Priced, int, error) {
	if params.Sort != "" {
		if _, ok := sortOrders[params.Sort]; !ok {
			return nil, 0, core.ValidationError("sort must be newest, price_asc, price_desc or name")
		}
	}
	if params.MinPrice != nil && params.MaxPrice != nil &&
		params.MinPrice.GreaterThan(*params.MaxPrice) {
		return nil, 0, core.ValidationError("min_price cannot exceed max_price")
	}

	listings, total, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, 0, err
	}

	products := make([]*Product, len(listings))
	names := make([]string, len(listings))
	for i := range listings {
		products[i] = &listings[i].Product
		names[i] = listings[i].StoreName
	}

	priced, err := s.price(ctx, products, names)
	if err != nil {
		return nil, 0, err
	}

	return priced, total, nil
}

// Get returns a purchasable product. Store staff also see their inactive
// and trashed products.
func (s *Service) Get(ctx context.Context, id, viewerID, viewerRole string) (*Priced, error) {
	listing, err := s.repo.GetVisible(ctx, id)
	if err == nil {
		priced, err := s.price(ctx, []*Product{&listing.Product}, []string{listing.StoreName})
		if err != nil {
			return nil, err
		}
		return &priced[0], nil
	}
	if !errors.Is(err, core.ErrNotFound) || viewerID == "" {
		return nil, err
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.stores.CanManage(ctx, viewerID, viewerRole, p.StoreID); err != nil {
		return nil, fmt.Errorf("get product: %w", core.ErrNotFound)
	}

	return &Priced{Product: p}, nil
}

func (s *Service) ListByStore(
	ctx context.Context,
	userID, role, storeID string,
	params StoreListParams,
) ([]Product, int, error) {
	if err := s.stores.CanManage(ctx, userID, role, storeID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByStore(ctx, storeID, params)
}

func (s *Service) Create(
	ctx context.Context,
	userID, role, storeID string,
	req CreateProductRequest,
) (*Product, error) {
	if err := s.stores.CanManage(ctx, userID, role, storeID); err != nil {
		return nil, err
	}

	if err := validatePrice(req.Price); err != nil {
		return nil, err
	}
	if err := s.catalog.ValidateRefs(ctx, req.CategoryID, req.SubcategoryID, req.BrandID); err != nil {
		return nil, err
	}

	p := &Product{
		ID:                   uuid.New().String(),
		StoreID:              storeID,
		Name:                 strings.TrimSpace(req.Name),
		Description:          req.Description,
		SKU:                  normalizeSKU(req.SKU),
		Price:                req.Price.Round(2),
		Stock:                req.Stock,
		CategoryID:           req.CategoryID,
		SubcategoryID:        emptyToNil(req.SubcategoryID),
		BrandID:              emptyToNil(req.BrandID),
		VehicleCompatibility: req.VehicleCompatibility,
		IsActive:             true,
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if p.SKU == "" {
		return nil, core.ValidationError("sku is required")
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, skuConflict(err)
	}

	return p, nil
}

func (s *Service) Update(
	ctx context.Context,
	userID, role, id string,
	req UpdateProductRequest,
) (*Product, error) {
	p, err := s.authorize(ctx, userID, role, id)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, fmt.Errorf("update product: %w", core.ErrNotFound)
	}

	if req.Name != nil {
		p.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.SKU != nil {
		p.SKU = normalizeSKU(*req.SKU)
		if p.SKU == "" {
			return nil, core.ValidationError("sku is required")
		}
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return nil, err
		}
		p.Price = req.Price.Round(2)
	}
	refsChanged := false
	if req.CategoryID != nil && *req.CategoryID != p.CategoryID {
		p.CategoryID = *req.CategoryID
		p.SubcategoryID = nil
		refsChanged = true
	}
	if req.SubcategoryID != nil {
		p.SubcategoryID = emptyToNil(req.SubcategoryID)
		refsChanged = true
	}
	if req.BrandID != nil {
		p.BrandID = emptyToNil(req.BrandID)
		refsChanged = true
	}
	if req.VehicleCompatibility != nil {
		p.VehicleCompatibility = *req.VehicleCompatibility
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	if refsChanged {
		if err := s.catalog.ValidateRefs(ctx, p.CategoryID, p.SubcategoryID, p.BrandID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, skuConflict(err)
	}

	return p, nil
}

// UpdateStock applies a StockRequest and returns the resulting level.
func (s *Service) UpdateStock(
	ctx context.Context,
	userID, role, id string,
	req StockRequest,
) (*Product, error) {
	if (req.Delta == nil) == (req.Stock == nil) {
		return nil, core.ValidationError("provide exactly one of delta or stock")
	}

	p, err := s.authorize(ctx, userID, role, id)
	if err != nil {
		return nil, err
	}
	if p.Deleted {
		return nil, fmt.Errorf("update stock: %w", core.ErrNotFound)
	}

	if req.Stock != nil {
		if err := s.repo.SetStock(ctx, id, *req.Stock); err != nil {
			return nil, err
		}
		p.Stock = *req.Stock
		return p, nil
	}

	stock, err := s.repo.AdjustStock(ctx, id, *req.Delta)
	if errors.Is(err, ErrInsufficientStock) {
		return nil, core.ConflictError(fmt.Sprintf("stock cannot go below zero (current %d)", p.Stock))
	}
	if err != nil {
		return nil, err
	}

	p.Stock = stock
	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID, role, id string) error {
	p, err := s.authorize(ctx, userID, role, id)
	if err != nil {
		return err
	}
	if p.Deleted {
		return fmt.Errorf("delete product: %w", core.ErrNotFound)
	}
	return s.repo.SoftDelete(ctx, id)
}

func (s *Service) Restore(ctx context.Context, userID, role, id string) (*Product, error) {
	p, err := s.authorize(ctx, userID, role, id)
	if err != nil {
		return nil, err
	}
	if !p.Deleted {
		return nil, core.ConflictError("product is not deleted")
	}

	err = s.repo.Restore(ctx, id)
	if errors.Is(err, core.ErrDuplicateKey) {
		return nil, core.ConflictError("sku " + p.SKU + " is now used by another product")
	}
	if err != nil {
		return nil, err
	}

	p.Deleted = false
	p.DeletedAt = nil
	return p, nil
}

// CanManageProduct resolves the product's store and checks access.
func (s *Service) CanManageProduct(ctx context.Context, userID, role, id string) error {
	_, err := s.authorize(ctx, userID, role, id)
	return err
}

// SetImage stores the new image URL and deletes the previous object.
func (s *Service) SetImage(ctx context.Context, id, url string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetImage(ctx, id, url); err != nil {
		return nil, err
	}

	if err := s.images.RemoveURL(ctx, p.ImageURL); err != nil {
		slog.Warn("remove old product image", "product_id", id, "error", err)
	}

	p.ImageURL = url
	return p, nil
}

func (s *Service) authorize(ctx context.Context, userID, role, id string) (*Product, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.stores.CanManage(ctx, userID, role, p.StoreID); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) price(ctx context.Context, products []*Product, names []string) ([]Priced, error) {
	items := make([]promotion.Item, len(products))
	for i, p := range products {
		items[i] = PricingItem(p)
	}

	applied, err := s.pricer.Resolve(ctx, items)
	if err != nil {
		return nil, err
	}

	out := make([]Priced, len(products))
	for i, p := range products {
		out[i] = Priced{Product: p, StoreName: names[i], Applied: applied[i]}
	}

	return out, nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return core.ValidationError("price must be greater than 0")
	}
	if price.GreaterThanOrEqual(decimal.New(1, 10)) {
		return core.ValidationError("price is too large")
	}
	return nil
}

func normalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func emptyToNil(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

func skuConflict(err error) error {
	if errors.Is(err, core.ErrDuplicateKey) {
		return core.ConflictError("sku already exists in this store")
	}
	return err
}
