// AngelaMos | 2026
// dto.go

package product

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/promotion"
)

type CreateProductRequest struct {
	Name                 string          `json:"name"                            validate:"required,min=2,max=200"`
	Description          string          `json:"description,omitempty"           validate:"max=5000"`
	SKU                  string          `json:"sku"                             validate:"required,max=64"`
	Price                decimal.Decimal `json:"price"`
	Stock                int             `json:"stock"                           validate:"gte=0"`
	CategoryID           string          `json:"category_id"                     validate:"required,uuid"`
	SubcategoryID        *string         `json:"subcategory_id,omitempty"        validate:"omitempty,uuid"`
	BrandID              *string         `json:"brand_id,omitempty"              validate:"omitempty,uuid"`
	VehicleCompatibility string          `json:"vehicle_compatibility,omitempty" validate:"max=2000"`
	IsActive             *bool           `json:"is_active,omitempty"`
}

type UpdateProductRequest struct {
	Name                 *string          `json:"name,omitempty"                  validate:"omitempty,min=2,max=200"`
	Description          *string          `json:"description,omitempty"           validate:"omitempty,max=5000"`
	SKU                  *string          `json:"sku,omitempty"                   validate:"omitempty,min=1,max=64"`
	Price                *decimal.Decimal `json:"price,omitempty"`
	CategoryID           *string          `json:"category_id,omitempty"           validate:"omitempty,uuid"`
	SubcategoryID        *string          `json:"subcategory_id,omitempty"        validate:"omitempty,uuid"`
	BrandID              *string          `json:"brand_id,omitempty"              validate:"omitempty,uuid"`
	VehicleCompatibility *string          `json:"vehicle_compatibility,omitempty" validate:"omitempty,max=2000"`
	IsActive             *bool            `json:"is_active,omitempty"`
}

// StockRequest sets the stock absolutely or moves it by Delta. Exactly
// one of the two must be present.
type StockRequest struct {
	Delta *int `json:"delta,omitempty" validate:"omitempty,ne=0"`
	Stock *int `json:"stock,omitempty" validate:"omitempty,gte=0"`
}

type ProductResponse struct {
	ID                   string             `json:"id"`
	StoreID              string             `json:"store_id"`
	StoreName            string             `json:"store_name,omitempty"`
	Name                 string             `json:"name"`
	Description          string             `json:"description"`
	SKU                  string             `json:"sku"`
	Price                decimal.Decimal    `json:"price"`
	FinalPrice           decimal.Decimal    `json:"final_price"`
	Promotion            *promotion.Applied `json:"promotion"`
	Stock                int                `json:"stock"`
	CategoryID           string             `json:"category_id"`
	SubcategoryID        *string            `json:"subcategory_id"`
	BrandID              *string            `json:"brand_id"`
	VehicleCompatibility string             `json:"vehicle_compatibility"`
	ImageURL             string             `json:"image_url"`
	IsActive             bool               `json:"is_active"`
	Deleted              bool               `json:"deleted"`
	DeletedAt            *time.Time         `json:"deleted_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
}

// ListParams filters the public catalogue.
type ListParams struct {
	core.PageParams
	StoreID       string
	CategoryID    string
	SubcategoryID string
	BrandID       string
	Search        string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	InStock       bool
	Sort          string
}

// StoreListParams filters a store's own inventory.
type StoreListParams struct {
	core.PageParams
	Deleted bool
	Search  string
}

func ToProductResponse(p *Product, storeName string, applied *promotion.Applied) ProductResponse {
	return ProductResponse{
		ID:                   p.ID,
		StoreID:              p.StoreID,
		StoreName:            storeName,
		Name:                 p.Name,
		Description:          p.Description,
		SKU:                  p.SKU,
		Price:                p.Price,
		FinalPrice:           promotion.FinalPrice(p.Price, applied),
		Promotion:            applied,
		Stock:                p.Stock,
		CategoryID:           p.CategoryID,
		SubcategoryID:        p.SubcategoryID,
		BrandID:              p.BrandID,
		VehicleCompatibility: p.VehicleCompatibility,
		ImageURL:             p.ImageURL,
		IsActive:             p.IsActive,
		Deleted:              p.Deleted,
		DeletedAt:            p.DeletedAt,
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
	}
}

func PricingItem(p *Product) promotion.Item {
	return promotion.Item{
		ProductID:  p.ID,
		StoreID:    p.StoreID,
		CategoryID: p.CategoryID,
		Price:      p.Price,
	}
}
