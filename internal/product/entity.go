// AngelaMos | 2026
// entity.go

package product

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SortNewest    = "newest"
	SortPriceAsc  = "price_asc"
	SortPriceDesc = "price_desc"
	SortName      = "name"
)

type Product struct {
	ID                   string          `db:"id"`
	StoreID              string          `db:"store_id"`
	Name                 string          `db:"name"`
	Description          string          `db:"description"`
	SKU                  string          `db:"sku"`
	Price                decimal.Decimal `db:"price"`
	Stock                int             `db:"stock"`
	CategoryID           string          `db:"category_id"`
	SubcategoryID        *string         `db:"subcategory_id"`
	BrandID              *string         `db:"brand_id"`
	VehicleCompatibility string          `db:"vehicle_compatibility"`
	ImageURL             string          `db:"image_url"`
	IsActive             bool            `db:"is_active"`
	Deleted              bool            `db:"deleted"`
	DeletedAt            *time.Time      `db:"deleted_at"`
	CreatedAt            time.Time       `db:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at"`
}

// Listing is a product joined with its store name for public listings.
type Listing struct {
	Product
	StoreName string `db:"store_name"`
}

var sortOrders = map[string]string{
	SortNewest:    "p.created_at DESC, p.id ASC",
	SortPriceAsc:  "p.price ASC, p.id ASC",
	SortPriceDesc: "p.price DESC, p.id ASC",
	SortName:      "p.name ASC, p.id ASC",
}
