// AngelaMos | 2026
// documents.go

package legacy

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/repuestospro/backend/internal/catalog"
	"github.com/repuestospro/backend/internal/middleware"
)

// namespace seeds the UUIDv5 ids derived from Mongo ObjectIDs. Changing it
// breaks idempotent re-imports.
var namespace = uuid.MustParse("6f1d3c8e-3a57-5b8e-9f2a-7c4e1b0d9a21")

// IDFor maps an ObjectID to the same UUID on every run.
func IDFor(oid primitive.ObjectID) string {
	return uuid.NewSHA1(namespace, []byte(oid.Hex())).String()
}

func optionalID(oid *primitive.ObjectID) *string {
	if oid == nil || oid.IsZero() {
		return nil
	}
	id := IDFor(*oid)
	return &id
}

type userDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email"`
	Password  string             `bson:"password"`
	Phone     string             `bson:"phone"`
	Role      string             `bson:"role"`
	Points    int                `bson:"loyaltyPoints"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type storeDoc struct {
	ID          primitive.ObjectID   `bson:"_id"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Owner       primitive.ObjectID   `bson:"owner"`
	Managers    []primitive.ObjectID `bson:"managers"`
	Address     string               `bson:"address"`
	City        string               `bson:"city"`
	State       string               `bson:"state"`
	Phone       string               `bson:"phone"`
	Email       string               `bson:"email"`
	Logo        string               `bson:"logo"`
	IsActive    *bool                `bson:"isActive"`
	Location    *geoPoint            `bson:"location"`
	CreatedAt   time.Time            `bson:"createdAt"`
}

// geoPoint is a GeoJSON point: coordinates are [lng, lat].
type geoPoint struct {
	Type        string    `bson:"type"`
	Coordinates []float64 `bson:"coordinates"`
}

type categoryDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Order       int                `bson:"order"`
}

type subcategoryDoc struct {
	ID       primitive.ObjectID `bson:"_id"`
	Category primitive.ObjectID `bson:"category"`
	Name     string             `bson:"name"`
}

type brandDoc struct {
	ID   primitive.ObjectID `bson:"_id"`
	Name string             `bson:"name"`
}

type productDoc struct {
	ID                   primitive.ObjectID  `bson:"_id"`
	Store                primitive.ObjectID  `bson:"store"`
	Name                 string              `bson:"name"`
	Description          string              `bson:"description"`
	SKU                  string              `bson:"sku"`
	Price                float64             `bson:"price"`
	Stock                int                 `bson:"stock"`
	Category             primitive.ObjectID  `bson:"category"`
	Subcategory          *primitive.ObjectID `bson:"subcategory"`
	Brand                *primitive.ObjectID `bson:"brand"`
	VehicleCompatibility []string            `bson:"vehicleCompatibility"`
	Image                string              `bson:"image"`
	IsActive             *bool               `bson:"isActive"`
	Deleted              bool                `bson:"deleted"`
	DeletedAt            *time.Time          `bson:"deletedAt"`
	CreatedAt            time.Time           `bson:"createdAt"`
}

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	Name         string    `db:"name"`
	Phone        string    `db:"phone"`
	Role         string    `db:"role"`
	Points       int       `db:"loyalty_points"`
	CreatedAt    time.Time `db:"created_at"`
}

type storeRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	OwnerID     string    `db:"owner_id"`
	Address     string    `db:"address"`
	City        string    `db:"city"`
	State       string    `db:"state"`
	Phone       string    `db:"phone"`
	Email       string    `db:"email"`
	Latitude    *float64  `db:"latitude"`
	Longitude   *float64  `db:"longitude"`
	LogoURL     string    `db:"logo_url"`
	IsActive    bool      `db:"is_active"`
	CreatedAt   time.Time `db:"created_at"`
}

type managerRow struct {
	StoreID string `db:"store_id"`
	UserID  string `db:"user_id"`
}

type productRow struct {
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
}

var legacyRoles = map[string]string{
	"client":        middleware.RoleClient,
	"cliente":       middleware.RoleClient,
	"user":          middleware.RoleClient,
	"store_manager": middleware.RoleStoreManager,
	"gestor":        middleware.RoleStoreManager,
	"manager":       middleware.RoleStoreManager,
	"admin":         middleware.RoleAdmin,
	"delivery":      middleware.RoleDelivery,
	"repartidor":    middleware.RoleDelivery,
}

func mapRole(role string) string {
	if mapped, ok := legacyRoles[strings.ToLower(strings.TrimSpace(role))]; ok {
		return mapped
	}
	return middleware.RoleClient
}

func createdAt(t time.Time, oid primitive.ObjectID) time.Time {
	if t.IsZero() {
		return oid.Timestamp()
	}
	return t
}

func (d userDoc) row() (userRow, error) {
	email := strings.ToLower(strings.TrimSpace(d.Email))
	if email == "" || d.Password == "" {
		return userRow{}, rejectf("user %s has no email or password", d.ID.Hex())
	}

	name := strings.TrimSpace(d.Name)
	if name == "" {
		name = email
	}

	return userRow{
		ID:           IDFor(d.ID),
		Email:        email,
		PasswordHash: d.Password,
		Name:         name,
		Phone:        d.Phone,
		Role:         mapRole(d.Role),
		Points:       max(d.Points, 0),
		CreatedAt:    createdAt(d.CreatedAt, d.ID),
	}, nil
}

func (d storeDoc) row() (storeRow, []managerRow, error) {
	if d.Owner.IsZero() || strings.TrimSpace(d.Name) == "" {
		return storeRow{}, nil, rejectf("store %s has no owner or name", d.ID.Hex())
	}

	r := storeRow{
		ID:          IDFor(d.ID),
		Name:        strings.TrimSpace(d.Name),
		Description: d.Description,
		OwnerID:     IDFor(d.Owner),
		Address:     d.Address,
		City:        d.City,
		State:       d.State,
		Phone:       d.Phone,
		Email:       d.Email,
		LogoURL:     d.Logo,
		IsActive:    d.IsActive == nil || *d.IsActive,
		CreatedAt:   createdAt(d.CreatedAt, d.ID),
	}

	if d.Location != nil && len(d.Location.Coordinates) == 2 {
		lng, lat := d.Location.Coordinates[0], d.Location.Coordinates[1]
		if lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 {
			r.Latitude, r.Longitude = &lat, &lng
		}
	}

	managers := make([]managerRow, 0, len(d.Managers))
	for _, m := range d.Managers {
		if m.IsZero() || m == d.Owner {
			continue
		}
		managers = append(managers, managerRow{StoreID: r.ID, UserID: IDFor(m)})
	}

	return r, managers, nil
}

func (d categoryDoc) row() (catalog.Category, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return catalog.Category{}, rejectf("category %s has no name", d.ID.Hex())
	}
	return catalog.Category{
		ID:          IDFor(d.ID),
		Name:        name,
		Slug:        slugFor(name, d.ID),
		Description: d.Description,
		SortOrder:   d.Order,
	}, nil
}

func (d subcategoryDoc) row() (catalog.Subcategory, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" || d.Category.IsZero() {
		return catalog.Subcategory{}, rejectf("subcategory %s has no name or category", d.ID.Hex())
	}
	return catalog.Subcategory{
		ID:         IDFor(d.ID),
		CategoryID: IDFor(d.Category),
		Name:       name,
		Slug:       slugFor(name, d.ID),
	}, nil
}

func (d brandDoc) row() (catalog.Brand, error) {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return catalog.Brand{}, rejectf("brand %s has no name", d.ID.Hex())
	}
	return catalog.Brand{
		ID:   IDFor(d.ID),
		Name: name,
		Slug: slugFor(name, d.ID),
	}, nil
}

func (d productDoc) row() (productRow, error) {
	price := decimal.NewFromFloat(d.Price).Round(2)
	switch {
	case d.Store.IsZero() || d.Category.IsZero():
		return productRow{}, rejectf("product %s has no store or category", d.ID.Hex())
	case strings.TrimSpace(d.SKU) == "":
		return productRow{}, rejectf("product %s has no sku", d.ID.Hex())
	case !price.IsPositive():
		return productRow{}, rejectf("product %s has a non-positive price", d.ID.Hex())
	}

	r := productRow{
		ID:                   IDFor(d.ID),
		StoreID:              IDFor(d.Store),
		Name:                 strings.TrimSpace(d.Name),
		Description:          d.Description,
		SKU:                  strings.ToUpper(strings.TrimSpace(d.SKU)),
		Price:                price,
		Stock:                max(d.Stock, 0),
		CategoryID:           IDFor(d.Category),
		SubcategoryID:        optionalID(d.Subcategory),
		BrandID:              optionalID(d.Brand),
		VehicleCompatibility: strings.Join(d.VehicleCompatibility, ", "),
		ImageURL:             d.Image,
		IsActive:             d.IsActive == nil || *d.IsActive,
		Deleted:              d.Deleted,
		DeletedAt:            d.DeletedAt,
		CreatedAt:            createdAt(d.CreatedAt, d.ID),
	}

	if r.Deleted && r.DeletedAt == nil {
		at := r.CreatedAt
		r.DeletedAt = &at
	}

	return r, nil
}

// slugFor falls back to the ObjectID when the name has no ascii letters.
func slugFor(name string, oid primitive.ObjectID) string {
	if slug := catalog.Slugify(name); slug != "" {
		return slug
	}
	return oid.Hex()
}
