// AngelaMos | 2026
// entity.go

package promotion

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TypePercentage = "percentage"
	TypeFixed      = "fixed"

	ScopeStore      = "store"
	ScopeProducts   = "products"
	ScopeCategories = "categories"
)

var hundred = decimal.NewFromInt(100)

type Promotion struct {
	ID          string          `db:"id"`
	StoreID     string          `db:"store_id"`
	Name        string          `db:"name"`
	Description string          `db:"description"`
	Type        string          `db:"type"`
	Value       decimal.Decimal `db:"value"`
	Scope       string          `db:"scope"`
	StartsAt    time.Time       `db:"starts_at"`
	EndsAt      time.Time       `db:"ends_at"`
	IsActive    bool            `db:"is_active"`
	CreatedBy   *string         `db:"created_by"`
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
	ProductIDs  []string        `db:"-"`
	CategoryIDs []string        `db:"-"`
}

// Running reports whether the promotion is enabled and now falls in
// [StartsAt, EndsAt).
func (p *Promotion) Running(now time.Time) bool {
	return p.IsActive && !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// Item is a priced product as seen by discount resolution.
type Item struct {
	ProductID  string
	StoreID    string
	CategoryID string
	Price      decimal.Decimal
}

func (p *Promotion) Covers(item Item) bool {
	if p.StoreID != item.StoreID {
		return false
	}

	switch p.Scope {
	case ScopeStore:
		return true
	case ScopeProducts:
		return contains(p.ProductIDs, item.ProductID)
	case ScopeCategories:
		return contains(p.CategoryIDs, item.CategoryID)
	default:
		return false
	}
}

// UnitDiscount is the discount on one unit at price, never above price.
func (p *Promotion) UnitDiscount(price decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch p.Type {
	case TypePercentage:
		d = price.Mul(p.Value).Div(hundred).Round(2)
	case TypeFixed:
		d = p.Value
	}

	if d.GreaterThan(price) {
		return price
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Applied is the promotion chosen for an item.
type Applied struct {
	PromotionID string          `json:"id"`
	Name        string          `json:"name"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Discount    decimal.Decimal `json:"discount"`
}

// Best picks the running promotion giving item the largest unit discount.
// Ties go to the earliest created promotion. It returns nil when none
// applies or every candidate discounts zero.
func Best(promotions []Promotion, item Item, now time.Time) *Applied {
	var (
		best     *Promotion
		bestDisc decimal.Decimal
	)

	for i := range promotions {
		p := &promotions[i]
		if !p.Running(now) || !p.Covers(item) {
			continue
		}

		d := p.UnitDiscount(item.Price)
		if !d.IsPositive() {
			continue
		}

		if best == nil ||
			d.GreaterThan(bestDisc) ||
			(d.Equal(bestDisc) && p.CreatedAt.Before(best.CreatedAt)) {
			best = p
			bestDisc = d
		}
	}

	if best == nil {
		return nil
	}

	return &Applied{
		PromotionID: best.ID,
		Name:        best.Name,
		Type:        best.Type,
		Value:       best.Value,
		Discount:    bestDisc,
	}
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
