// AngelaMos | 2026
// dto.go

package promotion

import (
	"time"

	"github.com/shopspring/decimal"
)

type PromotionRequest struct {
	Name        string          `json:"name"                   validate:"required,min=2,max=150"`
	Description string          `json:"description,omitempty"  validate:"max=2000"`
	Type        string          `json:"type"                   validate:"required,oneof=percentage fixed"`
	Value       decimal.Decimal `json:"value"`
	Scope       string          `json:"scope"                  validate:"required,oneof=store products categories"`
	ProductIDs  []string        `json:"product_ids,omitempty"  validate:"omitempty,max=500,dive,uuid"`
	CategoryIDs []string        `json:"category_ids,omitempty" validate:"omitempty,max=100,dive,uuid"`
	StartsAt    time.Time       `json:"starts_at"              validate:"required"`
	EndsAt      time.Time       `json:"ends_at"                validate:"required"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

type PromotionResponse struct {
	ID          string          `json:"id"`
	StoreID     string          `json:"store_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Value       decimal.Decimal `json:"value"`
	Scope       string          `json:"scope"`
	ProductIDs  []string        `json:"product_ids"`
	CategoryIDs []string        `json:"category_ids"`
	StartsAt    time.Time       `json:"starts_at"`
	EndsAt      time.Time       `json:"ends_at"`
	IsActive    bool            `json:"is_active"`
	Running     bool            `json:"running"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func ToPromotionResponse(p *Promotion, now time.Time) PromotionResponse {
	productIDs := p.ProductIDs
	if productIDs == nil {
		productIDs = []string{}
	}
	categoryIDs := p.CategoryIDs
	if categoryIDs == nil {
		categoryIDs = []string{}
	}

	return PromotionResponse{
		ID:          p.ID,
		StoreID:     p.StoreID,
		Name:        p.Name,
		Description: p.Description,
		Type:        p.Type,
		Value:       p.Value,
		Scope:       p.Scope,
		ProductIDs:  productIDs,
		CategoryIDs: categoryIDs,
		StartsAt:    p.StartsAt,
		EndsAt:      p.EndsAt,
		IsActive:    p.IsActive,
		Running:     p.Running(now),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func ToPromotionResponses(promotions []Promotion, now time.Time) []PromotionResponse {
	out := make([]PromotionResponse, 0, len(promotions))
	for i := range promotions {
		out = append(out, ToPromotionResponse(&promotions[i], now))
	}
	return out
}
