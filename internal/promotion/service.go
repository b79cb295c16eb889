// AngelaMos | 2026
// service.go

package promotion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/repuestospro/backend/internal/core"
)

// StoreAccess authorizes store management.
type StoreAccess interface {
	CanManage(ctx context.Context, userID, role, storeID string) error
}

type Service struct {
	repo   Repository
	stores StoreAccess
	now    func() time.Time
}

func NewService(repo Repository, stores StoreAccess) *Service {
	return &Service{repo: repo, stores: stores, now: time.Now}
}

func (s *Service) Now() time.Time {
	return s.now()
}

func (s *Service) Create(
	ctx context.Context,
	userID, role, storeID string,
	req PromotionRequest,
) (*Promotion, error) {
	if err := s.stores.CanManage(ctx, userID, role, storeID); err != nil {
		return nil, err
	}

	p := &Promotion{
		ID:        uuid.New().String(),
		StoreID:   storeID,
		IsActive:  true,
		CreatedBy: &userID,
	}
	applyRequest(p, req)

	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Update(
	ctx context.Context,
	userID, role, id string,
	req PromotionRequest,
) (*Promotion, error) {
	p, err := s.authorize(ctx, userID, role, id)
	if err != nil {
		return nil, err
	}

	applyRequest(p, req)

	if err := s.validate(ctx, p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) Delete(ctx context.Context, userID, role, id string) error {
	if _, err := s.authorize(ctx, userID, role, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// Toggle flips the enabled flag.
func (s *Service) Toggle(ctx context.Context, userID, role, id string) (*Promotion, error) {
	p, err := s.authorize(ctx, userID, role, id)
	if err != nil {
		return nil, err
	}

	p.IsActive = !p.IsActive
	if err := s.repo.SetActive(ctx, id, p.IsActive); err != nil {
		return nil, err
	}

	return p, nil
}

func (s *Service) ListForStore(
	ctx context.Context,
	userID, role, storeID string,
) ([]Promotion, error) {
	if err := s.stores.CanManage(ctx, userID, role, storeID); err != nil {
		return nil, err
	}
	return s.repo.ListByStore(ctx, storeID)
}

func (s *Service) Running(ctx context.Context, storeID string) ([]Promotion, error) {
	return s.repo.RunningForStores(ctx, []string{storeID}, s.now())
}

// Resolve returns, for each item, the best running promotion or nil.
func (s *Service) Resolve(ctx context.Context, items []Item) ([]*Applied, error) {
	out := make([]*Applied, len(items))
	if len(items) == 0 {
		return out, nil
	}

	seen := map[string]bool{}
	storeIDs := []string{}
	for _, it := range items {
		if !seen[it.StoreID] {
			seen[it.StoreID] = true
			storeIDs = append(storeIDs, it.StoreID)
		}
	}

	now := s.now()
	promotions, err := s.repo.RunningForStores(ctx, storeIDs, now)
	if err != nil {
		return nil, err
	}

	for i, it := range items {
		out[i] = Best(promotions, it, now)
	}

	return out, nil
}

func (s *Service) authorize(ctx context.Context, userID, role, id string) (*Promotion, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.stores.CanManage(ctx, userID, role, p.StoreID); err != nil {
		return nil, err
	}

	return p, nil
}

func applyRequest(p *Promotion, req PromotionRequest) {
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	p.Type = req.Type
	p.Value = req.Value
	p.Scope = req.Scope
	p.StartsAt = req.StartsAt
	p.EndsAt = req.EndsAt
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}

	p.ProductIDs = nil
	p.CategoryIDs = nil
	switch req.Scope {
	case ScopeProducts:
		p.ProductIDs = unique(req.ProductIDs)
	case ScopeCategories:
		p.CategoryIDs = unique(req.CategoryIDs)
	}
}

func (s *Service) validate(ctx context.Context, p *Promotion) error {
	switch p.Type {
	case TypePercentage:
		if !p.Value.IsPositive() || p.Value.GreaterThan(hundred) {
			return core.ValidationError("percentage value must be greater than 0 and at most 100")
		}
	case TypeFixed:
		if !p.Value.IsPositive() {
			return core.ValidationError("fixed value must be greater than 0")
		}
	default:
		return core.ValidationError("type must be percentage or fixed")
	}

	if p.Value.Exponent() < -2 {
		p.Value = p.Value.Round(2)
	}

	if !p.EndsAt.After(p.StartsAt) {
		return core.ValidationError("ends_at must be after starts_at")
	}

	switch p.Scope {
	case ScopeStore:
	case ScopeProducts:
		if len(p.ProductIDs) == 0 {
			return core.ValidationError("product scope requires at least one product")
		}
		n, err := s.repo.CountStoreProducts(ctx, p.StoreID, p.ProductIDs)
		if err != nil {
			return err
		}
		if n != len(p.ProductIDs) {
			return core.ValidationError("every product must belong to the store")
		}
	case ScopeCategories:
		if len(p.CategoryIDs) == 0 {
			return core.ValidationError("category scope requires at least one category")
		}
		n, err := s.repo.CountCategories(ctx, p.CategoryIDs)
		if err != nil {
			return err
		}
		if n != len(p.CategoryIDs) {
			return core.ValidationError(fmt.Sprintf("%d categories do not exist", len(p.CategoryIDs)-n))
		}
	default:
		return core.ValidationError("scope must be store, products or categories")
	}

	return nil
}

// FinalPrice applies an optional promotion to price.
func FinalPrice(price decimal.Decimal, applied *Applied) decimal.Decimal {
	if applied == nil {
		return price
	}
	final := price.Sub(applied.Discount)
	if final.IsNegative() {
		return decimal.Zero
	}
	return final
}

func unique(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
