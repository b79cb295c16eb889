// AngelaMos | 2026
// promotion_test.go

package promotion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/middleware"
)

var (
	t0    = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	price = decimal.RequireFromString("80.00")
)

func promo(id, typ, value, scope string, created time.Time) Promotion {
	return Promotion{
		ID:        id,
		StoreID:   "store-1",
		Name:      id,
		Type:      typ,
		Value:     decimal.RequireFromString(value),
		Scope:     scope,
		StartsAt:  t0.Add(-time.Hour),
		EndsAt:    t0.Add(time.Hour),
		IsActive:  true,
		CreatedAt: created,
	}
}

func TestUnitDiscount(t *testing.T) {
	tests := []struct {
		name  string
		typ   string
		value string
		price string
		want  string
	}{
		{"percentage rounds to cents", TypePercentage, "15", "19.99", "3"},
		{"percentage full", TypePercentage, "100", "45.50", "45.5"},
		{"fixed below price", TypeFixed, "10", "80", "10"},
		{"fixed capped at price", TypeFixed, "120", "80", "80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := promo("p", tt.typ, tt.value, ScopeStore, t0)
			got := p.UnitDiscount(decimal.RequireFromString(tt.price))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
		})
	}
}

func TestBest(t *testing.T) {
	item := Item{ProductID: "prod-1", StoreID: "store-1", CategoryID: "cat-1", Price: price}

	t.Run("largest discount wins", func(t *testing.T) {
		promos := []Promotion{
			promo("pct10", TypePercentage, "10", ScopeStore, t0),
			promo("fixed12", TypeFixed, "12", ScopeStore, t0),
		}
		got := Best(promos, item, t0)
		require.NotNil(t, got)
		assert.Equal(t, "fixed12", got.PromotionID)
		assert.True(t, got.Discount.Equal(decimal.NewFromInt(12)))
	})

	t.Run("ties go to earliest created", func(t *testing.T) {
		promos := []Promotion{
			promo("newer", TypeFixed, "8", ScopeStore, t0),
			promo("older", TypePercentage, "10", ScopeStore, t0.Add(-24*time.Hour)),
		}
		got := Best(promos, item, t0)
		require.NotNil(t, got)
		assert.Equal(t, "older", got.PromotionID)
	})

	t.Run("scope and window filter", func(t *testing.T) {
		otherProduct := promo("other", TypeFixed, "50", ScopeProducts, t0)
		otherProduct.ProductIDs = []string{"prod-2"}

		category := promo("cat", TypeFixed, "5", ScopeCategories, t0)
		category.CategoryIDs = []string{"cat-1"}

		expired := promo("expired", TypeFixed, "40", ScopeStore, t0)
		expired.EndsAt = t0

		disabled := promo("disabled", TypeFixed, "40", ScopeStore, t0)
		disabled.IsActive = false

		foreign := promo("foreign", TypeFixed, "40", ScopeStore, t0)
		foreign.StoreID = "store-2"

		got := Best([]Promotion{otherProduct, category, expired, disabled, foreign}, item, t0)
		require.NotNil(t, got)
		assert.Equal(t, "cat", got.PromotionID)
	})

	t.Run("none applies", func(t *testing.T) {
		assert.Nil(t, Best(nil, item, t0))
	})
}

func TestFinalPrice(t *testing.T) {
	assert.True(t, FinalPrice(price, nil).Equal(price))
	applied := &Applied{Discount: decimal.RequireFromString("12.50")}
	assert.Equal(t, "67.5", FinalPrice(price, applied).String())
	applied.Discount = decimal.NewFromInt(100)
	assert.True(t, FinalPrice(price, applied).IsZero())
}

type memRepo struct {
	mu         sync.Mutex
	promotions map[string]*Promotion
	products   map[string]string
	categories map[string]bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		promotions: map[string]*Promotion{},
		products:   map[string]string{"prod-1": "store-1", "prod-9": "store-9"},
		categories: map[string]bool{"cat-1": true},
	}
}

func (m *memRepo) Create(_ context.Context, p *Promotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.CreatedAt = time.Now()
	cp := *p
	m.promotions[p.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promotions[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memRepo) ListByStore(_ context.Context, storeID string) ([]Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Promotion{}
	for _, p := range m.promotions {
		if p.StoreID == storeID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memRepo) RunningForStores(
	_ context.Context,
	storeIDs []string,
	now time.Time,
) ([]Promotion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Promotion{}
	for _, p := range m.promotions {
		if contains(storeIDs, p.StoreID) && p.Running(now) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memRepo) Update(_ context.Context, p *Promotion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.promotions[p.ID] = &cp
	return nil
}

func (m *memRepo) SetActive(_ context.Context, id string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.promotions[id]
	if !ok {
		return core.ErrNotFound
	}
	p.IsActive = active
	return nil
}

func (m *memRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.promotions[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.promotions, id)
	return nil
}

func (m *memRepo) CountStoreProducts(_ context.Context, storeID string, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if m.products[id] == storeID {
			n++
		}
	}
	return n, nil
}

func (m *memRepo) CountCategories(_ context.Context, ids []string) (int, error) {
	n := 0
	for _, id := range ids {
		if m.categories[id] {
			n++
		}
	}
	return n, nil
}

type staffOf map[string]string

func (s staffOf) CanManage(_ context.Context, userID, role, storeID string) error {
	if role == middleware.RoleAdmin || s[storeID] == userID {
		return nil
	}
	return core.ErrForbidden
}

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	svc := NewService(repo, staffOf{"store-1": "owner-1"})
	svc.now = func() time.Time { return t0 }
	return svc, repo
}

func validRequest() PromotionRequest {
	return PromotionRequest{
		Name:     "Semana del freno",
		Type:     TypePercentage,
		Value:    decimal.NewFromInt(20),
		Scope:    ScopeStore,
		StartsAt: t0.Add(-time.Hour),
		EndsAt:   t0.Add(48 * time.Hour),
	}
}

func TestServiceCreateValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	tests := []struct {
		name   string
		mutate func(*PromotionRequest)
	}{
		{"percentage above 100", func(r *PromotionRequest) { r.Value = decimal.NewFromInt(101) }},
		{"zero fixed", func(r *PromotionRequest) { r.Type = TypeFixed; r.Value = decimal.Zero }},
		{"inverted window", func(r *PromotionRequest) { r.EndsAt = r.StartsAt }},
		{"products scope empty", func(r *PromotionRequest) { r.Scope = ScopeProducts }},
		{"foreign product", func(r *PromotionRequest) {
			r.Scope = ScopeProducts
			r.ProductIDs = []string{"prod-9"}
		}},
		{"unknown category", func(r *PromotionRequest) {
			r.Scope = ScopeCategories
			r.CategoryIDs = []string{"cat-404"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := svc.Create(ctx, "owner-1", middleware.RoleStoreManager, "store-1", req)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}

	req := validRequest()
	req.Scope = ScopeProducts
	req.ProductIDs = []string{"prod-1", "prod-1"}
	p, err := svc.Create(ctx, "owner-1", middleware.RoleStoreManager, "store-1", req)
	require.NoError(t, err)
	assert.Equal(t, []string{"prod-1"}, p.ProductIDs)
	assert.True(t, p.IsActive)

	_, err = svc.Create(ctx, "stranger", middleware.RoleStoreManager, "store-1", validRequest())
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestServiceToggleAndResolve(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	p, err := svc.Create(ctx, "owner-1", middleware.RoleStoreManager, "store-1", validRequest())
	require.NoError(t, err)

	items := []Item{
		{ProductID: "prod-1", StoreID: "store-1", CategoryID: "cat-1", Price: price},
		{ProductID: "prod-9", StoreID: "store-9", CategoryID: "cat-1", Price: price},
	}

	applied, err := svc.Resolve(ctx, items)
	require.NoError(t, err)
	require.NotNil(t, applied[0])
	assert.Equal(t, "16", applied[0].Discount.String())
	assert.Nil(t, applied[1])

	toggled, err := svc.Toggle(ctx, "owner-1", middleware.RoleStoreManager, p.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActive)

	applied, err = svc.Resolve(ctx, items)
	require.NoError(t, err)
	assert.Nil(t, applied[0])

	_, err = svc.Toggle(ctx, "stranger", middleware.RoleClient, p.ID)
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRepositoryRunningForStores(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "pgx"))

	cols := []string{
		"id", "store_id", "name", "description", "type", "value", "scope",
		"starts_at", "ends_at", "is_active", "created_by", "created_at", "updated_at",
	}
	mock.ExpectQuery(`FROM promotions\s+WHERE store_id IN \(\$1, \$2\) AND is_active = TRUE AND starts_at <= \$3 AND ends_at > \$4`).
		WithArgs("s1", "s2", t0, t0).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"p1", "s1", "Promo", "", TypeFixed, "5.00", ScopeProducts,
			t0.Add(-time.Hour), t0.Add(time.Hour), true, nil, t0, t0,
		))
	mock.ExpectQuery(`FROM promotion_products WHERE promotion_id IN \(\$1\)`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"promotion_id", "target_id"}).
			AddRow("p1", "prod-1").AddRow("p1", "prod-2"))
	mock.ExpectQuery(`FROM promotion_categories WHERE promotion_id IN \(\$1\)`).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"promotion_id", "target_id"}))

	promotions, err := repo.RunningForStores(context.Background(), []string{"s1", "s2"}, t0)
	require.NoError(t, err)
	require.Len(t, promotions, 1)
	assert.Equal(t, []string{"prod-1", "prod-2"}, promotions[0].ProductIDs)
	assert.Equal(t, "5", promotions[0].Value.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerCreateAndListRunning(t *testing.T) {
	svc, _ := newTestService()
	inject := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
				UserID: "owner-1", Role: middleware.RoleStoreManager,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
	router := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(router, inject)

	body := `{"name":"Aceite 2x1","type":"fixed","value":"7.5","scope":"store",` +
		`"starts_at":"2026-03-01T00:00:00Z","ends_at":"2026-03-31T00:00:00Z"}`
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost,
		"/stores/store-1/promotions", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stores/store-1/promotions/active", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []PromotionResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Data, 1)
	assert.True(t, resp.Data[0].Running)
	assert.Equal(t, "7.5", resp.Data[0].Value.String())
}
