// AngelaMos | 2026
// catalog_test.go

package catalog

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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/middleware"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Frenos y Suspensión", "frenos-y-suspension"},
		{"  Aceites & Lubricantes ", "aceites-lubricantes"},
		{"Bujías NGK", "bujias-ngk"},
		{"Piñón 4x4", "pinon-4x4"},
		{"---", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

func TestBuildTree(t *testing.T) {
	categories := []Category{{ID: "c1", Name: "Motor"}, {ID: "c2", Name: "Frenos"}}
	subs := []Subcategory{
		{ID: "s1", CategoryID: "c2", Name: "Pastillas"},
		{ID: "s2", CategoryID: "c1", Name: "Filtros"},
		{ID: "s3", CategoryID: "gone", Name: "Orphan"},
	}

	tree := BuildTree(categories, subs)
	require.Len(t, tree, 2)
	assert.Equal(t, "Motor", tree[0].Name)
	require.Len(t, tree[0].Subcategories, 1)
	assert.Equal(t, "s2", tree[0].Subcategories[0].ID)
	require.Len(t, tree[1].Subcategories, 1)
	assert.Equal(t, "s1", tree[1].Subcategories[0].ID)
}

type memRepo struct {
	mu            sync.Mutex
	categories    map[string]*Category
	subcategories map[string]*Subcategory
	brands        map[string]*Brand
	products      map[string]int
	listCalls     int
}

func newMemRepo() *memRepo {
	return &memRepo{
		categories:    map[string]*Category{},
		subcategories: map[string]*Subcategory{},
		brands:        map[string]*Brand{},
		products:      map[string]int{},
	}
}

func (m *memRepo) slugTaken(slug, exceptID string) bool {
	for _, c := range m.categories {
		if c.Slug == slug && c.ID != exceptID {
			return true
		}
	}
	return false
}

func (m *memRepo) CreateCategory(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTaken(c.Slug, c.ID) {
		return core.ErrDuplicateKey
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *memRepo) GetCategory(_ context.Context, id string) (*Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.categories[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) ListCategories(_ context.Context) ([]Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	out := []Category{}
	for _, c := range m.categories {
		out = append(out, *c)
	}
	return out, nil
}

func (m *memRepo) UpdateCategory(_ context.Context, c *Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slugTaken(c.Slug, c.ID) {
		return core.ErrDuplicateKey
	}
	cp := *c
	m.categories[c.ID] = &cp
	return nil
}

func (m *memRepo) DeleteCategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.categories[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.categories, id)
	return nil
}

func (m *memRepo) CountCategoryProducts(_ context.Context, id string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id], nil
}

func (m *memRepo) CreateSubcategory(_ context.Context, s *Subcategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subcategories[s.ID] = &cp
	return nil
}

func (m *memRepo) GetSubcategory(_ context.Context, id string) (*Subcategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subcategories[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) ListSubcategories(_ context.Context) ([]Subcategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Subcategory{}
	for _, s := range m.subcategories {
		out = append(out, *s)
	}
	return out, nil
}

func (m *memRepo) UpdateSubcategory(_ context.Context, s *Subcategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.subcategories[s.ID] = &cp
	return nil
}

func (m *memRepo) DeleteSubcategory(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.subcategories[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.subcategories, id)
	return nil
}

func (m *memRepo) CreateBrand(_ context.Context, b *Brand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.brands {
		if existing.Slug == b.Slug {
			return core.ErrDuplicateKey
		}
	}
	cp := *b
	m.brands[b.ID] = &cp
	return nil
}

func (m *memRepo) GetBrand(_ context.Context, id string) (*Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.brands[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memRepo) ListBrands(_ context.Context) ([]Brand, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Brand{}
	for _, b := range m.brands {
		out = append(out, *b)
	}
	return out, nil
}

func (m *memRepo) UpdateBrand(_ context.Context, b *Brand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *b
	m.brands[b.ID] = &cp
	return nil
}

func (m *memRepo) DeleteBrand(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.brands, id)
	return nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.entries[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
		c.deletes = append(c.deletes, k)
	}
	return nil
}

func TestServiceTreeIsCachedAndInvalidated(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	cache := newMemCache()
	svc := NewService(repo, cache, time.Hour)

	motor, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Motor"})
	require.NoError(t, err)
	assert.Equal(t, "motor", motor.Slug)

	tree, err := svc.Tree(ctx)
	require.NoError(t, err)
	require.Len(t, tree, 1)

	_, err = svc.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)

	_, err = svc.CreateSubcategory(ctx, CreateSubcategoryRequest{
		CategoryID: motor.ID, Name: "Filtros de aceite",
	})
	require.NoError(t, err)
	assert.Contains(t, cache.deletes, treeCacheKey)

	tree, err = svc.Tree(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
	require.Len(t, tree[0].Subcategories, 1)
	assert.Equal(t, "filtros-de-aceite", tree[0].Subcategories[0].Slug)
}

func TestServiceDuplicateNames(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), nil, 0)

	_, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Frenos"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, CreateCategoryRequest{Name: "FRENOS"})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = svc.CreateBrand(ctx, BrandRequest{Name: "Bosch"})
	require.NoError(t, err)
	_, err = svc.CreateBrand(ctx, BrandRequest{Name: "bosch"})
	assert.ErrorIs(t, err, core.ErrConflict)

	_, err = svc.CreateBrand(ctx, BrandRequest{Name: "!!"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestServiceDeleteCategoryWithProducts(t *testing.T) {
	ctx := context.Background()
	repo := newMemRepo()
	svc := NewService(repo, nil, 0)

	c, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Motor"})
	require.NoError(t, err)
	repo.products[c.ID] = 3

	err = svc.DeleteCategory(ctx, c.ID)
	assert.ErrorIs(t, err, core.ErrConflict)

	repo.products[c.ID] = 0
	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, c.ID), core.ErrNotFound)
}

func TestServiceValidateRefs(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemRepo(), nil, 0)

	motor, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Motor"})
	require.NoError(t, err)
	frenos, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Frenos"})
	require.NoError(t, err)
	sub, err := svc.CreateSubcategory(ctx, CreateSubcategoryRequest{
		CategoryID: frenos.ID, Name: "Discos",
	})
	require.NoError(t, err)
	brand, err := svc.CreateBrand(ctx, BrandRequest{Name: "Brembo"})
	require.NoError(t, err)

	assert.NoError(t, svc.ValidateRefs(ctx, frenos.ID, &sub.ID, &brand.ID))
	assert.NoError(t, svc.ValidateRefs(ctx, motor.ID, nil, nil))
	assert.ErrorIs(t, svc.ValidateRefs(ctx, motor.ID, &sub.ID, nil), core.ErrInvalidInput)
	assert.ErrorIs(t, svc.ValidateRefs(ctx, "missing", nil, nil), core.ErrInvalidInput)

	missing := "missing"
	assert.ErrorIs(t, svc.ValidateRefs(ctx, motor.ID, nil, &missing), core.ErrInvalidInput)
}

func TestRepositoryDeleteCategoryForeignKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "pgx"))

	mock.ExpectExec(`DELETE FROM categories WHERE id = \$1`).
		WithArgs("c1").
		WillReturnError(&pgconn.PgError{Code: "23503"})

	err = repo.DeleteCategory(context.Background(), "c1")
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateBrandDuplicate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "pgx"))

	mock.ExpectQuery(`INSERT INTO brands`).
		WithArgs("b1", "Bosch", "bosch").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err = repo.CreateBrand(context.Background(), &Brand{ID: "b1", Name: "Bosch", Slug: "bosch"})
	assert.ErrorIs(t, err, core.ErrDuplicateKey)
}

func TestHandlerAdminRoutes(t *testing.T) {
	svc := NewService(newMemRepo(), nil, 0)
	h := NewHandler(svc)

	withRole := func(role string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
					UserID: "u1", Role: role,
				})
				next.ServeHTTP(w, r.WithContext(ctx))
			})
		}
	}

	client := chi.NewRouter()
	h.RegisterAdminRoutes(client, withRole(middleware.RoleClient), middleware.RequireAdmin)
	w := httptest.NewRecorder()
	client.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/catalog/brands",
		strings.NewReader(`{"name":"Bosch"}`)))
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin := chi.NewRouter()
	h.RegisterRoutes(admin)
	h.RegisterAdminRoutes(admin, withRole(middleware.RoleAdmin), middleware.RequireAdmin)

	w = httptest.NewRecorder()
	admin.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/catalog/brands",
		strings.NewReader(`{"name":"Bosch"}`)))
	require.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	admin.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/catalog/brands",
		strings.NewReader(`{"name":""}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	admin.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/catalog/brands", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data []BrandResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	require.Len(t, body.Data, 1)
	assert.Equal(t, "bosch", body.Data[0].Slug)
}
