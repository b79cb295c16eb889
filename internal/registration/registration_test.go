// AngelaMos | 2026
// registration_test.go

package registration

import (
	"context"
	"database/sql"
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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repuestospro/backend/internal/auth"
	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/middleware"
)

var _ auth.RegistrationCodes = (*Service)(nil)

type memRepo struct {
	mu    sync.Mutex
	codes map[string]*Code
	now   time.Time
}

func newMemRepo(now time.Time) *memRepo {
	return &memRepo{codes: map[string]*Code{}, now: now}
}

func (m *memRepo) effective(c *Code) Code {
	cp := *c
	if cp.Status == StatusPending && !m.now.Before(cp.ExpiresAt) {
		cp.Status = StatusExpired
	}
	return cp
}

func (m *memRepo) Create(_ context.Context, c *Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.codes {
		if existing.Code == c.Code {
			return core.ErrDuplicateKey
		}
	}
	c.Status = StatusPending
	c.CreatedAt = m.now
	cp := *c
	m.codes[c.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := m.effective(c)
	return &cp, nil
}

func (m *memRepo) GetByCode(_ context.Context, value string) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code == value {
			cp := m.effective(c)
			return &cp, nil
		}
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) List(_ context.Context, p ListParams) ([]Code, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Code
	for _, c := range m.codes {
		cp := m.effective(c)
		if p.Status == "" || cp.Status == p.Status {
			out = append(out, cp)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) Consume(_ context.Context, value, email string) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.codes {
		if c.Code != value || !c.IsUsable(m.now) {
			continue
		}
		if c.Email != "" && c.Email != email {
			continue
		}
		c.Status = StatusUsed
		cp := *c
		return &cp, nil
	}
	return nil, core.ErrNotFound
}

func (m *memRepo) AttachUser(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[id].UsedBy = &userID
	return nil
}

func (m *memRepo) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.codes[id]
	if c.Status != StatusUsed {
		return core.ErrNotFound
	}
	c.Status = StatusPending
	return nil
}

func (m *memRepo) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok || !c.IsUsable(m.now) {
		return core.ErrNotFound
	}
	c.Status = StatusRevoked
	return nil
}

func newTestService(now time.Time) (*Service, *memRepo) {
	repo := newMemRepo(now)
	svc := NewService(repo)
	svc.now = func() time.Time { return now }
	return svc, repo
}

func TestCreateDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(now)

	code, err := svc.Create(context.Background(), "admin-1", CreateCodeRequest{
		Role:  middleware.RoleStoreManager,
		Email: " Tienda@Example.com ",
	})
	require.NoError(t, err)

	assert.Len(t, code.Code, 12)
	assert.Equal(t, strings.ToUpper(code.Code), code.Code)
	assert.Equal(t, "tienda@example.com", code.Email)
	assert.Equal(t, now.Add(72*time.Hour), code.ExpiresAt)
	require.NotNil(t, code.CreatedBy)
	assert.Equal(t, "admin-1", *code.CreatedBy)
	assert.Equal(t, StatusPending, code.Status)
}

func TestRedeem(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("open code", func(t *testing.T) {
		svc, _ := newTestService(now)
		code, err := svc.Create(ctx, "", CreateCodeRequest{Role: middleware.RoleDelivery})
		require.NoError(t, err)

		redeemed, err := svc.Redeem(ctx, strings.ToLower(code.Code), "moto@example.com")
		require.NoError(t, err)
		assert.Equal(t, middleware.RoleDelivery, redeemed.Role)

		_, err = svc.Redeem(ctx, code.Code, "otro@example.com")
		assert.ErrorIs(t, err, errCodeUnusable)
	})

	t.Run("bound to another email", func(t *testing.T) {
		svc, _ := newTestService(now)
		code, err := svc.Create(ctx, "", CreateCodeRequest{
			Role:  middleware.RoleStoreManager,
			Email: "tienda@example.com",
		})
		require.NoError(t, err)

		_, err = svc.Redeem(ctx, code.Code, "intruso@example.com")
		assert.ErrorIs(t, err, errCodeUnusable)

		_, err = svc.Redeem(ctx, code.Code, "TIENDA@example.com")
		assert.NoError(t, err)
	})

	t.Run("release makes it usable again", func(t *testing.T) {
		svc, _ := newTestService(now)
		code, err := svc.Create(ctx, "", CreateCodeRequest{Role: middleware.RoleAdmin})
		require.NoError(t, err)

		redeemed, err := svc.Redeem(ctx, code.Code, "a@example.com")
		require.NoError(t, err)
		require.NoError(t, svc.Release(ctx, redeemed.ID))

		_, err = svc.Redeem(ctx, code.Code, "a@example.com")
		assert.NoError(t, err)
	})
}

func TestCheckAndRevoke(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	svc, repo := newTestService(now)

	code, err := svc.Create(ctx, "", CreateCodeRequest{Role: middleware.RoleDelivery, ExpiresInHours: 1})
	require.NoError(t, err)

	check, err := svc.Check(ctx, code.Code)
	require.NoError(t, err)
	assert.True(t, check.Valid)
	assert.Equal(t, middleware.RoleDelivery, check.Role)

	require.NoError(t, svc.Revoke(ctx, code.ID))

	check, err = svc.Check(ctx, code.Code)
	require.NoError(t, err)
	assert.False(t, check.Valid)

	var appErr *core.AppError
	require.ErrorAs(t, svc.Revoke(ctx, code.ID), &appErr)
	assert.Equal(t, http.StatusConflict, appErr.StatusCode)

	assert.ErrorIs(t, svc.Revoke(ctx, "missing"), core.ErrNotFound)

	repo.now = now.Add(2 * time.Hour)
	expired, err := svc.Create(ctx, "", CreateCodeRequest{Role: middleware.RoleDelivery, ExpiresInHours: 1})
	require.NoError(t, err)
	repo.now = now.Add(4 * time.Hour)
	svc.now = func() time.Time { return repo.now }

	check, err = svc.Check(ctx, expired.Code)
	require.NoError(t, err)
	assert.False(t, check.Valid)

	check, err = svc.Check(ctx, "NOPE")
	require.NoError(t, err)
	assert.False(t, check.Valid)
}

func TestRepositoryConsume(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery("UPDATE registration_codes").
		WithArgs("ABCDEFGHJKLM", "a@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err = repo.Consume(context.Background(), "ABCDEFGHJKLM", "a@example.com")
	assert.ErrorIs(t, err, core.ErrNotFound)

	now := time.Now()
	mock.ExpectQuery("UPDATE registration_codes").
		WithArgs("ABCDEFGHJKLM", "a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "code", "role", "email", "status", "expires_at",
			"created_by", "used_by", "used_at", "created_at",
		}).AddRow("c1", "ABCDEFGHJKLM", "delivery", "", "used", now.Add(time.Hour),
			nil, nil, now, now))

	c, err := repo.Consume(context.Background(), "ABCDEFGHJKLM", "a@example.com")
	require.NoError(t, err)
	assert.Equal(t, StatusUsed, c.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerCreateAndCheck(t *testing.T) {
	svc, _ := newTestService(time.Now())
	h := NewHandler(svc)

	r := chi.NewRouter()
	h.RegisterRoutes(r)
	h.RegisterAdminRoutes(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithClaims(req.Context(),
				&middleware.AccessTokenClaims{UserID: "admin-1", Role: middleware.RoleAdmin})))
		})
	}, middleware.RequireAdmin)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/registration-codes",
		strings.NewReader(`{"role":"client"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/registration-codes",
		strings.NewReader(`{"role":"store_manager","expires_in_hours":24}`)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		Data CodeResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/registration-codes/"+created.Data.Code, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var check struct {
		Data CheckResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.True(t, check.Data.Valid)
	assert.Equal(t, "store_manager", check.Data.Role)
}
