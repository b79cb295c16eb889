// AngelaMos | 2026
// admin_test.go

package admin

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repuestospro/backend/internal/middleware"
)

func TestRepositoryMarketplace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "pgx"))

	mock.ExpectQuery(`SELECT role AS key, COUNT\(\*\) AS count FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).
			AddRow("client", 40).AddRow("store_manager", 5).AddRow("admin", 1))
	mock.ExpectQuery(`FROM stores WHERE deleted_at IS NULL`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(6, 4))
	mock.ExpectQuery(`FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"listed", "inactive", "deleted"}).AddRow(120, 7, 3))
	mock.ExpectQuery(`SELECT status AS key, COUNT\(\*\) AS count FROM orders`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}).
			AddRow("pending", 2).AddRow("delivered", 10))
	mock.ExpectQuery(`SELECT SUM\(total\) FROM orders WHERE status = 'delivered'`).
		WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow("1534.75"))
	mock.ExpectQuery(`SELECT COALESCE\(SUM\(loyalty_points\), 0\) FROM users`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(8200))

	stats, err := repo.Marketplace(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 46, stats.TotalUsers)
	assert.Equal(t, 5, stats.UsersByRole["store_manager"])
	assert.Equal(t, StoreCounts{Total: 6, Active: 4}, stats.Stores)
	assert.Equal(t, ProductCounts{Listed: 120, Inactive: 7, Deleted: 3}, stats.Products)
	assert.Equal(t, 12, stats.TotalOrders)
	assert.Equal(t, "1534.75", stats.DeliveredRevenue.String())
	assert.Equal(t, 8200, stats.PointsOutstanding)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarketplaceEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "pgx"))

	mock.ExpectQuery(`FROM users`).WillReturnRows(sqlmock.NewRows([]string{"key", "count"}))
	mock.ExpectQuery(`FROM stores`).
		WillReturnRows(sqlmock.NewRows([]string{"total", "active"}).AddRow(0, 0))
	mock.ExpectQuery(`FROM products`).
		WillReturnRows(sqlmock.NewRows([]string{"listed", "inactive", "deleted"}).AddRow(0, 0, 0))
	mock.ExpectQuery(`FROM orders GROUP BY status`).
		WillReturnRows(sqlmock.NewRows([]string{"key", "count"}))
	mock.ExpectQuery(`SUM\(total\)`).WillReturnRows(sqlmock.NewRows([]string{"sum"}).AddRow(nil))
	mock.ExpectQuery(`SUM\(loyalty_points\)`).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(0))

	stats, err := repo.Marketplace(context.Background())
	require.NoError(t, err)
	assert.True(t, stats.DeliveredRevenue.IsZero())
	assert.Empty(t, stats.OrdersByStatus)
}

type fakeDB struct{ pingErr error }

func (f fakeDB) Ping(context.Context) error { return f.pingErr }
func (fakeDB) Stats() sql.DBStats            { return sql.DBStats{MaxOpenConnections: 25, InUse: 3} }

type fakeRedis struct{}

func (fakeRedis) Ping(context.Context) error    { return nil }
func (fakeRedis) PoolStats() *redis.PoolStats { return &redis.PoolStats{Hits: 9, TotalConns: 4} }

type fakeRepo struct{}

func (fakeRepo) Marketplace(context.Context) (*MarketplaceStats, error) {
	return &MarketplaceStats{TotalUsers: 3, UsersByRole: map[string]int{"client": 3}}, nil
}

func newRouter(role string) http.Handler {
	r := chi.NewRouter()
	h := NewHandler(HandlerConfig{
		DB:    fakeDB{pingErr: errors.New("down")},
		Redis: fakeRedis{},
		Repo:  fakeRepo{},
	})
	h.RegisterRoutes(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithClaims(req.Context(), &middleware.AccessTokenClaims{
				UserID: "u1", Role: role,
			})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}, middleware.RequireAdmin)
	return r
}

func TestHandlerStats(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(middleware.RoleStoreManager).ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/admin/stats/marketplace", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	newRouter(middleware.RoleAdmin).ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/admin/stats/marketplace", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total_users":3`)

	w = httptest.NewRecorder()
	newRouter(middleware.RoleAdmin).ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/admin/stats/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.False(t, resp.Data.Database.Healthy)
	assert.Equal(t, 3, resp.Data.Database.Stats.InUse)
	assert.True(t, resp.Data.Redis.Healthy)
	assert.Equal(t, uint32(9), resp.Data.Redis.Stats.Hits)
	assert.NotEmpty(t, resp.Data.Runtime.GoVersion)
}
