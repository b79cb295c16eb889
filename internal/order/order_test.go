// AngelaMos | 2026
// order_test.go

package order

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
	"github.com/repuestospro/backend/internal/events"
	"github.com/repuestospro/backend/internal/middleware"
	"github.com/repuestospro/backend/internal/promotion"
)

const (
	storeID    = "aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"
	otherStore = "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"
	clientID   = "c1111111-1111-1111-1111-111111111111"
	managerID  = "c2222222-2222-2222-2222-222222222222"
	courierID  = "c3333333-3333-3333-3333-333333333333"
	adminID    = "c4444444-4444-4444-4444-444444444444"
	strangerID = "c5555555-5555-5555-5555-555555555555"
	padsID     = "d1111111-1111-1111-1111-111111111111"
	oilID      = "d2222222-2222-2222-2222-222222222222"
	foreignID  = "d3333333-3333-3333-3333-333333333333"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type memState struct {
	products map[string]StockRow
	points   map[string]int
	orders   map[string]Order
	ledger   []string
}

func (s memState) clone() memState {
	c := memState{
		products: make(map[string]StockRow, len(s.products)),
		points:   make(map[string]int, len(s.points)),
		orders:   make(map[string]Order, len(s.orders)),
		ledger:   append([]string(nil), s.ledger...),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.points {
		c.points[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]Item(nil), v.Items...)
		c.orders[k] = v
	}
	return c
}

type memRepo struct {
	mu    sync.Mutex
	state memState
}

func newMemRepo() *memRepo {
	return &memRepo{state: memState{
		products: map[string]StockRow{
			padsID: {ID: padsID, StoreID: storeID, Name: "Pastillas", SKU: "PAD-1",
				Price: dec("40.00"), Stock: 5, CategoryID: "frenos", IsActive: true},
			oilID: {ID: oilID, StoreID: storeID, Name: "Aceite 5W30", SKU: "OIL-1",
				Price: dec("12.50"), Stock: 10, CategoryID: "lubricantes", IsActive: true},
			foreignID: {ID: foreignID, StoreID: otherStore, Name: "Filtro", SKU: "FLT-1",
				Price: dec("8.00"), Stock: 10, CategoryID: "motor", IsActive: true},
		},
		points: map[string]int{clientID: 500},
		orders: map[string]Order{},
	}}
}

// InTx runs fn against the live state and restores the snapshot on error.
func (m *memRepo) InTx(_ context.Context, fn func(tx Repository) error) error {
	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.state = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

func (m *memRepo) LockProducts(_ context.Context, ids []string) ([]StockRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := []StockRow{}
	for _, id := range ids {
		if row, ok := m.state.products[id]; ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func (m *memRepo) AdjustStock(_ context.Context, id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.state.products[id]
	if !ok || row.Stock+delta < 0 {
		return core.ErrNotFound
	}
	row.Stock += delta
	m.state.products[id] = row
	return nil
}

func (m *memRepo) AdjustPoints(_ context.Context, userID string, delta int, reason, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.points[userID]+delta < 0 {
		return ErrInsufficientPoints
	}
	m.state.points[userID] += delta
	m.state.ledger = append(m.state.ledger, reason)
	return nil
}

func (m *memRepo) Insert(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o.CreatedAt = time.Now()
	o.UpdatedAt = o.CreatedAt
	cp := *o
	cp.Items = append([]Item(nil), o.Items...)
	m.state.orders[o.ID] = cp
	return nil
}

func (m *memRepo) GetForUpdate(ctx context.Context, id string) (*Order, error) {
	return m.GetByID(ctx, id)
}

func (m *memRepo) SaveStatus(_ context.Context, o *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.state.orders[o.ID]
	if !ok {
		return core.ErrNotFound
	}
	stored.Status = o.Status
	stored.PointsEarned = o.PointsEarned
	stored.DeliveryUserID = o.DeliveryUserID
	stored.CancelReason = o.CancelReason
	m.state.orders[o.ID] = stored
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.state.orders[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	o.Items = append([]Item(nil), o.Items...)
	return &o, nil
}

func (m *memRepo) List(_ context.Context, params ListParams) ([]Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Order{}
	for _, o := range m.state.orders {
		if params.UserID != "" && o.UserID != params.UserID {
			continue
		}
		if params.StoreID != "" && o.StoreID != params.StoreID {
			continue
		}
		if params.DeliveryUserID != "" && o.DeliveryUser() != params.DeliveryUserID {
			continue
		}
		if params.Status != "" && o.Status != params.Status {
			continue
		}
		out = append(out, o)
	}
	return out, len(out), nil
}

func (m *memRepo) stock(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.products[id].Stock
}

func (m *memRepo) points(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.points[id]
}

type fakeStores struct{}

func (fakeStores) CanManage(_ context.Context, userID, role, id string) error {
	if role == middleware.RoleAdmin || (userID == managerID && id == storeID) {
		return nil
	}
	return core.ErrForbidden
}

func (fakeStores) IsActive(_ context.Context, id string) (bool, error) {
	return id == storeID || id == otherStore, nil
}

type fakeUsers map[string]string

func (f fakeUsers) GetRole(_ context.Context, id string) (string, error) {
	role, ok := f[id]
	if !ok {
		return "", core.ErrNotFound
	}
	return role, nil
}

// tenPercentOnBrakes discounts the "frenos" category by 10%.
type tenPercentOnBrakes struct{}

func (tenPercentOnBrakes) Resolve(_ context.Context, items []promotion.Item) ([]*promotion.Applied, error) {
	out := make([]*promotion.Applied, len(items))
	for i, it := range items {
		if it.CategoryID == "frenos" {
			out[i] = &promotion.Applied{
				PromotionID: "promo-frenos",
				Type:        promotion.TypePercentage,
				Value:       decimal.NewFromInt(10),
				Discount:    it.Price.Mul(dec("0.1")).Round(2),
			}
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(_ context.Context, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ev := payload.(events.OrderEvent)
	p.events = append(p.events, key+":"+ev.Status)
	return nil
}

func testPricing() Pricing {
	return Pricing{
		PointValue:       dec("0.01"),
		EarnRate:         dec("1"),
		DeliveryFee:      dec("5.00"),
		FreeDeliveryOver: dec("200"),
	}
}

func newTestService() (*Service, *memRepo, *recordingPublisher) {
	repo := newMemRepo()
	pub := &recordingPublisher{}
	svc := NewService(Deps{
		Repo:   repo,
		Stores: fakeStores{},
		Users: fakeUsers{
			clientID:  middleware.RoleClient,
			managerID: middleware.RoleStoreManager,
			courierID: middleware.RoleDelivery,
			adminID:   middleware.RoleAdmin,
		},
		Pricer:    tenPercentOnBrakes{},
		Publisher: pub,
		Pricing:   testPricing(),
	})
	return svc, repo, pub
}

func baseRequest() CreateOrderRequest {
	return CreateOrderRequest{
		StoreID: storeID,
		Items: []ItemRequest{
			{ProductID: padsID, Quantity: 2},
			{ProductID: oilID, Quantity: 1},
		},
		DeliveryAddress: "Av. Bolívar 123, Valencia",
	}
}

func TestPricing(t *testing.T) {
	p := testPricing()

	assert.Equal(t, "5", p.Fee(dec("199.99")).String())
	assert.True(t, p.Fee(dec("200")).IsZero())
	assert.Equal(t, 8450, p.MaxRedeemable(dec("84.50")))
	assert.Equal(t, 0, p.MaxRedeemable(decimal.Zero))
	assert.Equal(t, 89, p.Earned(dec("89.99")))

	p.FreeDeliveryOver = decimal.Zero
	assert.Equal(t, "5", p.Fee(dec("1000")).String())
}

func TestCheckTransition(t *testing.T) {
	courier := courierID
	tests := []struct {
		name     string
		from     string
		to       string
		courier  *string
		actor    Actor
		wantErr  error
		wantPass bool
	}{
		{"staff confirms", StatusPending, StatusConfirmed, nil, Actor{IsStaff: true}, nil, true},
		{"customer cannot confirm", StatusPending, StatusConfirmed, nil, Actor{IsCustomer: true}, core.ErrForbidden, false},
		{"no skipping", StatusPending, StatusReady, nil, Actor{IsStaff: true}, core.ErrConflict, false},
		{"customer cancels pending", StatusPending, StatusCancelled, nil, Actor{IsCustomer: true}, nil, true},
		{"customer late cancel", StatusPreparing, StatusCancelled, nil, Actor{IsCustomer: true}, core.ErrConflict, false},
		{"staff cancels preparing", StatusPreparing, StatusCancelled, nil, Actor{IsStaff: true}, nil, true},
		{"nobody cancels ready", StatusReady, StatusCancelled, nil, Actor{IsAdmin: true}, core.ErrConflict, false},
		{"dispatch needs courier", StatusReady, StatusOutForDelivery, nil, Actor{IsAdmin: true}, core.ErrConflict, false},
		{"staff cannot dispatch", StatusReady, StatusOutForDelivery, &courier, Actor{IsStaff: true}, core.ErrForbidden, false},
		{"courier dispatches", StatusReady, StatusOutForDelivery, &courier, Actor{IsCourier: true}, nil, true},
		{"courier delivers", StatusOutForDelivery, StatusDelivered, &courier, Actor{IsCourier: true}, nil, true},
		{"same status", StatusReady, StatusReady, nil, Actor{IsAdmin: true}, core.ErrConflict, false},
		{"unknown status", StatusReady, "lost", nil, Actor{IsAdmin: true}, core.ErrInvalidInput, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Order{Status: tt.from, DeliveryUserID: tt.courier}
			err := CheckTransition(o, tt.to, tt.actor)
			if tt.wantPass {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestServiceCreateTotals(t *testing.T) {
	svc, repo, pub := newTestService()

	req := baseRequest()
	req.RedeemPoints = 250
	o, err := svc.Create(context.Background(), clientID, req)
	require.NoError(t, err)

	assert.Equal(t, "92.5", o.Subtotal.String())
	assert.Equal(t, "8", o.Discount.String())
	assert.Equal(t, 250, o.PointsRedeemed)
	assert.Equal(t, "2.5", o.PointsDiscount.String())
	assert.Equal(t, "5", o.DeliveryFee.String())
	assert.Equal(t, "87", o.Total.String())
	require.Len(t, o.Items, 2)

	assert.Equal(t, 3, repo.stock(padsID))
	assert.Equal(t, 9, repo.stock(oilID))
	assert.Equal(t, 250, repo.points(clientID))
	assert.Equal(t, []string{"order.created:pending"}, pub.events)
}

func TestServiceCreateCapsRedeemedPoints(t *testing.T) {
	svc, repo, _ := newTestService()
	repo.state.points[clientID] = 100000

	req := baseRequest()
	req.Items = []ItemRequest{{ProductID: oilID, Quantity: 1}}
	req.RedeemPoints = 100000

	o, err := svc.Create(context.Background(), clientID, req)
	require.NoError(t, err)
	assert.Equal(t, 1250, o.PointsRedeemed)
	assert.Equal(t, "5", o.Total.String())
}

func TestServiceCreateFailuresRollBack(t *testing.T) {
	ctx := context.Background()

	t.Run("insufficient stock", func(t *testing.T) {
		svc, repo, pub := newTestService()
		req := baseRequest()
		req.Items[0].Quantity = 6
		_, err := svc.Create(ctx, clientID, req)
		assert.ErrorIs(t, err, ErrInsufficientStock)
		assert.Equal(t, 5, repo.stock(padsID))
		assert.Empty(t, pub.events)
	})

	t.Run("not enough points", func(t *testing.T) {
		svc, repo, _ := newTestService()
		req := baseRequest()
		req.RedeemPoints = 600
		_, err := svc.Create(ctx, clientID, req)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
		assert.Equal(t, 5, repo.stock(padsID))
		assert.Equal(t, 500, repo.points(clientID))
	})

	t.Run("foreign product", func(t *testing.T) {
		svc, _, _ := newTestService()
		req := baseRequest()
		req.Items = append(req.Items, ItemRequest{ProductID: foreignID, Quantity: 1})
		_, err := svc.Create(ctx, clientID, req)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("duplicate product", func(t *testing.T) {
		svc, _, _ := newTestService()
		req := baseRequest()
		req.Items = append(req.Items, ItemRequest{ProductID: padsID, Quantity: 1})
		_, err := svc.Create(ctx, clientID, req)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})

	t.Run("inactive store", func(t *testing.T) {
		svc, _, _ := newTestService()
		req := baseRequest()
		req.StoreID = "closed"
		_, err := svc.Create(ctx, clientID, req)
		assert.ErrorIs(t, err, core.ErrInvalidInput)
	})
}

func TestServiceCancelRestoresStockAndPoints(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newTestService()

	req := baseRequest()
	req.RedeemPoints = 100
	o, err := svc.Create(ctx, clientID, req)
	require.NoError(t, err)
	require.Equal(t, 400, repo.points(clientID))

	_, err = svc.Cancel(ctx, strangerID, middleware.RoleClient, o.ID, "")
	assert.ErrorIs(t, err, core.ErrNotFound)

	cancelled, err := svc.Cancel(ctx, clientID, middleware.RoleClient, o.ID, " changed my mind ")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)
	assert.Equal(t, "changed my mind", cancelled.CancelReason)

	assert.Equal(t, 5, repo.stock(padsID))
	assert.Equal(t, 10, repo.stock(oilID))
	assert.Equal(t, 500, repo.points(clientID))
	assert.Contains(t, pub.events, "order.status_changed:cancelled")
}

func TestServiceLifecycleAwardsPoints(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newTestService()

	o, err := svc.Create(ctx, clientID, baseRequest())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, clientID, middleware.RoleClient, o.ID, StatusConfirmed, "")
	assert.ErrorIs(t, err, core.ErrForbidden)

	for _, status := range []string{StatusConfirmed, StatusPreparing, StatusReady} {
		_, err := svc.Transition(ctx, managerID, middleware.RoleStoreManager, o.ID, status, "")
		require.NoError(t, err, status)
	}

	_, err = svc.AssignDelivery(ctx, managerID, middleware.RoleStoreManager, o.ID, clientID)
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.AssignDelivery(ctx, clientID, middleware.RoleClient, o.ID, courierID)
	assert.ErrorIs(t, err, core.ErrForbidden)

	assigned, err := svc.AssignDelivery(ctx, managerID, middleware.RoleStoreManager, o.ID, courierID)
	require.NoError(t, err)
	assert.Equal(t, courierID, assigned.DeliveryUser())

	got, err := svc.Get(ctx, courierID, middleware.RoleDelivery, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, got.Status)

	_, err = svc.Transition(ctx, managerID, middleware.RoleStoreManager, o.ID, StatusOutForDelivery, "")
	assert.ErrorIs(t, err, core.ErrForbidden)

	_, err = svc.Transition(ctx, courierID, middleware.RoleDelivery, o.ID, StatusOutForDelivery, "")
	require.NoError(t, err)

	delivered, err := svc.Transition(ctx, courierID, middleware.RoleDelivery, o.ID, StatusDelivered, "")
	require.NoError(t, err)
	assert.Equal(t, 89, delivered.PointsEarned)
	assert.Equal(t, 589, repo.points(clientID))

	_, err = svc.Cancel(ctx, adminID, middleware.RoleAdmin, o.ID, "")
	assert.ErrorIs(t, err, core.ErrConflict)

	assert.Equal(t, []string{
		"order.created:pending",
		"order.status_changed:confirmed",
		"order.status_changed:preparing",
		"order.status_changed:ready",
		"order.delivery_assigned:ready",
		"order.status_changed:out_for_delivery",
		"order.status_changed:delivered",
	}, pub.events)

	mine, total, err := svc.ListForCourier(ctx, courierID, ListParams{Status: StatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, o.ID, mine[0].ID)

	_, _, err = svc.ListForStore(ctx, strangerID, middleware.RoleStoreManager, storeID, ListParams{})
	assert.ErrorIs(t, err, core.ErrForbidden)
}

func TestRepositoryAdjustPointsInsufficient(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "pgx"))

	mock.ExpectExec(`WITH updated AS \(\s*UPDATE users`).
		WithArgs(clientID, -50, PointsReasonRedeem, "o1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.AdjustPoints(context.Background(), clientID, -50, PointsReasonRedeem, "o1")
	assert.ErrorIs(t, err, ErrInsufficientPoints)
}

func TestRepositoryLockProductsInTx(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "pgx"))

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM products\s+WHERE id IN \(\$1, \$2\)\s+ORDER BY id\s+FOR UPDATE`).
		WithArgs(padsID, oilID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "store_id", "name", "sku", "price", "stock", "category_id", "is_active", "deleted",
		}).AddRow(padsID, storeID, "Pastillas", "PAD-1", "40.00", 5, "frenos", true, false))
	mock.ExpectExec(`UPDATE products SET stock = stock \+ \$2`).
		WithArgs(padsID, -1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = repo.InTx(context.Background(), func(tx Repository) error {
		rows, err := tx.LockProducts(context.Background(), []string{padsID, oilID})
		if err != nil {
			return err
		}
		require.Len(t, rows, 1)
		return tx.AdjustStock(context.Background(), rows[0].ID, -1)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandlerCreateOrder(t *testing.T) {
	svc, _, _ := newTestService()

	router := func(userID, role string) http.Handler {
		r := chi.NewRouter()
		NewHandler(svc).RegisterRoutes(r, func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := middleware.WithClaims(req.Context(), &middleware.AccessTokenClaims{
					UserID: userID, Role: role,
				})
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})
		return r
	}

	body := `{"store_id":"` + storeID + `","delivery_address":"Calle 5, Maracay",` +
		`"items":[{"product_id":"` + oilID + `","quantity":2}]}`

	w := httptest.NewRecorder()
	router(courierID, middleware.RoleDelivery).ServeHTTP(w,
		httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	router(clientID, middleware.RoleClient).ServeHTTP(w,
		httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(`{"store_id":"`+storeID+`","items":[]}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router(clientID, middleware.RoleClient).ServeHTTP(w,
		httptest.NewRequest(http.MethodPost, "/orders", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Data OrderResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, StatusPending, resp.Data.Status)
	assert.Equal(t, "30", resp.Data.Total.String())

	w = httptest.NewRecorder()
	router(clientID, middleware.RoleClient).ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/orders/mine?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	router(clientID, middleware.RoleClient).ServeHTTP(w,
		httptest.NewRequest(http.MethodPost, "/orders/"+resp.Data.ID+"/cancel", nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
