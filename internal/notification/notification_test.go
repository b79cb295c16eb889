// AngelaMos | 2026
// notification_test.go

package notification

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/events"
	"github.com/repuestospro/backend/internal/middleware"
)

const (
	orderID   = "0f0f0f0f-0000-4000-8000-000000000001"
	storeID   = "5a5a5a5a-0000-4000-8000-000000000002"
	ownerID   = "aaaaaaaa-0000-4000-8000-000000000003"
	managerID = "bbbbbbbb-0000-4000-8000-000000000004"
	clientID  = "cccccccc-0000-4000-8000-000000000005"
	courierID = "dddddddd-0000-4000-8000-000000000006"
)

type memRepo struct {
	mu    sync.Mutex
	items []Notification
}

func (m *memRepo) InsertMany(_ context.Context, items []Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range items {
		n.CreatedAt = time.Now()
		m.items = append(m.items, n)
	}
	return nil
}

func (m *memRepo) List(_ context.Context, params ListParams) ([]Notification, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Notification{}
	for _, n := range m.items {
		if n.UserID == params.UserID && (!params.UnreadOnly || n.ReadAt == nil) {
			out = append(out, n)
		}
	}
	return out, len(out), nil
}

func (m *memRepo) MarkRead(_ context.Context, id, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.items {
		if m.items[i].ID == id && m.items[i].UserID == userID {
			now := time.Now()
			m.items[i].ReadAt = &now
			return nil
		}
	}
	return core.ErrNotFound
}

func (m *memRepo) MarkAllRead(_ context.Context, userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.items {
		if m.items[i].UserID == userID && m.items[i].ReadAt == nil {
			now := time.Now()
			m.items[i].ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (m *memRepo) forUser(userID string) []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Notification{}
	for _, n := range m.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type fakeStaff map[string][]string

func (f fakeStaff) ManagerIDs(_ context.Context, storeID string) ([]string, error) {
	ids, ok := f[storeID]
	if !ok {
		return nil, errors.New("store lookup failed")
	}
	return ids, nil
}

func newMux(repo *memRepo) *events.Mux {
	mux := events.NewMux()
	staff := fakeStaff{storeID: {ownerID, managerID, ownerID}}
	NewSubscriber(NewService(repo), staff).Register(mux)
	return mux
}

func dispatch(t *testing.T, mux *events.Mux, key string, payload events.OrderEvent) error {
	t.Helper()
	e, err := events.NewEvent(key, payload)
	require.NoError(t, err)
	return mux.Dispatch(context.Background(), e)
}

func TestSubscriberOrderCreatedNotifiesStaff(t *testing.T) {
	repo := &memRepo{}
	mux := newMux(repo)

	err := dispatch(t, mux, events.OrderCreated, events.OrderEvent{
		OrderID: orderID, UserID: clientID, StoreID: storeID, Status: "pending", Total: "87.00",
	})
	require.NoError(t, err)

	require.Len(t, repo.items, 2)
	for _, userID := range []string{ownerID, managerID} {
		got := repo.forUser(userID)
		require.Len(t, got, 1)
		assert.Equal(t, KindOrderCreated, got[0].Kind)
		assert.Equal(t, "New order #0f0f0f0f", got[0].Title)
		assert.Contains(t, got[0].Body, "87.00")
		require.NotNil(t, got[0].OrderID)
		assert.Equal(t, orderID, *got[0].OrderID)
	}
	assert.Empty(t, repo.forUser(clientID))
}

func TestSubscriberStatusAndAssignment(t *testing.T) {
	repo := &memRepo{}
	mux := newMux(repo)

	require.NoError(t, dispatch(t, mux, events.OrderStatusChanged, events.OrderEvent{
		OrderID: orderID, UserID: clientID, StoreID: storeID,
		Status: "out_for_delivery", PreviousStatus: "ready",
	}))
	require.NoError(t, dispatch(t, mux, events.OrderDeliveryAssigned, events.OrderEvent{
		OrderID: orderID, UserID: clientID, StoreID: storeID,
		Status: "ready", DeliveryUserID: courierID,
	}))

	customer := repo.forUser(clientID)
	require.Len(t, customer, 1)
	assert.Equal(t, KindOrderStatus, customer[0].Kind)
	assert.Equal(t, "Order #0f0f0f0f is out for delivery", customer[0].Title)

	courier := repo.forUser(courierID)
	require.Len(t, courier, 1)
	assert.Equal(t, KindDeliveryAssigned, courier[0].Kind)
}

func TestSubscriberRejectsMalformedEvents(t *testing.T) {
	repo := &memRepo{}
	mux := newMux(repo)

	err := mux.Dispatch(context.Background(), events.Event{
		Type:    events.OrderCreated,
		Payload: json.RawMessage(`{"order_id":`),
	})
	assert.ErrorIs(t, err, events.ErrMalformed)

	err = dispatch(t, mux, events.OrderDeliveryAssigned, events.OrderEvent{OrderID: orderID})
	assert.ErrorIs(t, err, events.ErrMalformed)

	err = dispatch(t, mux, events.OrderStatusChanged, events.OrderEvent{UserID: clientID})
	assert.ErrorIs(t, err, events.ErrMalformed)

	err = dispatch(t, mux, events.OrderCreated, events.OrderEvent{OrderID: orderID, StoreID: "gone"})
	assert.Error(t, err)
	assert.NotErrorIs(t, err, events.ErrMalformed)

	assert.Empty(t, repo.items)
}

func TestServiceMarkRead(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	ctx := context.Background()

	require.NoError(t, svc.Notify(ctx, []string{clientID, "", clientID}, KindOrderStatus, "t", "b", nil))
	require.Len(t, repo.items, 1)
	id := repo.items[0].ID

	assert.ErrorIs(t, svc.MarkRead(ctx, clientID, "not-a-uuid"), core.ErrNotFound)
	assert.ErrorIs(t, svc.MarkRead(ctx, courierID, id), core.ErrNotFound)
	require.NoError(t, svc.MarkRead(ctx, clientID, id))

	unread, total, err := svc.List(ctx, ListParams{UserID: clientID, UnreadOnly: true})
	require.NoError(t, err)
	assert.Empty(t, unread)
	assert.Zero(t, total)
}

func TestRepositoryListUnread(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "pgx"))

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications WHERE user_id = \$1 AND read_at IS NULL`).
		WithArgs(clientID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`FROM notifications WHERE user_id = \$1 AND read_at IS NULL\s+ORDER BY created_at DESC`).
		WithArgs(clientID, 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "kind", "title", "body", "order_id", "read_at", "created_at",
		}).AddRow("n1", clientID, KindOrderStatus, "Order", "", orderID, nil, time.Now()))

	items, total, err := repo.List(context.Background(), ListParams{
		PageParams: core.PageParams{Page: 2, PageSize: 10},
		UserID:     clientID,
		UnreadOnly: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, items, 1)
	assert.False(t, items[0].IsRead())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryMarkReadNotOwned(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(sqlx.NewDb(db, "pgx"))

	mock.ExpectExec(`UPDATE notifications SET read_at = COALESCE\(read_at, NOW\(\)\)`).
		WithArgs(orderID, courierID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.MarkRead(context.Background(), orderID, courierID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestHandlerReadAll(t *testing.T) {
	repo := &memRepo{}
	svc := NewService(repo)
	require.NoError(t, svc.Notify(context.Background(),
		[]string{clientID}, KindOrderStatus, "a", "", nil))
	require.NoError(t, svc.Notify(context.Background(),
		[]string{clientID, courierID}, KindOrderStatus, "b", "", nil))

	r := chi.NewRouter()
	NewHandler(svc).RegisterRoutes(r, func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithClaims(req.Context(), &middleware.AccessTokenClaims{
				UserID: clientID, Role: middleware.RoleClient,
			})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notifications?unread_only=true", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var list struct {
		Data       []NotificationResponse `json:"data"`
		Pagination core.PaginationMeta    `json:"pagination"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Len(t, list.Data, 2)
	assert.Equal(t, 2, list.Pagination.Total)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/notifications/read-all", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"updated":2}}`, w.Body.String())

	assert.Len(t, repo.forUser(courierID), 1)
	assert.Nil(t, repo.forUser(courierID)[0].ReadAt)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/notifications/"+orderID+"/read", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
