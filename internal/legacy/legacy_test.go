// AngelaMos | 2026
// legacy_test.go

package legacy

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/repuestospro/backend/internal/middleware"
)

type rawDecoder struct {
	data []byte
}

func (d rawDecoder) Decode(v any) error {
	return bson.Unmarshal(d.data, v)
}

type memSource map[string][]any

func (m memSource) Each(_ context.Context, collection string, fn func(Decoder) error) error {
	for _, doc := range m[collection] {
		data, err := bson.Marshal(doc)
		if err != nil {
			return err
		}
		if err := fn(rawDecoder{data: data}); err != nil {
			return err
		}
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

func TestIDForIsDeterministic(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("64b7f0c2e4a1b2c3d4e5f601")
	require.NoError(t, err)

	first := IDFor(oid)
	assert.Equal(t, first, IDFor(oid))

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(5), parsed.Version())

	other, err := primitive.ObjectIDFromHex("64b7f0c2e4a1b2c3d4e5f602")
	require.NoError(t, err)
	assert.NotEqual(t, first, IDFor(other))
}

func TestDocumentMapping(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("user", func(t *testing.T) {
		row, err := userDoc{
			ID: primitive.NewObjectID(), Email: " Ana@Correo.COM ", Password: "$2b$10$abc",
			Role: "Repartidor", Points: -5,
		}.row()
		require.NoError(t, err)
		assert.Equal(t, "ana@correo.com", row.Email)
		assert.Equal(t, "ana@correo.com", row.Name)
		assert.Equal(t, middleware.RoleDelivery, row.Role)
		assert.Zero(t, row.Points)
		assert.False(t, row.CreatedAt.IsZero())

		_, err = userDoc{ID: primitive.NewObjectID(), Email: "x@y.z"}.row()
		assert.ErrorIs(t, err, ErrRejected)
	})

	t.Run("store", func(t *testing.T) {
		owner := primitive.NewObjectID()
		manager := primitive.NewObjectID()
		row, managers, err := storeDoc{
			ID: primitive.NewObjectID(), Name: "Repuestos El Toro", Owner: owner,
			Managers: []primitive.ObjectID{owner, manager},
			Location: &geoPoint{Type: "Point", Coordinates: []float64{-67.99, 10.16}},
		}.row()
		require.NoError(t, err)
		assert.True(t, row.IsActive)
		assert.Equal(t, IDFor(owner), row.OwnerID)
		require.NotNil(t, row.Latitude)
		assert.InDelta(t, 10.16, *row.Latitude, 1e-9)
		assert.InDelta(t, -67.99, *row.Longitude, 1e-9)
		require.Len(t, managers, 1)
		assert.Equal(t, IDFor(manager), managers[0].UserID)
	})

	t.Run("product keeps soft delete", func(t *testing.T) {
		row, err := productDoc{
			ID: primitive.NewObjectID(), Store: primitive.NewObjectID(),
			Category: primitive.NewObjectID(), Brand: ptr(primitive.NewObjectID()),
			Name: "Bujía", SKU: " ngk-22 ", Price: 19.999, Stock: -3,
			VehicleCompatibility: []string{"Corolla 2010", "Yaris 2012"},
			IsActive: ptr(false), Deleted: true, CreatedAt: created,
		}.row()
		require.NoError(t, err)
		assert.Equal(t, "NGK-22", row.SKU)
		assert.Equal(t, "20", row.Price.String())
		assert.Zero(t, row.Stock)
		assert.False(t, row.IsActive)
		assert.Nil(t, row.SubcategoryID)
		assert.NotNil(t, row.BrandID)
		assert.Equal(t, "Corolla 2010, Yaris 2012", row.VehicleCompatibility)
		require.NotNil(t, row.DeletedAt)
		assert.Equal(t, created, *row.DeletedAt)
	})

	t.Run("product without price is rejected", func(t *testing.T) {
		_, err := productDoc{
			ID: primitive.NewObjectID(), Store: primitive.NewObjectID(),
			Category: primitive.NewObjectID(), SKU: "A",
		}.row()
		assert.ErrorIs(t, err, ErrRejected)
	})
}

func TestImporterDryRun(t *testing.T) {
	store := primitive.NewObjectID()
	category := primitive.NewObjectID()
	dupCategory := primitive.NewObjectID()

	source := memSource{
		"users": {
			userDoc{ID: primitive.NewObjectID(), Email: "a@b.c", Password: "h", Name: "Ana"},
			userDoc{ID: primitive.NewObjectID(), Name: "sin correo"},
		},
		"stores": {storeDoc{ID: store, Name: "Tienda", Owner: primitive.NewObjectID()}},
		"categories": {
			categoryDoc{ID: category, Name: "Frenos"},
			categoryDoc{ID: dupCategory, Name: "frenos"},
		},
		"products": {
			productDoc{ID: primitive.NewObjectID(), Store: store, Category: category,
				SKU: "P-1", Name: "Disco", Price: 30},
			bson.M{"_id": primitive.NewObjectID(), "price": "caro"},
		},
	}

	imp := NewImporter(source, nil, nil, Options{DryRun: true})
	summary, err := imp.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Collections, len(Collections))

	byName := map[string]CollectionSummary{}
	for _, c := range summary.Collections {
		byName[c.Collection] = c
	}
	assert.Equal(t, CollectionSummary{Collection: "users", Read: 2, Inserted: 1, Rejected: 1}, byName["users"])
	assert.Equal(t, 2, byName["categories"].Inserted)
	assert.Equal(t, CollectionSummary{Collection: "products", Read: 2, Inserted: 1, Rejected: 1}, byName["products"])
	assert.Zero(t, byName["brands"].Read)

	assert.Contains(t, imp.slugs["categories"], "frenos")
	hex := dupCategory.Hex()
	assert.Contains(t, imp.slugs["categories"], "frenos-"+hex[len(hex)-6:])

	var out bytes.Buffer
	require.NoError(t, summary.Write(&out))
	assert.Contains(t, out.String(), "WOULD INSERT")
	assert.Contains(t, out.String(), "products")
}

func TestImporterSkipsExistingRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	first := userDoc{ID: primitive.NewObjectID(), Email: "uno@b.c", Password: "h", Name: "Uno"}
	second := userDoc{ID: primitive.NewObjectID(), Email: "dos@b.c", Password: "h", Name: "Dos"}
	source := memSource{
		"users":  {first, second},
		"brands": {brandDoc{ID: primitive.NewObjectID(), Name: "Bosch"}},
	}

	mock.ExpectExec(`(?s)INSERT INTO users.*ON CONFLICT \(id\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`(?s)INSERT INTO users.*ON CONFLICT \(id\) DO NOTHING`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO brands`).
		WithArgs(sqlmock.AnyArg(), "Bosch", "bosch").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	imp := NewImporter(source, sqlx.NewDb(db, "pgx"), nil, Options{})
	summary, err := imp.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, CollectionSummary{Collection: "users", Read: 2, Inserted: 1, Skipped: 1},
		summary.Collections[0])
	assert.Equal(t, CollectionSummary{Collection: "brands", Read: 1, Failed: 1},
		summary.Collections[4])
	assert.NoError(t, mock.ExpectationsWereMet())
}
