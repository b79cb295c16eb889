// AngelaMos | 2026
// importer.go

package legacy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.opentelemetry.io/otel/attribute"

	"github.com/repuestospro/backend/internal/catalog"
	"github.com/repuestospro/backend/internal/core"
)

// ErrRejected marks documents that cannot be mapped onto the schema. They
// are counted and skipped, never fatal.
var ErrRejected = errors.New("document rejected")

func rejectf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrRejected, fmt.Sprintf(format, args...))
}

// Collections in dependency order.
var Collections = []string{"users", "stores", "categories", "subcategories", "brands", "products"}

type Options struct {
	DryRun bool
}

type CollectionSummary struct {
	Collection string
	Read       int
	Inserted   int
	Skipped    int
	Rejected   int
	Failed     int
}

type Summary struct {
	DryRun      bool
	Collections []CollectionSummary
}

func (s *Summary) Write(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	inserted := "INSERTED"
	if s.DryRun {
		inserted = "WOULD INSERT"
	}
	fmt.Fprintf(tw, "COLLECTION\tREAD\t%s\tSKIPPED\tREJECTED\tFAILED\n", inserted)
	for _, c := range s.Collections {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n",
			c.Collection, c.Read, c.Inserted, c.Skipped, c.Rejected, c.Failed)
	}
	return tw.Flush()
}

// Importer copies the legacy Mongo collections into Postgres. Ids are
// derived from ObjectIDs and rows are inserted with ON CONFLICT (id) DO
// NOTHING, so a second run only adds what the first one missed.
type Importer struct {
	source Source
	db     core.DBTX
	logger *slog.Logger
	dryRun bool
	slugs  map[string]map[string]struct{}
}

func NewImporter(source Source, db core.DBTX, logger *slog.Logger, opts Options) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		source: source,
		db:     db,
		logger: logger,
		dryRun: opts.DryRun,
		slugs:  make(map[string]map[string]struct{}),
	}
}

func (i *Importer) Run(ctx context.Context) (*Summary, error) {
	steps := map[string]func(context.Context, *CollectionSummary) error{
		"users":         i.importUsers,
		"stores":        i.importStores,
		"categories":    i.importCategories,
		"subcategories": i.importSubcategories,
		"brands":        i.importBrands,
		"products":      i.importProducts,
	}

	summary := &Summary{DryRun: i.dryRun}
	for _, name := range Collections {
		cs := CollectionSummary{Collection: name}
		stepCtx, span := core.StartSpan(ctx, "legacy.import",
			attribute.String("legacy.collection", name),
			attribute.Bool("legacy.dry_run", i.dryRun),
		)
		err := steps[name](stepCtx, &cs)
		span.SetAttributes(
			attribute.Int("legacy.read", cs.Read),
			attribute.Int("legacy.inserted", cs.Inserted),
		)
		core.EndSpan(span, err)
		summary.Collections = append(summary.Collections, cs)
		if err != nil {
			return summary, fmt.Errorf("import %s: %w", name, err)
		}

		i.logger.Info("collection imported",
			"collection", name,
			"read", cs.Read,
			"inserted", cs.Inserted,
			"skipped", cs.Skipped,
			"rejected", cs.Rejected,
			"failed", cs.Failed,
			"dry_run", i.dryRun,
		)
	}

	return summary, nil
}

func importEach[D, R any](
	ctx context.Context,
	i *Importer,
	cs *CollectionSummary,
	toRow func(D) (R, error),
	insert func(context.Context, R) (bool, error),
) error {
	return i.source.Each(ctx, cs.Collection, func(dec Decoder) error {
		cs.Read++

		var doc D
		if err := dec.Decode(&doc); err != nil {
			cs.Rejected++
			i.logger.Warn("undecodable document", "collection", cs.Collection, "error", err)
			return nil
		}

		row, err := toRow(doc)
		if errors.Is(err, ErrRejected) {
			cs.Rejected++
			i.logger.Warn("document rejected", "collection", cs.Collection, "reason", err)
			return nil
		}
		if err != nil {
			return err
		}

		if i.dryRun {
			cs.Inserted++
			return nil
		}

		inserted, err := insert(ctx, row)
		switch {
		case err != nil && ctx.Err() != nil:
			return ctx.Err()
		case err != nil:
			cs.Failed++
			i.logger.Warn("insert failed", "collection", cs.Collection, "error", err)
		case inserted:
			cs.Inserted++
		default:
			cs.Skipped++
		}
		return nil
	})
}

func (i *Importer) exec(ctx context.Context, query string, arg any) (bool, error) {
	result, err := sqlx.NamedExecContext(ctx, i.db, query, arg)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (i *Importer) importUsers(ctx context.Context, cs *CollectionSummary) error {
	query := `INSERT INTO users
		(id, email, password_hash, name, phone, role, loyalty_points, created_at, updated_at)
		VALUES (:id, :email, :password_hash, :name, :phone, :role, :loyalty_points,
			:created_at, :created_at)
		ON CONFLICT (id) DO NOTHING`

	return importEach(ctx, i, cs, userDoc.row, func(ctx context.Context, r userRow) (bool, error) {
		return i.exec(ctx, query, r)
	})
}

type storeWithManagers struct {
	store    storeRow
	managers []managerRow
}

func (i *Importer) importStores(ctx context.Context, cs *CollectionSummary) error {
	storeQuery := `INSERT INTO stores
		(id, name, description, owner_id, address, city, state, phone, email,
			latitude, longitude, logo_url, is_active, created_at, updated_at)
		VALUES (:id, :name, :description, :owner_id, :address, :city, :state, :phone, :email,
			:latitude, :longitude, :logo_url, :is_active, :created_at, :created_at)
		ON CONFLICT (id) DO NOTHING`
	managerQuery := `INSERT INTO store_managers (store_id, user_id)
		VALUES (:store_id, :user_id)
		ON CONFLICT DO NOTHING`

	toRow := func(d storeDoc) (storeWithManagers, error) {
		s, m, err := d.row()
		return storeWithManagers{store: s, managers: m}, err
	}

	return importEach(ctx, i, cs, toRow, func(ctx context.Context, r storeWithManagers) (bool, error) {
		inserted, err := i.exec(ctx, storeQuery, r.store)
		if err != nil {
			return false, err
		}
		for _, m := range r.managers {
			if _, err := i.exec(ctx, managerQuery, m); err != nil {
				i.logger.Warn("store manager skipped",
					"store_id", m.StoreID, "user_id", m.UserID, "error", err)
			}
		}
		return inserted, nil
	})
}

func (i *Importer) importCategories(ctx context.Context, cs *CollectionSummary) error {
	query := `INSERT INTO categories (id, name, slug, description, sort_order)
		VALUES (:id, :name, :slug, :description, :sort_order)
		ON CONFLICT (id) DO NOTHING`

	toRow := func(d categoryDoc) (catalog.Category, error) {
		c, err := d.row()
		c.Slug = i.uniqueSlug("categories", c.Slug, d.ID)
		return c, err
	}

	return importEach(ctx, i, cs, toRow, func(ctx context.Context, c catalog.Category) (bool, error) {
		return i.exec(ctx, query, c)
	})
}

func (i *Importer) importSubcategories(ctx context.Context, cs *CollectionSummary) error {
	query := `INSERT INTO subcategories (id, category_id, name, slug)
		VALUES (:id, :category_id, :name, :slug)
		ON CONFLICT (id) DO NOTHING`

	toRow := func(d subcategoryDoc) (catalog.Subcategory, error) {
		s, err := d.row()
		s.Slug = i.uniqueSlug("subcategories", s.Slug, d.ID)
		return s, err
	}

	return importEach(ctx, i, cs, toRow, func(ctx context.Context, s catalog.Subcategory) (bool, error) {
		return i.exec(ctx, query, s)
	})
}

func (i *Importer) importBrands(ctx context.Context, cs *CollectionSummary) error {
	query := `INSERT INTO brands (id, name, slug)
		VALUES (:id, :name, :slug)
		ON CONFLICT (id) DO NOTHING`

	toRow := func(d brandDoc) (catalog.Brand, error) {
		b, err := d.row()
		b.Slug = i.uniqueSlug("brands", b.Slug, d.ID)
		return b, err
	}

	return importEach(ctx, i, cs, toRow, func(ctx context.Context, b catalog.Brand) (bool, error) {
		return i.exec(ctx, query, b)
	})
}

func (i *Importer) importProducts(ctx context.Context, cs *CollectionSummary) error {
	query := `INSERT INTO products
		(id, store_id, name, description, sku, price, stock, category_id, subcategory_id,
			brand_id, vehicle_compatibility, image_url, is_active, deleted, deleted_at,
			created_at, updated_at)
		VALUES (:id, :store_id, :name, :description, :sku, :price, :stock, :category_id,
			:subcategory_id, :brand_id, :vehicle_compatibility, :image_url, :is_active,
			:deleted, :deleted_at, :created_at, :created_at)
		ON CONFLICT (id) DO NOTHING`

	return importEach(ctx, i, cs, productDoc.row, func(ctx context.Context, p productRow) (bool, error) {
		return i.exec(ctx, query, p)
	})
}

// uniqueSlug suffixes repeated slugs with the tail of the ObjectID. Input
// is walked in _id order, so the result is stable across runs.
func (i *Importer) uniqueSlug(table, slug string, oid primitive.ObjectID) string {
	if slug == "" {
		return slug
	}
	used, ok := i.slugs[table]
	if !ok {
		used = make(map[string]struct{})
		i.slugs[table] = used
	}
	if _, taken := used[slug]; taken {
		hex := oid.Hex()
		slug = slug + "-" + hex[len(hex)-6:]
	}
	used[slug] = struct{}{}
	return slug
}
