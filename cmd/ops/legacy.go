// AngelaMos | 2026
// legacy.go

package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/repuestospro/backend/internal/legacy"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		uri      string
		database string
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Copy users, stores, catalog and products from the legacy MongoDB",
		Long: "Copy users, stores, catalog and products from the legacy MongoDB. " +
			"Rows that already exist are skipped, so the import can be re-run.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if uri == "" {
				uri = os.Getenv("MONGO_URI")
			}
			if uri == "" {
				return errors.New("--mongo-uri or MONGO_URI is required")
			}

			ctx := cmd.Context()

			source, err := legacy.NewMongoSource(ctx, uri, database)
			if err != nil {
				return err
			}
			defer func() {
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if closeErr := source.Close(closeCtx); closeErr != nil {
					a.logger.Warn("mongo disconnect failed", "error", closeErr)
				}
			}()

			db, err := a.database(ctx)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits next

			importer := legacy.NewImporter(source, db.DB, a.logger, legacy.Options{DryRun: dryRun})
			summary, err := importer.Run(ctx)
			if summary != nil {
				if writeErr := summary.Write(os.Stdout); writeErr != nil {
					a.logger.Warn("write summary failed", "error", writeErr)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVar(&uri, "mongo-uri", "", "legacy MongoDB connection string")
	cmd.Flags().StringVar(&database, "mongo-db", "repuestos", "legacy database name")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be imported without writing")

	return cmd
}
