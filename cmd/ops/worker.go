// AngelaMos | 2026
// worker.go

package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/repuestospro/backend/internal/events"
	"github.com/repuestospro/backend/internal/media"
	"github.com/repuestospro/backend/internal/notification"
	"github.com/repuestospro/backend/internal/store"
	"github.com/repuestospro/backend/internal/user"
)

func newWorkerCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Consume order events from the broker and write notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Events.AMQPURL == "" {
				return errors.New("AMQP_URL is required to run the worker")
			}

			ctx := cmd.Context()

			db, err := a.database(ctx)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck // process exits next

			users := user.NewService(user.NewRepository(db.DB), a.cfg.Loyalty.PointValueDecimal())
			stores := store.NewService(store.NewRepository(db.DB), users, media.NewUploader(nil, 0))
			notifications := notification.NewService(notification.NewRepository(db.DB))

			mux := events.NewMux()
			notification.NewSubscriber(notifications, stores).Register(mux)

			consumer, err := events.NewConsumer(
				a.cfg.Events.AMQPURL,
				a.cfg.Events.Exchange,
				a.cfg.Events.Queue,
				mux.Keys(),
				a.logger,
			)
			if err != nil {
				return err
			}
			defer consumer.Close() //nolint:errcheck // process exits next

			a.logger.Info("worker consuming",
				"exchange", a.cfg.Events.Exchange,
				"queue", a.cfg.Events.Queue,
				"keys", mux.Keys(),
			)
			return consumer.Run(ctx, mux.Dispatch)
		},
	}
}
