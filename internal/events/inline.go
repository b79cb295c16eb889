// AngelaMos | 2026
// inline.go

package events

import (
	"context"
	"log/slog"
)

// InlinePublisher hands events straight to a local handler. It is used
// when no broker is configured. Handler failures are logged, never
// returned, so a committed write is not reported as failed.
type InlinePublisher struct {
	handler Handler
	logger  *slog.Logger
}

func NewInlinePublisher(handler Handler, logger *slog.Logger) *InlinePublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &InlinePublisher{handler: handler, logger: logger}
}

func (p *InlinePublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	event, err := NewEvent(routingKey, payload)
	if err != nil {
		return err
	}

	if p.handler == nil {
		return nil
	}

	if err := p.handler(context.WithoutCancel(ctx), event); err != nil {
		p.logger.Error("inline event handler failed",
			"event_id", event.ID,
			"type", routingKey,
			"error", err,
		)
	}

	return nil
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
