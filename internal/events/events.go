// AngelaMos | 2026
// events.go

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated          = "order.created"
	OrderStatusChanged    = "order.status_changed"
	OrderDeliveryAssigned = "order.delivery_assigned"
)

// ErrMalformed marks events that will never be processable. Consumers drop
// them instead of redelivering.
var ErrMalformed = errors.New("malformed event")

type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// OrderEvent is the payload of every order.* event.
type OrderEvent struct {
	OrderID        string `json:"order_id"`
	UserID         string `json:"user_id"`
	StoreID        string `json:"store_id"`
	Status         string `json:"status"`
	PreviousStatus string `json:"previous_status,omitempty"`
	DeliveryUserID string `json:"delivery_user_id,omitempty"`
	Total          string `json:"total"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type Handler func(ctx context.Context, e Event) error

func NewEvent(routingKey string, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", routingKey, err)
	}

	return Event{
		ID:         uuid.New().String(),
		Type:       routingKey,
		OccurredAt: time.Now().UTC(),
		Payload:    body,
	}, nil
}

// Decode unmarshals the payload, reporting failures as ErrMalformed.
func (e Event) Decode(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformed, e.Type, err)
	}
	return nil
}

// Mux routes events to handlers by type. Unknown types are ignored.
type Mux struct {
	handlers map[string][]Handler
}

func NewMux() *Mux {
	return &Mux{handlers: make(map[string][]Handler)}
}

func (m *Mux) Handle(eventType string, h Handler) {
	m.handlers[eventType] = append(m.handlers[eventType], h)
}

func (m *Mux) Keys() []string {
	keys := make([]string, 0, len(m.handlers))
	for k := range m.handlers {
		keys = append(keys, k)
	}
	return keys
}

func (m *Mux) Dispatch(ctx context.Context, e Event) error {
	var errs []error
	for _, h := range m.handlers[e.Type] {
		if err := h(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
