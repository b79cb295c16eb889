// AngelaMos | 2026
// subscriber.go

package notification

import (
	"context"
	"fmt"
	"strings"

	"github.com/repuestospro/backend/internal/events"
)

// StaffDirectory resolves the owner and managers of a store.
type StaffDirectory interface {
	ManagerIDs(ctx context.Context, storeID string) ([]string, error)
}

// Subscriber turns order events into notifications.
type Subscriber struct {
	service *Service
	staff   StaffDirectory
}

func NewSubscriber(service *Service, staff StaffDirectory) *Subscriber {
	return &Subscriber{service: service, staff: staff}
}

func (s *Subscriber) Register(mux *events.Mux) {
	mux.Handle(events.OrderCreated, s.orderCreated)
	mux.Handle(events.OrderStatusChanged, s.statusChanged)
	mux.Handle(events.OrderDeliveryAssigned, s.deliveryAssigned)
}

func (s *Subscriber) orderCreated(ctx context.Context, e events.Event) error {
	payload, err := decodeOrder(e)
	if err != nil {
		return err
	}

	staff, err := s.staff.ManagerIDs(ctx, payload.StoreID)
	if err != nil {
		return fmt.Errorf("resolve store staff: %w", err)
	}

	return s.service.Notify(ctx, staff, KindOrderCreated,
		"New order "+shortID(payload.OrderID),
		"A customer placed an order for "+payload.Total+".",
		&payload.OrderID,
	)
}

func (s *Subscriber) statusChanged(ctx context.Context, e events.Event) error {
	payload, err := decodeOrder(e)
	if err != nil {
		return err
	}

	return s.service.Notify(ctx, []string{payload.UserID}, KindOrderStatus,
		"Order "+shortID(payload.OrderID)+" is "+humanStatus(payload.Status),
		fmt.Sprintf("Your order moved from %s to %s.",
			humanStatus(payload.PreviousStatus), humanStatus(payload.Status)),
		&payload.OrderID,
	)
}

func (s *Subscriber) deliveryAssigned(ctx context.Context, e events.Event) error {
	payload, err := decodeOrder(e)
	if err != nil {
		return err
	}
	if payload.DeliveryUserID == "" {
		return fmt.Errorf("%w: %s without delivery user", events.ErrMalformed, e.Type)
	}

	return s.service.Notify(ctx, []string{payload.DeliveryUserID}, KindDeliveryAssigned,
		"Delivery assigned: order "+shortID(payload.OrderID),
		"You have a new order to deliver.",
		&payload.OrderID,
	)
}

func decodeOrder(e events.Event) (events.OrderEvent, error) {
	var payload events.OrderEvent
	if err := e.Decode(&payload); err != nil {
		return payload, err
	}
	if payload.OrderID == "" {
		return payload, fmt.Errorf("%w: %s without order id", events.ErrMalformed, e.Type)
	}
	return payload, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return "#" + id[:8]
	}
	return "#" + id
}

func humanStatus(status string) string {
	return strings.ReplaceAll(status, "_", " ")
}
