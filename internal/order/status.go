// AngelaMos | 2026
// status.go

package order

import (
	"fmt"

	"github.com/repuestospro/backend/internal/core"
)

// Actor is the caller of a transition, resolved against one order.
type Actor struct {
	UserID     string
	IsAdmin    bool
	IsCustomer bool
	IsStaff    bool
	IsCourier  bool
}

var next = map[string]string{
	StatusPending:        StatusConfirmed,
	StatusConfirmed:      StatusPreparing,
	StatusPreparing:      StatusReady,
	StatusReady:          StatusOutForDelivery,
	StatusOutForDelivery: StatusDelivered,
}

// CanView reports whether the actor may read the order.
func (a Actor) CanView() bool {
	return a.IsAdmin || a.IsCustomer || a.IsStaff || a.IsCourier
}

// CheckTransition validates moving o to status `to` on behalf of a.
// Forward moves go one step at a time; cancellation is allowed from
// pending for everyone involved and from confirmed or preparing for the
// store and admins.
func CheckTransition(o *Order, to string, a Actor) error {
	if !IsValidStatus(to) {
		return core.ValidationError("unknown status " + to)
	}
	if o.Status == to {
		return core.ConflictError("order is already " + to)
	}

	if to == StatusCancelled {
		return checkCancel(o, a)
	}

	if next[o.Status] != to {
		return core.ConflictError(fmt.Sprintf("cannot move order from %s to %s", o.Status, to))
	}

	switch to {
	case StatusConfirmed, StatusPreparing, StatusReady:
		if a.IsStaff || a.IsAdmin {
			return nil
		}
	case StatusOutForDelivery, StatusDelivered:
		if o.DeliveryUserID == nil {
			return core.ConflictError("order has no delivery user assigned")
		}
		if a.IsCourier || a.IsAdmin {
			return nil
		}
	}

	return fmt.Errorf("order transition: %w", core.ErrForbidden)
}

func checkCancel(o *Order, a Actor) error {
	switch o.Status {
	case StatusPending:
		if a.IsCustomer || a.IsStaff || a.IsAdmin {
			return nil
		}
	case StatusConfirmed, StatusPreparing:
		if a.IsStaff || a.IsAdmin {
			return nil
		}
		if a.IsCustomer {
			return core.ConflictError("order can no longer be cancelled by the customer")
		}
	default:
		return core.ConflictError("order cannot be cancelled once " + o.Status)
	}

	return fmt.Errorf("cancel order: %w", core.ErrForbidden)
}

// CanAssignDelivery reports whether a courier may be assigned in the
// order's current status.
func CanAssignDelivery(o *Order) bool {
	switch o.Status {
	case StatusConfirmed, StatusPreparing, StatusReady:
		return true
	}
	return false
}
