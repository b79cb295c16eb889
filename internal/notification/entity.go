// AngelaMos | 2026
// entity.go

package notification

import (
	"time"
)

const (
	KindOrderCreated     = "order_created"
	KindOrderStatus      = "order_status"
	KindDeliveryAssigned = "delivery_assigned"
)

type Notification struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	Kind      string     `db:"kind"`
	Title     string     `db:"title"`
	Body      string     `db:"body"`
	OrderID   *string    `db:"order_id"`
	ReadAt    *time.Time `db:"read_at"`
	CreatedAt time.Time  `db:"created_at"`
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
