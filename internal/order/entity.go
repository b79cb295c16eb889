// AngelaMos | 2026
// entity.go

package order

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusPending        = "pending"
	StatusConfirmed      = "confirmed"
	StatusPreparing      = "preparing"
	StatusReady          = "ready"
	StatusOutForDelivery = "out_for_delivery"
	StatusDelivered      = "delivered"
	StatusCancelled      = "cancelled"
)

const (
	PointsReasonRedeem = "order_redeem"
	PointsReasonRefund = "order_refund"
	PointsReasonEarn   = "order_earn"
)

type Order struct {
	ID                string          `db:"id"`
	UserID            string          `db:"user_id"`
	StoreID           string          `db:"store_id"`
	Status            string          `db:"status"`
	Subtotal          decimal.Decimal `db:"subtotal"`
	Discount          decimal.Decimal `db:"discount"`
	PointsRedeemed    int             `db:"points_redeemed"`
	PointsDiscount    decimal.Decimal `db:"points_discount"`
	DeliveryFee       decimal.Decimal `db:"delivery_fee"`
	Total             decimal.Decimal `db:"total"`
	PointsEarned      int             `db:"points_earned"`
	DeliveryAddress   string          `db:"delivery_address"`
	DeliveryLatitude  *float64        `db:"delivery_latitude"`
	DeliveryLongitude *float64        `db:"delivery_longitude"`
	Notes             string          `db:"notes"`
	DeliveryUserID    *string         `db:"delivery_user_id"`
	CancelReason      string          `db:"cancel_reason"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
	Items             []Item          `db:"-"`
}

type Item struct {
	ID           string          `db:"id"`
	OrderID      string          `db:"order_id"`
	ProductID    string          `db:"product_id"`
	Name         string          `db:"name"`
	SKU          string          `db:"sku"`
	Quantity     int             `db:"quantity"`
	UnitPrice    decimal.Decimal `db:"unit_price"`
	UnitDiscount decimal.Decimal `db:"unit_discount"`
	LineTotal    decimal.Decimal `db:"line_total"`
}

// StockRow is a product row locked while an order is placed.
type StockRow struct {
	ID         string          `db:"id"`
	StoreID    string          `db:"store_id"`
	Name       string          `db:"name"`
	SKU        string          `db:"sku"`
	Price      decimal.Decimal `db:"price"`
	Stock      int             `db:"stock"`
	CategoryID string          `db:"category_id"`
	IsActive   bool            `db:"is_active"`
	Deleted    bool            `db:"deleted"`
}

func (o *Order) DeliveryUser() string {
	if o.DeliveryUserID == nil {
		return ""
	}
	return *o.DeliveryUserID
}

func IsValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}
