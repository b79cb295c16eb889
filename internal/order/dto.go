// AngelaMos | 2026
// dto.go

package order

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/repuestospro/backend/internal/core"
)

type ItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity"   validate:"required,min=1,max=100"`
}

type CreateOrderRequest struct {
	StoreID           string        `json:"store_id"                     validate:"required,uuid"`
	Items             []ItemRequest `json:"items"                        validate:"required,min=1,max=50,dive"`
	DeliveryAddress   string        `json:"delivery_address"             validate:"required,min=5,max=500"`
	DeliveryLatitude  *float64      `json:"delivery_latitude,omitempty"  validate:"omitempty,latitude"`
	DeliveryLongitude *float64      `json:"delivery_longitude,omitempty" validate:"omitempty,longitude"`
	Notes             string        `json:"notes,omitempty"              validate:"max=1000"`
	RedeemPoints      int           `json:"redeem_points,omitempty"      validate:"gte=0"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed preparing ready out_for_delivery delivered cancelled"`
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty" validate:"max=500"`
}

type AssignDeliveryRequest struct {
	DeliveryUserID string `json:"delivery_user_id" validate:"required,uuid"`
}

type ItemResponse struct {
	ProductID    string          `json:"product_id"`
	Name         string          `json:"name"`
	SKU          string          `json:"sku"`
	Quantity     int             `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnitDiscount decimal.Decimal `json:"unit_discount"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

type OrderResponse struct {
	ID                string          `json:"id"`
	UserID            string          `json:"user_id"`
	StoreID           string          `json:"store_id"`
	Status            string          `json:"status"`
	Items             []ItemResponse  `json:"items"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Discount          decimal.Decimal `json:"discount"`
	PointsRedeemed    int             `json:"points_redeemed"`
	PointsDiscount    decimal.Decimal `json:"points_discount"`
	DeliveryFee       decimal.Decimal `json:"delivery_fee"`
	Total             decimal.Decimal `json:"total"`
	PointsEarned      int             `json:"points_earned"`
	DeliveryAddress   string          `json:"delivery_address"`
	DeliveryLatitude  *float64        `json:"delivery_latitude,omitempty"`
	DeliveryLongitude *float64        `json:"delivery_longitude,omitempty"`
	Notes             string          `json:"notes"`
	DeliveryUserID    *string         `json:"delivery_user_id"`
	CancelReason      string          `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ListParams filters order listings. Empty fields do not filter.
type ListParams struct {
	core.PageParams
	UserID         string
	StoreID        string
	DeliveryUserID string
	Status         string
}

func ToOrderResponse(o *Order) OrderResponse {
	items := make([]ItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ItemResponse{
			ProductID:    it.ProductID,
			Name:         it.Name,
			SKU:          it.SKU,
			Quantity:     it.Quantity,
			UnitPrice:    it.UnitPrice,
			UnitDiscount: it.UnitDiscount,
			LineTotal:    it.LineTotal,
		})
	}

	return OrderResponse{
		ID:                o.ID,
		UserID:            o.UserID,
		StoreID:           o.StoreID,
		Status:            o.Status,
		Items:             items,
		Subtotal:          o.Subtotal,
		Discount:          o.Discount,
		PointsRedeemed:    o.PointsRedeemed,
		PointsDiscount:    o.PointsDiscount,
		DeliveryFee:       o.DeliveryFee,
		Total:             o.Total,
		PointsEarned:      o.PointsEarned,
		DeliveryAddress:   o.DeliveryAddress,
		DeliveryLatitude:  o.DeliveryLatitude,
		DeliveryLongitude: o.DeliveryLongitude,
		Notes:             o.Notes,
		DeliveryUserID:    o.DeliveryUserID,
		CancelReason:      o.CancelReason,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func ToOrderResponses(orders []Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, ToOrderResponse(&orders[i]))
	}
	return out
}
