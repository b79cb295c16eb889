// AngelaMos | 2026
// service.go

package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/repuestospro/backend/internal/config"
	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/events"
	"github.com/repuestospro/backend/internal/middleware"
	"github.com/repuestospro/backend/internal/promotion"
)

var ErrInsufficientStock = errors.New("insufficient stock")

type StoreAccess interface {
	CanManage(ctx context.Context, userID, role, storeID string) error
	IsActive(ctx context.Context, storeID string) (bool, error)
}

type UserRoles interface {
	GetRole(ctx context.Context, userID string) (string, error)
}

type Pricer interface {
	Resolve(ctx context.Context, items []promotion.Item) ([]*promotion.Applied, error)
}

// Pricing holds the loyalty and delivery parameters used for totals.
type Pricing struct {
	PointValue       decimal.Decimal
	EarnRate         decimal.Decimal
	DeliveryFee      decimal.Decimal
	FreeDeliveryOver decimal.Decimal
}

func PricingFromConfig(cfg config.LoyaltyConfig) Pricing {
	return Pricing{
		PointValue:       cfg.PointValueDecimal(),
		EarnRate:         cfg.EarnRateDecimal(),
		DeliveryFee:      cfg.DeliveryFeeDecimal(),
		FreeDeliveryOver: cfg.FreeDeliveryOverDecimal(),
	}
}

// Fee returns the delivery fee for an order whose goods cost net.
func (p Pricing) Fee(net decimal.Decimal) decimal.Decimal {
	if p.FreeDeliveryOver.IsPositive() && net.GreaterThanOrEqual(p.FreeDeliveryOver) {
		return decimal.Zero
	}
	return p.DeliveryFee
}

// MaxRedeemable caps redeemed points so they never pay for more than the
// goods, keeping total >= delivery fee.
func (p Pricing) MaxRedeemable(net decimal.Decimal) int {
	if !p.PointValue.IsPositive() || !net.IsPositive() {
		return 0
	}
	return int(net.Div(p.PointValue).Floor().IntPart())
}

// Earned is floor(total * earn rate).
func (p Pricing) Earned(total decimal.Decimal) int {
	if !p.EarnRate.IsPositive() {
		return 0
	}
	return int(total.Mul(p.EarnRate).Floor().IntPart())
}

type Deps struct {
	Repo      Repository
	Stores    StoreAccess
	Users     UserRoles
	Pricer    Pricer
	Publisher events.Publisher
	Pricing   Pricing
}

type Service struct {
	repo      Repository
	stores    StoreAccess
	users     UserRoles
	pricer    Pricer
	publisher events.Publisher
	pricing   Pricing
}

func NewService(deps Deps) *Service {
	publisher := deps.Publisher
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		repo:      deps.Repo,
		stores:    deps.Stores,
		users:     deps.Users,
		pricer:    deps.Pricer,
		publisher: publisher,
		pricing:   deps.Pricing,
	}
}

// Create places an order atomically: stock is checked and reserved,
// promotions applied and points debited in one transaction.
func (s *Service) Create(ctx context.Context, userID string, req CreateOrderRequest) (o *Order, err error) {
	ctx, span := core.StartSpan(ctx, "order.create",
		attribute.String("store.id", req.StoreID),
		attribute.Int("order.items", len(req.Items)),
	)
	defer func() { core.EndSpan(span, err) }()

	quantities := make(map[string]int, len(req.Items))
	ids := make([]string, 0, len(req.Items))
	for _, it := range req.Items {
		if _, dup := quantities[it.ProductID]; dup {
			return nil, core.ValidationError("each product may appear only once")
		}
		quantities[it.ProductID] = it.Quantity
		ids = append(ids, it.ProductID)
	}
	if (req.DeliveryLatitude == nil) != (req.DeliveryLongitude == nil) {
		return nil, core.ValidationError("delivery latitude and longitude must be given together")
	}

	active, err := s.stores.IsActive(ctx, req.StoreID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, core.ValidationError("store is not accepting orders")
	}

	o = &Order{
		ID:                uuid.New().String(),
		UserID:            userID,
		StoreID:           req.StoreID,
		Status:            StatusPending,
		DeliveryAddress:   strings.TrimSpace(req.DeliveryAddress),
		DeliveryLatitude:  req.DeliveryLatitude,
		DeliveryLongitude: req.DeliveryLongitude,
		Notes:             req.Notes,
	}

	err = s.repo.InTx(ctx, func(tx Repository) error {
		rows, err := tx.LockProducts(ctx, ids)
		if err != nil {
			return err
		}
		if err := checkAvailability(rows, quantities, req.StoreID, len(ids)); err != nil {
			return err
		}

		pricingItems := make([]promotion.Item, len(rows))
		for i, row := range rows {
			pricingItems[i] = promotion.Item{
				ProductID:  row.ID,
				StoreID:    row.StoreID,
				CategoryID: row.CategoryID,
				Price:      row.Price,
			}
		}
		applied, err := s.pricer.Resolve(ctx, pricingItems)
		if err != nil {
			return err
		}

		s.fillTotals(o, rows, quantities, applied, req.RedeemPoints)

		for _, row := range rows {
			if err := tx.AdjustStock(ctx, row.ID, -quantities[row.ID]); err != nil {
				return err
			}
		}

		if err := tx.Insert(ctx, o); err != nil {
			return err
		}

		if o.PointsRedeemed > 0 {
			err := tx.AdjustPoints(ctx, userID, -o.PointsRedeemed, PointsReasonRedeem, o.ID)
			if errors.Is(err, ErrInsufficientPoints) {
				return core.ValidationError("not enough loyalty points")
			}
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", o.ID))
	s.publish(ctx, events.OrderCreated, o, "")
	return o, nil
}

func checkAvailability(rows []StockRow, quantities map[string]int, storeID string, want int) error {
	if len(rows) != want {
		return core.ValidationError("one or more products do not exist")
	}

	for _, row := range rows {
		if row.Deleted || !row.IsActive {
			return core.ValidationError("product " + row.SKU + " is not available")
		}
		if row.StoreID != storeID {
			return core.ValidationError("product " + row.SKU + " belongs to another store")
		}
		if row.Stock < quantities[row.ID] {
			return core.NewAppError(
				ErrInsufficientStock,
				fmt.Sprintf("only %d units of %s left", row.Stock, row.SKU),
				http.StatusConflict,
				"INSUFFICIENT_STOCK",
			)
		}
	}

	return nil
}

func (s *Service) fillTotals(
	o *Order,
	rows []StockRow,
	quantities map[string]int,
	applied []*promotion.Applied,
	redeem int,
) {
	o.Items = make([]Item, 0, len(rows))
	subtotal, discount := decimal.Zero, decimal.Zero

	for i, row := range rows {
		qty := decimal.NewFromInt(int64(quantities[row.ID]))
		unitDiscount := decimal.Zero
		if applied[i] != nil {
			unitDiscount = applied[i].Discount
		}

		line := row.Price.Sub(unitDiscount).Mul(qty)
		o.Items = append(o.Items, Item{
			ID:           uuid.New().String(),
			ProductID:    row.ID,
			Name:         row.Name,
			SKU:          row.SKU,
			Quantity:     quantities[row.ID],
			UnitPrice:    row.Price,
			UnitDiscount: unitDiscount,
			LineTotal:    line,
		})

		subtotal = subtotal.Add(row.Price.Mul(qty))
		discount = discount.Add(unitDiscount.Mul(qty))
	}

	net := subtotal.Sub(discount)
	if limit := s.pricing.MaxRedeemable(net); redeem > limit {
		redeem = limit
	}

	o.Subtotal = subtotal
	o.Discount = discount
	o.PointsRedeemed = redeem
	o.PointsDiscount = s.pricing.PointValue.Mul(decimal.NewFromInt(int64(redeem))).Round(2)
	o.DeliveryFee = s.pricing.Fee(net)
	o.Total = net.Sub(o.PointsDiscount).Add(o.DeliveryFee)
}

// Get returns the order to its customer, the store staff, the assigned
// courier or an admin.
func (s *Service) Get(ctx context.Context, userID, role, id string) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	actor, err := s.actor(ctx, o, userID, role)
	if err != nil {
		return nil, err
	}
	if !actor.CanView() {
		return nil, fmt.Errorf("get order: %w", core.ErrNotFound)
	}

	return o, nil
}

func (s *Service) Cancel(ctx context.Context, userID, role, id, reason string) (*Order, error) {
	return s.Transition(ctx, userID, role, id, StatusCancelled, reason)
}

// Transition moves an order to status `to`. Cancelling restores stock
// and refunds redeemed points; delivering awards points.
func (s *Service) Transition(
	ctx context.Context,
	userID, role, id, to, reason string,
) (*Order, error) {
	var (
		o        *Order
		previous string
	)

	err := s.repo.InTx(ctx, func(tx Repository) error {
		var err error
		o, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		actor, err := s.actor(ctx, o, userID, role)
		if err != nil {
			return err
		}
		if !actor.CanView() {
			return fmt.Errorf("update order: %w", core.ErrNotFound)
		}
		if err := CheckTransition(o, to, actor); err != nil {
			return err
		}

		previous = o.Status
		o.Status = to

		switch to {
		case StatusCancelled:
			o.CancelReason = strings.TrimSpace(reason)
			for _, it := range o.Items {
				if err := tx.AdjustStock(ctx, it.ProductID, it.Quantity); err != nil {
					return err
				}
			}
			if o.PointsRedeemed > 0 {
				if err := tx.AdjustPoints(ctx, o.UserID, o.PointsRedeemed,
					PointsReasonRefund, o.ID); err != nil {
					return err
				}
			}
		case StatusDelivered:
			o.PointsEarned = s.pricing.Earned(o.Total)
			if o.PointsEarned > 0 {
				if err := tx.AdjustPoints(ctx, o.UserID, o.PointsEarned,
					PointsReasonEarn, o.ID); err != nil {
					return err
				}
			}
		}

		return tx.SaveStatus(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderStatusChanged, o, previous)
	return o, nil
}

// AssignDelivery hands the order to a courier before it leaves the store.
func (s *Service) AssignDelivery(
	ctx context.Context,
	userID, role, id, deliveryUserID string,
) (*Order, error) {
	targetRole, err := s.users.GetRole(ctx, deliveryUserID)
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ValidationError("delivery user does not exist")
	}
	if err != nil {
		return nil, err
	}
	if targetRole != middleware.RoleDelivery {
		return nil, core.ValidationError("user does not have the delivery role")
	}

	var o *Order
	err = s.repo.InTx(ctx, func(tx Repository) error {
		var err error
		o, err = tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}

		actor, err := s.actor(ctx, o, userID, role)
		if err != nil {
			return err
		}
		if !actor.IsStaff && !actor.IsAdmin {
			if actor.CanView() {
				return fmt.Errorf("assign delivery: %w", core.ErrForbidden)
			}
			return fmt.Errorf("assign delivery: %w", core.ErrNotFound)
		}
		if !CanAssignDelivery(o) {
			return core.ConflictError("cannot assign a courier to a " + o.Status + " order")
		}

		o.DeliveryUserID = &deliveryUserID
		return tx.SaveStatus(ctx, o)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.OrderDeliveryAssigned, o, "")
	return o, nil
}

func (s *Service) ListMine(ctx context.Context, userID string, params ListParams) ([]Order, int, error) {
	params.UserID = userID
	params.StoreID = ""
	params.DeliveryUserID = ""
	return s.list(ctx, params)
}

func (s *Service) ListForStore(
	ctx context.Context,
	userID, role, storeID string,
	params ListParams,
) ([]Order, int, error) {
	if err := s.stores.CanManage(ctx, userID, role, storeID); err != nil {
		return nil, 0, err
	}
	params.UserID = ""
	params.StoreID = storeID
	params.DeliveryUserID = ""
	return s.list(ctx, params)
}

func (s *Service) ListForCourier(
	ctx context.Context,
	userID string,
	params ListParams,
) ([]Order, int, error) {
	params.UserID = ""
	params.StoreID = ""
	params.DeliveryUserID = userID
	return s.list(ctx, params)
}

func (s *Service) ListAll(ctx context.Context, params ListParams) ([]Order, int, error) {
	return s.list(ctx, params)
}

func (s *Service) list(ctx context.Context, params ListParams) ([]Order, int, error) {
	if params.Status != "" && !IsValidStatus(params.Status) {
		return nil, 0, core.ValidationError("unknown status " + params.Status)
	}
	return s.repo.List(ctx, params)
}

func (s *Service) actor(ctx context.Context, o *Order, userID, role string) (Actor, error) {
	a := Actor{
		UserID:     userID,
		IsAdmin:    role == middleware.RoleAdmin,
		IsCustomer: o.UserID == userID,
		IsCourier:  o.DeliveryUserID != nil && *o.DeliveryUserID == userID,
	}
	if a.IsAdmin || role != middleware.RoleStoreManager {
		return a, nil
	}

	err := s.stores.CanManage(ctx, userID, role, o.StoreID)
	switch {
	case err == nil:
		a.IsStaff = true
	case errors.Is(err, core.ErrForbidden), errors.Is(err, core.ErrNotFound):
	default:
		return a, err
	}

	return a, nil
}

// Events are published after commit. A failed publish is logged and does
// not undo the order change.
func (s *Service) publish(ctx context.Context, key string, o *Order, previous string) {
	payload := events.OrderEvent{
		OrderID:        o.ID,
		UserID:         o.UserID,
		StoreID:        o.StoreID,
		Status:         o.Status,
		PreviousStatus: previous,
		DeliveryUserID: o.DeliveryUser(),
		Total:          o.Total.StringFixed(2),
	}

	if err := s.publisher.Publish(ctx, key, payload); err != nil {
		slog.Error("publish order event", "event", key, "order_id", o.ID, "error", err)
	}
}
