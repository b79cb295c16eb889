// AngelaMos | 2026
// handler.go

package order

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router, authenticator func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.With(middleware.RequireRole(middleware.RoleClient, middleware.RoleAdmin)).
			Post("/orders", h.Create)
		r.Get("/orders/mine", h.ListMine)
		r.Get("/orders/{id}", h.Get)
		r.Post("/orders/{id}/cancel", h.Cancel)
		r.Patch("/orders/{id}/status", h.UpdateStatus)
		r.Post("/orders/{id}/assign-delivery", h.AssignDelivery)

		r.Get("/stores/{storeID}/orders", h.ListForStore)

		r.With(middleware.RequireRole(middleware.RoleDelivery)).
			Get("/delivery/orders", h.ListForCourier)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.With(authenticator, adminOnly).Get("/admin/orders", h.ListAll)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleError(w, err, "order")
		return
	}

	core.Created(w, ToOrderResponse(o))
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	o, err := h.service.Get(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.HandleError(w, err, "order")
		return
	}

	core.OK(w, ToOrderResponse(o))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.Cancel(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
		req.Reason,
	)
	if err != nil {
		core.HandleError(w, err, "order")
		return
	}

	core.OK(w, ToOrderResponse(o))
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.Transition(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
		req.Status,
		req.Reason,
	)
	if err != nil {
		core.HandleError(w, err, "order")
		return
	}

	core.OK(w, ToOrderResponse(o))
}

func (h *Handler) AssignDelivery(w http.ResponseWriter, r *http.Request) {
	var req AssignDeliveryRequest
	if !h.decode(w, r, &req) {
		return
	}

	o, err := h.service.AssignDelivery(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
		req.DeliveryUserID,
	)
	if err != nil {
		core.HandleError(w, err, "order")
		return
	}

	core.OK(w, ToOrderResponse(o))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	orders, total, err := h.service.ListMine(r.Context(), middleware.GetUserID(r.Context()), params)
	h.writeList(w, orders, params, total, err)
}

func (h *Handler) ListForStore(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	orders, total, err := h.service.ListForStore(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "storeID"),
		params,
	)
	h.writeList(w, orders, params, total, err)
}

func (h *Handler) ListForCourier(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	orders, total, err := h.service.ListForCourier(r.Context(), middleware.GetUserID(r.Context()), params)
	h.writeList(w, orders, params, total, err)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	params := listParams(r)
	params.StoreID = r.URL.Query().Get("store_id")
	params.UserID = r.URL.Query().Get("user_id")
	orders, total, err := h.service.ListAll(r.Context(), params)
	h.writeList(w, orders, params, total, err)
}

func (h *Handler) writeList(w http.ResponseWriter, orders []Order, params ListParams, total int, err error) {
	if err != nil {
		core.HandleError(w, err, "order")
		return
	}
	core.Paginated(w, ToOrderResponses(orders), params.Page, params.PageSize, total)
}

func listParams(r *http.Request) ListParams {
	return ListParams{
		PageParams: core.PageFromRequest(r),
		Status:     r.URL.Query().Get("status"),
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		core.BadRequest(w, "invalid request body")
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return false
	}

	return true
}
