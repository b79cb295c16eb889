// AngelaMos | 2026
// handler.go

package promotion

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
	r.Get("/stores/{storeID}/promotions/active", h.ListRunning)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/stores/{storeID}/promotions", h.Create)
		r.Get("/stores/{storeID}/promotions", h.ListForStore)

		r.Put("/promotions/{id}", h.Update)
		r.Delete("/promotions/{id}", h.Delete)
		r.Post("/promotions/{id}/toggle", h.Toggle)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req PromotionRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.Create(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "storeID"),
		req,
	)
	if err != nil {
		core.HandleError(w, err, "promotion")
		return
	}

	core.Created(w, ToPromotionResponse(p, h.service.Now()))
}

func (h *Handler) ListForStore(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.service.ListForStore(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "storeID"),
	)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.OK(w, ToPromotionResponses(promotions, h.service.Now()))
}

func (h *Handler) ListRunning(w http.ResponseWriter, r *http.Request) {
	promotions, err := h.service.Running(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		core.HandleError(w, err, "promotion")
		return
	}

	core.OK(w, ToPromotionResponses(promotions, h.service.Now()))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req PromotionRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.Update(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
		req,
	)
	if err != nil {
		core.HandleError(w, err, "promotion")
		return
	}

	core.OK(w, ToPromotionResponse(p, h.service.Now()))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.HandleError(w, err, "promotion")
		return
	}

	core.NoContent(w)
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Toggle(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.HandleError(w, err, "promotion")
		return
	}

	core.OK(w, ToPromotionResponse(p, h.service.Now()))
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
