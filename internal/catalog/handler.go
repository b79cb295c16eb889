// AngelaMos | 2026
// handler.go

package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/repuestospro/backend/internal/core"
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

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/catalog", func(r chi.Router) {
		r.Get("/categories", h.Tree)
		r.Get("/brands", h.Brands)
	})
}

func (h *Handler) RegisterAdminRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/catalog", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Post("/categories", h.CreateCategory)
		r.Put("/categories/{id}", h.UpdateCategory)
		r.Delete("/categories/{id}", h.DeleteCategory)

		r.Post("/subcategories", h.CreateSubcategory)
		r.Put("/subcategories/{id}", h.UpdateSubcategory)
		r.Delete("/subcategories/{id}", h.DeleteSubcategory)

		r.Post("/brands", h.CreateBrand)
		r.Put("/brands/{id}", h.UpdateBrand)
		r.Delete("/brands/{id}", h.DeleteBrand)
	})
}

func (h *Handler) Tree(w http.ResponseWriter, r *http.Request) {
	tree, err := h.service.Tree(r.Context())
	if err != nil {
		core.HandleError(w, err, "category")
		return
	}

	core.OK(w, tree)
}

func (h *Handler) Brands(w http.ResponseWriter, r *http.Request) {
	brands, err := h.service.Brands(r.Context())
	if err != nil {
		core.HandleError(w, err, "brand")
		return
	}

	core.OK(w, brands)
}

func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.CreateCategory(r.Context(), req)
	if err != nil {
		core.HandleError(w, err, "category")
		return
	}

	core.Created(w, ToCategoryNode(c))
}

func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req UpdateCategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.service.UpdateCategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		core.HandleError(w, err, "category")
		return
	}

	core.OK(w, ToCategoryNode(c))
}

func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.HandleError(w, err, "category")
		return
	}

	core.NoContent(w)
}

func (h *Handler) CreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req CreateSubcategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	sub, err := h.service.CreateSubcategory(r.Context(), req)
	if err != nil {
		core.HandleError(w, err, "subcategory")
		return
	}

	core.Created(w, ToSubcategoryResponse(sub))
}

func (h *Handler) UpdateSubcategory(w http.ResponseWriter, r *http.Request) {
	var req UpdateSubcategoryRequest
	if !h.decode(w, r, &req) {
		return
	}

	sub, err := h.service.UpdateSubcategory(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		core.HandleError(w, err, "subcategory")
		return
	}

	core.OK(w, ToSubcategoryResponse(sub))
}

func (h *Handler) DeleteSubcategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteSubcategory(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.HandleError(w, err, "subcategory")
		return
	}

	core.NoContent(w)
}

func (h *Handler) CreateBrand(w http.ResponseWriter, r *http.Request) {
	var req BrandRequest
	if !h.decode(w, r, &req) {
		return
	}

	b, err := h.service.CreateBrand(r.Context(), req)
	if err != nil {
		core.HandleError(w, err, "brand")
		return
	}

	core.Created(w, ToBrandResponse(b))
}

func (h *Handler) UpdateBrand(w http.ResponseWriter, r *http.Request) {
	var req BrandRequest
	if !h.decode(w, r, &req) {
		return
	}

	b, err := h.service.UpdateBrand(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		core.HandleError(w, err, "brand")
		return
	}

	core.OK(w, ToBrandResponse(b))
}

func (h *Handler) DeleteBrand(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteBrand(r.Context(), chi.URLParam(r, "id")); err != nil {
		core.HandleError(w, err, "brand")
		return
	}

	core.NoContent(w)
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
