// AngelaMos | 2026
// handler.go

package product

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/repuestospro/backend/internal/core"
	"github.com/repuestospro/backend/internal/media"
	"github.com/repuestospro/backend/internal/middleware"
)

type Handler struct {
	service   *Service
	images    *media.Uploader
	validator *validator.Validate
}

func NewHandler(service *Service, images *media.Uploader) *Handler {
	return &Handler{
		service:   service,
		images:    images,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth func(http.Handler) http.Handler,
) {
	r.Get("/products", h.List)
	r.With(optionalAuth).Get("/products/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/stores/{storeID}/products", h.Create)
		r.Get("/stores/{storeID}/products", h.ListByStore)

		r.Put("/products/{id}", h.Update)
		r.Patch("/products/{id}/stock", h.UpdateStock)
		r.Delete("/products/{id}", h.Delete)
		r.Post("/products/{id}/restore", h.Restore)
		r.Post("/products/{id}/image", h.UploadImage)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	minPrice, err := parseDecimalQuery(q.Get("min_price"), "min_price")
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}
	maxPrice, err := parseDecimalQuery(q.Get("max_price"), "max_price")
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}

	params := ListParams{
		PageParams:    core.PageFromRequest(r),
		StoreID:       q.Get("store_id"),
		CategoryID:    q.Get("category_id"),
		SubcategoryID: q.Get("subcategory_id"),
		BrandID:       q.Get("brand_id"),
		Search:        q.Get("search"),
		MinPrice:      minPrice,
		MaxPrice:      maxPrice,
		InStock:       core.ParseBoolQuery(r, "in_stock"),
		Sort:          q.Get("sort"),
	}

	priced, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}

	out := make([]ProductResponse, 0, len(priced))
	for _, p := range priced {
		out = append(out, p.Response())
	}

	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	priced, err := h.service.Get(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
	)
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}

	core.OK(w, priced.Response())
}

func (h *Handler) ListByStore(w http.ResponseWriter, r *http.Request) {
	params := StoreListParams{
		PageParams: core.PageFromRequest(r),
		Deleted:    core.ParseBoolQuery(r, "deleted"),
		Search:     r.URL.Query().Get("search"),
	}

	products, total, err := h.service.ListByStore(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "storeID"),
		params,
	)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	out := make([]ProductResponse, 0, len(products))
	for i := range products {
		out = append(out, ToProductResponse(&products[i], "", nil))
	}

	core.Paginated(w, out, params.Page, params.PageSize, total)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
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
		core.HandleError(w, err, "product")
		return
	}

	core.Created(w, ToProductResponse(p, "", nil))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
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
		core.HandleError(w, err, "product")
		return
	}

	core.OK(w, ToProductResponse(p, "", nil))
}

func (h *Handler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var req StockRequest
	if !h.decode(w, r, &req) {
		return
	}

	p, err := h.service.UpdateStock(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
		req,
	)
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}

	core.OK(w, ToProductResponse(p, "", nil))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}

	core.NoContent(w)
}

func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Restore(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}

	core.OK(w, ToProductResponse(p, "", nil))
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !h.images.Enabled() {
		core.JSONError(w, media.ErrStorageDisabled)
		return
	}

	err := h.service.CanManageProduct(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		id,
	)
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}

	obj, err := h.images.FromRequest(w, r, "products/"+id)
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}

	p, err := h.service.SetImage(r.Context(), id, obj.URL)
	if err != nil {
		core.HandleError(w, err, "product")
		return
	}

	core.OK(w, ToProductResponse(p, "", nil))
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

func parseDecimalQuery(raw, key string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, core.ValidationError(key + " must be a number")
	}
	return &d, nil
}
