// AngelaMos | 2026
// handler.go

package store

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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

// RegisterRoutes mounts /stores. optionalAuth lets staff see their
// inactive stores on the public detail route.
func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, optionalAuth func(http.Handler) http.Handler,
) {
	r.Route("/stores", func(r chi.Router) {
		r.Get("/", h.List)

		r.Group(func(r chi.Router) {
			r.Use(authenticator)
			r.Get("/mine", h.ListMine)
			r.With(middleware.RequireRole(middleware.RoleStoreManager, middleware.RoleAdmin)).
				Post("/", h.Create)
			r.Put("/{id}", h.Update)
			r.Delete("/{id}", h.Delete)
			r.Get("/{id}/managers", h.ListManagers)
			r.Post("/{id}/managers", h.AddManager)
			r.Delete("/{id}/managers/{userID}", h.RemoveManager)
			r.Post("/{id}/logo", h.UploadLogo)
		})

		r.With(optionalAuth).Get("/{id}", h.Get)
	})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	lat, err := core.ParseFloatQuery(r, "lat")
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}
	lng, err := core.ParseFloatQuery(r, "lng")
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}
	radius, err := core.ParseFloatQuery(r, "radius_km")
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	params := ListParams{
		PageParams: core.PageFromRequest(r),
		Search:     r.URL.Query().Get("search"),
		City:       r.URL.Query().Get("city"),
		Lat:        lat,
		Lng:        lng,
	}
	if radius != nil {
		params.RadiusKm = *radius
	}

	listings, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.Paginated(w, ToListingResponses(listings), params.Page, params.PageSize, total)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	store, err := h.service.Get(
		r.Context(),
		chi.URLParam(r, "id"),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
	)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.OK(w, ToStoreResponse(store))
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	stores, err := h.service.ListMine(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.OK(w, ToStoreResponses(stores))
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateStoreRequest
	if !h.decode(w, r, &req) {
		return
	}

	store, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.Created(w, ToStoreResponse(store))
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateStoreRequest
	if !h.decode(w, r, &req) {
		return
	}

	store, err := h.service.Update(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
		req,
	)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.OK(w, ToStoreResponse(store))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.service.Delete(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.NoContent(w)
}

func (h *Handler) ListManagers(w http.ResponseWriter, r *http.Request) {
	managers, err := h.service.ListManagers(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
	)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.OK(w, ToManagerResponses(managers))
}

func (h *Handler) AddManager(w http.ResponseWriter, r *http.Request) {
	var req AddManagerRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.service.AddManager(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
		req.UserID,
	)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.NoContent(w)
}

func (h *Handler) RemoveManager(w http.ResponseWriter, r *http.Request) {
	err := h.service.RemoveManager(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "userID"),
	)
	if err != nil {
		core.HandleError(w, err, "store manager")
		return
	}

	core.NoContent(w)
}

func (h *Handler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "id")

	if !h.images.Enabled() {
		core.JSONError(w, media.ErrStorageDisabled)
		return
	}

	err := h.service.CanManage(
		r.Context(),
		middleware.GetUserID(r.Context()),
		middleware.GetUserRole(r.Context()),
		storeID,
	)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	obj, err := h.images.FromRequest(w, r, "stores/"+storeID)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	store, err := h.service.SetLogo(r.Context(), storeID, obj.URL)
	if err != nil {
		core.HandleError(w, err, "store")
		return
	}

	core.OK(w, ToStoreResponse(store))
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
