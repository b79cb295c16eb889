// AngelaMos | 2026
// handler.go

package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/repuestospro/backend/internal/core"
)

type HandlerConfig struct {
	DB    DatabaseProbe
	Redis RedisProbe
	Repo  Repository
}

type Handler struct {
	db    DatabaseProbe
	redis RedisProbe
	repo  Repository
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		db:    cfg.DB,
		redis: cfg.Redis,
		repo:  cfg.Repo,
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator, adminOnly func(http.Handler) http.Handler,
) {
	r.Route("/admin/stats", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(adminOnly)

		r.Get("/", h.GetSystemStats)
		r.Get("/db", h.GetDatabaseStats)
		r.Get("/redis", h.GetRedisStats)
		r.Get("/runtime", h.GetRuntimeStats)
		r.Get("/marketplace", h.GetMarketplaceStats)
	})
}

func (h *Handler) GetSystemStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := SystemStatsResponse{
		Database: DatabaseStatus{Stats: databaseStats(h.db)},
		Redis:    RedisStatus{Stats: redisStats(h.redis)},
		Runtime:  runtimeStats(),
	}
	if h.db != nil {
		resp.Database.Healthy = h.db.Ping(ctx) == nil
	}
	if h.redis != nil {
		resp.Redis.Healthy = h.redis.Ping(ctx) == nil
	}

	core.OK(w, resp)
}

func (h *Handler) GetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, databaseStats(h.db))
}

func (h *Handler) GetRedisStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, redisStats(h.redis))
}

func (h *Handler) GetRuntimeStats(w http.ResponseWriter, r *http.Request) {
	core.OK(w, runtimeStats())
}

func (h *Handler) GetMarketplaceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Marketplace(r.Context())
	if err != nil {
		core.HandleError(w, err, "stats")
		return
	}

	core.OK(w, stats)
}
