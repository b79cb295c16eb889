// AngelaMos | 2026
// stats.go

package admin

import (
	"context"
	"database/sql"
	"runtime"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// DatabaseProbe is satisfied by *core.Database.
type DatabaseProbe interface {
	Ping(ctx context.Context) error
	Stats() sql.DBStats
}

// RedisProbe is satisfied by *core.Redis.
type RedisProbe interface {
	Ping(ctx context.Context) error
	PoolStats() *redis.PoolStats
}

type SystemStatsResponse struct {
	Database DatabaseStatus `json:"database"`
	Redis    RedisStatus    `json:"redis"`
	Runtime  RuntimeStats   `json:"runtime"`
}

type DatabaseStatus struct {
	Healthy bool         `json:"healthy"`
	Stats   *DBPoolStats `json:"stats,omitempty"`
}

type RedisStatus struct {
	Healthy bool            `json:"healthy"`
	Stats   *RedisPoolStats `json:"stats,omitempty"`
}

type DBPoolStats struct {
	MaxOpenConnections int    `json:"max_open_connections"`
	OpenConnections    int    `json:"open_connections"`
	InUse              int    `json:"in_use"`
	Idle               int    `json:"idle"`
	WaitCount          int64  `json:"wait_count"`
	WaitDuration       string `json:"wait_duration"`
	MaxIdleClosed      int64  `json:"max_idle_closed"`
	MaxLifetimeClosed  int64  `json:"max_lifetime_closed"`
}

type RedisPoolStats struct {
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

type RuntimeStats struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc_bytes"`
	MemSys       uint64 `json:"mem_sys_bytes"`
	NumGC        uint32 `json:"num_gc"`
}

type StoreCounts struct {
	Total  int `db:"total"  json:"total"`
	Active int `db:"active" json:"active"`
}

type ProductCounts struct {
	Listed   int `db:"listed"   json:"listed"`
	Inactive int `db:"inactive" json:"inactive"`
	Deleted  int `db:"deleted"  json:"deleted"`
}

// MarketplaceStats summarises business activity for the admin dashboard.
type MarketplaceStats struct {
	UsersByRole       map[string]int  `json:"users_by_role"`
	TotalUsers        int             `json:"total_users"`
	Stores            StoreCounts     `json:"stores"`
	Products          ProductCounts   `json:"products"`
	OrdersByStatus    map[string]int  `json:"orders_by_status"`
	TotalOrders       int             `json:"total_orders"`
	DeliveredRevenue  decimal.Decimal `json:"delivered_revenue"`
	PointsOutstanding int             `json:"points_outstanding"`
}

func databaseStats(db DatabaseProbe) *DBPoolStats {
	if db == nil {
		return nil
	}

	s := db.Stats()
	return &DBPoolStats{
		MaxOpenConnections: s.MaxOpenConnections,
		OpenConnections:    s.OpenConnections,
		InUse:              s.InUse,
		Idle:               s.Idle,
		WaitCount:          s.WaitCount,
		WaitDuration:       s.WaitDuration.String(),
		MaxIdleClosed:      s.MaxIdleClosed,
		MaxLifetimeClosed:  s.MaxLifetimeClosed,
	}
}

func redisStats(rdb RedisProbe) *RedisPoolStats {
	if rdb == nil {
		return nil
	}

	s := rdb.PoolStats()
	if s == nil {
		return nil
	}
	return &RedisPoolStats{
		Hits:       s.Hits,
		Misses:     s.Misses,
		Timeouts:   s.Timeouts,
		TotalConns: s.TotalConns,
		IdleConns:  s.IdleConns,
	}
}

func runtimeStats() RuntimeStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return RuntimeStats{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     mem.Alloc,
		MemSys:       mem.Sys,
		NumGC:        mem.NumGC,
	}
}
