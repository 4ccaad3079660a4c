package metrics

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// =============================================================================
// Database Pool Monitor
// =============================================================================

// DBPoolStats holds database connection pool statistics.
type DBPoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	IdleConns     int32 `json:"idle_conns"`
	MaxConns      int32 `json:"max_conns"`

	// Cumulative stats
	EmptyAcquireCount int64         `json:"empty_acquire_count"`
	AcquireDuration   time.Duration `json:"acquire_duration"`
}

// ToMap converts stats to a map for JSON serialization.
func (s DBPoolStats) ToMap() map[string]any {
	return map[string]any{
		"total_conns":         s.TotalConns,
		"acquired_conns":      s.AcquiredConns,
		"idle_conns":          s.IdleConns,
		"max_conns":           s.MaxConns,
		"empty_acquire_count": s.EmptyAcquireCount,
		"acquire_duration_ms": s.AcquireDuration.Milliseconds(),
	}
}

// GetDBPoolStats retrieves pool statistics from a pgx pool.
func GetDBPoolStats(pool *pgxpool.Pool) DBPoolStats {
	if pool == nil {
		return DBPoolStats{}
	}

	stat := pool.Stat()
	return DBPoolStats{
		TotalConns:        stat.TotalConns(),
		AcquiredConns:     stat.AcquiredConns(),
		IdleConns:         stat.IdleConns(),
		MaxConns:          stat.MaxConns(),
		EmptyAcquireCount: stat.EmptyAcquireCount(),
		AcquireDuration:   stat.AcquireDuration(),
	}
}

// =============================================================================
// Pool Health
// =============================================================================

// PoolHealthStatus indicates the health of a connection pool.
type PoolHealthStatus string

const (
	PoolHealthy   PoolHealthStatus = "healthy"
	PoolDegraded  PoolHealthStatus = "degraded"
	PoolUnhealthy PoolHealthStatus = "unhealthy"
)

// PoolHealth represents the health assessment of a pool.
type PoolHealth struct {
	Status      PoolHealthStatus `json:"status"`
	Utilization float64          `json:"utilization"` // 0.0 - 1.0
	Message     string           `json:"message,omitempty"`
}

// AssessDBPoolHealth evaluates the health of a database pool.
func AssessDBPoolHealth(stats DBPoolStats) PoolHealth {
	if stats.MaxConns == 0 {
		return PoolHealth{Status: PoolHealthy, Message: "no pool configured"}
	}

	utilization := float64(stats.AcquiredConns) / float64(stats.MaxConns)

	var status PoolHealthStatus
	var message string

	switch {
	case utilization >= 0.95:
		status = PoolUnhealthy
		message = "pool nearly exhausted"
	case utilization >= 0.80:
		status = PoolDegraded
		message = "high pool utilization"
	default:
		status = PoolHealthy
		message = "pool operating normally"
	}

	// 대기 시간이 길면 degraded
	if stats.EmptyAcquireCount > 0 && stats.AcquireDuration > 5*time.Second {
		if status == PoolHealthy {
			status = PoolDegraded
		}
		message = "elevated connection wait times"
	}

	return PoolHealth{
		Status:      status,
		Utilization: utilization,
		Message:     message,
	}
}

// RegisterDBPool exports pool gauges on the metrics registry.
func (m *Metrics) RegisterDBPool(pool *pgxpool.Pool) {
	if m == nil || pool == nil {
		return
	}
	gauge := func(name, help string, fn func(DBPoolStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return fn(GetDBPoolStats(pool)) })
	}
	m.Registry.MustRegister(
		gauge("acquired_conns", "Connections currently in use", func(s DBPoolStats) float64 { return float64(s.AcquiredConns) }),
		gauge("idle_conns", "Idle connections", func(s DBPoolStats) float64 { return float64(s.IdleConns) }),
		gauge("max_conns", "Maximum pool size", func(s DBPoolStats) float64 { return float64(s.MaxConns) }),
	)
}
