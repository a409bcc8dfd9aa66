package health

import (
	"context"
	"log/slog"
	"time"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Pinger is satisfied by the database pool and the cache service.
type Pinger interface {
	Ping(ctx context.Context) error
}

type CachePinger interface {
	Health(ctx context.Context) error
}

// Checker provides Kubernetes-ready health checks
type Checker struct {
	DB          Pinger
	Cache       CachePinger
	Logger      *slog.Logger
	Version     string
	Environment string
	startedAt   time.Time
}

func NewChecker(db Pinger, cache CachePinger, logger *slog.Logger, version, environment string) Checker {
	return Checker{
		DB:          db,
		Cache:       cache,
		Logger:      logger,
		Version:     version,
		Environment: environment,
		startedAt:   time.Now(),
	}
}

type HealthStatus struct {
	Status     string                     `json:"status"`
	Timestamp  string                     `json:"timestamp"`
	Version    string                     `json:"version,omitempty"`
	Components map[string]ComponentHealth `json:"components"`
	Details    *HealthDetails             `json:"details,omitempty"`
}

type ComponentHealth struct {
	Status      string        `json:"status"`
	Message     string        `json:"message,omitempty"`
	Latency     time.Duration `json:"latency_ms"`
	LastChecked string        `json:"last_checked"`
	Critical    bool          `json:"critical"`
}

type HealthDetails struct {
	Uptime      time.Duration `json:"uptime_seconds"`
	Environment string        `json:"environment,omitempty"`
}

// CheckHealth checks every dependency. Only the database is critical.
func (h *Checker) CheckHealth(ctx context.Context) HealthStatus {
	components := map[string]ComponentHealth{
		"database": h.checkDatabase(ctx),
		"cache":    h.checkCache(ctx),
	}

	return HealthStatus{
		Status:     overallStatus(components),
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Version:    h.Version,
		Components: components,
		Details: &HealthDetails{
			Uptime:      time.Since(h.startedAt).Truncate(time.Second),
			Environment: h.Environment,
		},
	}
}

// CheckLiveness only verifies the process is responsive.
func (h *Checker) CheckLiveness(ctx context.Context) HealthStatus {
	now := time.Now()

	return HealthStatus{
		Status:    StatusHealthy,
		Timestamp: now.UTC().Format(time.RFC3339),
		Components: map[string]ComponentHealth{
			"process": component(StatusHealthy, "service is responsive", now, true),
		},
	}
}

// CheckReadiness checks critical dependencies only.
func (h *Checker) CheckReadiness(ctx context.Context) HealthStatus {
	dbHealth := h.checkDatabase(ctx)

	status := StatusHealthy
	if dbHealth.Status == StatusUnhealthy {
		status = StatusUnhealthy
	}

	return HealthStatus{
		Status:     status,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Components: map[string]ComponentHealth{"database": dbHealth},
	}
}

func (h *Checker) checkDatabase(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.DB == nil {
		return component(StatusUnhealthy, "database not configured", start, true)
	}

	if err := h.DB.Ping(ctx); err != nil {
		h.Logger.ErrorContext(ctx, "Database health check failed", "error", err, "latency", time.Since(start))
		return component(StatusUnhealthy, "database connection failed: "+err.Error(), start, true)
	}

	// Slow but reachable databases degrade rather than fail.
	latency := time.Since(start)
	switch {
	case latency > 5*time.Second:
		return component(StatusUnhealthy, "database response time too slow", start, true)
	case latency > 100*time.Millisecond:
		return component(StatusDegraded, "database response time elevated", start, true)
	}
	return component(StatusHealthy, "database connection successful", start, true)
}

func (h *Checker) checkCache(ctx context.Context) ComponentHealth {
	start := time.Now()

	if h.Cache == nil {
		return component(StatusDegraded, "cache not configured, sessions are read from the database", start, false)
	}

	if err := h.Cache.Health(ctx); err != nil {
		h.Logger.WarnContext(ctx, "Cache health check failed", "error", err)
		return component(StatusDegraded, "redis cache unavailable: "+err.Error(), start, false)
	}

	return component(StatusHealthy, "cache operational", start, false)
}

func component(status, message string, start time.Time, critical bool) ComponentHealth {
	return ComponentHealth{
		Status:      status,
		Message:     message,
		Latency:     time.Since(start),
		LastChecked: time.Now().UTC().Format(time.RFC3339),
		Critical:    critical,
	}
}

func overallStatus(components map[string]ComponentHealth) string {
	hasDegraded := false

	for _, c := range components {
		if c.Critical && c.Status == StatusUnhealthy {
			return StatusUnhealthy
		}
		if c.Status != StatusHealthy {
			hasDegraded = true
		}
	}

	if hasDegraded {
		return StatusDegraded
	}
	return StatusHealthy
}
