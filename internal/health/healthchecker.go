// Package health aggregates component liveness into one service-level flag
// served by the health endpoint.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// HealthChecker is implemented by per-component checkers, such as the
// contact store probe. Checkers start unhealthy and flip after their
// first successful probe.
type HealthChecker interface {
	Name() string
	IsHealthy() bool
	Start(ctx context.Context, interval time.Duration)
}

// ServiceHealthChecker reports healthy only while every registered
// component checker does.
type ServiceHealthChecker struct {
	healthy atomic.Bool
	deps    []HealthChecker
	log     zerolog.Logger
}

func NewServiceHealthChecker(log zerolog.Logger, deps ...HealthChecker) *ServiceHealthChecker {
	return &ServiceHealthChecker{deps: deps, log: log}
}

// IsHealthy returns the cached aggregate flag.
func (h *ServiceHealthChecker) IsHealthy() bool { return h.healthy.Load() }

// Start re-evaluates the aggregate on every tick until ctx is cancelled.
// Transitions are logged once per edge, not per tick.
func (h *ServiceHealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	prev := false
	eval := func() {
		cur := true
		for _, c := range h.deps {
			if !c.IsHealthy() {
				cur = false
				h.log.Warn().Str("component", c.Name()).Msg("component unhealthy")
			}
		}
		h.healthy.Store(cur)
		if cur != prev {
			if cur {
				h.log.Info().Msg("service health: UP")
			} else {
				h.log.Error().Msg("service health: DOWN")
			}
			prev = cur
		}
	}

	eval()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			eval()
		}
	}
}
