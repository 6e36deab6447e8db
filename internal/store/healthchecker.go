package store

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/my3-ai/concierge/internal/health"
	"github.com/my3-ai/concierge/internal/model"
)

// HealthChecker monitors storage health using the driver's HealthPing when
// implemented, and a cheap read otherwise.
type HealthChecker struct {
	store        Store
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
}

func NewHealthChecker(s Store, log zerolog.Logger, probeTimeout time.Duration) *HealthChecker {
	hc := &HealthChecker{store: s, log: log, probeTimeout: probeTimeout}
	hc.healthy.Store(0) // start unhealthy until first successful probe
	return hc
}

func (hc *HealthChecker) Name() string    { return "store" }
func (hc *HealthChecker) IsHealthy() bool { return hc.healthy.Load() == 1 }

func (hc *HealthChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		to := hc.probeTimeout
		if to <= 0 {
			to = 2 * time.Second
		}
		checkCtx, cancel := context.WithTimeout(ctx, to)
		defer cancel()

		ok := true
		if p, okCast := hc.store.(health.HealthPinger); okCast {
			if err := p.HealthPing(checkCtx); err != nil {
				ok = false
				hc.log.Error().Str("checker", hc.Name()).Err(err).Msg("store health check failed")
			}
		} else {
			if _, err := hc.store.Users().Get(checkCtx, ""); err != nil && !errors.Is(err, model.ErrNotFound) {
				ok = false
				hc.log.Error().Str("checker", hc.Name()).Err(err).Msg("store health check failed")
			}
		}
		if ok {
			hc.healthy.Store(1)
		} else {
			hc.healthy.Store(0)
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
