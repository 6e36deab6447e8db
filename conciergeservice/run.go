// Package conciergeservice wires configuration, storage, the language model,
// and the HTTP surface into a runnable service.
package conciergeservice

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/my3-ai/concierge/internal/actions"
	"github.com/my3-ai/concierge/internal/api"
	"github.com/my3-ai/concierge/internal/auth"
	"github.com/my3-ai/concierge/internal/config"
	"github.com/my3-ai/concierge/internal/convstate"
	"github.com/my3-ai/concierge/internal/dialog"
	"github.com/my3-ai/concierge/internal/factory"
	"github.com/my3-ai/concierge/internal/health"
	"github.com/my3-ai/concierge/internal/logger"
	"github.com/my3-ai/concierge/internal/services"
	"github.com/my3-ai/concierge/internal/store"
	"github.com/my3-ai/concierge/internal/understanding"
)

const (
	healthInterval     = 15 * time.Second
	healthProbeTimeout = 2 * time.Second
)

// Run starts the concierge HTTP server and blocks until shutdown or error.
func Run() error {
	log := logger.New("concierge-service")

	cfg, err := config.New()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return err
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Concierge service starting")

	// Root context bound to SIGINT/SIGTERM.
	ctx, stop := newServerContext()
	defer stop()

	st, conv, und, err := initDependencies(ctx, cfg, log)
	if err != nil {
		return err
	}

	svcHealth := startHealthCheckers(ctx, log, st)
	if err := waitUntilHealthy(ctx, svcHealth); err != nil {
		log.Error().Err(err).Msg("Dependencies failed to become healthy")
		return err
	}

	router := buildRouter(cfg, log, st, conv, und, svcHealth)

	server := newHTTPServer(ctx, cfg, router)
	errCh := serveHTTP(server, log, cfg)

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server")
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctxShutdown); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
			return err
		}
		log.Info().Msg("Server exited")
		return nil
	case err := <-errCh:
		log.Error().Err(err).Msg("HTTP server failed")
		return err
	}
}

// initDependencies constructs required components and fails fast when one is
// missing or unreachable.
func initDependencies(ctx context.Context, cfg *config.Config, log zerolog.Logger) (store.Store, convstate.Store, understanding.Service, error) {
	st, err := factory.NewStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Store unavailable")
		return nil, nil, nil, err
	}
	conv, err := factory.NewConversationStore(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Conversation store unavailable")
		return nil, nil, nil, err
	}
	und, err := factory.NewUnderstanding(ctx, cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Understanding service unavailable")
		return nil, nil, nil, err
	}
	return st, conv, und, nil
}

func buildRouter(cfg *config.Config, log zerolog.Logger, st store.Store, conv convstate.Store, und understanding.Service, svcHealth *health.ServiceHealthChecker) http.Handler {
	validator := factory.NewAddressValidator(cfg, log)
	tokens := auth.NewManager(cfg.JWTSecret, services.TokenTTL(cfg.JWTTTLMinutes))

	return api.NewRouter(api.Deps{
		Auth: services.NewAuthService(st, tokens),
		Chat: services.NewChatService(
			conv,
			dialog.NewRouter(und, st, log),
			actions.NewExecutor(st, validator, cfg.MaxContacts, log),
			log,
		),
		Contacts: services.NewContactService(st, validator, cfg.MaxContacts),
		Tokens:   tokens,
		Health:   svcHealth,
	})
}

// startHealthCheckers starts the store checker and the service aggregator.
func startHealthCheckers(ctx context.Context, log zerolog.Logger, st store.Store) *health.ServiceHealthChecker {
	storeChecker := store.NewHealthChecker(st, log, healthProbeTimeout)
	go storeChecker.Start(ctx, healthInterval)

	svcHealth := health.NewServiceHealthChecker(log, storeChecker)
	go svcHealth.Start(ctx, healthInterval)
	return svcHealth
}

func newHTTPServer(ctx context.Context, cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

func serveHTTP(server *http.Server, log zerolog.Logger, cfg *config.Config) <-chan error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}

// waitUntilHealthy blocks until the aggregated health flag turns green or the
// startup window expires. Checkers begin unhealthy until their first probe.
func waitUntilHealthy(ctx context.Context, svcHealth *health.ServiceHealthChecker) error {
	deadline := time.Now().Add(60 * time.Second)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if svcHealth.IsHealthy() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("startup aborted: dependencies not healthy within 60 seconds")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// newServerContext returns a cancellable context bound to SIGINT/SIGTERM.
func newServerContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
