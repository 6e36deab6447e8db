// Package factory constructs the service's pluggable dependencies from
// configuration: storage driver, conversation state store, language model,
// and address validator.
package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/my3-ai/concierge/internal/address"
	"github.com/my3-ai/concierge/internal/config"
	"github.com/my3-ai/concierge/internal/convstate"
	storepkg "github.com/my3-ai/concierge/internal/store"
	storepg "github.com/my3-ai/concierge/internal/store/postgres"
	storelite "github.com/my3-ai/concierge/internal/store/sqlite"
	"github.com/my3-ai/concierge/internal/understanding"
	"github.com/my3-ai/concierge/internal/understanding/gemini"
)

// NewStore returns the configured store.Store and ensures the schema exists.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		db, err := storelite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := storelite.EnsureSchema(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("sqlite store ready")
		return storelite.NewWithDB(db), nil
	case "postgres":
		db, err := storepg.Open(cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := storepg.EnsureSchema(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		log.Info().Msg("postgres store ready")
		return storepg.NewWithDB(db), nil
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}

// NewConversationStore returns the redis-backed state store when an address
// is configured, and the in-process store otherwise.
func NewConversationStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (convstate.Store, error) {
	if cfg.RedisAddr == "" {
		log.Info().Msg("conversation state held in process memory")
		return convstate.NewMemoryStore(), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis unreachable at %s: %w", cfg.RedisAddr, err)
	}
	ttl := time.Duration(cfg.ConversationTTLMin) * time.Minute
	log.Info().Str("addr", cfg.RedisAddr).Dur("ttl", ttl).Msg("conversation state in redis")
	return convstate.NewRedisStore(client, ttl), nil
}

// NewUnderstanding returns the Gemini-backed understanding service. The API
// key is required; there is no usable fallback for the dialogue core.
func NewUnderstanding(ctx context.Context, cfg *config.Config, log zerolog.Logger) (understanding.Service, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("MY3_GEMINI_API_KEY is required")
	}
	return gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, log)
}

// NewAddressValidator returns the geocoding validator when a key is
// configured, and the disabled validator otherwise.
func NewAddressValidator(cfg *config.Config, log zerolog.Logger) address.Validator {
	if cfg.GeocodingAPIKey == "" {
		log.Info().Msg("address validation disabled, no geocoding key")
		return address.Disabled{}
	}
	return address.NewGeocoder(cfg.GeocodingAPIKey, log)
}
