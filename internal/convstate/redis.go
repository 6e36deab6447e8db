package convstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/my3-ai/concierge/internal/model"
)

// RedisStore persists conversation state in Redis under "conv:{id}".
// SET replaces the whole value, giving the last-write-wins semantics the
// dialogue core expects from its serialization point.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps an existing go-redis client. A zero ttl means no expiry;
// retention policy is owned outside this core.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func key(conversationID string) string { return "conv:" + conversationID }

func (r *RedisStore) Load(ctx context.Context, conversationID string) (*model.ConversationState, error) {
	raw, err := r.client.Get(ctx, key(conversationID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}
	var st model.ConversationState
	if err := json.Unmarshal([]byte(raw), &st); err != nil {
		return nil, fmt.Errorf("decode conversation %s: %w", conversationID, err)
	}
	return &st, nil
}

func (r *RedisStore) Save(ctx context.Context, state *model.ConversationState) error {
	st := *state
	st.LastUpdateTime = time.Now().UTC()
	raw, err := json.Marshal(&st)
	if err != nil {
		return fmt.Errorf("encode conversation %s: %w", state.ConversationID, err)
	}
	if err := r.client.Set(ctx, key(state.ConversationID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation %s: %w", state.ConversationID, err)
	}
	return nil
}
