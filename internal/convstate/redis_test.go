package convstate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/my3-ai/concierge/internal/model"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, 0)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	st := &model.ConversationState{
		ConversationID: "c1",
		UserID:         "u1",
		Messages: []model.Message{
			{Role: "user", Content: "Add my wife Ritika to my network", CreationTime: time.Now().UTC()},
		},
		CurrentIntent:   model.IntentAddRecipient,
		RequiresConfirm: true,
		PendingActions: []model.PendingAction{{
			Type:            model.ActionCreateRecipient,
			CreateRecipient: &model.CreateRecipientAction{Name: "Ritika", Relationship: "wife"},
		}},
	}
	if err := s.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CurrentIntent != model.IntentAddRecipient || !got.RequiresConfirm {
		t.Fatalf("state not preserved: %+v", got)
	}
	if len(got.PendingActions) != 1 || got.PendingActions[0].CreateRecipient.Name != "Ritika" {
		t.Fatalf("pending actions not preserved: %+v", got.PendingActions)
	}
}

func TestRedisStoreMissingConversation(t *testing.T) {
	s := newTestRedisStore(t)
	if _, err := s.Load(context.Background(), "absent"); !model.IsNotFoundError(err) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestRedisStoreLastWriteWins(t *testing.T) {
	s := newTestRedisStore(t)
	ctx := context.Background()

	first := &model.ConversationState{ConversationID: "c1", UserID: "u1", CurrentIntent: model.IntentGiftSearch}
	second := &model.ConversationState{ConversationID: "c1", UserID: "u1", CurrentIntent: model.IntentCasualChat}
	if err := s.Save(ctx, first); err != nil {
		t.Fatalf("Save first: %v", err)
	}
	if err := s.Save(ctx, second); err != nil {
		t.Fatalf("Save second: %v", err)
	}
	got, err := s.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.CurrentIntent != model.IntentCasualChat {
		t.Fatalf("expected last write to win, got intent %q", got.CurrentIntent)
	}
}

func TestMemoryStoreIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st := &model.ConversationState{ConversationID: "c1", UserID: "u1"}
	if err := s.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Mutating the loaded copy must not leak into the store.
	got.CurrentIntent = model.IntentGiftSearch
	again, err := s.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("Load again: %v", err)
	}
	if again.CurrentIntent == model.IntentGiftSearch {
		t.Fatal("store returned a shared reference")
	}
}

func TestMemoryStoreDetachesSlices(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	st := &model.ConversationState{
		ConversationID: "c1",
		UserID:         "u1",
		Messages:       []model.Message{{Role: "user", Content: "hi"}},
		PendingActions: []model.PendingAction{{Type: model.ActionCreateRecipient}},
	}
	if err := s.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Growing or rewriting the loaded slices must not touch the stored copy.
	got.Messages[0].Content = "changed"
	got.Messages = append(got.Messages, model.Message{Role: "assistant", Content: "reply"})
	got.PendingActions = got.PendingActions[:0]

	again, err := s.Load(ctx, "c1")
	if err != nil {
		t.Fatalf("Load again: %v", err)
	}
	if len(again.Messages) != 1 || again.Messages[0].Content != "hi" {
		t.Fatalf("stored messages mutated: %+v", again.Messages)
	}
	if len(again.PendingActions) != 1 {
		t.Fatalf("stored pending actions mutated: %+v", again.PendingActions)
	}
}
