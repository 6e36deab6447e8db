// Package convstate persists per-thread dialogue state. The store is the
// serialization point between turns: the router reads the full prior state at
// the start of a turn and writes the full new state at the end, last write
// wins per conversation id.
package convstate

import (
	"context"
	"sync"
	"time"

	"github.com/my3-ai/concierge/internal/model"
)

// Store persists conversation state keyed by conversation id.
type Store interface {
	// Load returns the state for the conversation, or model.ErrNotFound.
	Load(ctx context.Context, conversationID string) (*model.ConversationState, error)
	// Save writes the full state, replacing any prior version.
	Save(ctx context.Context, state *model.ConversationState) error
}

// MemoryStore is an in-process Store used by tests and single-node dev runs.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]model.ConversationState
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]model.ConversationState)}
}

func (m *MemoryStore) Load(_ context.Context, conversationID string) (*model.ConversationState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.states[conversationID]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := cloneState(st)
	return &out, nil
}

func (m *MemoryStore) Save(_ context.Context, state *model.ConversationState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := cloneState(*state)
	st.LastUpdateTime = time.Now().UTC()
	m.states[state.ConversationID] = st
	return nil
}

// cloneState detaches the slices and top-level pointer fields so a caller
// appending to a loaded state cannot race with the stored copy. Action
// payloads are written once at staging and only read after, so they stay
// shared. The Redis store gets full isolation from JSON round-tripping.
func cloneState(st model.ConversationState) model.ConversationState {
	out := st
	if st.Messages != nil {
		out.Messages = append([]model.Message(nil), st.Messages...)
	}
	if st.PendingActions != nil {
		out.PendingActions = append([]model.PendingAction(nil), st.PendingActions...)
	}
	if st.DetectedPerson != nil {
		p := *st.DetectedPerson
		p.Interests = append([]string(nil), st.DetectedPerson.Interests...)
		p.Constraints = append([]string(nil), st.DetectedPerson.Constraints...)
		p.Mentions = append([]model.SecondaryMention(nil), st.DetectedPerson.Mentions...)
		out.DetectedPerson = &p
	}
	if st.Resolution != nil {
		r := *st.Resolution
		r.Candidates = append([]model.Candidate(nil), st.Resolution.Candidates...)
		out.Resolution = &r
	}
	return out
}
