package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/my3-ai/concierge/internal/actions"
	"github.com/my3-ai/concierge/internal/convstate"
	"github.com/my3-ai/concierge/internal/dialog"
	"github.com/my3-ai/concierge/internal/model"
)

// ChatResult is the service-level outcome of one chat or confirm call.
type ChatResult struct {
	ConversationID       string           `json:"conversationId"`
	Reply                string           `json:"reply"`
	Intent               model.Intent     `json:"intent,omitempty"`
	GiftIdeas            []model.GiftIdea `json:"giftIdeas,omitempty"`
	RequiresConfirmation bool             `json:"requiresConfirmation"`
	PendingActionCount   int              `json:"pendingActionCount,omitempty"`
}

// ChatService owns the load, run, persist cycle for conversations. Each turn
// loads the whole state, runs the dialogue pipeline, and writes the state
// back; the state store is the only cross-turn memory.
type ChatService struct {
	conv     convstate.Store
	router   *dialog.Router
	executor *actions.Executor
	log      zerolog.Logger
}

func NewChatService(conv convstate.Store, router *dialog.Router, executor *actions.Executor, log zerolog.Logger) *ChatService {
	return &ChatService{conv: conv, router: router, executor: executor, log: log.With().Str("component", "chat").Logger()}
}

// ProcessTurn handles one user message. An empty or unknown conversation id
// starts a fresh conversation; the assigned id comes back in the result.
func (s *ChatService) ProcessTurn(ctx context.Context, userID, conversationID, message string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, model.NewValidationError("message", "message must not be empty")
	}

	state, err := s.loadOrCreate(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	state.Messages = append(state.Messages, model.Message{Role: "user", Content: message, CreationTime: now})

	res, err := s.router.RunTurn(ctx, state)
	if err != nil {
		return nil, err
	}

	state.Messages = append(state.Messages, model.Message{Role: "assistant", Content: res.Reply, CreationTime: time.Now().UTC()})
	state.LastUpdateTime = time.Now().UTC()
	if err := s.conv.Save(ctx, state); err != nil {
		return nil, err
	}

	return &ChatResult{
		ConversationID:       state.ConversationID,
		Reply:                res.Reply,
		Intent:               state.CurrentIntent,
		GiftIdeas:            res.GiftIdeas,
		RequiresConfirmation: state.RequiresConfirm,
		PendingActionCount:   len(state.PendingActions),
	}, nil
}

// ConfirmTurn resolves the conversation's staged actions. A missing
// conversation is an error the handler maps to 404; a conversation with
// nothing staged is a normal turn that just says so.
func (s *ChatService) ConfirmTurn(ctx context.Context, userID, conversationID string, confirmed bool) (*ChatResult, error) {
	if conversationID == "" {
		return nil, model.NewValidationError("conversationId", "conversationId required")
	}
	state, err := s.conv.Load(ctx, conversationID)
	if errors.Is(err, model.ErrNotFound) {
		return nil, model.NewNotFoundError("conversationId", "conversation not found")
	}
	if err != nil {
		return nil, err
	}
	if state.UserID != userID {
		return nil, model.NewNotFoundError("conversationId", "conversation not found")
	}

	reply, err := s.executor.Confirm(ctx, state, confirmed)
	if err != nil {
		s.log.Error().Err(err).Str("conversationId", conversationID).Msg("confirm failed")
		return nil, err
	}

	state.Messages = append(state.Messages, model.Message{Role: "assistant", Content: reply, CreationTime: time.Now().UTC()})
	state.LastUpdateTime = time.Now().UTC()
	if err := s.conv.Save(ctx, state); err != nil {
		return nil, err
	}

	return &ChatResult{
		ConversationID:       state.ConversationID,
		Reply:                reply,
		Intent:               state.CurrentIntent,
		RequiresConfirmation: false,
	}, nil
}

func (s *ChatService) loadOrCreate(ctx context.Context, userID, conversationID string) (*model.ConversationState, error) {
	if conversationID != "" {
		state, err := s.conv.Load(ctx, conversationID)
		if err == nil {
			if state.UserID != userID {
				return nil, model.NewNotFoundError("conversationId", "conversation not found")
			}
			return state, nil
		}
		if !errors.Is(err, model.ErrNotFound) {
			return nil, err
		}
	}
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	return &model.ConversationState{
		ConversationID: conversationID,
		UserID:         userID,
	}, nil
}
