package api

import (
	"encoding/json"
	"net/http"

	"github.com/my3-ai/concierge/internal/api/respond"
	"github.com/my3-ai/concierge/internal/auth"
	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/services"
)

// ChatHandler provides HTTP transport for conversation turns.
type ChatHandler struct {
	svc *services.ChatService
}

func NewChatHandler(svc *services.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// Chat POST /api/chat
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversationId,omitempty"`
		Message        string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	res, err := h.svc.ProcessTurn(r.Context(), auth.UserID(r.Context()), req.ConversationID, req.Message)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}

// Confirm POST /api/chat/confirm
func (h *ChatHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ConversationID string `json:"conversationId"`
		Confirmed      bool   `json:"confirmed"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	res, err := h.svc.ConfirmTurn(r.Context(), auth.UserID(r.Context()), req.ConversationID, req.Confirmed)
	if err != nil {
		if model.IsValidationError(err) || model.IsNotFoundError(err) {
			writeDomainError(w, err)
			return
		}
		respond.WriteInternalError(w, "failed to confirm action")
		return
	}
	respond.WriteJSON(w, http.StatusOK, res)
}
