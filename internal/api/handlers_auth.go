package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/my3-ai/concierge/internal/api/respond"
	"github.com/my3-ai/concierge/internal/auth"
	"github.com/my3-ai/concierge/internal/model"
	"github.com/my3-ai/concierge/internal/services"
)

// AuthHandler provides HTTP transport for registration and login.
type AuthHandler struct {
	svc *services.AuthService
}

func NewAuthHandler(svc *services.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type authResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	u, token, err := h.svc.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, authResponse{User: u, Token: token})
}

// Login POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	u, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, authResponse{User: u, Token: token})
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrBadCredentials):
		respond.WriteUnauthorized(w, err.Error())
	case model.IsValidationError(err):
		respond.WriteBadRequest(w, err.Error())
	case model.IsConflictError(err):
		respond.WriteConflict(w, err.Error())
	case model.IsNotFoundError(err):
		respond.WriteNotFound(w, err.Error())
	default:
		respond.WriteInternalError(w, "internal error")
	}
}
