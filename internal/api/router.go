package api

import (
	"github.com/gorilla/mux"

	"github.com/my3-ai/concierge/internal/api/recovery"
	"github.com/my3-ai/concierge/internal/auth"
	"github.com/my3-ai/concierge/internal/health"
	"github.com/my3-ai/concierge/internal/services"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Auth     *services.AuthService
	Chat     *services.ChatService
	Contacts *services.ContactService
	Tokens   *auth.Manager
	Health   *health.ServiceHealthChecker
}

// NewRouter creates the HTTP router with all API routes. Registration, login,
// and health are public; everything else requires a bearer token.
func NewRouter(d Deps) *mux.Router {
	router := mux.NewRouter()
	router.Use(recovery.Middleware)

	healthHandler := NewHealthHandler(d.Health)
	authHandler := NewAuthHandler(d.Auth)
	chatHandler := NewChatHandler(d.Chat)
	recipientHandler := NewRecipientHandler(d.Contacts)

	router.HandleFunc("/api/health", healthHandler.CheckHealth).Methods("GET")
	router.HandleFunc("/api/auth/register", authHandler.Register).Methods("POST")
	router.HandleFunc("/api/auth/login", authHandler.Login).Methods("POST")

	authed := router.PathPrefix("/api").Subrouter()
	authed.Use(d.Tokens.Middleware)

	authed.HandleFunc("/chat", chatHandler.Chat).Methods("POST")
	authed.HandleFunc("/chat/confirm", chatHandler.Confirm).Methods("POST")

	authed.HandleFunc("/recipients", recipientHandler.Create).Methods("POST")
	authed.HandleFunc("/recipients", recipientHandler.List).Methods("GET")
	authed.HandleFunc("/recipients/{contactId}", recipientHandler.Get).Methods("GET")
	authed.HandleFunc("/recipients/{contactId}", recipientHandler.Update).Methods("PUT")
	authed.HandleFunc("/recipients/{contactId}", recipientHandler.Delete).Methods("DELETE")
	authed.HandleFunc("/recipients/{contactId}/occasions", recipientHandler.ListOccasions).Methods("GET")

	return router
}
