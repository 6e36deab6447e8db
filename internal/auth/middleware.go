package auth

import (
	"net/http"
	"strings"

	"github.com/my3-ai/concierge/internal/api/respond"
)

// Middleware verifies the Authorization bearer token and stores the user id
// on the request context. Requests without a valid token get a 401.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			respond.WriteError(w, http.StatusUnauthorized, ErrMissingToken.Error())
			return
		}
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			respond.WriteError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
			return
		}
		userID, err := m.VerifyToken(token)
		if err != nil {
			respond.WriteError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
