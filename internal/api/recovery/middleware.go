// Package recovery converts handler panics into HTTP 500 responses so one
// bad turn cannot take the server down.
package recovery

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// Middleware wraps next, recovering from panics in it or anything it calls.
// The panic value and stack go to the log, never to the client.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			log.Error().
				Interface("panic", rec).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote", r.RemoteAddr).
				Bytes("stack", debug.Stack()).
				Msg("panic recovered in handler")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"Internal Server Error","code":500}`))
		}()
		next.ServeHTTP(w, r)
	})
}
