package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"event-search/internal/services/events"
)

// Recovery middleware to handle panics
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error().
					Interface("panic", rec).
					Str("stack", string(debug.Stack())).
					Str("path", r.URL.Path).
					Str("method", r.Method).
					Str("remote_addr", r.RemoteAddr).
					Msg("Panic recovered")

				WriteJSON(w, http.StatusInternalServerError,
					events.NewErrorResponse(events.ErrCodeInternal, "Internal server error"))
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// WriteJSON writes v as the JSON body of a response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Int("status", status).Msg("Failed to encode response")
	}
}
