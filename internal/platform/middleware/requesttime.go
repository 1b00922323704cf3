package middleware

import (
	"net/http"
	"time"

	"medcat/pkg/requestcontext"
)

// RequestTime captures one "now" at the start of the request so every
// timestamp written while serving it agrees: domain fields, audit entries
// and logs all see the same instant.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
