package middleware

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey int

const callerKey ctxKey = iota

// CallerID returns the authenticated caller identity set by Auth, or "" when
// the request never passed through it.
func CallerID(ctx context.Context) string {
	v, _ := ctx.Value(callerKey).(string)
	return v
}

func readAuth(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(h), "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if k := r.Header.Get("X-API-Key"); k != "" {
		return strings.TrimSpace(k)
	}
	return ""
}

// Auth resolves an API key to a caller id and stores it on the request
// context. The identity store itself is external; this gate only needs the
// key -> caller mapping. If no keys are configured, all requests are admitted
// as caller "dev" (handy for local dev).
func Auth(keys map[string]string) func(http.Handler) http.Handler {
	enabled := len(keys) > 0
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, "dev")))
				return
			}
			caller, ok := keys[readAuth(r)]
			if !ok {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), callerKey, caller)))
		})
	}
}
