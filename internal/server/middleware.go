package server

import (
	"context"
	"net/http"
)

type ctxKey int

const (
	ctxKeySession ctxKey = iota
	ctxKeyAdmin
)

// playerMiddleware resolves the session token and rejects unknown or
// expired sessions before the handler runs.
func playerMiddleware(d *deps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := tokenFromRequest(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "invalid or missing session token")
				return
			}

			if _, err := d.engine.State(r.Context(), token); err != nil {
				writeEngineError(w, d.logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeySession, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func adminAuthMiddleware(d *deps) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin, err := d.adminFromRequest(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "not authenticated")
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyAdmin, admin.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionID(r *http.Request) string {
	return r.Context().Value(ctxKeySession).(string)
}

func adminFrom(r *http.Request) string {
	return r.Context().Value(ctxKeyAdmin).(string)
}
