// ABOUTME: RequireAPIKey middleware for Bearer API-key auth on the digest API.
// ABOUTME: Injects the resolved project ID into the request context.
package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/mfaller/digestd/internal/auth"
)

// RequireAPIKey returns a middleware that requires a valid API key in the
// Authorization header (Bearer <key>). On success it injects the key's project
// ID into the request context.
func (srv *Server) RequireAPIKey() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			rawKey, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || !strings.HasPrefix(rawKey, auth.APIKeyPrefix) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			projectID, found, err := srv.store.ProjectIDByAPIKeyHash(r.Context(), auth.HashAPIKey(rawKey))
			if err != nil || !found {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxProjectID, projectID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
