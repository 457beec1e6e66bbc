package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cloo-solutions/docqa/internal/api"
)

type contextKey string

const CredentialKey contextKey = "credential"

// Credential takes the model service key for this request from
// "Authorization: Bearer <key>". Requests without the header fall back to
// fallback, which may be empty; the services reject a missing credential.
func Credential(fallback string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := fallback

			if authHeader := r.Header.Get("Authorization"); authHeader != "" {
				token, ok := strings.CutPrefix(authHeader, "Bearer ")
				if !ok || strings.TrimSpace(token) == "" {
					api.Error(w, http.StatusUnauthorized, "invalid authorization format")
					return
				}
				key = strings.TrimSpace(token)
			}

			ctx := context.WithValue(r.Context(), CredentialKey, key)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCredential returns the credential stored by Credential.
func GetCredential(ctx context.Context) string {
	key, _ := ctx.Value(CredentialKey).(string)
	return key
}
