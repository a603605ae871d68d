package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/insightball/backend/pkg/entitlement"
	"github.com/insightball/backend/pkg/tenant"
)

type claimsContextKey struct{}

// Middleware authenticates bearer tokens. A valid token puts the caller's
// identity and entitlement subject ID into the context; requests without a
// usable token pass through anonymous, so route groups decide whether
// authentication is required.
func Middleware(tokens *TokenService) func(http.Handler) http.Handler {
	if tokens == nil {
		panic("auth: TokenService is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey{}, claims)
			ctx = entitlement.SetSubjectIDToContext(ctx, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Identity adapts authenticated claims into the tenant resolver's identity.
func Identity() tenant.IdentityFunc {
	return func(r *http.Request) (tenant.Identity, bool) {
		claims, ok := r.Context().Value(claimsContextKey{}).(AccessClaims)
		if !ok {
			return tenant.Identity{}, false
		}
		userID, err := claims.UserID()
		if err != nil {
			return tenant.Identity{}, false
		}
		return tenant.Identity{UserID: userID, Name: claims.Name}, true
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
