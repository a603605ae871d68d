package tenant

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

// Identity is the authenticated principal the middleware resolves a club for.
type Identity struct {
	UserID uuid.UUID
	Name   string
}

// IdentityFunc extracts the authenticated identity from a request. Returning
// false means the request is anonymous.
type IdentityFunc func(r *http.Request) (Identity, bool)

// Middleware resolves the request's club and stores it in the context.
// Anonymous requests are rejected with 401; resolution failures with 500.
// Handlers behind it can rely on MustFromContext.
func Middleware(resolver *Resolver, identity IdentityFunc) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant: Resolver is required")
	}
	if identity == nil {
		panic("tenant: IdentityFunc is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := identity(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}

			club, err := resolver.Resolve(r.Context(), principal.UserID, principal.Name)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to resolve club")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClub(r.Context(), club)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
