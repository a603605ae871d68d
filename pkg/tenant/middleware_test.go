package tenant_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightball/backend/pkg/tenant"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	authed := func(r *http.Request) (tenant.Identity, bool) {
		return tenant.Identity{UserID: userID, Name: "Alex"}, true
	}
	anonymous := func(r *http.Request) (tenant.Identity, bool) {
		return tenant.Identity{}, false
	}

	t.Run("stores resolved club in context", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewResolver(newMemStore())
		var seen *tenant.Club
		handler := tenant.Middleware(resolver, authed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = tenant.MustFromContext(r.Context())
			w.WriteHeader(http.StatusNoContent)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/matches", nil))

		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, userID, seen.ID)
	})

	t.Run("rejects anonymous requests", func(t *testing.T) {
		t.Parallel()

		resolver := tenant.NewResolver(newMemStore())
		handler := tenant.Middleware(resolver, anonymous)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler must not run")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/matches", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "authentication required")
	})

	t.Run("resolution failure yields 500", func(t *testing.T) {
		t.Parallel()

		store := newMemStore()
		store.getErr = assert.AnError
		resolver := tenant.NewResolver(store)
		handler := tenant.Middleware(resolver, authed)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler must not run")
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/matches", nil))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
