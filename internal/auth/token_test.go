package auth_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insightball/backend/internal/auth"
	"github.com/insightball/backend/pkg/entitlement"
)

func newTokens(t *testing.T, ttl time.Duration) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService(auth.Config{
		SigningKey: "0123456789abcdef0123456789abcdef",
		TokenTTL:   ttl,
	})
	require.NoError(t, err)
	return ts
}

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	tokens := newTokens(t, time.Hour)
	userID := uuid.New()

	token, err := tokens.Issue(userID, "Alex Ferguson")
	require.NoError(t, err)

	claims, err := tokens.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.Equal(t, "Alex Ferguson", claims.Name)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestVerifyRejections(t *testing.T) {
	t.Parallel()

	tokens := newTokens(t, time.Hour)
	token, err := tokens.Issue(uuid.New(), "")
	require.NoError(t, err)

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()

		parts := strings.Split(token, ".")
		_, err := tokens.Verify(parts[0] + ".tampered." + parts[2])
		assert.ErrorIs(t, err, auth.ErrInvalidSignature)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()

		other, err := auth.NewTokenService(auth.Config{
			SigningKey: "ffffffffffffffffffffffffffffffff",
		})
		require.NoError(t, err)
		_, err = other.Verify(token)
		assert.ErrorIs(t, err, auth.ErrInvalidSignature)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()

		_, err := tokens.Verify("not-a-token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()

		shortLived := newTokens(t, time.Nanosecond)
		expired, err := shortLived.Issue(uuid.New(), "")
		require.NoError(t, err)
		time.Sleep(1100 * time.Millisecond)
		_, err = shortLived.Verify(expired)
		assert.ErrorIs(t, err, auth.ErrExpiredToken)
	})

	t.Run("missing key", func(t *testing.T) {
		t.Parallel()

		_, err := auth.NewTokenService(auth.Config{})
		assert.ErrorIs(t, err, auth.ErrMissingSigningKey)
	})
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	tokens := newTokens(t, time.Hour)
	userID := uuid.New()
	token, err := tokens.Issue(userID, "Pep")
	require.NoError(t, err)

	type observed struct {
		subjectID uuid.UUID
		hasSub    bool
		identity  bool
		name      string
	}

	var got observed
	handler := auth.Middleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.subjectID, got.hasSub = entitlement.GetSubjectIDFromContext(r.Context())
		identity, ok := auth.Identity()(r)
		got.identity = ok
		got.name = identity.Name
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid token", func(t *testing.T) {
		got = observed{}
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(httptest.NewRecorder(), r)

		assert.True(t, got.hasSub)
		assert.Equal(t, userID, got.subjectID)
		assert.True(t, got.identity)
		assert.Equal(t, "Pep", got.name)
	})

	t.Run("no header passes through anonymous", func(t *testing.T) {
		got = observed{}
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.False(t, got.hasSub)
		assert.False(t, got.identity)
	})

	t.Run("bad token passes through anonymous", func(t *testing.T) {
		got = observed{}
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer bogus")
		handler.ServeHTTP(httptest.NewRecorder(), r)

		assert.False(t, got.hasSub)
	})
}
