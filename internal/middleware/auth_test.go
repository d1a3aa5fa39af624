package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/feedpost/backend/internal/auth"
	"github.com/feedpost/backend/internal/middleware"
)

func decodeIdentity(t *testing.T, tokens *auth.TokenService, authHeader string) middleware.Identity {
	t.Helper()

	var got middleware.Identity
	handler := middleware.Decode(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.IdentityFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/feed/posts", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, "gate must never fail the request")
	return got
}

func TestDecode_NoHeader(t *testing.T) {
	tokens := auth.NewTokenService("somesupersecretsecret")
	ident := decodeIdentity(t, tokens, "")
	require.False(t, ident.IsAuth)
	require.Empty(t, ident.UserID)
}

func TestDecode_MalformedHeader(t *testing.T) {
	tokens := auth.NewTokenService("somesupersecretsecret")
	ident := decodeIdentity(t, tokens, "Bearer")
	require.False(t, ident.IsAuth)
}

func TestDecode_InvalidToken(t *testing.T) {
	tokens := auth.NewTokenService("somesupersecretsecret")
	ident := decodeIdentity(t, tokens, "Bearer xyz")
	require.False(t, ident.IsAuth)
}

func TestDecode_ValidToken(t *testing.T) {
	tokens := auth.NewTokenService("somesupersecretsecret")
	token, err := tokens.Sign("abc123", "test@test.com")
	require.NoError(t, err)

	ident := decodeIdentity(t, tokens, "Bearer "+token)
	require.True(t, ident.IsAuth)
	require.Equal(t, "abc123", ident.UserID)
}

func TestIdentityFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	ident := middleware.IdentityFromContext(req.Context())
	require.False(t, ident.IsAuth)
}
