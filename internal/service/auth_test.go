package service

import (
	"testing"
	"time"

	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwtAuth() *AuthService {
	return newAuthService(config.AuthConfig{
		Provider:  config.AuthProviderJWT,
		SecretKey: "test-secret",
		AdminRole: "admin",
	})
}

func TestVerifyToken_RoundTrip(t *testing.T) {
	auth := jwtAuth()

	token, err := auth.IssueToken("user_1", "admin", time.Minute)
	require.NoError(t, err)

	p, err := auth.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, Principal{Subject: "user_1", Role: "admin"}, p)
	assert.True(t, auth.IsAdmin(p.Role))
}

func TestVerifyToken_Rejects(t *testing.T) {
	auth := jwtAuth()

	expired, err := auth.IssueToken("user_1", "admin", -time.Minute)
	require.NoError(t, err)

	otherSecret, err := newAuthService(config.AuthConfig{
		Provider:  config.AuthProviderJWT,
		SecretKey: "another-secret",
	}).IssueToken("user_1", "admin", time.Minute)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Role:             "admin",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "user_1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noSubject, err := auth.IssueToken("", "admin", time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong secret", otherSecret},
		{"no expiry", noExpiry},
		{"no subject", noSubject},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := auth.VerifyToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestIsAdmin(t *testing.T) {
	auth := jwtAuth()
	assert.True(t, auth.IsAdmin("admin"))
	assert.False(t, auth.IsAdmin("member"))
	assert.False(t, auth.IsAdmin(""))

	assert.False(t, newAuthService(config.AuthConfig{Provider: config.AuthProviderJWT}).IsAdmin(""))
	assert.Equal(t, config.AuthProviderJWT, auth.Provider())
}
