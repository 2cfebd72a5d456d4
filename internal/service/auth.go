package service

import (
	"fmt"
	"time"

	"github.com/clerk/clerk-sdk-go/v2"
	"github.com/deppfellow/instrument-relay/internal/config"
	"github.com/deppfellow/instrument-relay/internal/server"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// ErrInvalidToken is returned for tokens that fail signature or claim checks.
var ErrInvalidToken = errors.New("invalid token")

// Principal is the authenticated caller.
type Principal struct {
	Subject string
	Role    string
}

// AdminClaims is the payload of tokens issued for the "jwt" provider.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService verifies callers for the configured provider.
//
// For "clerk" it only initializes the Clerk SDK with the secret key; session
// verification is done by the Clerk middleware. For "jwt" it verifies HS256
// tokens signed with the same secret.
type AuthService struct {
	provider  string
	secret    []byte
	adminRole string
}

func NewAuthService(s *server.Server) *AuthService {
	return newAuthService(s.Config.Auth)
}

func newAuthService(cfg config.AuthConfig) *AuthService {
	if cfg.Provider == config.AuthProviderClerk {
		clerk.SetKey(cfg.SecretKey)
	}
	return &AuthService{
		provider:  cfg.Provider,
		secret:    []byte(cfg.SecretKey),
		adminRole: cfg.AdminRole,
	}
}

// Provider is the configured auth provider.
func (a *AuthService) Provider() string {
	return a.provider
}

// IsAdmin reports whether role may trigger reconciliations.
func (a *AuthService) IsAdmin(role string) bool {
	return a.adminRole != "" && role == a.adminRole
}

// VerifyToken parses and verifies an HS256 token.
func (a *AuthService) VerifyToken(raw string) (Principal, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Principal{}, ErrInvalidToken
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return Principal{}, errors.Wrap(ErrInvalidToken, "missing subject")
	}
	return Principal{Subject: subject, Role: claims.Role}, nil
}

// IssueToken signs an HS256 token for subject with role, valid for ttl.
func (a *AuthService) IssueToken(subject, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    config.ServiceName,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}
