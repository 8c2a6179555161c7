package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/warp/campus-scheduler/campus"
)

// UserProvider resolves the caller of a request. ok is false for anonymous
// requests and for requests carrying an invalid credential.
type UserProvider interface {
	Resolve(r *http.Request) (*campus.UserIdentity, bool)
}

// Claims is the JWT payload. The subject is the username.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth issues and verifies HS256 bearer tokens.
type JWTAuth struct {
	Secret []byte
	TTL    time.Duration
	Clock  campus.Clock
}

// NewJWTAuth creates an authenticator for the given secret.
func NewJWTAuth(secret string, ttl time.Duration) *JWTAuth {
	return &JWTAuth{Secret: []byte(secret), TTL: ttl}
}

// Issue signs a token for user that expires after TTL.
func (a *JWTAuth) Issue(user campus.UserIdentity) (string, error) {
	if strings.TrimSpace(user.Username) == "" {
		return "", errors.New("username is required")
	}
	now := a.Clock.Now()
	claims := Claims{
		Email: campus.NormalizeEmail(user.Email),
		Role:  user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.TTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.Secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies a raw token and returns the identity it carries.
func (a *JWTAuth) Parse(raw string) (*campus.UserIdentity, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return a.Secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.Clock.Now),
	)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return &campus.UserIdentity{
		Username: claims.Subject,
		Email:    claims.Email,
		Role:     claims.Role,
	}, nil
}

// Resolve reads the "Authorization: Bearer <token>" header.
func (a *JWTAuth) Resolve(r *http.Request) (*campus.UserIdentity, bool) {
	header := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, false
	}
	user, err := a.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, false
	}
	return user, true
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

type userKey struct{}

func withUser(ctx context.Context, u *campus.UserIdentity) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFromContext returns the caller stored by RequireUser.
func UserFromContext(ctx context.Context) *campus.UserIdentity {
	u, _ := ctx.Value(userKey{}).(*campus.UserIdentity)
	return u
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(users UserProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := users.Resolve(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "Authentication required", "unauthorized", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// RequireAdmin must run after RequireUser.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !UserFromContext(r.Context()).IsAdmin() {
			writeError(w, http.StatusForbidden, "Admin role required", "forbidden", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
