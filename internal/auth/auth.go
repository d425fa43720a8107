// Package auth reads the caller identity supplied by the identity provider.
// Tokens are HS256 JWTs carrying the user id, role and account status; the
// package never manages credentials itself.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const identityCtxKey = ctxKey("identity")

// Account statuses supplied by the identity provider.
const (
	StatusActive   = "active"
	StatusPending  = "pending"
	StatusInactive = "inactive"
)

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
	// ErrRevoked is returned by an IdentityResolver when the account behind
	// a valid token no longer exists.
	ErrRevoked = errors.New("identity revoked")
)

// IdentityResolver returns the current role and status for the identity a
// token claims. Claims are only as fresh as the token, so the account
// record wins.
type IdentityResolver func(ctx context.Context, claimed Identity) (Identity, error)

// Identity is the subset of the user profile the core consumes.
type Identity struct {
	UserID uint
	Name   string
	Role   string
	Status string
}

// Active reports whether the account is in good standing.
func (i Identity) Active() bool {
	return i.Status == StatusActive
}

// Claims is the JWT payload.
type Claims struct {
	Name   string `json:"name,omitempty"`
	Role   string `json:"role"`
	Status string `json:"status"`
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens and issues them for tooling and tests.
type Verifier struct {
	secret  []byte
	issuer  string
	current IdentityResolver
}

// NewVerifier creates a verifier for the given HMAC secret.
func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Issue signs a token for the identity valid for ttl.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:   id.Name,
		Role:   id.Role,
		Status: id.Status,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(id.UserID), 10),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Parse validates the token and returns the identity it carries.
func (v *Verifier) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}
	uid, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || uid == 0 {
		return Identity{}, fmt.Errorf("%w: bad subject %q", ErrTokenInvalid, claims.Subject)
	}
	return Identity{
		UserID: uint(uid),
		Name:   claims.Name,
		Role:   claims.Role,
		Status: claims.Status,
	}, nil
}

// WithIdentity stores the identity in context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey, id)
}

// FromContext extracts the identity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey).(Identity)
	if !ok || id.UserID == 0 {
		return Identity{}, false
	}
	return id, true
}

// UserIDFromContext extracts the user id.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := FromContext(ctx)
	return id.UserID, ok
}

// SetIdentityResolver makes Middleware replace token claims with the
// account's current role and status.
func (v *Verifier) SetIdentityResolver(fn IdentityResolver) {
	v.current = fn
}

// Middleware attaches the identity to the request context if a valid bearer token is present.
// With an IdentityResolver set, a revoked account gets no identity; any other
// lookup failure keeps the token claims.
func (v *Verifier) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := bearerToken(r); token != "" {
			if id, err := v.Parse(token); err == nil {
				if id, ok := v.resolve(r.Context(), id); ok {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (v *Verifier) resolve(ctx context.Context, claimed Identity) (Identity, bool) {
	if v.current == nil {
		return claimed, true
	}
	id, err := v.current(ctx, claimed)
	switch {
	case err == nil:
		return id, true
	case errors.Is(err, ErrRevoked):
		return Identity{}, false
	default:
		slog.Warn("identity lookup failed, using token claims", "user_id", claimed.UserID, "error", err)
		return claimed, true
	}
}

// RequireAuth answers 401 when no identity is attached.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := FromContext(r.Context()); !ok {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"unauthorized"}`)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
}
