// Package identity resolves bearer tokens to users and carries the result
// on the request context.
package identity

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/ariefcatur/go-marketplace/internal/redisx"
	"github.com/ariefcatur/go-marketplace/internal/supabase"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Authenticator resolves an access token with the identity provider.
type Authenticator interface {
	GetUser(ctx context.Context, accessToken string) (*supabase.User, error)
}

// Cache is the subset of redisx.Cache the resolver uses.
type Cache interface {
	GetJSON(ctx context.Context, key string, v any) (bool, error)
	SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error
}

// Resolver verifies HS256 tokens locally when JWTSecret is set and asks
// the provider otherwise. Provider answers are cached by token hash.
type Resolver struct {
	Auth      Authenticator
	JWTSecret []byte
	Cache     Cache // optional
	CacheTTL  time.Duration
	Log       logrus.FieldLogger
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Resolve returns the identity behind token or an error wrapping
// market.ErrUnauthenticated.
func (r *Resolver) Resolve(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, market.ErrUnauthenticated
	}
	if len(r.JWTSecret) > 0 {
		return r.verify(token)
	}

	key := fmt.Sprintf(redisx.KeyIdentity, tokenHash(token))
	if r.Cache != nil {
		var id Identity
		found, err := r.Cache.GetJSON(ctx, key, &id)
		if err != nil {
			r.Log.WithError(err).Warn("identity cache read")
		}
		if found && id.UserID != "" {
			return id, nil
		}
	}

	u, err := r.Auth.GetUser(ctx, token)
	if err != nil {
		var se *supabase.Error
		if errors.As(err, &se) && se.StatusCode < 500 {
			return Identity{}, fmt.Errorf("%w: %s", market.ErrUnauthenticated, se.Message)
		}
		return Identity{}, fmt.Errorf("resolve token: %w", err)
	}
	if u.ID == "" {
		return Identity{}, market.ErrUnauthenticated
	}
	id := Identity{UserID: u.ID, Email: u.Email}

	if r.Cache != nil {
		ttl := r.CacheTTL
		if ttl <= 0 {
			ttl = redisx.TTLIdentity
		}
		if err := r.Cache.SetJSON(ctx, key, id, ttl); err != nil {
			r.Log.WithError(err).Warn("identity cache write")
		}
	}
	return id, nil
}

func (r *Resolver) verify(token string) (Identity, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (interface{}, error) {
		return r.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", market.ErrUnauthenticated, err)
	}
	if c.Subject == "" {
		return Identity{}, fmt.Errorf("%w: token has no subject", market.ErrUnauthenticated)
	}
	return Identity{UserID: c.Subject, Email: c.Email}, nil
}

func tokenHash(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// UserID returns the caller's id, or "" outside an authenticated request.
func UserID(ctx context.Context) string {
	id, _ := FromContext(ctx)
	return id.UserID
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
