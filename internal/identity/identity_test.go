package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/ariefcatur/go-marketplace/internal/supabase"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("super-secret-jwt-token-with-at-least-32-characters")

func sign(t *testing.T, method jwt.SigningMethod, key any, c jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, c).SignedString(key)
	require.NoError(t, err)
	return s
}

type fakeAuth struct {
	calls int
	user  *supabase.User
	err   error
}

func (f *fakeAuth) GetUser(ctx context.Context, token string) (*supabase.User, error) {
	f.calls++
	return f.user, f.err
}

type memCache struct{ m map[string]Identity }

func (c *memCache) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	id, ok := c.m[key]
	if ok {
		*(v.(*Identity)) = id
	}
	return ok, nil
}

func (c *memCache) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	c.m[key] = v.(Identity)
	return nil
}

func TestResolveLocalJWT(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &Resolver{JWTSecret: secret, Log: log}

	tok := sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{
		"sub": "user-1", "email": "a@b.co", "exp": time.Now().Add(time.Hour).Unix(),
	})
	id, err := r.Resolve(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, Identity{UserID: "user-1", Email: "a@b.co"}, id)
}

func TestResolveLocalJWTRejects(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &Resolver{JWTSecret: secret, Log: log}
	future := time.Now().Add(time.Hour).Unix()

	cases := map[string]string{
		"expired":     sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u", "exp": time.Now().Add(-time.Hour).Unix()}),
		"no exp":      sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"sub": "u"}),
		"wrong key":   sign(t, jwt.SigningMethodHS256, []byte("other-secret-other-secret-other-secret"), jwt.MapClaims{"sub": "u", "exp": future}),
		"wrong alg":   sign(t, jwt.SigningMethodHS512, secret, jwt.MapClaims{"sub": "u", "exp": future}),
		"no subject":  sign(t, jwt.SigningMethodHS256, secret, jwt.MapClaims{"exp": future}),
		"not a token": "abc.def.ghi",
		"empty":       " ",
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := r.Resolve(context.Background(), tok)
			assert.ErrorIs(t, err, market.ErrUnauthenticated)
		})
	}
}

func TestResolveViaProviderCaches(t *testing.T) {
	log, _ := test.NewNullLogger()
	auth := &fakeAuth{user: &supabase.User{ID: "user-2", Email: "c@d.co"}}
	cache := &memCache{m: map[string]Identity{}}
	r := &Resolver{Auth: auth, Cache: cache, Log: log}

	for i := 0; i < 3; i++ {
		id, err := r.Resolve(context.Background(), "opaque")
		require.NoError(t, err)
		assert.Equal(t, "user-2", id.UserID)
	}
	assert.Equal(t, 1, auth.calls)
	assert.Len(t, cache.m, 1)
}

func TestResolveProviderRejection(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &Resolver{Auth: &fakeAuth{err: &supabase.Error{StatusCode: 401, Message: "invalid JWT"}}, Log: log}

	_, err := r.Resolve(context.Background(), "bad")
	assert.ErrorIs(t, err, market.ErrUnauthenticated)
}

func TestResolveProviderOutage(t *testing.T) {
	log, _ := test.NewNullLogger()
	r := &Resolver{Auth: &fakeAuth{err: errors.New("connection refused")}, Log: log}

	_, err := r.Resolve(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, market.ErrUnauthenticated)
}

func TestContextHelpers(t *testing.T) {
	assert.Equal(t, "", UserID(context.Background()))
	ctx := WithIdentity(context.Background(), Identity{UserID: "u1"})
	assert.Equal(t, "u1", UserID(ctx))
}

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc", BearerToken("Bearer abc"))
	assert.Equal(t, "abc", BearerToken("bearer  abc "))
	assert.Equal(t, "", BearerToken("Basic abc"))
	assert.Equal(t, "", BearerToken("abc"))
	assert.Equal(t, "", BearerToken(""))
}
