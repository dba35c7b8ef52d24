package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/medication-adherence/internal/config"
	"github.com/iliyamo/medication-adherence/internal/model"
	"github.com/iliyamo/medication-adherence/internal/repository"
	"github.com/iliyamo/medication-adherence/internal/utils"
)

type fakeUsers struct {
	users map[uint64]*model.User
	err   error
	calls int
}

func (f *fakeUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func newGate(t *testing.T, now time.Time) (*utils.TokenService, *fakeUsers, *echo.Echo) {
	t.Helper()
	tokens, err := utils.NewTokenService("middleware-secret", time.Hour)
	require.NoError(t, err)
	tokens.WithClock(func() time.Time { return now })

	users := &fakeUsers{users: map[uint64]*model.User{
		1: {ID: 1, Name: "Pat", Email: "pat@example.com", Role: model.RolePatient},
		2: {ID: 2, Name: "Cara", Email: "cara@example.com", Role: model.RoleCaretaker},
	}}

	e := echo.New()
	g := e.Group("/api", AuthGate(tokens, users))
	g.GET("/me", func(c echo.Context) error {
		id, ok := CurrentUser(c)
		if !ok {
			return c.NoContent(http.StatusTeapot)
		}
		return c.JSON(http.StatusOK, id)
	})
	g.GET("/patients-only", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireRole(model.RolePatient))
	return tokens, users, e
}

func call(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthGateMissingToken(t *testing.T) {
	_, users, e := newGate(t, time.Now())

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc", "token-without-scheme"} {
		rec := call(e, "/api/me", h)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", h)
		assert.JSONEq(t, `{"message":"Access token required"}`, rec.Body.String())
	}
	assert.Zero(t, users.calls)
}

func TestAuthGateInvalidAndExpired(t *testing.T) {
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	tokens, users, e := newGate(t, issued)
	tok, _, err := tokens.Issue(1)
	require.NoError(t, err)

	rec := call(e, "/api/me", "Bearer not.a.jwt")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid or expired token"}`, rec.Body.String())

	tokens.WithClock(func() time.Time { return issued.Add(2 * time.Hour) })
	rec = call(e, "/api/me", "Bearer "+tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"Invalid or expired token"}`, rec.Body.String())
	assert.Zero(t, users.calls)
}

func TestAuthGateAttachesIdentity(t *testing.T) {
	tokens, _, e := newGate(t, time.Now())
	tok, _, err := tokens.Issue(1)
	require.NoError(t, err)

	rec := call(e, "/api/me", "bearer "+tok)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":1,"name":"Pat","email":"pat@example.com","role":"patient"}`, rec.Body.String())
}

func TestAuthGateDeletedUser(t *testing.T) {
	tokens, users, e := newGate(t, time.Now())
	tok, _, err := tokens.Issue(1)
	require.NoError(t, err)
	delete(users.users, 1)

	rec := call(e, "/api/me", "Bearer "+tok)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"message":"User not found"}`, rec.Body.String())
}

func TestAuthGateStoreError(t *testing.T) {
	tokens, users, e := newGate(t, time.Now())
	tok, _, err := tokens.Issue(1)
	require.NoError(t, err)
	users.err = errors.New("connection refused")

	rec := call(e, "/api/me", "Bearer "+tok)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireRole(t *testing.T) {
	tokens, _, e := newGate(t, time.Now())
	patient, _, err := tokens.Issue(1)
	require.NoError(t, err)
	caretaker, _, err := tokens.Issue(2)
	require.NoError(t, err)

	assert.Equal(t, http.StatusNoContent, call(e, "/api/patients-only", "Bearer "+patient).Code)
	assert.Equal(t, http.StatusForbidden, call(e, "/api/patients-only", "Bearer "+caretaker).Code)
}

func TestNewCachedUserLookupWithoutRedis(t *testing.T) {
	users := &fakeUsers{}
	assert.Same(t, users, NewCachedUserLookup(users, nil, time.Minute))
}

func TestMemoryRateLimiter(t *testing.T) {
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            time.Hour,
		KeyStrategy:    "ip",
		Prefix:         "rl",
	}
	e := echo.New()
	e.Use(NewRateLimiter(cfg, nil))
	e.GET("/api/health", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, call(e, "/api/health", "").Code)
	}
	rec := call(e, "/api/health", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.JSONEq(t, `{"message":"Too many requests from this IP, please try again later."}`, rec.Body.String())
}

func TestRateLimiterDisabled(t *testing.T) {
	e := echo.New()
	e.Use(NewRateLimiter(config.RateLimitConfig{Enabled: false, Capacity: 1}, nil))
	e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, call(e, "/x", "").Code)
	}
}

func TestBuildRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/medications", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/medications")

	assert.Equal(t, "rl:ip:10.0.0.1", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip"}, c))
	assert.Equal(t, "rl:user:guest", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user"}, c))

	setIdentity(c, Identity{ID: 7})
	assert.Equal(t, "rl:user:7:route:GET /api/medications", buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: "user_route"}, c))
}

func TestPayloadRoundTrip(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, h, []byte(`{"a":1}`))
	require.NoError(t, err)

	status, hdr, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", hdr.Get("Content-Type"))
	assert.Equal(t, `{"a":1}`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 1})
	assert.False(t, ok)
}

func TestResponseCacheDisabledPassesThrough(t *testing.T) {
	e := echo.New()
	e.Use(NewResponseCache(config.CacheConfig{Enabled: true}, nil))
	e.GET("/x", func(c echo.Context) error { return c.String(http.StatusOK, "fresh") })
	rec := call(e, "/x", "")
	assert.Equal(t, "fresh", rec.Body.String())
	assert.Empty(t, rec.Header().Get("X-Cache"))
}
