package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/movietix/internal/authctx"
	"github.com/iliyamo/movietix/internal/config"
	"github.com/iliyamo/movietix/internal/model"
	"github.com/iliyamo/movietix/internal/utils"
)

const secret = "middleware-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zap.NewNop())
	return e
}

func whoami(c echo.Context) error {
	p, ok := authctx.FromContext(c.Request().Context())
	if !ok {
		return errors.New("no principal on request context")
	}
	return c.JSON(http.StatusOK, map[string]any{"id": p.UserID, "role": p.Role})
}

func token(t *testing.T, userID uint64, role string, ttl time.Duration) string {
	t.Helper()
	at, err := utils.NewAccessToken(secret, userID, role, "u@example.com", ttl)
	require.NoError(t, err)
	return at.Token
}

func do(e *echo.Echo, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := newEcho()
	e.GET("/me", whoami, JWTAuth(secret))

	t.Run("missing header", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/me", "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"unauthorized"`)
	})
	t.Run("garbage token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", "not.a.jwt").Code)
	})
	t.Run("expired token", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", token(t, 7, model.RoleCustomer, -time.Minute)).Code)
	})
	t.Run("wrong secret", func(t *testing.T) {
		at, err := utils.NewAccessToken("other", 7, model.RoleCustomer, "", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/me", at.Token).Code)
	})
	t.Run("valid token exposes principal", func(t *testing.T) {
		rec := do(e, http.MethodGet, "/me", token(t, 7, model.RoleCustomer, time.Minute))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"id":7,"role":"CUSTOMER"}`, rec.Body.String())
	})
}

func TestRequireRole(t *testing.T) {
	e := newEcho()
	e.GET("/admin", whoami, JWTAuth(secret), RequireRole(model.RoleAdmin))
	e.GET("/open", whoami, RequireRole(model.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, do(e, http.MethodGet, "/admin", token(t, 1, model.RoleCustomer, time.Minute)).Code)
	assert.Equal(t, http.StatusOK, do(e, http.MethodGet, "/admin", token(t, 1, model.RoleAdmin, time.Minute)).Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, http.MethodGet, "/open", "").Code)
}

func TestHTTPErrorHandler_Mapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("%w: seat_count must be positive", model.ErrValidation), 400, "validation_error"},
		{fmt.Errorf("showtime 9: %w", model.ErrNotFound), 404, "not_found"},
		{fmt.Errorf("%w: 3 left", model.ErrCapacityExceeded), 409, "capacity_exceeded"},
		{fmt.Errorf("%w: CANCELLED -> CONFIRMED", model.ErrInvalidTransition), 409, "invalid_transition"},
		{model.ErrConflict, 409, "conflict"},
		{model.ErrForbidden, 403, "forbidden"},
		{echo.ErrNotFound, 404, "not_found"},
		{errors.New("db exploded"), 500, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := newEcho()
			e.GET("/x", func(echo.Context) error { return tt.err })
			rec := do(e, http.MethodGet, "/x", "")
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error":"`+tt.code+`"`)
			if tt.status == 500 {
				assert.NotContains(t, rec.Body.String(), "exploded")
			}
		})
	}
}

func TestRedisMiddlewaresPassThroughWithoutRedis(t *testing.T) {
	e := newEcho()
	log := zap.NewNop()
	hits := 0
	h := func(c echo.Context) error { hits++; return c.String(http.StatusOK, "ok") }
	e.GET("/x", h,
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1}, nil, log),
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil, log))

	for i := 0; i < 3; i++ {
		rec := do(e, http.MethodGet, "/x", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	assert.Equal(t, 3, hits)
}

func TestRateKeyStrategies(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/bookings", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/bookings")
	c.Set(PrincipalKey, authctx.Principal{UserID: 42, Role: model.RoleCustomer})

	cfg := config.RateLimitConfig{Prefix: "rl"}
	for strategy, want := range map[string]string{
		"ip":            "rl:ip:10.0.0.1",
		"user":          "rl:user:42",
		"ip_route":      "rl:ip:10.0.0.1:route:POST /api/bookings",
		"user_route":    "rl:user:42:route:POST /api/bookings",
		"ip_user_route": "rl:ip:10.0.0.1:user:42:route:POST /api/bookings",
	} {
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, rateKey(cfg, c), strategy)
	}

	booking := BookingBucket(config.RateLimitConfig{Prefix: "rl", Capacity: 60, BookingCapacity: 5})
	assert.Equal(t, 5, booking.Capacity)
	assert.Equal(t, "rl:booking", booking.Prefix)
}

func TestCacheKeyUsesConcretePath(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "c", KeyStrategy: "route_query"}
	key := func(target string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/movies/:id")
		return cacheKey(cfg, c)
	}
	assert.NotEqual(t, key("/api/movies/1"), key("/api/movies/2"))
	assert.NotEqual(t, key("/api/movies/1?a=1"), key("/api/movies/1?a=2"))
	assert.Equal(t, key("/api/movies/1"), key("/api/movies/1"))
}

func TestPayloadCodec(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
}
