package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/iliyamo/realty-inventory/internal/config"
	"github.com/iliyamo/realty-inventory/internal/utils"
)

const testSecret = "test-secret"

func bearer(t *testing.T, userID uint64, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func newTestEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.POST("/v1/units/:id/lock", func(c echo.Context) error {
		id, _ := UserID(c)
		return c.JSON(http.StatusOK, echo.Map{"user": id, "role": Role(c)})
	}, mw...)
	return e
}

func do(e *echo.Echo, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := newTestEcho(JWTAuth(testSecret))

	rec := do(e, "/v1/units/1/lock", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, "/v1/units/1/lock", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(e, "/v1/units/1/lock", bearer(t, 42, utils.RoleAgent))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":42,"role":"AGENT"}`, rec.Body.String())
}

func TestRequireRole(t *testing.T) {
	e := newTestEcho(JWTAuth(testSecret), RequireRole(utils.RoleAdmin))

	assert.Equal(t, http.StatusForbidden, do(e, "/v1/units/1/lock", bearer(t, 1, utils.RoleAgent)).Code)
	assert.Equal(t, http.StatusOK, do(e, "/v1/units/1/lock", bearer(t, 1, utils.RoleAdmin)).Code)
}

func TestTokenBucket(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Minute,
		TTL:            10 * time.Minute,
		KeyStrategy:    "user_unit",
		Prefix:         "rl",
	}
	e := newTestEcho(JWTAuth(testSecret), NewTokenBucket(cfg, rdb, zaptest.NewLogger(t)))
	auth := bearer(t, 7, utils.RoleAgent)

	rec := do(e, "/v1/units/1/lock", auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, do(e, "/v1/units/1/lock", auth).Code)

	rec = do(e, "/v1/units/1/lock", auth)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(e, "/v1/units/2/lock", auth).Code, "each unit has its own bucket")
	assert.True(t, mr.Exists("rl:user:7:unit:1"))
}

func TestTokenBucket_Disabled(t *testing.T) {
	e := newTestEcho(NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, zaptest.NewLogger(t)))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(e, "/v1/units/1/lock", "").Code)
	}
}

func TestTokenBucket_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	mr.Close()

	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute, TTL: time.Hour}
	e := newTestEcho(NewTokenBucket(cfg, rdb, zaptest.NewLogger(t)))
	assert.Equal(t, http.StatusOK, do(e, "/v1/units/1/lock", "").Code)
	assert.Equal(t, http.StatusOK, do(e, "/v1/units/1/lock", "").Code)
}
