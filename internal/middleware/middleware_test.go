package middleware

import (
	"context"
	"discuss/config"
	"discuss/internal/models"
	"discuss/internal/utils"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var cfg = &config.Config{JWTSecretKey: "secret", JWTIssuer: "discuss_test", JWTExpirationTime: time.Hour}

type blacklist map[string]bool

func (b blacklist) IsTokenBlacklisted(_ context.Context, jti string) (bool, error) {
	if b == nil {
		return false, errors.New("redis down")
	}
	return b[jti], nil
}

func whoami(c *gin.Context) {
	id, err := utils.GetUserID(c)
	if err != nil {
		c.String(http.StatusOK, "anonymous")
		return
	}
	c.String(http.StatusOK, "%d", id)
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, id uint) string {
	t.Helper()
	tok, err := utils.GenerateToken(cfg, models.UserID(id), "alice")
	require.NoError(t, err)
	return tok
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", JWTAuthMiddleware(cfg, blacklist{}), whoami)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)

	w := do(r, token(t, 7))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7", w.Body.String())
}

func TestJWTAuthMiddleware_Blacklisted(t *testing.T) {
	tok := token(t, 7)
	claims, err := utils.ValidateToken(cfg, tok)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/", JWTAuthMiddleware(cfg, blacklist{claims.ID: true}), whoami)
	assert.Equal(t, http.StatusUnauthorized, do(r, tok).Code)

	// 黑名单不可用时放行
	r = gin.New()
	r.GET("/", JWTAuthMiddleware(cfg, blacklist(nil)), whoami)
	assert.Equal(t, http.StatusOK, do(r, tok).Code)
}

func TestOptionalAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/", OptionalAuthMiddleware(cfg, nil), whoami)

	assert.Equal(t, "anonymous", do(r, "").Body.String())
	assert.Equal(t, "anonymous", do(r, "garbage").Body.String())
	assert.Equal(t, "7", do(r, token(t, 7)).Body.String())
}

type countingLimiter struct {
	n   int
	err error
}

func (l *countingLimiter) AllowRequest(_ context.Context, _ string, limit int, _ time.Duration) (bool, error) {
	l.n++
	return l.n <= limit, l.err
}

func TestRateLimitMiddleware(t *testing.T) {
	lim := &countingLimiter{}
	r := gin.New()
	r.GET("/", JWTAuthMiddleware(cfg, nil), RateLimitMiddleware(lim, "react", 2, time.Minute), whoami)
	tok := token(t, 7)

	assert.Equal(t, http.StatusOK, do(r, tok).Code)
	assert.Equal(t, http.StatusOK, do(r, tok).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, tok).Code)
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	lim := &countingLimiter{n: 100, err: errors.New("redis down")}
	r := gin.New()
	r.GET("/", JWTAuthMiddleware(cfg, nil), RateLimitMiddleware(lim, "react", 1, time.Minute), whoami)

	assert.Equal(t, http.StatusOK, do(r, token(t, 7)).Code)
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewHTTPMetrics(reg)
	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/", whoami)
	r.GET("/metrics", MetricsHandler(reg))

	do(r, "")
	do(r, "")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/", "200")))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), "discuss_http_requests_total")
}

func TestLoggerMiddlewareSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(LoggerMiddleware())
	r.GET("/", whoami)

	w := do(r, "")
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(RequestIDHeader))
}
