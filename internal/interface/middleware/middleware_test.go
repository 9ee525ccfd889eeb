package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/kcal-diary-bot/pkg/helpers"
)

func init() { gin.SetMode(gin.TestMode) }

func adminRouter(jwt *helpers.JWTManager) *gin.Engine {
	r := gin.New()
	r.GET("/admin", AdminAuth(jwt), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxSubjectKey))
	})
	return r
}

func get(r http.Handler, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAdminAuth(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", time.Minute)
	r := adminRouter(jwt)

	admin, _, err := jwt.GenerateAccessToken("ops", RoleAdmin)
	require.NoError(t, err)
	viewer, _, err := jwt.GenerateAccessToken("bob", "viewer")
	require.NoError(t, err)

	w := get(r, "/admin", map[string]string{"Authorization": "Bearer " + admin})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ops", w.Body.String())

	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, get(r, "/admin", map[string]string{"Authorization": "Bearer nope"}).Code)
	assert.Equal(t, http.StatusForbidden, get(r, "/admin", map[string]string{"Authorization": "Bearer " + viewer}).Code)
}

func TestTransportAuth(t *testing.T) {
	jwt := helpers.NewJWTManager("secret", time.Minute)
	r := gin.New()
	r.POST("/events", TransportAuth(jwt), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	bearer := func(role string) map[string]string {
		tok, _, err := jwt.GenerateAccessToken("bot", role)
		require.NoError(t, err)
		return map[string]string{"Authorization": "Bearer " + tok}
	}

	assert.Equal(t, http.StatusUnauthorized, post(r, "/events", "{}", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, post(r, "/events", "{}", map[string]string{"Authorization": "Bearer forged"}).Code)
	assert.Equal(t, http.StatusForbidden, post(r, "/events", "{}", bearer("viewer")).Code)
	assert.Equal(t, http.StatusNoContent, post(r, "/events", "{}", bearer(RoleTransport)).Code)
	assert.Equal(t, http.StatusNoContent, post(r, "/events", "{}", bearer(RoleAdmin)).Code)

	other := helpers.NewJWTManager("other-secret", time.Minute)
	tok, _, err := other.GenerateAccessToken("bot", RoleTransport)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, post(r, "/events", "{}", map[string]string{"Authorization": "Bearer " + tok}).Code)
}

func post(r http.Handler, path, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimitPerEventUser(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.POST("/events", RateLimit(rdb, 2, time.Minute, KeyByEventUser(), nil), func(c *gin.Context) {
		body, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(body))
	})

	busy := `{"user_id":1,"kind":"text","text":"hi"}`
	for i := 0; i < 2; i++ {
		w := post(r, "/events", busy, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, busy, w.Body.String(), "handler still sees the body")
	}
	assert.Equal(t, http.StatusTooManyRequests, post(r, "/events", busy, nil).Code)

	// same client IP, different user
	assert.Equal(t, http.StatusOK, post(r, "/events", `{"user_id":2,"kind":"text"}`, nil).Code)
	assert.True(t, mr.Exists("rl:event:user:1"))
	assert.True(t, mr.Exists("rl:event:user:2"))

	assert.Equal(t, http.StatusOK, post(r, "/events", `not json`, nil).Code)
	assert.True(t, mr.Exists("rl:event:ip:192.0.2.1"))
}

func TestRequestIDKeepsIncomingHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("request_id")) })

	w := get(r, "/", map[string]string{HeaderRequestID: "abc-123"})
	assert.Equal(t, "abc-123", w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))

	w = get(r, "/", nil)
	assert.Len(t, w.Body.String(), 36)
}

func TestRateLimitBlocksAfterMax(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.GET("/events", RateLimit(rdb, 2, time.Minute, KeyByIPAndPath(), nil), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	assert.Equal(t, http.StatusNoContent, get(r, "/events", nil).Code)
	w := get(r, "/events", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = get(r, "/events", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpenAndHonoursAllow(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := gin.New()
	r.Use(RealIP())
	r.GET("/x", RateLimit(rdb, 1, time.Minute, KeyBySubject(), AllowPrivateIP()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, get(r, "/x", map[string]string{"X-Forwarded-For": "127.0.0.1"}).Code)
	}

	mr.Close()
	r2 := gin.New()
	r2.GET("/y", RateLimit(rdb, 1, time.Minute, KeyByIP(), nil), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, get(r2, "/y", nil).Code)
	}
}
