package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mutena/fotomutena/utils"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter(bl *utils.TokenBlacklist) *gin.Engine {
	r := gin.New()
	r.GET("/admin", AuthRequired("secret", bl), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextTokenKey))
	})
	return r
}

func TestAuthRequired(t *testing.T) {
	bl := utils.NewTokenBlacklist(nil)
	r := protectedRouter(bl)
	token, expiresAt, err := utils.GenerateToken("secret", time.Hour)
	require.NoError(t, err)
	forged, _, err := utils.GenerateToken("other", time.Hour)
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"forged", "Bearer " + forged, http.StatusUnauthorized},
		{"valid", "Bearer " + token, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}

	bl.Revoke(context.Background(), token, expiresAt)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token revoked")
}

func rateLimitedRouter(t *testing.T, perMinute int, proxies []string) *gin.Engine {
	t.Helper()
	r := gin.New()
	require.NoError(t, r.SetTrustedProxies(proxies))
	r.POST("/login", RateLimit(perMinute), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func hitFrom(r *gin.Engine, peer, forwarded string) int {
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = peer + ":40000"
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit(t *testing.T) {
	r := rateLimitedRouter(t, 2, nil)

	assert.Equal(t, http.StatusNoContent, hitFrom(r, "203.0.113.7", ""))
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", nil)
	req.RemoteAddr = "203.0.113.7:40001"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, hitFrom(r, "198.51.100.9", ""))
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	r := rateLimitedRouter(t, 2, nil)

	allowed := 0
	for i := 0; i < 100; i++ {
		if hitFrom(r, "203.0.113.7", fmt.Sprintf("8.8.%d.%d", i/250, i%250+1)) == http.StatusNoContent {
			allowed++
		}
	}
	assert.Equal(t, 1, allowed)
}

func TestRateLimitHonoursTrustedProxy(t *testing.T) {
	r := rateLimitedRouter(t, 2, []string{"192.0.2.1"})

	assert.Equal(t, http.StatusNoContent, hitFrom(r, "192.0.2.1", "8.8.8.8"))
	assert.Equal(t, http.StatusTooManyRequests, hitFrom(r, "192.0.2.1", "8.8.8.8"))
	assert.Equal(t, http.StatusNoContent, hitFrom(r, "192.0.2.1", "1.1.1.1"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ContextRequestIDKey)) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
	assert.Equal(t, w.Header().Get(RequestIDHeader), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
