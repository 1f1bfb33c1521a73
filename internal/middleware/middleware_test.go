package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func signed(t *testing.T, secret []byte, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return s
}

func TestAdminAuth(t *testing.T) {
	secret := []byte("test-secret")
	r := gin.New()
	r.GET("/admin", AdminAuth(AdminAuthConfig{Token: "tok", JWTSecret: secret}), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextOperatorKey))
	})

	do := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	t.Run("missing header", func(t *testing.T) {
		assert.Equal(t, http.StatusUnauthorized, do("").Code)
	})

	t.Run("static token", func(t *testing.T) {
		w := do("Bearer tok")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "api-token", w.Body.String())
	})

	t.Run("admin jwt", func(t *testing.T) {
		tok := signed(t, secret, jwt.MapClaims{"sub": "ops", "role": "admin", "exp": time.Now().Add(time.Hour).Unix()})
		w := do("Bearer " + tok)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ops", w.Body.String())
	})

	t.Run("wrong role", func(t *testing.T) {
		tok := signed(t, secret, jwt.MapClaims{"sub": "ops", "role": "viewer"})
		assert.Equal(t, http.StatusUnauthorized, do("Bearer "+tok).Code)
	})

	t.Run("expired", func(t *testing.T) {
		tok := signed(t, secret, jwt.MapClaims{"sub": "ops", "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()})
		assert.Equal(t, http.StatusUnauthorized, do("Bearer "+tok).Code)
	})

	t.Run("wrong secret", func(t *testing.T) {
		tok := signed(t, []byte("other"), jwt.MapClaims{"sub": "ops", "role": "admin"})
		assert.Equal(t, http.StatusUnauthorized, do("Bearer "+tok).Code)
	})
}

func TestRateLimiter(t *testing.T) {
	stop := make(chan struct{})
	defer close(stop)

	r := gin.New()
	r.GET("/x", RateLimiterMiddleware(RateLimiterConfig{RequestsPerSecond: 1, Burst: 2}, stop), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestEvictIdle(t *testing.T) {
	rl := NewRateLimiterMap(RateLimiterConfig{RequestsPerSecond: 1, Burst: 1, IdleTTL: time.Minute})
	now := time.Now()
	rl.now = func() time.Time { return now }
	rl.getLimiter("a")
	rl.now = func() time.Time { return now.Add(2 * time.Minute) }
	rl.getLimiter("b")

	assert.Equal(t, 1, rl.evictIdle())
	_, ok := rl.limiters.Load("a")
	assert.False(t, ok)
	_, ok = rl.limiters.Load("b")
	assert.True(t, ok)
}
