package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver map[string]identity.Caller

func (s staticResolver) Resolve(_ context.Context, token string) (identity.Caller, error) {
	if token == "unverified" {
		return identity.Caller{}, apperr.Forbidden("Please verify your account before using the service")
	}

	c, ok := s[token]
	if !ok {
		return identity.Caller{}, apperr.Unauthenticated()
	}

	return c, nil
}

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(NewRequestIDMiddleware())
	r.Use(mw...)
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, Caller(c).ID)
	})

	return r
}

func TestAuthMiddleware(t *testing.T) {
	r := newRouter(NewAuthMiddleware(staticResolver{
		"good": {ID: "u1", Email: "a@example.com"},
	}))

	tests := []struct {
		name   string
		header string
		cookie string
		status int
		body   string
	}{
		{name: "no credentials", status: http.StatusUnauthorized},
		{name: "bearer", header: "Bearer good", status: http.StatusOK, body: "u1"},
		{name: "cookie", cookie: "good", status: http.StatusOK, body: "u1"},
		{name: "bad token", header: "Bearer nope", status: http.StatusUnauthorized},
		{name: "unverified", header: "Bearer unverified", status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "auth_token", Value: tt.cookie})
			}

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
				return
			}

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, w.Header().Get("X-Request-ID"), body["requestID"])
		})
	}
}

func TestSecretMiddleware(t *testing.T) {
	bearer := newRouter(NewBearerSecretMiddleware("s3cret"))
	header := newRouter(NewHeaderSecretMiddleware("X-Admin-Secret", "s3cret"))
	disabled := newRouter(NewBearerSecretMiddleware(""))

	do := func(r *gin.Engine, key, value string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if key != "" {
			req.Header.Set(key, value)
		}

		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, do(bearer, "Authorization", "Bearer s3cret").Code)
	assert.Equal(t, http.StatusForbidden, do(bearer, "Authorization", "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, do(bearer, "", "").Code)

	w := do(bearer, "Authorization", "Bearer wrong")
	assert.False(t, strings.Contains(w.Body.String(), "s3cret"))

	assert.Equal(t, http.StatusOK, do(header, "X-Admin-Secret", "s3cret").Code)
	assert.Equal(t, http.StatusForbidden, do(header, "X-Admin-Secret", "nope").Code)

	assert.Equal(t, http.StatusUnauthorized, do(disabled, "Authorization", "Bearer ").Code)
}

func TestRateLimiter(t *testing.T) {
	r := newRouter(RateLimiterMiddleware(RateLimiterConfig{RequestsPerSecond: 0.001, Burst: 2}))

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestBodySizeLimiter(t *testing.T) {
	r := newRouter(BodySizeLimiter(4))

	req := httptest.NewRequest(http.MethodGet, "/", strings.NewReader("too long"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
