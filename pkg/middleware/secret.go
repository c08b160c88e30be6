package middleware

import (
	"crypto/subtle"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

// NewBearerSecretMiddleware guards server-to-server routes with a shared
// secret sent as "Authorization: Bearer <secret>"
func NewBearerSecretMiddleware(secret string) gin.HandlerFunc {
	return secretMiddleware(secret, bearerToken)
}

// NewHeaderSecretMiddleware guards a route with a shared secret sent in the
// named header
func NewHeaderSecretMiddleware(header, secret string) gin.HandlerFunc {
	return secretMiddleware(secret, func(c *gin.Context) string {
		return c.GetHeader(header)
	})
}

func secretMiddleware(secret string, extract func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := extract(c)

		// An unset secret disables the route
		if secret == "" || got == "" {
			response.Error(c, apperr.Unauthenticated())
			return
		}

		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			response.Error(c, apperr.Forbidden("Invalid secret"))
			return
		}

		c.Next()
	}
}
