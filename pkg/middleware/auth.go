package middleware

import (
	"strings"

	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/identity"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

const callerKey = "caller"

// NewAuthMiddleware resolves the bearer token, or the auth_token cookie set
// at login, to the caller once per request
func NewAuthMiddleware(r identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			token, _ = c.Cookie("auth_token")
		}

		if token == "" {
			response.Error(c, apperr.Unauthenticated())
			return
		}

		caller, err := r.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(callerKey, caller)
		c.Set("userID", caller.ID)
		c.Next()
	}
}

// Caller returns the caller resolved by the auth middleware. Routes without
// the middleware get the zero Caller, which every service rejects
func Caller(c *gin.Context) identity.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return identity.Caller{}
	}

	caller, _ := v.(identity.Caller)
	return caller
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")

	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok {
		return ""
	}

	return strings.TrimSpace(token)
}
