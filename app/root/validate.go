package root

import (
	"net/http"

	"bitwise74/filehub-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Validate answers 200 when the auth middleware accepted the token
func Validate(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"userID": middleware.Caller(c).ID,
	})
}
