package user

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

func UserVerify(c *gin.Context, d *internal.Deps) {
	err := d.Accounts.Verify(c.Request.Context(), c.Query("user_id"), c.Query("token"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "User validated successfully",
		"requestID": c.GetString("requestID"),
	})
}
