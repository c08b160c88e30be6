package user

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func UserLogin(c *gin.Context, d *internal.Deps) {
	var data loginBody
	if err := c.ShouldBindJSON(&data); err != nil {
		response.BadBody(c, err)
		return
	}

	user, token, err := d.Accounts.Login(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	maxAge := int(d.Auth.TTL.Seconds())

	setCookie(c, "user_id", user.ID, 9999999, false)
	setCookie(c, "auth_token", token, maxAge, true)
	setCookie(c, "logged_in", "1", maxAge, false)

	c.JSON(http.StatusOK, gin.H{
		"userID":   user.ID,
		"verified": user.Verified,
		"token":    token,
	})
}
