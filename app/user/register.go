package user

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type registerBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func UserRegister(c *gin.Context, d *internal.Deps) {
	var data registerBody
	if err := c.ShouldBindJSON(&data); err != nil {
		response.BadBody(c, err)
		return
	}

	user, err := d.Accounts.Register(c.Request.Context(), data.Email, data.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	setCookie(c, "user_id", user.ID, 9999999, false)

	c.JSON(http.StatusOK, gin.H{
		"userID": user.ID,
	})
}
