package user

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type adminBody struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// AdminCreate creates a verified admin account. The route is guarded by the
// admin secret middleware
func AdminCreate(c *gin.Context, d *internal.Deps) {
	var data adminBody
	if err := c.ShouldBindJSON(&data); err != nil {
		response.BadBody(c, err)
		return
	}

	user, err := d.Accounts.CreateAdmin(c.Request.Context(), data.Email, data.Name, data.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	zap.L().Info("Admin account created", zap.String("userID", user.ID), zap.String("requestID", c.GetString("requestID")))

	c.JSON(http.StatusCreated, gin.H{
		"userID": user.ID,
		"email":  user.Email,
	})
}
