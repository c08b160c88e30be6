package invite

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

func InviteRevoke(c *gin.Context, d *internal.Deps) {
	inv, err := d.Invites.Revoke(c.Request.Context(), middleware.Caller(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func InviteDelete(c *gin.Context, d *internal.Deps) {
	if err := d.Invites.Delete(c.Request.Context(), middleware.Caller(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
