package invite

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

func InviteGet(c *gin.Context, d *internal.Deps) {
	inv, err := d.Invites.Get(c.Request.Context(), middleware.Caller(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func InviteList(c *gin.Context, d *internal.Deps) {
	invites, err := d.Invites.List(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invites": invites,
	})
}

func InviteShared(c *gin.Context, d *internal.Deps) {
	invites, err := d.Invites.SharedWith(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"invites": invites,
	})
}
