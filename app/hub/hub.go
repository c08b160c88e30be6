// Package hub contains the hub registry endpoints
package hub

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type createBody struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func HubCreate(c *gin.Context, d *internal.Deps) {
	var data createBody
	if err := c.ShouldBindJSON(&data); err != nil {
		response.BadBody(c, err)
		return
	}

	hub, err := d.Hubs.Create(c.Request.Context(), middleware.Caller(c), data.Name, data.Description)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, hub)
}

func HubList(c *gin.Context, d *internal.Deps) {
	hubs, err := d.Hubs.List(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"hubs": hubs,
	})
}

func HubDelete(c *gin.Context, d *internal.Deps) {
	if err := d.Hubs.Delete(c.Request.Context(), middleware.Caller(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
