// Package upload contains the object registry endpoints
package upload

import (
	"net/http"
	"strings"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type uploadURLBody struct {
	ContentType string `json:"contentType"`
}

// UploadURL issues a write handle for the first step of a two step upload
func UploadURL(c *gin.Context, d *internal.Deps) {
	var data uploadURLBody
	if err := c.ShouldBindJSON(&data); err != nil {
		response.BadBody(c, err)
		return
	}

	h, err := d.Uploads.CreateUploadURL(c.Request.Context(), middleware.Caller(c), data.ContentType)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, h)
}

// UploadReadURL returns a short lived download URL for an owned upload
func UploadReadURL(c *gin.Context, d *internal.Deps) {
	url, err := d.Uploads.ReadURL(c.Request.Context(), middleware.Caller(c), storageIDParam(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"url": url,
	})
}

func storageIDParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("storageId"), "/")
}
