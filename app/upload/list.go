package upload

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

func UploadList(c *gin.Context, d *internal.Deps) {
	uploads, err := d.Uploads.List(c.Request.Context(), middleware.Caller(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"uploads": uploads,
	})
}

func UploadDelete(c *gin.Context, d *internal.Deps) {
	if err := d.Uploads.Delete(c.Request.Context(), middleware.Caller(c), storageIDParam(c)); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
