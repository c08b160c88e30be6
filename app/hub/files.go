package hub

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type addFileBody struct {
	UploadID string `json:"uploadId"`
}

func HubFiles(c *gin.Context, d *internal.Deps) {
	files, err := d.Hubs.Files(c.Request.Context(), middleware.Caller(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"files": files,
	})
}

func HubAddFile(c *gin.Context, d *internal.Deps) {
	var data addFileBody
	if err := c.ShouldBindJSON(&data); err != nil {
		response.BadBody(c, err)
		return
	}

	hf, err := d.Hubs.AddFile(c.Request.Context(), middleware.Caller(c), c.Param("id"), data.UploadID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, hf)
}

func HubRemoveFile(c *gin.Context, d *internal.Deps) {
	if err := d.Hubs.RemoveFile(c.Request.Context(), middleware.Caller(c), c.Param("hubFileId")); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
