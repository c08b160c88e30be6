package upload

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type recordBody struct {
	StorageID string `json:"storageId"`
	Name      string `json:"name"`
}

// UploadRecord records bytes already transferred through a write handle
func UploadRecord(c *gin.Context, d *internal.Deps) {
	var data recordBody
	if err := c.ShouldBindJSON(&data); err != nil {
		response.BadBody(c, err)
		return
	}

	up, err := d.Uploads.Record(c.Request.Context(), middleware.Caller(c), data.StorageID, data.Name)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, up)
}
