package upload

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadDirect stores a file sent as multipart form field "file". The
// optional "name" field overrides the client file name
func UploadDirect(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString("requestID")

	fh, err := c.FormFile("file")
	if err != nil {
		zap.L().Debug("Failed to open multipart file", zap.String("requestID", requestID), zap.Error(err))
		response.Error(c, apperr.BadRequest("No file provided"))
		return
	}

	name := c.PostForm("name")
	if name == "" {
		name = fh.Filename
	}

	f, err := fh.Open()
	if err != nil {
		response.Error(c, err)
		return
	}
	defer f.Close()

	up, err := d.Uploads.Upload(c.Request.Context(), middleware.Caller(c), name, f, fh.Size)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, up)
}
