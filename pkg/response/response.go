// Package response writes the JSON error envelope shared by every handler
package response

import (
	"net/http"

	"bitwise74/filehub-api/internal/apperr"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error maps err to its status code and writes {"error", "requestID"}.
// Errors outside the apperr taxonomy are logged and hidden behind a generic
// message
func Error(c *gin.Context, err error) {
	requestID := c.GetString("requestID")
	status := apperr.Status(err)

	if status == http.StatusInternalServerError {
		zap.L().Error("Request failed",
			zap.Error(err),
			zap.String("requestID", requestID),
			zap.String("path", c.FullPath()),
		)
	} else {
		zap.L().Debug("Request rejected",
			zap.Int("status", status),
			zap.String("reason", err.Error()),
			zap.String("requestID", requestID),
		)
	}

	c.AbortWithStatusJSON(status, gin.H{
		"error":     apperr.Message(err),
		"requestID": requestID,
	})
}

// BadBody is written when the request body can't be bound
func BadBody(c *gin.Context, err error) {
	requestID := c.GetString("requestID")

	zap.L().Debug("Can't bind request body", zap.Error(err), zap.String("requestID", requestID))

	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":     "Invalid request body",
		"requestID": requestID,
	})
}
