// Package invite contains the invite issuer and resolver endpoints
package invite

import (
	"math"
	"net/http"
	"time"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/service"
	"bitwise74/filehub-api/pkg/middleware"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Longest TTL that still fits a time.Duration
const maxTTLSeconds = math.MaxInt64 / int64(time.Second)

type createBody struct {
	StorageID string   `json:"storageId"`
	Emails    []string `json:"emails"`
	Link      string   `json:"link"`
	FileName  string   `json:"fileName"`
	// TTLSeconds of zero uses the configured default, negative never expires
	TTLSeconds int64 `json:"ttlSeconds"`
}

// InviteCreate persists the grant and then mails every recipient. Delivery
// failures are reported in the response and never undo the grant
func InviteCreate(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString("requestID")
	caller := middleware.Caller(c)

	var data createBody
	if err := c.ShouldBindJSON(&data); err != nil {
		response.BadBody(c, err)
		return
	}

	if data.TTLSeconds > maxTTLSeconds {
		response.Error(c, apperr.BadRequest("Invite TTL is too long"))
		return
	}

	inv, err := d.Invites.Create(c.Request.Context(), caller, service.CreateInvite{
		StorageID: data.StorageID,
		Emails:    data.Emails,
		Link:      data.Link,
		FileName:  data.FileName,
		TTL:       time.Duration(data.TTLSeconds) * time.Second,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	report := d.Mail.SendInvite(c.Request.Context(), inv.Recipients(caller.Email), inv.ID, inv.FileName, caller.Email)
	if len(report.Failed) > 0 {
		zap.L().Warn("Invite created with failed deliveries",
			zap.String("inviteID", inv.ID),
			zap.Int("failed", len(report.Failed)),
			zap.String("requestID", requestID),
		)
	}

	c.JSON(http.StatusCreated, gin.H{
		"invite":   inv,
		"delivery": report,
	})
}
