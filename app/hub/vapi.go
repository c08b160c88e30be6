package hub

import (
	"net/http"

	"bitwise74/filehub-api/internal"
	"bitwise74/filehub-api/internal/apperr"
	"bitwise74/filehub-api/internal/service"
	"bitwise74/filehub-api/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type vapiRequest struct {
	Message struct {
		ToolCallList []vapiToolCall `json:"toolCallList"`
	} `json:"message"`
}

type vapiToolCall struct {
	ID       string `json:"id"`
	Function struct {
		Name      string `json:"name"`
		Arguments struct {
			HubID string `json:"hubId"`
		} `json:"arguments"`
	} `json:"function"`
}

type vapiResult struct {
	ToolCallID string `json:"toolCallId"`
	Result     any    `json:"result"`
}

type documentsResult struct {
	Documents []service.Document `json:"documents"`
}

type errorResult struct {
	Error string `json:"error"`
}

// HubVapi answers the voice assistant's tool calls with the text of every
// file in the requested hub. The route is guarded by the vapi secret
func HubVapi(c *gin.Context, d *internal.Deps) {
	requestID := c.GetString("requestID")

	var data vapiRequest
	if err := c.ShouldBindJSON(&data); err != nil {
		response.BadBody(c, err)
		return
	}

	if len(data.Message.ToolCallList) == 0 {
		response.Error(c, apperr.BadRequest("No tool calls provided"))
		return
	}

	results := make([]vapiResult, 0, len(data.Message.ToolCallList))

	for _, call := range data.Message.ToolCallList {
		hubID := call.Function.Arguments.HubID
		if hubID == "" {
			results = append(results, vapiResult{ToolCallID: call.ID, Result: errorResult{Error: "No hubId provided"}})
			continue
		}

		docs, err := d.Hubs.Documents(c.Request.Context(), hubID)
		if err != nil {
			if apperr.Status(err) == http.StatusInternalServerError {
				response.Error(c, err)
				return
			}

			results = append(results, vapiResult{ToolCallID: call.ID, Result: errorResult{Error: apperr.Message(err)}})
			continue
		}

		zap.L().Debug("Served hub documents",
			zap.String("hubID", hubID),
			zap.Int("count", len(docs)),
			zap.String("requestID", requestID),
		)

		results = append(results, vapiResult{ToolCallID: call.ID, Result: documentsResult{Documents: docs}})
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
	})
}
