package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/neurobridge-editor/internal/platform/logger"
	"github.com/yungbote/neurobridge-editor/internal/sse"
)

type RealtimeHandler struct {
	log      *logger.Logger
	hub      *sse.Hub
	courseID string
}

func NewRealtimeHandler(log *logger.Logger, hub *sse.Hub, courseID string) *RealtimeHandler {
	return &RealtimeHandler{
		log:      log.With("handler", "RealtimeHandler"),
		hub:      hub,
		courseID: courseID,
	}
}

// GET /api/events streams course changes and notifications until the client leaves.
func (h *RealtimeHandler) Stream(c *gin.Context) {
	client := h.hub.NewClient()
	h.hub.AddChannel(client, h.courseID)
	h.log.Info("SSE stream open", "client_id", client.ID.String())

	h.hub.ServeHTTP(c.Writer, c.Request, client)

	h.hub.CloseClient(client)
	h.log.Info("SSE stream closed", "client_id", client.ID.String())
}
