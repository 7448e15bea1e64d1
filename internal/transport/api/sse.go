package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	SSEventSnapshot = "snapshot"
	SSEventOrder    = "order"
	SSEventResync   = "resync"
	SSEventCart     = "cart"
	SSEventPing     = "ping"
)

func prepareSSE(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	// nginx не должен буферизовать поток.
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
}

// sendSSE пишет событие и сразу отправляет его клиенту.
func sendSSE(c *gin.Context, event string, data any) {
	c.SSEvent(event, data)
	c.Writer.Flush()
}
