package handlers

import (
	"context"
	"io"
	"net/http"
	"time"

	"core/notify"

	"github.com/gin-gonic/gin"
)

const defaultKeepAlive = 15 * time.Second

// EventSource hands out live event subscriptions.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan notify.Event, error)
}

type StreamHandler struct {
	events    EventSource
	keepAlive time.Duration
}

func NewStreamHandler(events EventSource, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	return &StreamHandler{
		events:    events,
		keepAlive: keepAlive,
	}
}

// Stream pushes judging events as Server-Sent Events
// @Summary Live event stream
// @Description Server-Sent Events: score.updated, round.closed and round.created. Comment lines keep idle connections open.
// @Tags stream
// @Produce text/event-stream
// @Success 200 {object} notify.Event
// @Router /stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	events, err := h.events.Subscribe(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(event.Type), event)
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})
}
