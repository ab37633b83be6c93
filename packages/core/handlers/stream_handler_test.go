package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"core/notify"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamPushesEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	broker := notify.NewBroker(nil)
	t.Cleanup(func() { _ = broker.Close() })

	r := gin.New()
	r.GET("/stream", NewStreamHandler(broker, 20*time.Millisecond).Stream)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := bufio.NewScanner(resp.Body)
	// The first keep-alive proves the handler has subscribed.
	for lines.Scan() {
		if lines.Text() == ": keep-alive" {
			break
		}
	}
	require.NoError(t, lines.Err())

	sent := notify.NewEvent(notify.EventScoreUpdated, 1, 3, map[uint]int{2: 6})
	require.NoError(t, broker.Publish(context.Background(), sent))

	var eventName, data string
	for lines.Scan() {
		line := lines.Text()
		if name, ok := strings.CutPrefix(line, "event:"); ok {
			eventName = name
		}
		if payload, ok := strings.CutPrefix(line, "data:"); ok {
			data = payload
			break
		}
	}
	require.NoError(t, lines.Err())
	assert.Equal(t, "score.updated", eventName)

	var got notify.Event
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, sent.ID, got.ID)
	assert.Equal(t, uint(3), got.TeamID)
}
