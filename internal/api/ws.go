package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboard origins are enforced upstream by the gateway.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamEmergencies upgrades to a websocket and forwards emergency change
// events to the client until either side goes away. This replaces
// store-level push subscriptions: dashboards see new and updated
// emergencies without polling.
func (h *Handler) StreamEmergencies(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("WebSocket upgrade failed: %v", err)
		return
	}

	events, cancel := h.hub.Subscribe()
	h.logger.Infof("WebSocket subscriber connected: %s", c.Request.RemoteAddr)

	// Reader drains control frames and detects the client closing.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		cancel()
		_ = conn.Close()
		h.logger.Infof("WebSocket subscriber disconnected: %s", c.Request.RemoteAddr)
	}()

	for {
		select {
		case <-done:
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				h.logger.Warnf("WebSocket write failed: %v", err)
				return
			}
		}
	}
}
