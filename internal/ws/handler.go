package ws

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"movix/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Auth happens at the gateway; origin enforcement belongs there too.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades HTTP connections into hub clients.
type Handler struct {
	hub *Hub
}

// NewHandler creates a websocket handler bound to the hub.
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Serve handles GET /v1/ws. An optional ?topic= query subscribes the
// client immediately, before the first control message.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}

	client := newClient(h.hub, conn)
	if topic := c.Query("topic"); topic != "" {
		h.hub.Subscribe(client, topic)
	}
	observability.WebsocketClients.Inc()

	go client.writePump()
	go client.readPump()
}
