package system

import (
	"go-crm-sync/internal/common/api"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

type WebSocketApi struct {
	Hub *Hub
}

func NewWebSocketApi(hub *Hub) api.Route {
	return &WebSocketApi{
		Hub: hub,
	}
}

func (h *WebSocketApi) Setup(app *fiber.App) {
	app.Get("/api/ws", websocket.New(h.Hub.HandleFeed))
}
