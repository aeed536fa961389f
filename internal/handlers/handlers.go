// Package handlers binds the relay's HTTP surface: the directory query
// endpoint and the websocket upgrade.
package handlers

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/avelarde/chatline/internal/chat"
)

// Register mounts all routes on the app. publicDir, when non-empty, is
// served at / for page delivery; the relay itself does not depend on it.
func Register(app *fiber.App, hub *chat.Hub, publicDir string) {
	if publicDir != "" {
		app.Static("/", publicDir)
	}
	app.Get("/users", UsersHandler(hub))
	app.Get("/ws", websocket.New(WSHandler(hub)))
}

// UsersHandler GET /users — current snapshot as a JSON array, read once per
// page load before the channel announces.
func UsersHandler(hub *chat.Hub) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(hub.Snapshot())
	}
}

// WSHandler GET /ws — assigns the connection id and runs the pumps until the
// channel dies.
func WSHandler(hub *chat.Hub) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		client := chat.NewClient(uuid.NewString(), conn)
		hub.Register(client)
		go client.WritePump()
		client.ReadPump(hub)
	}
}
