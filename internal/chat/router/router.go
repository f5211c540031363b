package router

import (
	"context"

	"reelconnect_service/internal/chat/app"
	"reelconnect_service/pkg/metrics"
	"reelconnect_service/pkg/middlewares"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// RegisterRoutes 注册聊天相關的路由
func RegisterRoutes(r *fiber.App, chatWebsocket *app.ChatWebsocketHandler, chatHTTP *app.ChatHTTPHandler) {
	r.Get("/chat/health", app.ConnectCheck)
	r.Post("/chat/debug", app.DebugLogFlag)
	r.Post("/chat/dev/token", app.DevToken)
	r.Get("/metrics", metrics.Handler())

	chat := r.Group("/chat", middlewares.JWTMiddleware())
	chat.Get("/rooms/:room_type/:room_id/messages", chatHTTP.History)
	chat.Get("/projects/:project_id/participants", chatHTTP.Participants)
	chat.Get("/inbox", chatHTTP.Inbox)

	r.Use("/ws", middlewares.JWTMiddleware(), func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	r.Get("/ws", websocket.New(func(c *websocket.Conn) {
		chatWebsocket.HandleConnection(context.Background(), c)
	}))
}
