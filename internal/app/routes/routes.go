package routes

import (
	"net/http"

	"github.com/Gangireddy387/OnlineNotebook/internal/app/controllers"
	"github.com/Gangireddy387/OnlineNotebook/internal/app/models/dto"
	"github.com/Gangireddy387/OnlineNotebook/internal/middleware"
	"github.com/gin-gonic/gin"
)

// RealtimeStats is the hub view exposed by the health endpoint
type RealtimeStats interface {
	NodeID() string
	ConnectionCount() int
}

// SetupRouter configures all application routes
func SetupRouter(
	router *gin.Engine,
	chatController *controllers.ChatController,
	authMiddleware *middleware.AuthMiddleware,
	websocketHandler gin.HandlerFunc,
	stats RealtimeStats,
) {
	// Realtime endpoint authenticates the handshake itself
	router.GET("/ws", websocketHandler)

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	// API version group
	v1 := router.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, dto.NewSuccessResponse(gin.H{
			"status":      "ok",
			"node":        stats.NodeID(),
			"connections": stats.ConnectionCount(),
		}))
	})

	// --- Authenticated chat routes ---
	chat := v1.Group("/chat")
	chat.Use(authMiddleware.JWTAuth())
	{
		chat.GET("", chatController.ListChats)
		chat.GET("/users/search", chatController.SearchUsers)
		chat.GET("/:chatId/messages", chatController.GetMessages)
		chat.GET("/:chatId/participants", chatController.GetParticipants)

		// Chat requests
		chat.POST("/request", chatController.SendRequest)
		chat.GET("/requests/all", chatController.ListRequests)
		chat.PUT("/request/:requestId/respond", chatController.RespondToRequest)

		// Moderation
		admin := chat.Group("/admin")
		admin.Use(authMiddleware.AdminRequired())
		{
			admin.GET("/all", chatController.ListAllChats)
			admin.GET("/:chatId/messages", chatController.GetChatMessagesAsAdmin)
		}
	}
}
