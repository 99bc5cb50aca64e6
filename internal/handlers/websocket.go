package handlers

import (
	"github.com/Abdayemco/xzity-dispatch-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// WebSocketHandler upgrades the connection and hands it to the hub. Auth
// already ran, so the identity in the context is trusted.
func WebSocketHandler(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("role")

		services.HandleWebSocket(hub, c.Writer, c.Request, userID, role)
	}
}

// HealthCheck reports liveness and the current socket population.
func HealthCheck(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":           "ok",
			"connectedClients": hub.GetConnectedClients(),
		})
	}
}
