package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
)

// RegisterRoutes registers resource-related routes.
func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/resources")

	// === Authenticated Routes (school accounts only) ===
	group.Use(authMiddleware, auth.RequireSchool())
	{
		read := auth.RequirePermission(auth.PermResourceRead)
		write := auth.RequirePermission(auth.PermResourceWrite)

		group.GET("", read, h.List)                    // List resources
		group.GET("/:id", read, h.Get)                 // Get resource details
		group.POST("", write, h.Create)                // Create resource
		group.PATCH("/:id", write, h.Update)           // Rename, recategorize or deactivate
		group.PUT("/:id/windows", write, h.SetWindows) // Replace availability windows
	}
}
