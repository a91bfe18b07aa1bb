package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
)

// RegisterRoutes registers school-related routes.
func RegisterRoutes(g *gin.RouterGroup, h *SchoolHandler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/schools")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("/:id", auth.RequirePermission(auth.PermSchoolRead), h.Get) // Get school details
	}

	// === Administration Routes (System Admin Only) ===
	adminGroup := group.Group("")
	adminGroup.Use(auth.RequirePermission(auth.PermSchoolManage))
	{
		adminGroup.GET("", h.List)         // List schools
		adminGroup.POST("", h.Create)      // Create school
		adminGroup.PATCH("/:id", h.Update) // Rename, move time zone or deactivate
	}
}
