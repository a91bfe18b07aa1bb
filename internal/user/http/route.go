package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
)

// RegisterRoutes registers all user-related routes (including Auth).
func RegisterRoutes(g *gin.RouterGroup, h *UserHandler, authMiddleware gin.HandlerFunc) {
	// Public Routes
	authGroup := g.Group("/auth")
	{
		authGroup.POST("/login", h.Login)
	}

	// Authenticated Routes
	g.GET("/me", authMiddleware, h.Me)

	// Account Management (system admins and school admins)
	usersGroup := g.Group("/users")
	usersGroup.Use(authMiddleware, auth.RequirePermission(auth.PermUserManage))
	{
		usersGroup.GET("", h.List)
		usersGroup.POST("", h.Register)
		usersGroup.GET("/:id", h.Get)
		usersGroup.PATCH("/:id", h.Update)
	}
}
