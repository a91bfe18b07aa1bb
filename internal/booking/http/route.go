package http

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// === Authenticated Routes (school accounts only) ===
	group.Use(authMiddleware, auth.RequireSchool())
	{
		read := auth.RequirePermission(auth.PermBookingRead)
		write := auth.RequirePermission(auth.PermBookingWrite)

		group.GET("", read, h.List)
		group.GET("/busy", read, h.Busy)
		group.GET("/:id", read, h.Get)
		group.GET("/:id/history", read, h.History)

		group.POST("/check", read, h.Check)
		group.POST("/suggestions", read, h.Suggest)
		group.POST("", write, h.Create)
		group.POST("/:id/reschedule", write, h.Reschedule)
		group.POST("/:id/cancel", auth.RequirePermission(auth.PermBookingCancel), h.Cancel)
	}
}
