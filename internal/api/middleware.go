package api

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/nekogravitycat/driving-school-backend/internal/auth"
)

// RequestLogger writes one structured access log entry per request through logrus.
// It replaces gin.Logger in production so access logs share the JSON format of the services.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := log.WithFields(log.Fields{
			"method":    c.Request.Method,
			"path":      c.FullPath(),
			"status":    c.Writer.Status(),
			"latency":   time.Since(start).String(),
			"client_ip": c.ClientIP(),
		})
		if schoolID := auth.GetSchoolID(c); schoolID != "" {
			entry = entry.WithField("school_id", schoolID)
		}
		if userID := auth.GetUserID(c); userID != "" {
			entry = entry.WithField("user_id", userID)
		}

		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.Error("request failed")
		case status >= 400:
			entry.Warn("request rejected")
		default:
			entry.Info("request served")
		}
	}
}
