package auth

import "github.com/gin-gonic/gin"

const (
	ctxUserID   = "userID"
	ctxEmail    = "userEmail"
	ctxSchoolID = "schoolID"
	ctxRole     = "role"
)

func getString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetUserID returns the authenticated user's ID or empty string.
func GetUserID(c *gin.Context) string {
	return getString(c, ctxUserID)
}

// GetUserEmail returns the authenticated user's email or empty string.
func GetUserEmail(c *gin.Context) string {
	return getString(c, ctxEmail)
}

// GetSchoolID returns the school the authenticated user acts for.
// It is empty for system administrators.
func GetSchoolID(c *gin.Context) string {
	return getString(c, ctxSchoolID)
}

// GetRole returns the authenticated user's role.
func GetRole(c *gin.Context) Role {
	if v, ok := c.Get(ctxRole); ok {
		if r, ok := v.(Role); ok {
			return r
		}
	}
	return ""
}

// SetIdentity stores the identity of the caller in the Gin context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ctxUserID, id.UserID)
	c.Set(ctxEmail, id.Email)
	c.Set(ctxSchoolID, id.SchoolID)
	c.Set(ctxRole, id.Role)
}
