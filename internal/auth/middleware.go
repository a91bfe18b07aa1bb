package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthRequired validates the bearer token and stores the caller's identity in the context.
func AuthRequired(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, msg := bearerToken(c.GetHeader("Authorization"))
		if msg != "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
			return
		}

		claims, err := jwtManager.ParseAndValidate(tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid or expired token",
			})
			return
		}

		SetIdentity(c, Identity{
			UserID:   claims.UserID,
			Email:    claims.Email,
			SchoolID: claims.SchoolID,
			Role:     claims.Role,
		})

		c.Next()
	}
}

// bearerToken extracts the token from an Authorization header.
// The second value is the client-facing reason when the header is unusable.
func bearerToken(header string) (string, string) {
	if header == "" {
		return "", "missing Authorization header"
	}
	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
		return "", "invalid Authorization header format"
	}
	return token, ""
}
