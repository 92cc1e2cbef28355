package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/rbac"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CapabilityChecker answers whether a user holds a capability
type CapabilityChecker interface {
	HasCapability(ctx context.Context, userID uuid.UUID, codename string) (bool, error)
}

// RequireAdmin ensures the user is an admin.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		isAdmin, err := rbac.IsAdmin(user.(*models.User).ID)
		if err != nil || !isAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}

		c.Next()
	}
}

// RequireCapability ensures the user holds codename, directly or through a group.
// Admins pass without a capability check.
func RequireCapability(checker CapabilityChecker, codename string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := c.Get("user")
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		userID := user.(*models.User).ID

		if isAdmin, err := rbac.IsAdmin(userID); err == nil && isAdmin {
			c.Next()
			return
		}

		ok, err := checker.HasCapability(c.Request.Context(), userID, codename)
		if err != nil {
			slog.Error("Capability check failed", "user_id", userID, "codename", codename, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Permission " + codename + " required"})
			return
		}

		c.Next()
	}
}
