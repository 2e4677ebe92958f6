package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/middleware"
	"github.com/safeanchor/safeanchor/internal/models"
)

// currentUserID returns the authenticated account id placed by the auth
// middleware, or empty when the route is unauthenticated.
func currentUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserIDKey)
}

// currentKind returns the authenticated account kind, or empty.
func currentKind(c *gin.Context) models.UserKind {
	value, ok := c.Get(middleware.CtxKindKey)
	if !ok {
		return ""
	}
	kind, _ := value.(models.UserKind)
	return kind
}
