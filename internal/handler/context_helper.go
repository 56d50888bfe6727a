package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/presenca-digital/presenca-api/internal/middleware"
	"github.com/presenca-digital/presenca-api/internal/service"
)

// currentUserID extracts the authenticated staff id from the request context.
// Returns empty when the route was reached without authentication.
func currentUserID(c *gin.Context) string {
	v, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return ""
	}
	claims, ok := v.(*service.Claims)
	if !ok {
		return ""
	}
	return claims.Subject
}
