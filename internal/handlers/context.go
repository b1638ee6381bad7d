package handlers

import (
	"github.com/gin-gonic/gin"

	"telemed-server/internal/consultation"
	"telemed-server/internal/middleware"
)

func actorFromContext(c *gin.Context) (consultation.Actor, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok || id.Role == "" {
		return consultation.Actor{}, false
	}
	return consultation.Actor{ID: id.UserID, Role: id.Role}, true
}
