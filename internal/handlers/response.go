package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/chalkcast/appserver/internal/platform/apierr"
)

// respondError maps a service error onto the wire. Plumbing errors carry
// no reason text, so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	apiErr := apierr.From(err)
	message := apiErr.Reason
	if message == "" {
		message = "internal error"
	}
	c.JSON(apiErr.Status, gin.H{
		"error": gin.H{"code": apiErr.Code, "message": message},
	})
}
