package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalkcast/appserver/internal/services"
)

type CloudHandler struct {
	presence services.PresenceService
}

func NewCloudHandler(presence services.PresenceService) *CloudHandler {
	return &CloudHandler{presence: presence}
}

// GET /cloudstatus (administrator)
func (ch *CloudHandler) CloudStatus(c *gin.Context) {
	snap, err := ch.presence.CloudStatus(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
