package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalkcast/appserver/internal/middleware"
	"github.com/chalkcast/appserver/internal/services"
)

type PairingHandler struct {
	pairing services.PairingService
}

func NewPairingHandler(pairing services.PairingService) *PairingHandler {
	return &PairingHandler{pairing: pairing}
}

// POST /app/pairing
// body: { "id": "..." }
// Hands the caller's session over to the device waiting on the id.
func (ph *PairingHandler) Announce(c *gin.Context) {
	var req struct {
		ID string `json:"id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "malformed_input", "message": "pairing id"}})
		return
	}
	claims := middleware.Claims(c)
	offer := services.PairingOffer{
		User:       claims.User,
		LectureID:  claims.Course.LectureUUID,
		AppVersion: claims.AppVersion,
		Features:   claims.Features,
	}
	if err := ph.pairing.Announce(c.Request.Context(), req.ID, offer); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
