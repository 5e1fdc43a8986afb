package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chalkcast/appserver/internal/middleware"
	"github.com/chalkcast/appserver/internal/services"
)

type TokenHandler struct {
	tokens services.TokenService
}

func NewTokenHandler(tokens services.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// POST /app/token
// Spends one renewal of the presented token and returns a fresh one.
func (th *TokenHandler) Renew(c *gin.Context) {
	token, err := th.tokens.Renew(middleware.Claims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

// GET /app/notepadtoken
// Derives the per-screen instructor notepad token.
func (th *TokenHandler) NotepadToken(c *gin.Context) {
	token, claims, err := th.tokens.DeriveNotepad(middleware.Claims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":          token,
		"notepadhandler": claims.NotepadHandler,
		"notescreenuuid": claims.ScreenUUID,
	})
}

// GET /app/notestoken
// Derives the per-screen audience notes token.
func (th *TokenHandler) NotesToken(c *gin.Context) {
	token, claims, err := th.tokens.DeriveNotes(middleware.Claims(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":          token,
		"noteshandler":   claims.NotesHandler,
		"notescreenuuid": claims.ScreenUUID,
	})
}
