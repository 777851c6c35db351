package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gearguard-backend/internal/auth"
	"gearguard-backend/internal/mw"
)

type loginRequest struct {
	Username string `json:"username" binding:"required,notblank"`
	Password string `json:"password" binding:"required"`
}

// Login exchanges credentials for a bearer token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	session, err := h.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": session.User, "token": session.Token, "expiresAt": session.ExpiresAt})
}

// Me returns the identity behind the bearer token.
func (h *Handler) Me(c *gin.Context) {
	ident, err := h.auth.CurrentIdentity(c.Request.Context(), mw.BearerToken(c))
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			c.JSON(http.StatusUnauthorized, gin.H{"user": nil})
			return
		}
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": auth.PublicUser(*ident)})
}

// Logout revokes the bearer token. It always succeeds.
func (h *Handler) Logout(c *gin.Context) {
	if token := mw.BearerToken(c); token != "" {
		h.auth.Logout(token)
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
