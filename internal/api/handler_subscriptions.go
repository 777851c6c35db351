package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/model"
)

type putSubscriptionRequest struct {
	Endpoint string   `json:"endpoint" binding:"required"`
	P256DH   string   `json:"p256dh" binding:"required"`
	Auth     string   `json:"auth" binding:"required"`
	Teams    []string `json:"teams" binding:"omitempty,dive,notblank"`
}

func (h *Handler) pushEnabled(c *gin.Context) bool {
	if h.subs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "push notifications are not enabled"})
		return false
	}
	return true
}

// PutSubscription creates or replaces a subscription and the teams it follows.
func (h *Handler) PutSubscription(c *gin.Context) {
	var req putSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.pushEnabled(c) {
		return
	}

	ctx := c.Request.Context()
	teams := model.StringList{}
	for _, id := range req.Teams {
		if teams.Contains(id) {
			continue
		}
		if _, err := h.svc.GetTeam(ctx, id); err != nil {
			var nf *apperr.NotFoundError
			if errors.As(err, &nf) {
				err = apperr.Invalid("teams", "unknown team "+id)
			}
			h.respondError(c, err)
			return
		}
		teams = append(teams, id)
	}

	sub := &model.PushSubscription{
		Endpoint: req.Endpoint,
		P256DH:   req.P256DH,
		Auth:     req.Auth,
		Teams:    teams,
	}
	if err := h.subs.Put(ctx, sub); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusCreated)
}

type deleteSubscriptionRequest struct {
	Endpoint string `json:"endpoint" binding:"required"`
}

// DeleteSubscription handles the deletion of a subscription.
func (h *Handler) DeleteSubscription(c *gin.Context) {
	var req deleteSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if !h.pushEnabled(c) {
		return
	}
	if err := h.subs.Delete(c.Request.Context(), req.Endpoint); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// rawQueryParam returns the undecoded value of key. Push endpoints carry
// their own escaping and are stored verbatim.
func rawQueryParam(rawQuery, key string) (string, bool) {
	for _, kv := range strings.Split(rawQuery, "&") {
		if strings.HasPrefix(kv, key+"=") {
			return kv[len(key)+1:], true
		}
	}
	return "", false
}

// GetSubscription returns the teams a subscription follows.
func (h *Handler) GetSubscription(c *gin.Context) {
	raw, ok := rawQueryParam(c.Request.URL.RawQuery, "endpoint")
	if !ok || raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endpoint is required"})
		return
	}
	if !h.pushEnabled(c) {
		return
	}

	sub, err := h.subs.Get(c.Request.Context(), raw)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"teams": sub.Teams})
}
