package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"gearguard-backend/internal/apperr"
	"gearguard-backend/internal/auth"
	"gearguard-backend/internal/model"
	"gearguard-backend/internal/mw"
	"gearguard-backend/internal/service"
	"gearguard-backend/internal/store"
)

// ListRequests filters by ?equipment=, ?team= and ?status=.
// ?expand=team,equipment replaces those ids with the records.
func (h *Handler) ListRequests(c *gin.Context) {
	x, err := service.ParseExpansion(c.Query("expand"), service.ExpandTeam, service.ExpandEquipment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	filter := store.RequestFilter{
		Equipment: c.Query("equipment"),
		Team:      c.Query("team"),
		Status:    model.RequestStatus(c.Query("status")),
	}
	ctx := c.Request.Context()
	items, err := h.svc.ListRequests(ctx, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if x == (service.Expansion{}) {
		c.JSON(http.StatusOK, items)
		return
	}
	views, err := h.svc.ExpandRequests(ctx, items, x)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetRequest(c *gin.Context) {
	x, err := service.ParseExpansion(c.Query("expand"), service.ExpandTeam, service.ExpandEquipment)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	r, err := h.svc.GetRequest(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if x == (service.Expansion{}) {
		c.JSON(http.StatusOK, r)
		return
	}
	views, err := h.svc.ExpandRequests(ctx, []model.Request{*r}, x)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views[0])
}

// CreateRequest stores a request; its team always comes from the equipment.
func (h *Handler) CreateRequest(c *gin.Context) {
	var in service.RequestInput
	if !bindJSON(c, &in) {
		return
	}
	r, err := h.svc.CreateRequest(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// UpdateRequest applies a partial update. Team logins may not take over a
// request already assigned to someone else. A failed scrap cascade answers
// 207 with the updated request and the equipment error.
func (h *Handler) UpdateRequest(c *gin.Context) {
	var in service.RequestUpdate
	if !bindJSON(c, &in) {
		return
	}
	ctx := c.Request.Context()
	id := c.Param("id")

	if ident, ok := mw.IdentityFrom(c); ok && in.AssignedTo != nil {
		current, err := h.svc.GetRequest(ctx, id)
		if err != nil {
			h.respondError(c, err)
			return
		}
		if !auth.CanReassign(ident, *current, *in.AssignedTo) {
			c.JSON(http.StatusForbidden, gin.H{"error": "request is already assigned to " + current.AssignedTo})
			return
		}
	}

	r, err := h.svc.UpdateRequest(ctx, id, in)
	var cascade *apperr.CascadeError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, r)
	case errors.As(err, &cascade):
		c.JSON(http.StatusMultiStatus, gin.H{"request": r, "error": cascade.Error()})
	default:
		h.respondError(c, err)
	}
}

func (h *Handler) DeleteRequest(c *gin.Context) {
	if err := h.svc.DeleteRequest(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Request deleted"})
}
