package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gearguard-backend/internal/model"
	"gearguard-backend/internal/service"
	"gearguard-backend/internal/store"
)

// ListEquipment supports ?search= over name, serial number and assignee,
// and an exact ?department=. ?expand=team resolves the maintenance team.
func (h *Handler) ListEquipment(c *gin.Context) {
	x, err := service.ParseExpansion(c.Query("expand"), service.ExpandTeam)
	if err != nil {
		h.respondError(c, err)
		return
	}
	filter := store.EquipmentFilter{
		Search:     c.Query("search"),
		Department: c.Query("department"),
	}
	ctx := c.Request.Context()
	items, err := h.svc.ListEquipment(ctx, filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !x.Team {
		c.JSON(http.StatusOK, items)
		return
	}
	views, err := h.svc.ExpandEquipment(ctx, items, x)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *Handler) GetEquipment(c *gin.Context) {
	x, err := service.ParseExpansion(c.Query("expand"), service.ExpandTeam)
	if err != nil {
		h.respondError(c, err)
		return
	}
	ctx := c.Request.Context()
	item, err := h.svc.GetEquipment(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if !x.Team {
		c.JSON(http.StatusOK, item)
		return
	}
	views, err := h.svc.ExpandEquipment(ctx, []model.Equipment{*item}, x)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, views[0])
}

func (h *Handler) CreateEquipment(c *gin.Context) {
	var in service.EquipmentInput
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.svc.CreateEquipment(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, item)
}

func (h *Handler) UpdateEquipment(c *gin.Context) {
	var in service.EquipmentUpdate
	if !bindJSON(c, &in) {
		return
	}
	item, err := h.svc.UpdateEquipment(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteEquipment refuses with 409 while open requests reference the item.
func (h *Handler) DeleteEquipment(c *gin.Context) {
	if err := h.svc.DeleteEquipment(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Equipment deleted"})
}
