package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gearguard-backend/internal/service"
)

// ListTeams returns every team, newest first.
func (h *Handler) ListTeams(c *gin.Context) {
	teams, err := h.svc.ListTeams(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, teams)
}

func (h *Handler) GetTeam(c *gin.Context) {
	team, err := h.svc.GetTeam(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *Handler) CreateTeam(c *gin.Context) {
	var in service.TeamInput
	if !bindJSON(c, &in) {
		return
	}
	team, err := h.svc.CreateTeam(c.Request.Context(), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *Handler) UpdateTeam(c *gin.Context) {
	var in service.TeamUpdate
	if !bindJSON(c, &in) {
		return
	}
	team, err := h.svc.UpdateTeam(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// DeleteTeam refuses with 409 while equipment still references the team.
func (h *Handler) DeleteTeam(c *gin.Context) {
	if err := h.svc.DeleteTeam(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Team deleted"})
}

func (h *Handler) AddTeamMember(c *gin.Context) {
	var in service.MemberInput
	if !bindJSON(c, &in) {
		return
	}
	team, err := h.svc.AddMember(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

func (h *Handler) RemoveTeamMember(c *gin.Context) {
	team, err := h.svc.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("member"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}
