package api

import (
	"net/http"
	"time"

	"athletix/tracker/internal/service"

	"github.com/gin-gonic/gin"
)

type TeamHandler struct {
	teamService service.TeamService
}

func NewTeamHandler(teamService service.TeamService) *TeamHandler {
	return &TeamHandler{teamService: teamService}
}

type CreateTeamRequest struct {
	Name             string `json:"name" binding:"required"`
	Sport            string `json:"sport"`
	RequiresApproval bool   `json:"requiresApproval"`
}

type RotateCodeRequest struct {
	ExpiresAt *time.Time `json:"expiresAt"`
	MaxUses   *int       `json:"maxUses" binding:"omitempty,min=1"`
}

type JoinTeamRequest struct {
	Code string `json:"code" binding:"required"`
}

func (h *TeamHandler) ListTeams(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Teams())
}

// CreateTeam godoc
// @Summary Create a team with a fresh join code
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param team body CreateTeamRequest true "Team details"
// @Success 201 {object} domain.Team
// @Router /teams [post]
func (h *TeamHandler) CreateTeam(c *gin.Context) {
	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	team, err := h.teamService.CreateTeam(c.Request.Context(), sess.Actor(), service.TeamInput{
		Name:             req.Name,
		Sport:            req.Sport,
		RequiresApproval: req.RequiresApproval,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, team)
}

func (h *TeamHandler) RotateCode(c *gin.Context) {
	var req RotateCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	team, err := h.teamService.RotateJoinCode(c.Request.Context(), sess.Actor(), c.Param("teamId"), service.JoinCodeLimits{
		ExpiresAt: req.ExpiresAt,
		MaxUses:   req.MaxUses,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, team)
}

// JoinTeam godoc
// @Summary Join a team by join code
// @Tags Teams
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param code body JoinTeamRequest true "Join code"
// @Success 200 {object} domain.Profile
// @Failure 404 {object} gin.H "Unknown code"
// @Failure 410 {object} gin.H "Code expired or used up"
// @Router /teams/join [post]
func (h *TeamHandler) JoinTeam(c *gin.Context) {
	var req JoinTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	p, err := h.teamService.JoinTeam(c.Request.Context(), sess.Actor(), req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *TeamHandler) PendingApprovals(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	list, err := h.teamService.ListPendingApprovals(c.Request.Context(), sess.Actor())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *TeamHandler) Approve(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	p, err := h.teamService.ApproveAthlete(c.Request.Context(), sess.Actor(), c.Param("athleteId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *TeamHandler) Decline(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	p, err := h.teamService.DeclineAthlete(c.Request.Context(), sess.Actor(), c.Param("athleteId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
