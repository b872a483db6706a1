package api

import (
	"net/http"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/views"

	"github.com/gin-gonic/gin"
)

// StaffHandler serves the coach and trainer dashboards.
type StaffHandler struct{}

func NewStaffHandler() *StaffHandler {
	return &StaffHandler{}
}

type SetStatusRequest struct {
	Status domain.HealthStatus `json:"status" binding:"required"`
}

// Roster godoc
// @Summary List athletes with their injury summary
// @Tags Staff
// @Produce json
// @Security BearerAuth
// @Param filter query string false "ALL, INJURED_ACTIVE, NOT_CLEARED or RECURRING"
// @Param q query string false "Name or sport search"
// @Success 200 {array} service.RosterEntry
// @Router /staff/athletes [get]
func (h *StaffHandler) Roster(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	roster, err := sess.Roster(views.RosterFilter(c.Query("filter")), c.Query("q"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roster)
}

func (h *StaffHandler) AthleteDetail(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	d, err := sess.AthleteDetail(c.Param("athleteId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *StaffHandler) Overview(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	ov, err := sess.Overview()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ov)
}

func (h *StaffHandler) Trends(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	trends, err := sess.Trends(views.Window(c.Query("window")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, trends)
}

// InjuriesAt lists injuries for one body part, as selected on the heatmap.
func (h *StaffHandler) InjuriesAt(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	list, err := sess.InjuriesAt(domain.BodyPart(c.Query("bodyPart")), views.Window(c.Query("window")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// SetStatus godoc
// @Summary Override an athlete's health status
// @Tags Staff
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param athleteId path string true "Athlete ID"
// @Param status body SetStatusRequest true "New status"
// @Success 200 {object} domain.Profile
// @Router /staff/athletes/{athleteId}/status [put]
func (h *StaffHandler) SetStatus(c *gin.Context) {
	var req SetStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	p, err := sess.SetAthleteStatus(c.Request.Context(), c.Param("athleteId"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
