package api

import (
	"net/http"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// InjuryHandler serves injury reads and writes for every role. Role checks
// happen in the session, so the same routes serve athletes and staff.
type InjuryHandler struct{}

func NewInjuryHandler() *InjuryHandler {
	return &InjuryHandler{}
}

type ReportInjuryRequest struct {
	AthleteID   string              `json:"athleteId"`
	BodyPart    domain.BodyPart     `json:"bodyPart" binding:"required"`
	Severity    int                 `json:"severity" binding:"required,min=1,max=10"`
	PainType    string              `json:"painType"`
	Description string              `json:"description"`
	Status      domain.InjuryStatus `json:"status"`
}

type UpdateInjuryRequest struct {
	Severity *int                 `json:"severity" binding:"omitempty,min=0,max=10"`
	Status   *domain.InjuryStatus `json:"status"`
}

type AddActivityRequest struct {
	Type     domain.ActivityType `json:"type" binding:"required"`
	Content  string              `json:"content" binding:"required"`
	Progress domain.Progress     `json:"progress"`
}

// InjuryFormOptions lists the values the report and update forms offer.
type InjuryFormOptions struct {
	BodyParts     []domain.BodyPart     `json:"bodyParts"`
	PainTypes     []string              `json:"painTypes"`
	Statuses      []domain.InjuryStatus `json:"statuses"`
	ActivityTypes []domain.ActivityType `json:"activityTypes"`
	Progress      []domain.Progress     `json:"progress"`
}

// FormOptions godoc
// @Summary Body parts, pain types and other choices for injury forms
// @Tags Injuries
// @Produce json
// @Security BearerAuth
// @Success 200 {object} InjuryFormOptions
// @Router /injuries/options [get]
func (h *InjuryHandler) FormOptions(c *gin.Context) {
	c.JSON(http.StatusOK, InjuryFormOptions{
		BodyParts:     domain.BodyParts,
		PainTypes:     domain.PainTypes,
		Statuses:      []domain.InjuryStatus{domain.InjuryActive, domain.InjuryRecovering, domain.InjuryResolved},
		ActivityTypes: []domain.ActivityType{domain.ActivityNote, domain.ActivityTreatment, domain.ActivityStatusUpdate},
		Progress:      []domain.Progress{domain.ProgressBetter, domain.ProgressSame, domain.ProgressWorse},
	})
}

// ListInjuries godoc
// @Summary List the injuries visible to the caller, newest first
// @Tags Injuries
// @Produce json
// @Security BearerAuth
// @Success 200 {array} domain.InjuryRecord
// @Router /injuries [get]
func (h *InjuryHandler) ListInjuries(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Injuries())
}

func (h *InjuryHandler) PendingInjuries(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.PendingInjuries())
}

func (h *InjuryHandler) GetInjury(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	inj, err := sess.Injury(c.Param("injuryId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, inj)
}

// ReportInjury godoc
// @Summary Report a new injury
// @Description Athletes report for themselves; trainers pass athleteId.
// @Tags Injuries
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param injury body ReportInjuryRequest true "Injury details"
// @Success 201 {object} domain.InjuryRecord
// @Failure 502 {object} gin.H "Not saved"
// @Router /injuries [post]
func (h *InjuryHandler) ReportInjury(c *gin.Context) {
	var req ReportInjuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	inj, err := sess.ReportInjury(c.Request.Context(), service.InjuryReport{
		AthleteID:   req.AthleteID,
		BodyPart:    req.BodyPart,
		Severity:    req.Severity,
		PainType:    req.PainType,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, domain.RedactInjuryForRole(inj, sess.Actor().Role))
}

func (h *InjuryHandler) UpdateInjury(c *gin.Context) {
	var req UpdateInjuryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	inj, err := sess.UpdateInjury(c.Request.Context(), c.Param("injuryId"), service.InjuryUpdate{
		Severity: req.Severity,
		Status:   req.Status,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, domain.RedactInjuryForRole(inj, sess.Actor().Role))
}

func (h *InjuryHandler) AddActivity(c *gin.Context) {
	var req AddActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	inj, err := sess.AddActivity(c.Request.Context(), c.Param("injuryId"), service.ActivityInput{
		Type:     req.Type,
		Content:  req.Content,
		Progress: req.Progress,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, domain.RedactInjuryForRole(inj, sess.Actor().Role))
}
