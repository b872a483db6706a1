package api

import (
	"net/http"
	"time"

	"athletix/tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// AthleteHandler serves the athlete-only dashboard and training log.
type AthleteHandler struct{}

func NewAthleteHandler() *AthleteHandler {
	return &AthleteHandler{}
}

type LogTrainingRequest struct {
	Date            *time.Time `json:"date"`
	DurationMinutes int        `json:"durationMinutes" binding:"required,min=1"`
	RPE             int        `json:"rpe" binding:"required,min=1,max=10"`
	StressLevel     int        `json:"stressLevel" binding:"required,min=1,max=10"`
	Notes           string     `json:"notes"`
}

func (h *AthleteHandler) Dashboard(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	d, err := sess.AthleteDashboard()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *AthleteHandler) ListTraining(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.Training())
}

// LogTraining godoc
// @Summary Log a training session
// @Tags Training
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param session body LogTrainingRequest true "Training details"
// @Success 201 {object} domain.TrainingRecord
// @Router /training [post]
func (h *AthleteHandler) LogTraining(c *gin.Context) {
	var req LogTrainingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	in := service.TrainingInput{
		DurationMinutes: req.DurationMinutes,
		RPE:             req.RPE,
		StressLevel:     req.StressLevel,
		Notes:           req.Notes,
	}
	if req.Date != nil {
		in.Date = *req.Date
	}
	rec, err := sess.LogTraining(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}
