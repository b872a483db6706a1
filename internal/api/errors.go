package api

import (
	"errors"
	"net/http"

	"athletix/tracker/internal/repository"
	"athletix/tracker/internal/service"
	"athletix/tracker/internal/status"
	"athletix/tracker/internal/storage"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type errorMapping struct {
	err  error
	code int
}

// errorStatus maps service errors to HTTP status codes. Order matters: the
// first match wins.
var errorStatus = []errorMapping{
	{service.ErrPersistFailed, http.StatusBadGateway},
	{service.ErrNoStaffAssigned, http.StatusConflict},
	{service.ErrProfileNotFound, http.StatusUnauthorized},
	{service.ErrApprovalPending, http.StatusForbidden},
	{service.ErrAuthenticationFailed, http.StatusUnauthorized},
	{service.ErrUserAlreadyExists, http.StatusConflict},
	{service.ErrInjuryNotFound, http.StatusNotFound},
	{service.ErrTeamNotFound, http.StatusNotFound},
	{service.ErrNotConfirmed, http.StatusConflict},
	{service.ErrAccessDenied, http.StatusForbidden},
	{service.ErrNotTeamCoach, http.StatusForbidden},
	{service.ErrNotAthlete, http.StatusBadRequest},
	{service.ErrInvalidJoinCode, http.StatusNotFound},
	{service.ErrJoinCodeExpired, http.StatusGone},
	{service.ErrJoinCodeExhausted, http.StatusGone},
	{service.ErrAlreadyApproved, http.StatusConflict},
	{service.ErrInvalidObjectKey, http.StatusBadRequest},
	{service.ErrInvalidInput, http.StatusBadRequest},
	{storage.ErrUnsupportedContentType, http.StatusBadRequest},
	{status.ErrForbidden, http.StatusForbidden},
	{status.ErrStatusWriteForbidden, http.StatusForbidden},
	{status.ErrTreatmentForbidden, http.StatusForbidden},
	{status.ErrActivityForbidden, http.StatusForbidden},
	{status.ErrInvalidStatus, http.StatusBadRequest},
	{repository.ErrNotFound, http.StatusNotFound},
}

func statusFor(err error) int {
	for _, m := range errorStatus {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return http.StatusInternalServerError
}

// respondError aborts the request with the status mapped from err. Unmapped
// errors are logged and reported without detail.
func respondError(c *gin.Context, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.WithField("path", c.FullPath()).Errorf("request failed: %s", err)
		abortWithError(c, code, "An unexpected error occurred")
		return
	}
	if code == http.StatusBadGateway {
		log.WithField("path", c.FullPath()).Warnf("write not saved: %s", err)
	}
	abortWithError(c, code, err.Error())
}
