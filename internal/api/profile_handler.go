package api

import (
	"net/http"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/service"

	"github.com/gin-gonic/gin"
)

type ProfileHandler struct {
	profileService service.ProfileService
}

func NewProfileHandler(profileService service.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: profileService}
}

type MedicalRequest struct {
	EmergencyContactName  string `json:"emergencyContactName"`
	EmergencyContactPhone string `json:"emergencyContactPhone"`
	Medications           string `json:"medications"`
	Allergies             string `json:"allergies"`
	MedicalAllergies      string `json:"medicalAllergies"`
	InsuranceProvider     string `json:"insuranceProvider"`
	InsurancePolicyNumber string `json:"insurancePolicyNumber"`
}

type AvatarUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type AvatarUpdateRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

// GetMedical returns the medical record of :userId, or the caller's own when
// the path is /profile/medical.
func (h *ProfileHandler) GetMedical(c *gin.Context) {
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}
	actor := sess.Actor()
	userID := c.Param("userId")
	if userID == "" {
		userID = actor.ID
	}

	rec, err := h.profileService.GetMedical(c.Request.Context(), actor, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (h *ProfileHandler) SaveMedical(c *gin.Context) {
	var req MedicalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	rec, err := h.profileService.SaveMedical(c.Request.Context(), sess.Actor(), domain.MedicalRecord{
		EmergencyContactName:  req.EmergencyContactName,
		EmergencyContactPhone: req.EmergencyContactPhone,
		Medications:           req.Medications,
		Allergies:             req.Allergies,
		MedicalAllergies:      req.MedicalAllergies,
		InsuranceProvider:     req.InsuranceProvider,
		InsurancePolicyNumber: req.InsurancePolicyNumber,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// RequestAvatarUpload godoc
// @Summary Get a presigned URL for uploading a new avatar
// @Tags Profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AvatarUploadRequest true "Image content type"
// @Success 200 {object} service.AvatarUpload
// @Router /profile/avatar/upload-url [post]
func (h *ProfileHandler) RequestAvatarUpload(c *gin.Context) {
	var req AvatarUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	up, err := h.profileService.RequestAvatarUpload(c.Request.Context(), sess.Actor(), req.ContentType)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, up)
}

func (h *ProfileHandler) UpdateAvatar(c *gin.Context) {
	var req AvatarUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	p, err := h.profileService.UpdateAvatar(c.Request.Context(), sess.Actor(), req.ObjectKey)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
