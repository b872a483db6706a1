package api

import (
	"errors"
	"fmt"
	"net/http"

	"athletix/tracker/internal/domain"
	"athletix/tracker/internal/service"

	"github.com/gin-gonic/gin"
)

// AuthHandler holds the authentication service dependency.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type RegisterRequest struct {
	Name     string      `json:"name" binding:"required"`
	Email    string      `json:"email" binding:"required,email"`
	Password string      `json:"password" binding:"required,min=6"`
	Role     domain.Role `json:"role" binding:"required,oneof=ATHLETE COACH TRAINER"`
	Sport    string      `json:"sport"`
	Year     string      `json:"year"`
	DOB      string      `json:"dob"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string         `json:"token"`
	Profile domain.Profile `json:"profile"`
}

type MeResponse struct {
	Profile         domain.Profile `json:"profile"`
	ApprovalPending bool           `json:"approvalPending"`
}

// Register godoc
// @Summary Register a new athlete, coach or trainer
// @Tags Auth
// @Accept json
// @Produce json
// @Param user body RegisterRequest true "Registration details"
// @Success 201 {object} domain.Profile
// @Failure 400 {object} gin.H "Invalid input (validation error)"
// @Failure 409 {object} gin.H "Conflict (email already exists)"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	profile, err := h.authService.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Sport:    req.Sport,
		Year:     req.Year,
		DOB:      req.DOB,
	})
	if err != nil {
		if errors.Is(err, service.ErrHashingFailed) {
			abortWithError(c, http.StatusInternalServerError, "Could not process registration")
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, profile)
}

// Login godoc
// @Summary Log in and receive a JWT
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Login credentials"
// @Success 200 {object} LoginResponse
// @Failure 401 {object} gin.H "Unauthorized (invalid credentials)"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	token, profile, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrTokenGeneration) {
			abortWithError(c, http.StatusInternalServerError, "Could not process login")
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: token, Profile: profile})
}

// Me restores the signed-in user's profile. A 401 tells the client the
// account no longer exists and it must sign out.
func (h *AuthHandler) Me(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return
	}

	profile, err := h.authService.RestoreProfile(c.Request.Context(), userID)
	switch {
	case errors.Is(err, service.ErrApprovalPending):
		c.JSON(http.StatusOK, MeResponse{Profile: profile, ApprovalPending: true})
	case err != nil:
		respondError(c, err)
	default:
		c.JSON(http.StatusOK, MeResponse{Profile: profile})
	}
}
