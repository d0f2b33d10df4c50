package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/formacionweb360/training-service/internal/models"
	"github.com/formacionweb360/training-service/internal/routing"
	"github.com/formacionweb360/training-service/internal/services"
	"github.com/formacionweb360/training-service/internal/utils"
)

type AuthHandler struct {
	BaseHandler
	sessions services.SessionService
	users    services.UserService
	qr       services.QRService
}

func NewAuthHandler(sessions services.SessionService, users services.UserService, qr services.QRService, logger utils.Logger) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
		users:       users,
		qr:          qr,
	}
}

// MeResponse is the profile of the session holder and the view their role lands on
type MeResponse struct {
	User     *models.User `json:"user"`
	Redirect string       `json:"redirect"`
}

// Login opens a session with username and password
// @Summary Login
// @Description Validates credentials and returns a session token with the role's landing view
// @Tags auth
// @Accept json
// @Produce json
// @Param credentials body services.LoginRequest true "Credentials"
// @Success 200 {object} services.LoginResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse "Inactive account"
// @Failure 429 {object} ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req services.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.sessions.Login(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// LoginCasdoor exchanges a Casdoor access token for a portal session
// @Summary Casdoor login
// @Tags auth
// @Accept json
// @Produce json
// @Param token body services.CasdoorLoginRequest true "Casdoor access token"
// @Success 200 {object} services.LoginResponse
// @Failure 401 {object} ErrorResponse
// @Failure 501 {object} ErrorResponse "SSO not configured"
// @Router /auth/casdoor [post]
func (h *AuthHandler) LoginCasdoor(c *gin.Context) {
	var req services.CasdoorLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.sessions.LoginWithCasdoor(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Logout closes the current session
// @Summary Logout
// @Tags auth
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Request.Context(), c.GetString(ctxToken)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Logged out",
		Data:    gin.H{"redirect": routing.ViewLogin},
	})
}

// Me returns the profile of the session holder
// @Summary Current user
// @Tags auth
// @Produce json
// @Success 200 {object} MeResponse
// @Failure 401 {object} ErrorResponse
// @Router /me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, MeResponse{
		User:     user,
		Redirect: routing.Resolve(user.Rol),
	})
}

// MyQR renders the QR identifier of the session holder as PNG
// @Summary Current user's QR
// @Tags auth
// @Produce png
// @Success 200 {file} binary
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse "User has no QR identifier"
// @Router /me/qr [get]
func (h *AuthHandler) MyQR(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	user, err := h.users.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if user.QRID == nil || *user.QRID == "" {
		h.handleServiceError(c, services.ErrNotFound)
		return
	}

	img, err := h.qr.Image(c.Request.Context(), *user.QRID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("X-QR-Fallback", strconv.FormatBool(img.Fallback))
	c.Data(http.StatusOK, img.ContentType, img.Data)
}
