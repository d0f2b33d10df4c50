package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacionweb360/training-service/internal/services"
	"github.com/formacionweb360/training-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	service services.UserService
}

func NewUserHandler(service services.UserService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListUsers godoc
// @Summary List users
// @Description List portal users with filters and pagination
// @Tags users
// @Produce json
// @Param rol query string false "Role"
// @Param grupo query string false "Group name"
// @Param campania_id query int false "Campaign ID"
// @Param estado query string false "Active or Inactive"
// @Param q query string false "Name or username search"
// @Param page query int false "Page (default 1)"
// @Param size query int false "Page size (default 50)"
// @Success 200 {object} services.UserListResponse
// @Failure 400 {object} ErrorResponse
// @Router /formador/users [get]
func (h *UserHandler) ListUsers(c *gin.Context) {
	var req services.UserListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	resp, err := h.service.List(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SetStatus godoc
// @Summary Activate or deactivate a user
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param status body services.UserStatusRequest true "New status"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /formador/users/{id}/status [put]
func (h *UserHandler) SetStatus(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.UserStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	actorID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Changing user status", "target_id", id, "estado", req.Estado)

	user, err := h.service.SetStatus(c.Request.Context(), id, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// MarkAttendance godoc
// @Summary Mark attendance
// @Tags users
// @Accept json
// @Produce json
// @Param id path int true "User ID"
// @Param attendance body services.AttendanceRequest true "Date and marker"
// @Success 200 {object} models.User
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /formador/users/{id}/attendance [put]
func (h *UserHandler) MarkAttendance(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req services.AttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.service.MarkAttendance(c.Request.Context(), id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// CheckInByQR godoc
// @Summary QR check-in
// @Description Marks the holder of a scanned QR identifier present today
// @Tags users
// @Accept json
// @Produce json
// @Param scan body services.QRCheckInRequest true "Scanned identifier"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse "Inactive user"
// @Router /formador/attendance/qr [post]
func (h *UserHandler) CheckInByQR(c *gin.Context) {
	var req services.QRCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.service.CheckInByQR(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
