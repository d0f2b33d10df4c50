package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacionweb360/training-service/internal/services"
	"github.com/formacionweb360/training-service/internal/utils"
)

// AdvisorHandler serves the advisor's course list and course view
type AdvisorHandler struct {
	BaseHandler
	dashboard services.DashboardService
	progress  services.ProgressService
}

func NewAdvisorHandler(dashboard services.DashboardService, progress services.ProgressService, logger utils.Logger) *AdvisorHandler {
	return &AdvisorHandler{
		BaseHandler: NewBaseHandler(logger),
		dashboard:   dashboard,
		progress:    progress,
	}
}

// MyCourses lists the advisor's active courses with progress
// @Summary My courses
// @Tags advisor
// @Produce json
// @Success 200 {array} services.CourseView
// @Failure 401 {object} ErrorResponse
// @Router /asesor/cursos [get]
func (h *AdvisorHandler) MyCourses(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	views, err := h.dashboard.MyCourses(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// OpenCourse opens the course view and starts accruing time
// @Summary Open course
// @Tags advisor
// @Produce json
// @Param activation_id path int true "Activation ID"
// @Success 200 {object} services.CourseView
// @Failure 403 {object} ErrorResponse "Not enrolled"
// @Failure 404 {object} ErrorResponse
// @Router /asesor/cursos/{activation_id} [get]
func (h *AdvisorHandler) OpenCourse(c *gin.Context) {
	h.courseAction(c, "Opening course", h.progress.OpenView)
}

// Heartbeat keeps the course view alive
// @Summary Course heartbeat
// @Tags advisor
// @Produce json
// @Param activation_id path int true "Activation ID"
// @Success 200 {object} services.CourseView
// @Router /asesor/cursos/{activation_id}/heartbeat [post]
func (h *AdvisorHandler) Heartbeat(c *gin.Context) {
	h.courseAction(c, "", h.progress.Heartbeat)
}

// CloseCourse stops accruing time and flushes pending progress
// @Summary Close course
// @Tags advisor
// @Produce json
// @Param activation_id path int true "Activation ID"
// @Success 200 {object} services.CourseView
// @Router /asesor/cursos/{activation_id}/close [post]
func (h *AdvisorHandler) CloseCourse(c *gin.Context) {
	h.courseAction(c, "Closing course", h.progress.CloseView)
}

// CompleteCourse marks the course completed after explicit confirmation
// @Summary Complete course
// @Tags advisor
// @Accept json
// @Produce json
// @Param activation_id path int true "Activation ID"
// @Param confirmation body services.CompleteCourseRequest true "Confirmation"
// @Success 200 {object} services.CourseView
// @Failure 400 {object} ErrorResponse "Not confirmed"
// @Router /asesor/cursos/{activation_id}/complete [post]
func (h *AdvisorHandler) CompleteCourse(c *gin.Context) {
	id := h.parseIDParam(c, "activation_id")
	if id == 0 {
		return
	}

	var req services.CompleteCourseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Completing course", "activation_id", id)

	view, err := h.progress.Complete(c.Request.Context(), userID, id, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type courseViewFunc func(ctx context.Context, userID, activationID uint) (*services.CourseView, error)

func (h *AdvisorHandler) courseAction(c *gin.Context, msg string, action courseViewFunc) {
	id := h.parseIDParam(c, "activation_id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if msg != "" {
		h.LogRequest(c, msg, "activation_id", id)
	}

	view, err := action(c.Request.Context(), userID, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}
