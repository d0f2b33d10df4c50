package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacionweb360/training-service/internal/services"
	"github.com/formacionweb360/training-service/internal/utils"
)

type ActivationHandler struct {
	BaseHandler
	service services.ActivationService
}

func NewActivationHandler(service services.ActivationService, logger utils.Logger) *ActivationHandler {
	return &ActivationHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// Activate activates a course for a group today and enrolls its advisors
// @Summary Activate course
// @Description Activates a course for a campaign group on today's date. Every active advisor of the group is enrolled.
// @Tags activations
// @Accept json
// @Produce json
// @Param activation body services.ActivationRequest true "Activation"
// @Success 201 {object} services.ActivationResult
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse "Already activated today"
// @Router /formador/activations [post]
func (h *ActivationHandler) Activate(c *gin.Context) {
	var req services.ActivationRequest
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

	h.LogRequest(c, "Activating course", "curso_id", req.CursoID, "grupo_id", req.GrupoID)

	result, err := h.service.Activate(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Deactivate removes an activation and its enrollments
// @Summary Deactivate course
// @Tags activations
// @Produce json
// @Param id path int true "Activation ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /formador/activations/{id} [delete]
func (h *ActivationHandler) Deactivate(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Deactivating course", "activation_id", id)

	if err := h.service.Deactivate(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Activation removed",
	})
}

// ListToday lists today's activations with enrollment and completion counts
// @Summary Today's activations
// @Tags activations
// @Produce json
// @Param campania_id query int false "Campaign ID"
// @Param grupo_id query int false "Group ID"
// @Param creado_por query int false "Creator user ID"
// @Success 200 {array} services.ActivationView
// @Router /formador/activations/today [get]
func (h *ActivationHandler) ListToday(c *gin.Context) {
	var filters services.ActivationListFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	views, err := h.service.ListToday(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, views)
}

// Repair enrolls group advisors that joined after the activation
// @Summary Repair enrollments
// @Tags activations
// @Produce json
// @Param id path int true "Activation ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /formador/activations/{id}/repair [post]
func (h *ActivationHandler) Repair(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	h.LogRequest(c, "Repairing enrollments", "activation_id", id)

	added, err := h.service.RepairEnrollments(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{
		Message: "Enrollments repaired",
		Data:    gin.H{"added": added},
	})
}
