package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacionweb360/training-service/internal/repositories"
	"github.com/formacionweb360/training-service/internal/services"
	"github.com/formacionweb360/training-service/internal/utils"
)

type CatalogHandler struct {
	BaseHandler
	service services.CatalogService
}

func NewCatalogHandler(service services.CatalogService, logger utils.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
	}
}

// ListCampaigns godoc
// @Summary List campaigns
// @Tags catalog
// @Produce json
// @Success 200 {array} models.Campaign
// @Router /catalog/campaigns [get]
func (h *CatalogHandler) ListCampaigns(c *gin.Context) {
	campaigns, err := h.service.ListCampaigns(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, campaigns)
}

// ListGroups godoc
// @Summary List the groups of a campaign
// @Tags catalog
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 200 {array} models.Group
// @Failure 404 {object} ErrorResponse
// @Router /catalog/campaigns/{id}/groups [get]
func (h *CatalogHandler) ListGroups(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	groups, err := h.service.ListGroups(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, groups)
}

// ListCourses godoc
// @Summary List courses
// @Tags catalog
// @Produce json
// @Param campania_id query int false "Campaign ID"
// @Param grupo_id query int false "Group ID"
// @Success 200 {array} models.Course
// @Router /catalog/courses [get]
func (h *CatalogHandler) ListCourses(c *gin.Context) {
	var filters repositories.CourseFilters
	if err := c.ShouldBindQuery(&filters); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	courses, err := h.service.ListCourses(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}
