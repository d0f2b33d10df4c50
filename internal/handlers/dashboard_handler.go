package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/formacionweb360/training-service/internal/services"
	"github.com/formacionweb360/training-service/internal/utils"
)

type DashboardHandler struct {
	BaseHandler
	service services.DashboardService
	reports services.ReportService
}

func NewDashboardHandler(service services.DashboardService, reports services.ReportService, logger utils.Logger) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: NewBaseHandler(logger),
		service:     service,
		reports:     reports,
	}
}

// ===== ADMIN DASHBOARD ENDPOINTS =====

// GetSummary returns the admin landing counters
// @Summary Admin summary
// @Description Users per role, today's activations, completions of the last 7 days and recent activity
// @Tags dashboard
// @Produce json
// @Success 200 {object} services.AdminSummary
// @Failure 401 {object} ErrorResponse "Unauthorized"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /admin/summary [get]
func (h *DashboardHandler) GetSummary(c *gin.Context) {
	h.LogRequest(c, "Getting admin summary")

	summary, err := h.service.AdminSummary(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetAttendance returns attendance by group for a date
// @Summary Attendance dashboard
// @Tags dashboard
// @Produce json
// @Param fecha query string false "Date YYYY-MM-DD (default: today)"
// @Param campania_id query int false "Campaign ID"
// @Success 200 {object} services.AttendanceDashboard
// @Failure 400 {object} ErrorResponse "Bad request - invalid date"
// @Router /admin/attendance [get]
func (h *DashboardHandler) GetAttendance(c *gin.Context) {
	var query services.AttendanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	h.LogRequest(c, "Getting attendance", "fecha", query.Fecha)

	dashboard, err := h.service.Attendance(c.Request.Context(), &query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

// ExportAttendance downloads the attendance dashboard as a spreadsheet
// @Summary Export attendance
// @Tags dashboard
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param fecha query string false "Date YYYY-MM-DD (default: today)"
// @Param campania_id query int false "Campaign ID"
// @Success 200 {file} binary
// @Failure 400 {object} ErrorResponse
// @Router /admin/attendance/export [get]
func (h *DashboardHandler) ExportAttendance(c *gin.Context) {
	var query services.AttendanceQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid query parameters",
			Details: err.Error(),
		})
		return
	}

	data, name, err := h.reports.AttendanceWorkbook(c.Request.Context(), &query)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, services.XLSXContentType, data)
}
