package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/homestead/backend/internal/application/report"
)

// DashboardService computes the staff dashboard
type DashboardService interface {
	Summary(ctx context.Context, in report.SummaryInput) (*report.SummaryDTO, error)
}

// DashboardHandler serves the reporting dashboard
type DashboardHandler struct {
	BaseHandler
	reports DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(reports DashboardService) *DashboardHandler {
	return &DashboardHandler{reports: reports}
}

// Summary godoc
// @ID           dashboardSummary
// @Summary      Sales, delivery and notification figures for a period
// @Description  The window defaults to the last 30 days and may not exceed a year
// @Tags         dashboard
// @Produce      json
// @Param        from query string false "Start (RFC3339 or YYYY-MM-DD)"
// @Param        to query string false "End (RFC3339 or YYYY-MM-DD)"
// @Success      200 {object} APIResponse[report.SummaryDTO]
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	var in report.SummaryInput
	if !h.optionalTimes(c, map[string]**time.Time{"from": &in.From, "to": &in.To}) {
		return
	}
	s, err := h.reports.Summary(c.Request.Context(), in)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, s)
}
