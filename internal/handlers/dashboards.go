package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/services"
	"github.com/safeanchor/safeanchor/pkg/response"
)

// DashboardHandler serves the per-kind landing views.
type DashboardHandler struct {
	dashboards *services.DashboardService
}

// NewDashboardHandler builds a DashboardHandler.
func NewDashboardHandler(dashboards *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboards: dashboards}
}

// Victim returns the calling victim's dashboard.
func (h *DashboardHandler) Victim(c *gin.Context) {
	view, err := h.dashboards.ForVictim(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// Expert returns the calling expert's dashboard.
func (h *DashboardHandler) Expert(c *gin.Context) {
	view, err := h.dashboards.ForExpert(c.Request.Context(), currentUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}
