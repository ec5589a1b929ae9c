package http

import (
	"net/http"

	"anoa.com/sparkvest/internal/middleware"
	dashboardService "anoa.com/sparkvest/internal/modules/dashboard/service"
	"anoa.com/sparkvest/pkg/apperror"
	"anoa.com/sparkvest/pkg/response"
	"github.com/gin-gonic/gin"
)

type DashboardHandler struct {
	dashboardService dashboardService.DashboardService
}

func NewDashboardHandler(dashboardService dashboardService.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
	}
}

func (h *DashboardHandler) Dashboard(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.ResponseError(c, apperror.ErrUnauthorized)
		return
	}

	res, err := h.dashboardService.Dashboard(c.Request.Context(), user)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}
