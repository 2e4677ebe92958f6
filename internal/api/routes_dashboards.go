package api

import (
	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/handlers"
	"github.com/safeanchor/safeanchor/internal/middleware"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
)

func registerDashboardRoutes(api *gin.RouterGroup, authed []gin.HandlerFunc, svc *services.DashboardService) {
	handler := handlers.NewDashboardHandler(svc)

	dashboard := api.Group("/dashboard", authed...)
	{
		dashboard.GET("/victim", middleware.RequireKind(models.UserKindVictim), handler.Victim)
		dashboard.GET("/expert", middleware.RequireKind(models.UserKindExpert), handler.Expert)
	}
}
