package api

import (
	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/handlers"
	"github.com/safeanchor/safeanchor/internal/middleware"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
)

func registerSessionRoutes(api *gin.RouterGroup, authed []gin.HandlerFunc, svc *services.SessionService) {
	handler := handlers.NewSessionHandler(svc)

	sessions := api.Group("/sessions", authed...)
	{
		sessions.GET("", handler.List)
		sessions.GET("/:id", handler.Get)
		sessions.POST("", middleware.RequireKind(models.UserKindVictim), handler.Book)
		sessions.PATCH("/:id", middleware.RequireKind(models.UserKindExpert, models.UserKindAdmin), handler.UpdateStatus)
		sessions.POST("/:id/cancel", handler.Cancel)
	}
}
