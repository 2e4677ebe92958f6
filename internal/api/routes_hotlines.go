package api

import (
	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/handlers"
	"github.com/safeanchor/safeanchor/internal/middleware"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
)

// registerHotlineRoutes mounts the crisis hotline directory. The listing is
// public so people in danger reach it without an account.
func registerHotlineRoutes(api *gin.RouterGroup, authed []gin.HandlerFunc, svc *services.HotlineService) {
	handler := handlers.NewHotlineHandler(svc)

	api.GET("/hotlines", handler.List)

	admin := api.Group("/hotlines", authed...)
	admin.Use(middleware.RequireKind(models.UserKindAdmin))
	{
		admin.POST("", handler.Create)
		admin.PATCH("/:id", handler.Update)
		admin.DELETE("/:id", handler.Delete)
	}
}
