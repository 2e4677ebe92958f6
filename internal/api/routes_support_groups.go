package api

import (
	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/handlers"
	"github.com/safeanchor/safeanchor/internal/middleware"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
)

// registerSupportGroupRoutes mounts peer support groups. Membership is open
// to any signed-in account; editing and deactivating are admin operations.
func registerSupportGroupRoutes(api *gin.RouterGroup, authed []gin.HandlerFunc, svc *services.SupportGroupService) {
	handler := handlers.NewSupportGroupHandler(svc)

	groups := api.Group("/support-groups", authed...)
	{
		groups.GET("", handler.List)
		groups.GET("/:id", handler.Get)
		groups.POST("", handler.Create)
		groups.POST("/:id/join", handler.Join)
		groups.POST("/:id/leave", handler.Leave)
	}

	admin := api.Group("/support-groups", authed...)
	admin.Use(middleware.RequireKind(models.UserKindAdmin))
	{
		admin.PATCH("/:id", handler.Update)
		admin.DELETE("/:id", handler.Deactivate)
	}
}
