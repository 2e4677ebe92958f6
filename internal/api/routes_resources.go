package api

import (
	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/handlers"
	"github.com/safeanchor/safeanchor/internal/middleware"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
)

// registerResourceRoutes mounts the resource library. Reading is open to
// everyone; publishing is an admin operation.
func registerResourceRoutes(api *gin.RouterGroup, authed []gin.HandlerFunc, svc *services.ResourceService) {
	handler := handlers.NewResourceHandler(svc)

	resources := api.Group("/resources")
	{
		resources.GET("", handler.List)
		resources.GET("/:id", handler.Get)
	}

	admin := api.Group("/resources", authed...)
	admin.Use(middleware.RequireKind(models.UserKindAdmin))
	{
		admin.POST("", handler.Create)
		admin.PATCH("/:id", handler.Update)
		admin.DELETE("/:id", handler.Delete)
	}
}
