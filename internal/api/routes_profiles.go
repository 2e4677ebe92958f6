package api

import (
	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/handlers"
	"github.com/safeanchor/safeanchor/internal/middleware"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
)

// registerProfileRoutes mounts the self-service profile surface. The public
// expert view stays open so victims can evaluate an expert before signing in.
func registerProfileRoutes(api *gin.RouterGroup, authed []gin.HandlerFunc, svc *services.ProfileService) {
	handler := handlers.NewProfileHandler(svc)

	victims := api.Group("/victims", authed...)
	victims.Use(middleware.RequireKind(models.UserKindVictim))
	{
		victims.GET("/profile", handler.VictimProfile)
		victims.PUT("/expert-preference", handler.UpdateExpertPreferences)
		victims.POST("/emergency-contact", handler.AddEmergencyContact)
	}

	experts := api.Group("/experts", authed...)
	experts.Use(middleware.RequireKind(models.UserKindExpert))
	{
		experts.GET("/profile", handler.ExpertProfile)
		experts.PUT("/profile", handler.UpdateExpertProfile)
	}

	api.GET("/experts/public-profile/:id", handler.PublicExpertProfile)
}
