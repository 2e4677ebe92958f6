package api

import (
	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/handlers"
	"github.com/safeanchor/safeanchor/internal/middleware"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
)

func registerExpertRoutes(api *gin.RouterGroup, authed []gin.HandlerFunc, matching *services.MatchingService, sessions *services.SessionService) {
	handler := handlers.NewExpertHandler(matching, sessions)

	experts := api.Group("/experts", authed...)
	{
		experts.GET("", handler.Find)

		victimOnly := middleware.RequireKind(models.UserKindVictim)
		experts.POST("/:id/match", victimOnly, handler.Match)
		experts.GET("/matches", victimOnly, handler.Matches)
	}
}
