package api

import (
	"github.com/gin-gonic/gin"

	"github.com/safeanchor/safeanchor/internal/handlers"
	"github.com/safeanchor/safeanchor/internal/models"
	"github.com/safeanchor/safeanchor/internal/services"
)

// registerAuthRoutes mounts the account lifecycle for both kinds. The same
// parameterized handler backs /api/auth (victims) and /api/experts/auth.
func registerAuthRoutes(r *gin.Engine, accounts *services.AccountService) {
	mountLifecycle(r.Group("/api/auth"), handlers.NewAuthHandler(accounts, models.UserKindVictim))
	mountLifecycle(r.Group("/api/experts/auth"), handlers.NewAuthHandler(accounts, models.UserKindExpert))
}

func mountLifecycle(group *gin.RouterGroup, handler *handlers.AuthHandler) {
	group.POST("/register", handler.Register)
	group.POST("/verify-otp", handler.VerifyEmail)
	group.POST("/resend-otp", handler.ResendOTP)
	group.POST("/login", handler.Login)
	group.POST("/logout", handler.Logout)
	group.POST("/refresh-token", handler.Refresh)
	group.POST("/forgot-password", handler.ForgotPassword)
	group.POST("/reset-password", handler.ResetPassword)
}
