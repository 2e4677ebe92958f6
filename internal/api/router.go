package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	iauth "github.com/safeanchor/safeanchor/internal/auth"
	"github.com/safeanchor/safeanchor/internal/middleware"
	"github.com/safeanchor/safeanchor/internal/services"
)

// Services bundles the application services the router mounts.
type Services struct {
	Accounts   *services.AccountService
	Resources  *services.ResourceService
	Groups     *services.SupportGroupService
	Hotlines   *services.HotlineService
	Sessions   *services.SessionService
	Matching   *services.MatchingService
	Dashboards *services.DashboardService
	Profiles   *services.ProfileService
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(db *gorm.DB, jwt *iauth.JWTService, svcs Services) (*gin.Engine, error) {
	if db == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if jwt == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if svcs.Accounts == nil {
		return nil, fmt.Errorf("account service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	// Basic rate limiting: 100 requests/minute per IP+path
	r.Use(middleware.RateLimit(100, time.Minute))

	r.NoRoute(middleware.NotFoundHandler)

	// Public surface
	registerHealthRoutes(r, db)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	registerAuthRoutes(r, svcs.Accounts)

	// Protected surface. Every authenticated route also re-checks the
	// verification flag so accounts reset after token issue lose access.
	authed := []gin.HandlerFunc{middleware.Auth(jwt), middleware.RequireVerified(db)}
	api := r.Group("/api")

	registerResourceRoutes(api, authed, svcs.Resources)
	registerHotlineRoutes(api, authed, svcs.Hotlines)
	registerSupportGroupRoutes(api, authed, svcs.Groups)
	registerSessionRoutes(api, authed, svcs.Sessions)
	registerExpertRoutes(api, authed, svcs.Matching, svcs.Sessions)
	registerDashboardRoutes(api, authed, svcs.Dashboards)
	registerProfileRoutes(api, authed, svcs.Profiles)

	return r, nil
}
