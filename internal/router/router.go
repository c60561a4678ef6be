// Package router wires handlers and middleware onto an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/myway/internal/config"
	"github.com/iliyamo/myway/internal/handler"
	"github.com/iliyamo/myway/internal/middleware"
	"github.com/iliyamo/myway/internal/session"
)

// Deps is everything the routes need.  Redis may be nil, which disables the
// rate limiter and the response cache.
type Deps struct {
	Public    *handler.PublicHandler
	Auth      *handler.AuthHandler
	Listings  *handler.ListingHandler
	Admin     *handler.AdminHandler
	Sessions  *session.Manager
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	UploadDir string
	Log       *zap.Logger
}

// Register mounts every route.  The session middleware runs for all of
// them; tier checks redirect to the matching login page.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.Session(d.Sessions))

	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if d.UploadDir != "" {
		e.Static("/static/uploads", d.UploadDir)
	}

	registerPublic(e, d)
	registerAuth(e, d)
	registerLandlord(e, d)
	registerAdmin(e, d)
}

func registerPublic(e *echo.Echo, d Deps) {
	e.GET("/", d.Public.Index)
	e.GET("/listings/:id", d.Public.GetListing)
	e.GET("/track_click/:id", d.Public.TrackClick)
	e.GET("/schools", d.Public.ListSchools, middleware.NewRedisCache(d.Cache, d.Redis, d.Log))
}

func registerAuth(e *echo.Echo, d Deps) {
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)

	e.POST("/register", d.Auth.Register)
	e.POST("/login", d.Auth.Login, limit)
	e.POST("/logout", d.Auth.Logout)
	e.GET("/logout", d.Auth.Logout)
	e.POST("/reset/lookup", d.Auth.ResetLookup, limit)
	e.POST("/reset/confirm", d.Auth.ResetConfirm, limit)
	e.GET("/admin", d.Auth.AdminEntry)
	e.POST("/admin", d.Auth.AdminLogin, limit)
}

func registerLandlord(e *echo.Echo, d Deps) {
	either := middleware.RequireLandlordOrAdmin()
	e.POST("/upload", d.Listings.Upload, either)
	e.POST("/listings/:id/edit", d.Listings.Edit, either)
	e.POST("/toggle_status/:id", d.Listings.Toggle, either)

	landlord := middleware.RequireLandlord()
	e.GET("/dashboard", d.Listings.Dashboard, landlord)
	e.DELETE("/landlord/listings/:id", d.Listings.Delete, landlord)
}

func registerAdmin(e *echo.Echo, d Deps) {
	admin := middleware.RequireAdmin()
	e.GET("/admin_console", d.Admin.Console, admin)
	e.POST("/admin/schools", d.Admin.CreateSchool, admin)
	e.DELETE("/admin/schools/:id", d.Admin.DeleteSchool, admin)
	e.DELETE("/admin/listings/:id", d.Admin.DeleteListing, admin)
}
