// Package router registers the HTTP routes of the fleet API.
package router

import (
	"database/sql"
	"fmt"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/fleet-management/internal/config"
	"github.com/iliyamo/fleet-management/internal/handler"
	"github.com/iliyamo/fleet-management/internal/metrics"
	"github.com/iliyamo/fleet-management/internal/middleware"
	"github.com/iliyamo/fleet-management/internal/model"
)

var (
	office    = []string{model.RoleAdmin, model.RoleManager}
	everyone  = []string{model.RoleAdmin, model.RoleManager, model.RoleChauffeur}
	adminOnly = []string{model.RoleAdmin}
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth          *handler.AuthHandler
	Fuel          *handler.FuelHandler
	Assignments   *handler.AssignmentHandler
	Vehicles      *handler.VehicleHandler
	Personnel     *handler.PersonnelHandler
	Incidents     *handler.IncidentHandler
	Notifications *handler.NotificationHandler
}

// Options carries the optional infrastructure behind the routes. A nil
// Redis client disables rate limiting and caching; a nil Metrics recorder
// disables /metrics.
type Options struct {
	JWTSecret      string
	DB             *sql.DB
	Redis          *redis.Client
	RateLimit      config.RateLimitConfig
	Cache          config.CacheConfig
	Metrics        *metrics.Recorder
	MaxUploadBytes int64
}

// Mount registers every route on e.
func Mount(e *echo.Echo, h Handlers, opts Options) {
	if opts.Metrics != nil {
		e.Use(opts.Metrics.Middleware())
		e.GET("/metrics", echo.WrapHandler(opts.Metrics.Handler()))
	}
	RegisterRoutes(e, opts.DB)
	RegisterAuth(e, h.Auth, opts)

	v1 := e.Group("/v1",
		middleware.JWTAuth(opts.JWTSecret),
		middleware.RequireRole(everyone...),
		middleware.NewTokenBucket(opts.RateLimit, opts.Redis),
	)
	RegisterFuel(v1, h.Fuel, opts)
	RegisterAssignments(v1, h.Assignments)
	RegisterCatalog(v1, h.Vehicles, h.Personnel, opts)
	RegisterIncidents(v1, h.Incidents)
	RegisterNotifications(v1, h.Notifications)
}

// RegisterRoutes registers the unauthenticated health endpoints.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers the session endpoints. Register, login, refresh
// and logout are public; /v1/me needs an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, opts Options) {
	g := e.Group("/v1/auth", middleware.NewTokenBucket(opts.RateLimit, opts.Redis))
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(opts.JWTSecret))
}

// RegisterFuel registers the ledger and daily report routes on the
// authenticated group.
func RegisterFuel(g *echo.Group, f *handler.FuelHandler, opts Options) {
	staff := middleware.RequireRole(office...)

	g.GET("/fuel/stock", f.Stock, staff)
	g.PUT("/fuel/stock/threshold", f.SetThreshold, middleware.RequireRole(adminOnly...))
	g.POST("/fuel/replenishments", f.Replenish, staff)
	g.GET("/fuel/replenishments", f.ListReplenishments, staff)
	g.POST("/fuel/dispensings", f.Dispense, staff)
	g.GET("/fuel/dispensings", f.ListDispensings, staff)
	g.GET("/fuel/daily-reports", f.ListDailyReports, staff)
	g.GET("/fuel/export", f.Export, staff)
	g.GET("/fuel/images/:ref", f.Image, staff)

	g.POST("/fuel/daily-reports", f.SubmitDailyReport, echomw.BodyLimit(uploadLimit(opts.MaxUploadBytes)))
	g.GET("/my/daily-reports", f.MyDailyReports)
	g.GET("/my/daily-reports/today", f.TodayStatus)
}

// RegisterAssignments registers the assignment registry routes.
func RegisterAssignments(g *echo.Group, a *handler.AssignmentHandler) {
	staff := middleware.RequireRole(office...)

	g.POST("/assignments", a.Create, staff)
	g.PUT("/assignments/:id", a.Update, staff)
	g.POST("/assignments/:id/deactivate", a.Deactivate, staff)
	g.GET("/assignments", a.List, staff)
	g.DELETE("/assignments/:id", a.Delete, middleware.RequireRole(adminOnly...))
	g.GET("/my/assignment", a.Mine)
}

// RegisterCatalog registers trucks, equipment and personnel. Catalog reads
// are open to every role and served through the response cache.
func RegisterCatalog(g *echo.Group, v *handler.VehicleHandler, p *handler.PersonnelHandler, opts Options) {
	staff := middleware.RequireRole(office...)
	cached := middleware.NewRedisCache(opts.Cache, opts.Redis)

	g.GET("/trucks", v.ListTrucks, cached)
	g.GET("/trucks/:id", v.GetTruck, cached)
	g.POST("/trucks", v.CreateTruck, staff)
	g.PUT("/trucks/:id", v.UpdateTruck, staff)
	g.DELETE("/trucks/:id", v.DeleteTruck, staff)

	g.GET("/equipment", v.ListEquipment, cached)
	g.GET("/equipment/:id", v.GetEquipment, cached)
	g.POST("/equipment", v.CreateEquipment, staff)
	g.PUT("/equipment/:id", v.UpdateEquipment, staff)
	g.DELETE("/equipment/:id", v.DeleteEquipment, staff)

	g.GET("/personnel", p.List, staff)
	g.POST("/personnel", p.Create, middleware.RequireRole(adminOnly...))
}

// RegisterIncidents registers incident reporting. Role checks for listing
// and status changes happen in the core.
func RegisterIncidents(g *echo.Group, i *handler.IncidentHandler) {
	g.POST("/incidents", i.Report)
	g.GET("/incidents", i.List)
	g.PATCH("/incidents/:id/status", i.UpdateStatus, middleware.RequireRole(office...))
}

// RegisterNotifications registers the office inbox.
func RegisterNotifications(g *echo.Group, n *handler.NotificationHandler) {
	staff := middleware.RequireRole(office...)

	g.GET("/notifications", n.List, staff)
	g.GET("/notifications/unread-count", n.UnreadCount, staff)
	g.POST("/notifications/:id/read", n.MarkRead, staff)
	g.POST("/notifications/read-all", n.MarkAllRead, staff)
}

// uploadLimit leaves a megabyte of multipart overhead on top of the image.
func uploadLimit(maxImage int64) string {
	if maxImage <= 0 {
		maxImage = 10 << 20
	}
	return fmt.Sprintf("%dK", maxImage/1024+1024)
}
