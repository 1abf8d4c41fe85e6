package api

import (
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/futurefundi/portal/internal/api/handler"
	"github.com/futurefundi/portal/internal/api/middleware"
	"github.com/futurefundi/portal/internal/core/domain"
	"github.com/futurefundi/portal/internal/core/ports"
	"github.com/futurefundi/portal/internal/core/session"
)

// dashboardAreas are the top-level guarded view trees.
var dashboardAreas = []string{"/student", "/teacher", "/parent", "/leader", "/school", "/admin"}

// Deps bundles everything the router wires into handlers and middleware.
type Deps struct {
	Log        zerolog.Logger
	Production bool
	// GuardLog receives guard redirect logs; nil uses Log.
	GuardLog *zerolog.Logger

	Auth     ports.AuthService
	Verifier ports.TokenVerifier
	Audit    ports.AuditSink

	Sessions *session.Manager
	Cookie   middleware.SessionConfig

	LoginRateLimit int
	Readiness      []handler.Dependency

	// Registerer and Gatherer default to the global prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(d.Log))
	e.Use(middleware.SecureHeaders(d.Production))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "portal",
		Registerer: d.Registerer,
	}))

	// --- Dependencies ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Audit, d.Log)
	profileHandler := handler.NewProfileHandler(d.Auth, d.Audit)
	portalHandler := handler.NewPortalHandler(d.Audit)

	guardLog := d.Log
	if d.GuardLog != nil {
		guardLog = *d.GuardLog
	}

	sess := middleware.Session(d.Sessions, d.Cookie)
	guard := middleware.Guard(middleware.GuardConfig{
		Verifier: d.Verifier,
		Auth:     d.Auth,
		Audit:    d.Audit,
		Log:      guardLog,
	})
	bearer := middleware.Auth(d.Verifier)
	throttle := middleware.LoginRateLimit(d.LoginRateLimit, time.Minute)

	// --- Public pages ---
	e.GET("/", portalHandler.Root, sess)
	e.GET("/login", portalHandler.LoginView, sess)

	// --- Auth routes ---
	auth := e.Group("/auth", sess)
	auth.POST("/token", authHandler.Login, throttle)
	auth.POST("/register", authHandler.Register, throttle)
	auth.POST("/token/refresh", authHandler.Refresh)
	auth.POST("/logout", authHandler.Logout)

	// --- User routes ---
	e.GET("/user/profile", profileHandler.Get, sess)
	e.PATCH("/user/profile", profileHandler.Update, sess)
	e.GET("/user/dashboard", profileHandler.Dashboard, bearer)
	e.GET("/api/roles", profileHandler.Roles, bearer, middleware.RBAC(domain.RoleAdmin))

	// --- Guarded dashboards ---
	e.GET("/teacher/select-school", portalHandler.SchoolSelection, sess, guard)
	e.POST("/teacher/select-school", portalHandler.SelectSchool, sess, guard)
	for _, area := range dashboardAreas {
		e.GET(area, portalHandler.View, sess, guard)
		e.GET(area+"/*", portalHandler.View, sess, guard)
	}

	// --- Ops (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Readiness...)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: d.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}
