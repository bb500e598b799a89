package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/iflyair/ifly-backend/internal/api/handler"
	"github.com/iflyair/ifly-backend/internal/api/middleware"
	"github.com/iflyair/ifly-backend/internal/core/access"
	"github.com/iflyair/ifly-backend/internal/core/ports"
)

// Deps carries everything the router needs; all of it is built once in main.
type Deps struct {
	Registry  *access.Registry
	Resources ports.ResourceService
	Auth      ports.AuthService
	Mongo     *mongo.Database
	Redis     *redis.Client
	JWTSecret string
	Logger    zerolog.Logger
}

// NewRouter builds the Echo instance with every registered resource kind
// mounted at /<kind>/ plus the auth, health, and metrics surfaces.
func NewRouter(deps Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echoprometheus.NewMiddleware("ifly"))
	e.Use(middleware.Auth(deps.JWTSecret))

	// --- Auth routes ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)

	// --- Health probes and metrics (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(deps.Mongo, deps.Redis)
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	// --- Resource kinds ---
	res := handler.NewResourceHandler(deps.Resources)
	for _, name := range deps.Registry.Names() {
		kind, _ := deps.Registry.Get(name)
		mountKind(e, res, kind)
	}

	return e
}

// mountKind registers the canonical route set for one kind. Read-only kinds
// get no write routes; echo answers 405 for write methods on their paths.
func mountKind(e *echo.Echo, res *handler.ResourceHandler, kind access.Kind) {
	g := e.Group("/" + kind.Name)

	g.GET("/", res.List(kind.Name))
	g.GET("/:id/", res.Retrieve(kind.Name))

	if kind.ReadOnly {
		return
	}

	g.POST("/", res.Create(kind.Name))
	g.PUT("/:id/", res.Update(kind.Name, false))
	g.PATCH("/:id/", res.Update(kind.Name, true))
	g.DELETE("/:id/", res.Delete(kind.Name))
	g.POST("/bulk_delete/", res.BulkDelete(kind.Name))

	for action := range kind.Actions {
		g.POST("/:id/"+action+"/", res.Action(kind.Name, action))
	}
}
