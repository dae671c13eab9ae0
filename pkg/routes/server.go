// Package routes assembles the admin API.
package routes

import (
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/camellia/pkg/categories"
	"github.com/Ramsey-B/camellia/pkg/routes/business"
	"github.com/Ramsey-B/camellia/pkg/routes/category"
	"github.com/Ramsey-B/camellia/pkg/routes/health"
	"github.com/Ramsey-B/camellia/pkg/routes/middleware"
)

type ServerConfig struct {
	ServiceName string
	Logger      ectologger.Logger
	Health      *health.Checker
	Resolver    *categories.Resolver
	Businesses  business.Store
}

// NewServer builds the echo instance with middleware, probes, metrics and the read endpoints.
func NewServer(cfg ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(cfg.Logger)

	e.Use(echomiddleware.Recover())
	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(cfg.Logger))

	cfg.Health.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1")
	category.NewHandler(cfg.Resolver).Register(api.Group("/categories"))
	business.NewHandler(cfg.Businesses).Register(api.Group("/businesses"))

	return e
}
