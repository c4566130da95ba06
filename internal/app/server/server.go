package server

import (
	"context"

	"github.com/avelin0/snaplink/internal/app/service"
	inthttp "github.com/avelin0/snaplink/internal/http/handler"
	"github.com/avelin0/snaplink/internal/http/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies bundles everything the HTTP server needs.
type Dependencies struct {
	Logger         *zap.Logger
	Redis          *redis.Client
	Allocator      *service.Allocator
	Resolver       *service.Resolver
	Links          service.LinkService
	Clicks         *service.ClickAccountant
	Analytics      *service.AnalyticsAggregator
	ClickPublisher *service.ClickPublisher
}

// Server wraps the Fiber application and its dependencies.
type Server struct {
	app  *fiber.App
	deps Dependencies
}

// New creates a new HTTP server instance with default routes.
func New(deps Dependencies) *Server {
	app := fiber.New()

	s := &Server{
		app:  app,
		deps: deps,
	}

	s.registerMiddleware()
	s.registerRoutes()
	return s
}

// Listen starts the Fiber server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully stops the Fiber server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) registerMiddleware() {
	s.app.Use(middleware.RequestID())
	s.app.Use(middleware.Recovery(s.deps.Logger))
	s.app.Use(middleware.Logger(s.deps.Logger))
	s.app.Use(middleware.CORS())
	if s.deps.Redis != nil {
		s.app.Use(middleware.RateLimit(s.deps.Redis, middleware.DefaultRateLimitConfig(), s.deps.Logger))
	}
}

func (s *Server) registerRoutes() {
	apiHandler := inthttp.NewAPIHandler(inthttp.APIDeps{
		Logger:    s.deps.Logger,
		Allocator: s.deps.Allocator,
		Links:     s.deps.Links,
		Clicks:    s.deps.Clicks,
		Analytics: s.deps.Analytics,
	})
	apiHandler.Register(s.app)

	// Registered last: the catch-all /:code route must not shadow /api.
	redirectHandler := inthttp.NewRedirectHandler(inthttp.RedirectDeps{
		Logger:         s.deps.Logger,
		Resolver:       s.deps.Resolver,
		Clicks:         s.deps.Clicks,
		ClickPublisher: s.deps.ClickPublisher,
	})
	redirectHandler.Register(s.app)
}
