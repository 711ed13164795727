// Package api provides the HTTP API server and handlers for the Spark
// application.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sparkapp/spark-server/internal/ratelimit"
	"github.com/sparkapp/spark-server/internal/service"
)

// Services groups the business logic services used by the API server.
type Services struct {
	Auth       *service.AuthService
	Resource   *service.ResourceService
	Category   *service.CategoryService
	Tag        *service.TagService
	Automation *service.AutomationService
}

// Options configures the API server.
type Options struct {
	CORSOrigins []string
	Logger      *slog.Logger
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services    *Services
	router      *chi.Mux
	api         huma.API
	logger      *slog.Logger
	authLimiter *ratelimit.KeyedLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, opts Options) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Compress(5))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Credential endpoints get a per-IP budget. 20 attempts a minute is
	// roomy for humans and tight for scripts.
	authLimiter := ratelimit.New(20.0/60.0, 10)
	router.Use(authRateLimit(authLimiter, opts.Logger))

	humaConfig := huma.DefaultConfig("Spark API", "1.0.0")
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}

	api := humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s := &Server{
		services:    services,
		router:      router,
		api:         api,
		logger:      opts.Logger,
		authLimiter: authLimiter,
	}

	s.registerHealthRoutes()
	s.registerAuthRoutes()
	s.registerResourceRoutes()
	s.registerCategoryRoutes()
	s.registerTagRoutes()
	s.registerAutomationRoutes()
	s.registerSearchRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases server-held resources.
func (s *Server) Close() {
	s.authLimiter.Stop()
}

// === Health ===

// HealthOutput is the health check response.
type HealthOutput struct {
	Body struct {
		Status string    `json:"status" doc:"Server health status"`
		Time   time.Time `json:"time" doc:"Server time"`
	}
}

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
	}, func(_ context.Context, _ *struct{}) (*HealthOutput, error) {
		out := &HealthOutput{}
		out.Body.Status = "healthy"
		out.Body.Time = time.Now().UTC()
		return out, nil
	})
}
