package rest

import (
	"net/http"

	"github.com/frahmantamala/number-provisioning/internal/transport"
	"github.com/frahmantamala/number-provisioning/internal/transport/middleware"
	"github.com/frahmantamala/number-provisioning/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// NumberRoutes is implemented by *number.Handler.
type NumberRoutes interface {
	Provision(w http.ResponseWriter, r *http.Request)
	GetNumber(w http.ResponseWriter, r *http.Request)
}

type Dependencies struct {
	Base           *transport.BaseHandler
	Health         *HealthHandler
	Numbers        NumberRoutes
	RequireAccount func(http.Handler) http.Handler
	AllowedOrigins string
	// Optional surfaces; nil disables the route.
	OpenAPI     http.Handler
	Metrics     http.Handler
	MetricsPath string
}

func RegisterAllRoutes(router chi.Router, deps Dependencies) {
	router.Use(middleware.CORS(deps.AllowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(deps.Base))

	if deps.OpenAPI != nil {
		router.Get("/openapi.yml", deps.OpenAPI.ServeHTTP)
		router.Handle("/swagger/*", swagger.Handler("/openapi.yml"))
	}
	if deps.Metrics != nil {
		path := deps.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		router.Handle(path, deps.Metrics)
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", deps.Health.Health)
		r.Get("/ping", deps.Health.Ping)

		r.Group(func(pr chi.Router) {
			pr.Use(middleware.LoggingMiddleware)
			pr.Use(deps.RequireAccount)

			pr.Route("/numbers", func(nr chi.Router) {
				nr.Post("/provision", deps.Numbers.Provision)
				nr.Get("/{number}", deps.Numbers.GetNumber)
			})
		})
	})
}
