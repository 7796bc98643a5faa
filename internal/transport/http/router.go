// Package http wires the admin API. It exposes traffic reports, number
// range management and relay settings behind a JWT-protected surface.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/otp-relay/internal/config"
	jwtinfra "github.com/otp-relay/internal/infrastructure/jwt"
	"github.com/otp-relay/internal/transport/http/handler"
	appmiddleware "github.com/otp-relay/internal/transport/http/middleware"
)

// Deps holds the services the router exposes.
type Deps struct {
	Traffic     handler.TrafficService
	Inventory   handler.InventoryService
	AutoDelete  handler.AutoDeleteService
	JWTProvider *jwtinfra.Provider
}

// NewRouter builds and returns the admin API router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	var authMw func(http.Handler) http.Handler
	if deps.JWTProvider != nil {
		authMw = appmiddleware.Auth(deps.JWTProvider)
	} else {
		authMw = func(next http.Handler) http.Handler { return next }
	}

	// 5 requests/second, burst of 10, applied to the login endpoint.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	healthH := handler.NewHealthHandler()
	authH := handler.NewAuthHandler(cfg.AdminPasswordHash, deps.JWTProvider)
	statsH := handler.NewStatsHandler(deps.Traffic)
	rangeH := handler.NewRangeHandler(deps.Inventory)
	settingsH := handler.NewSettingsHandler(deps.AutoDelete)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/sessions/login", authH.Login)

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/stats/today", statsH.Today)
			r.Get("/stats/traffic", statsH.Traffic)
			r.Get("/stats/all-time", statsH.AllTime)
			r.Get("/stats/breakdown", statsH.Breakdown)

			r.Get("/ranges", rangeH.List)
			r.Post("/ranges", rangeH.Upload)
			r.Get("/ranges/{id}", rangeH.Download)
			r.Delete("/ranges/{id}", rangeH.Delete)

			r.Get("/settings/autodelete", settingsH.GetAutoDelete)
			r.Put("/settings/autodelete", settingsH.PutAutoDelete)
		})
	})

	return r
}
