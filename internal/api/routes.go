package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// setupRoutes configures all routes
func (s *RESTServer) setupRoutes() {
	// Middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(s.recoverer)
	s.router.Use(instrument)
	s.router.Use(middleware.Timeout(60 * time.Second))

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.API.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s.router.Get("/", s.HandleRoot)
	s.router.Handle("/metrics", promhttp.Handler())

	if s.uploadsDir != "" {
		prefix := strings.TrimRight(s.config.Uploads.PublicPrefix, "/")
		log.Info().Str("dir", s.uploadsDir).Str("prefix", prefix).Msg("Serving uploaded photos")
		s.router.Handle(prefix+"/*", http.StripPrefix(prefix, http.FileServer(http.Dir(s.uploadsDir))))
	}

	s.router.Route("/api", func(r chi.Router) {
		s.setupAPIRoutes(r)
	})

	s.router.NotFound(s.HandleNotFound)
	s.router.MethodNotAllowed(s.HandleNotFound)
}

// setupAPIRoutes sets up the /api routes
func (s *RESTServer) setupAPIRoutes(r chi.Router) {
	// Devices
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", s.HandleListDevices)
		r.Post("/", s.HandleCreateDevice)
		r.Get("/health", s.HandleDeviceHealth)
		r.Put("/{id}/settings", s.HandleUpdateDeviceSettings)
	})

	// Alerts
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", s.HandleListAlerts)
		r.Post("/", s.HandleCreateAlert)
		r.Post("/respond", s.HandleRespond)
		r.With(httprate.LimitByIP(s.config.API.UploadRateLimit, time.Minute)).
			Post("/{alertId}/photo", s.HandleUploadPhoto)
	})

	// Analytics
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/", s.HandleAnalytics)
		r.Get("/summary", s.HandleAnalyticsSummary)
	})

	// Auth
	r.Get("/auth/me", s.HandleGetCurrentUser)
}
