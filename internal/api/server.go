package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/auth"
	"github.com/wildwatch/wildwatch-server/internal/config"
	"github.com/wildwatch/wildwatch-server/internal/dispatch"
	"github.com/wildwatch/wildwatch-server/internal/media"
	"github.com/wildwatch/wildwatch-server/internal/resource"
)

// Services are the collaborators the handlers delegate to
type Services struct {
	Devices    *resource.DeviceService
	Alerts     *resource.AlertService
	Analytics  *resource.AnalyticsService
	Photos     *media.Ingestor
	Dispatcher *dispatch.Dispatcher
	Sessions   auth.SessionProvider

	// UploadsDir is served under the uploads public prefix when set
	UploadsDir string
}

// RESTServer represents the REST API server
type RESTServer struct {
	config     *config.Config
	devices    *resource.DeviceService
	alerts     *resource.AlertService
	analytics  *resource.AnalyticsService
	photos     *media.Ingestor
	dispatcher *dispatch.Dispatcher
	sessions   auth.SessionProvider
	uploadsDir string
	router     chi.Router
	server     *http.Server
	now        func() time.Time
}

// NewRESTServer creates a new REST API server
func NewRESTServer(cfg *config.Config, svc Services) *RESTServer {
	s := &RESTServer{
		config:     cfg,
		devices:    svc.Devices,
		alerts:     svc.Alerts,
		analytics:  svc.Analytics,
		photos:     svc.Photos,
		dispatcher: svc.Dispatcher,
		sessions:   svc.Sessions,
		uploadsDir: svc.UploadsDir,
		router:     chi.NewRouter(),
		now:        time.Now,
	}

	s.setupRoutes()

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the root handler
func (s *RESTServer) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server
func (s *RESTServer) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting REST API server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *RESTServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
