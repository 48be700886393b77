package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/client"
	"github.com/wildwatch/wildwatch-server/internal/media"
	"github.com/wildwatch/wildwatch-server/internal/respond"
	"github.com/wildwatch/wildwatch-server/internal/settings"
	"github.com/wildwatch/wildwatch-server/internal/validation"
)

// MsgDeviceIDRequired is returned when adding a device without an id
const MsgDeviceIDRequired = "Please enter a device ID."

// Server exposes the dashboard state, actions and map stream
type Server struct {
	agent      *Agent
	store      *settings.Store
	ws         http.HandlerFunc
	production bool
	router     chi.Router
	server     *http.Server
}

// NewServer creates the dashboard HTTP server. ws serves the map stream.
func NewServer(agent *Agent, store *settings.Store, ws http.HandlerFunc, production bool) *Server {
	s := &Server{
		agent:      agent,
		store:      store,
		ws:         ws,
		production: production,
		router:     chi.NewRouter(),
	}
	s.setupRoutes()
	s.server = &http.Server{
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/ws", s.ws)
	s.router.Get("/state", s.HandleState)
	s.router.Get("/status", s.HandleStatus)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/actions", func(r chi.Router) {
		r.Post("/alerts/{id}/respond", s.HandleRespond)
		r.Post("/alerts/{id}/photo", s.HandleUploadPhoto)
		r.Post("/devices", s.HandleAddDevice)
		r.Put("/devices/{id}/settings", s.HandleApplySettings)
		r.Post("/refresh", s.HandleRefresh)
	})

	s.router.Route("/settings", func(r chi.Router) {
		r.Get("/", s.HandleGetSettings)
		r.Put("/", s.HandleSaveSettings)
		r.Post("/reset", s.HandleResetSettings)
	})
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe starts the server
func (s *Server) ListenAndServe(addr string) error {
	s.server.Addr = addr
	log.Info().Str("addr", addr).Msg("Starting dashboard server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// HandleState returns the dashboard snapshot
func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.agent.Snapshot())
}

// HandleStatus reports API reachability
func (s *Server) HandleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"api": s.agent.APIStatus(r.Context())})
}

// HandleRespond runs the respond action
func (s *Server) HandleRespond(w http.ResponseWriter, r *http.Request) {
	out, err := s.agent.Respond(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, respond.ErrUnknownAlert):
		s.respondError(w, http.StatusNotFound, "Alert not found", nil)
	case errors.Is(err, respond.ErrResolved), errors.Is(err, respond.ErrInFlight):
		s.respondError(w, http.StatusConflict, err.Error(), nil)
	case err != nil:
		s.respondError(w, http.StatusInternalServerError, respond.MsgRespondFailed, err)
	default:
		s.respondJSON(w, http.StatusOK, out)
	}
}

// HandleUploadPhoto forwards a photo to the API
func (s *Server) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, media.DefaultMaxBytes+(1<<20))
	f, fh, err := r.FormFile("photo")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, validation.MsgPhotoRequired, err)
		return
	}
	defer f.Close()

	res, err := s.agent.UploadPhoto(r.Context(), chi.URLParam(r, "id"), fh.Filename, f)
	switch {
	case errors.Is(err, respond.ErrInFlight):
		s.respondError(w, http.StatusConflict, err.Error(), nil)
	case err != nil:
		s.respondError(w, http.StatusBadGateway, client.UserMessage(err, respond.MsgPhotoFailed), err)
	default:
		s.respondJSON(w, http.StatusOK, res)
	}
}

// HandleAddDevice registers a device at the configured map center
func (s *Server) HandleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DeviceID string `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.DeviceID) == "" {
		s.respondError(w, http.StatusBadRequest, MsgDeviceIDRequired, nil)
		return
	}

	created, err := s.agent.AddDevice(r.Context(), req.DeviceID)
	if err != nil {
		s.respondError(w, http.StatusBadGateway, client.UserMessage(err, "Failed to add device"), err)
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

// HandleApplySettings pushes saved device defaults to a device
func (s *Server) HandleApplySettings(w http.ResponseWriter, r *http.Request) {
	body, err := s.agent.ApplyDeviceSettings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadGateway, client.UserMessage(err, "Failed to apply device settings"), err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// HandleRefresh requests an immediate refresh
func (s *Server) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	s.agent.TriggerRefresh()
	w.WriteHeader(http.StatusAccepted)
}

// HandleGetSettings returns the saved settings
func (s *Server) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	got, _ := s.store.Load(r.Context())
	s.respondJSON(w, http.StatusOK, got)
}

// HandleSaveSettings replaces the saved settings
func (s *Server) HandleSaveSettings(w http.ResponseWriter, r *http.Request) {
	var in settings.Settings
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		s.respondError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}

	if err := s.store.Save(r.Context(), in); err != nil {
		if validation.IsValidationError(err) {
			s.respondError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		s.respondError(w, http.StatusInternalServerError, "Could not save settings. Please try again.", err)
		return
	}
	s.respondJSON(w, http.StatusOK, in)
}

// HandleResetSettings restores the defaults
func (s *Server) HandleResetSettings(w http.ResponseWriter, r *http.Request) {
	d, err := s.store.Reset(r.Context())
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Could not reset settings", err)
		return
	}
	s.respondJSON(w, http.StatusOK, d)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(response)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string, cause error) {
	body := map[string]string{"error": message}
	if cause != nil && !s.production {
		body["detail"] = cause.Error()
	}
	s.respondJSON(w, status, body)
}
