package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/auth"
	"github.com/wildwatch/wildwatch-server/internal/storage"
	"github.com/wildwatch/wildwatch-server/internal/validation"
)

// Error messages returned to clients
const (
	MsgNotFound          = "Endpoint not found"
	MsgInvalidJSON       = "Invalid JSON body"
	MsgStoreRequired     = "Store not configured. Please set up store credentials."
	MsgAuthNotConfigured = "Authentication service not configured"
	MsgNoToken           = "No token"
	MsgInvalidToken      = "Invalid token"
)

// HandleRoot reports liveness
func (s *RESTServer) HandleRoot(w http.ResponseWriter, r *http.Request) {
	version := s.config.Server.Version
	if version == "" {
		version = "1.0.0"
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":   "WildWatch API is running",
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339Nano),
		"version":   version,
	})
}

// HandleNotFound answers unknown routes
func (s *RESTServer) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":  MsgNotFound,
		"path":   r.URL.Path,
		"method": r.Method,
	})
}

// HandleGetCurrentUser returns the user behind the bearer token
func (s *RESTServer) HandleGetCurrentUser(w http.ResponseWriter, r *http.Request) {
	if s.sessions == nil || !s.sessions.Configured() {
		s.respondError(w, http.StatusServiceUnavailable, MsgAuthNotConfigured, nil)
		return
	}

	user, err := s.sessions.GetUser(r.Context(), auth.BearerToken(r))
	switch {
	case errors.Is(err, auth.ErrNoToken):
		s.respondError(w, http.StatusUnauthorized, MsgNoToken, nil)
		return
	case err != nil:
		s.respondError(w, http.StatusUnauthorized, MsgInvalidToken, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{"user": user})
}

// decodeBody reads a JSON object body. An empty body decodes to an empty map.
func decodeBody(r *http.Request) (map[string]interface{}, error) {
	raw := map[string]interface{}{}
	if r.Body == nil {
		return raw, nil
	}
	err := json.NewDecoder(r.Body).Decode(&raw)
	if errors.Is(err, io.EOF) {
		return map[string]interface{}{}, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// respondFailure maps a service error onto a status code
func (s *RESTServer) respondFailure(w http.ResponseWriter, err error, message string) {
	switch {
	case validation.IsValidationError(err):
		s.respondError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, storage.ErrNotConfigured):
		s.respondError(w, http.StatusServiceUnavailable, MsgStoreRequired, nil)
	default:
		log.Error().Err(err).Msg(message)
		s.respondError(w, http.StatusInternalServerError, message, err)
	}
}

// respondJSON responds with JSON
func (s *RESTServer) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
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

// respondError responds with error. The cause is only exposed outside production.
func (s *RESTServer) respondError(w http.ResponseWriter, status int, message string, cause error) {
	body := map[string]string{"error": message}
	if cause != nil && !s.config.Server.Production() {
		body["detail"] = cause.Error()
	}
	s.respondJSON(w, status, body)
}
