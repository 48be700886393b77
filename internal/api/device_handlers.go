package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HandleListDevices lists devices
func (s *RESTServer) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.devices.List(r.Context()))
}

// HandleCreateDevice registers a device
func (s *RESTServer) HandleCreateDevice(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, MsgInvalidJSON, err)
		return
	}

	created, err := s.devices.Create(r.Context(), raw)
	if err != nil {
		s.respondFailure(w, err, "Failed to create device")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

// HandleUpdateDeviceSettings upserts device settings
func (s *RESTServer) HandleUpdateDeviceSettings(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, MsgInvalidJSON, err)
		return
	}

	result, err := s.devices.UpdateSettings(r.Context(), chi.URLParam(r, "id"), raw)
	if err != nil {
		s.respondFailure(w, err, "Failed to update device settings")
		return
	}
	s.respondJSON(w, http.StatusOK, result.Body())
}

// HandleDeviceHealth returns the fleet aggregate
func (s *RESTServer) HandleDeviceHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.devices.Health(r.Context()))
}
