package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/media"
	"github.com/wildwatch/wildwatch-server/internal/validation"
)

// multipartOverhead is allowed on top of the file limit for form framing
const multipartOverhead = 1 << 20

// HandleListAlerts lists alerts
func (s *RESTServer) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.alerts.List(r.Context()))
}

// HandleCreateAlert inserts an alert
func (s *RESTServer) HandleCreateAlert(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, MsgInvalidJSON, err)
		return
	}

	created, err := s.alerts.Create(r.Context(), raw)
	if err != nil {
		s.respondFailure(w, err, "Failed to create alert")
		return
	}
	s.respondJSON(w, http.StatusCreated, created)
}

// HandleRespond dispatches a response team
func (s *RESTServer) HandleRespond(w http.ResponseWriter, r *http.Request) {
	raw, err := decodeBody(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, MsgInvalidJSON, err)
		return
	}

	in, err := validation.ParseRespond(raw)
	if err != nil {
		s.respondFailure(w, err, "Failed to process alert response")
		return
	}

	resp, err := s.dispatcher.Respond(r.Context(), in.Request())
	if err != nil {
		s.respondFailure(w, err, "Failed to process alert response")
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

// HandleUploadPhoto stores a multipart photo and links it to the alert
func (s *RESTServer) HandleUploadPhoto(w http.ResponseWriter, r *http.Request) {
	alertID := strings.TrimSpace(chi.URLParam(r, "alertId"))
	if alertID == "" {
		s.respondError(w, http.StatusBadRequest, validation.MsgAlertIDRequired, nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, s.photos.MaxBytes()+multipartOverhead)
	if err := r.ParseMultipartForm(s.photos.MaxBytes()); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusBadRequest, media.MsgTooLarge, nil)
			return
		}
		s.respondError(w, http.StatusBadRequest, validation.MsgPhotoRequired, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	var fh *multipart.FileHeader
	if files := r.MultipartForm.File["photo"]; len(files) > 0 {
		fh = files[0]
	}
	stored, err := s.photos.Accept(r.Context(), fh)
	if err != nil {
		s.respondFailure(w, err, "Failed to upload photo")
		return
	}

	result, err := s.alerts.AttachPhoto(r.Context(), alertID, stored.URL)
	if err != nil {
		if derr := s.photos.Discard(r.Context(), stored); derr != nil {
			log.Warn().Err(derr).Str("alert_id", alertID).Str("photo_url", stored.URL).Msg("Failed to remove unlinked photo")
		}
		s.respondFailure(w, err, "Failed to upload photo")
		return
	}

	log.Info().
		Str("alert_id", alertID).
		Str("photo_url", result.PhotoURL).
		Int64("size", stored.Size).
		Msg("Alert photo uploaded")
	s.respondJSON(w, http.StatusOK, result)
}
