package resource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/fallback"
	"github.com/wildwatch/wildwatch-server/internal/models"
	"github.com/wildwatch/wildwatch-server/internal/storage"
	"github.com/wildwatch/wildwatch-server/internal/validation"
)

// AlertService handles alert reads, inserts, photos and resolution
type AlertService struct {
	store storage.Gateway
	data  *fallback.Dataset
	now   func() time.Time
}

func NewAlertService(store storage.Gateway, data *fallback.Dataset) *AlertService {
	return &AlertService{store: store, data: data, now: time.Now}
}

// List returns every alert, newest first when read from the store.
// It never fails: store errors degrade to fallback data.
func (s *AlertService) List(ctx context.Context) []models.Alert {
	start := time.Now()
	alerts, err := s.store.ListAlerts(ctx)
	observe(s.store, "list", storage.EntityAlerts, start, err)
	if err != nil {
		servingFallback("alerts", err)
		return s.data.Alerts()
	}
	return alerts
}

// Create inserts an alert. Alerts are only accepted by a configured store;
// otherwise storage.ErrNotConfigured is returned before validation.
func (s *AlertService) Create(ctx context.Context, raw map[string]interface{}) ([]models.Alert, error) {
	if !s.store.Configured() {
		return nil, storage.ErrNotConfigured
	}

	in, err := validation.ParseCreateAlert(raw, s.now().UTC())
	if err != nil {
		return nil, err
	}

	alert := in.Alert()
	start := time.Now()
	created, err := s.store.InsertAlert(ctx, &alert)
	observe(s.store, "insert", storage.EntityAlerts, start, err)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AttachPhoto links a stored photo to an alert by alert_id. With a store
// the canonical stored URL is returned; without one the fallback alert is
// updated, or synthesized when the id is unknown.
func (s *AlertService) AttachPhoto(ctx context.Context, alertID, photoURL string) (models.PhotoUploadResult, error) {
	if !s.store.Configured() {
		alert, synthesized := s.data.AttachPhoto(alertID, photoURL)
		if synthesized {
			log.Info().Str("alert_id", alertID).Msg("Synthesized fallback alert for orphan photo")
		}
		return models.PhotoUploadResult{Success: true, PhotoURL: alert.PhotoURL, Mock: true}, nil
	}

	start := time.Now()
	alert, err := s.store.UpdateAlert(ctx, alertID, storage.Patch{"photo_url": photoURL})
	observe(s.store, "update", storage.EntityAlerts, start, err)
	if err != nil {
		return models.PhotoUploadResult{}, fmt.Errorf("attach photo to %s: %w", alertID, err)
	}
	return models.PhotoUploadResult{Success: true, PhotoURL: alert.PhotoURL}, nil
}

// MarkResolved flags an alert resolved in whichever collection is
// authoritative. It reports false for unknown alerts.
func (s *AlertService) MarkResolved(ctx context.Context, alertID string) (bool, error) {
	if !s.store.Configured() {
		return s.data.ResolveAlert(alertID), nil
	}

	start := time.Now()
	_, err := s.store.UpdateAlert(ctx, alertID, storage.Patch{"resolved": true})
	observe(s.store, "update", storage.EntityAlerts, start, err)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
