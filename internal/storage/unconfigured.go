package storage

import (
	"context"
	"time"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// Unconfigured is the gateway used when store credentials are absent
type Unconfigured struct{}

var _ Gateway = Unconfigured{}

func (Unconfigured) Configured() bool { return false }

func (Unconfigured) ListDevices(context.Context) ([]models.Device, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) InsertDevice(context.Context, *models.Device) ([]models.Device, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) UpdateDevice(context.Context, string, Patch) (*models.Device, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) UpsertDeviceSettings(context.Context, *models.DeviceSettings) ([]models.DeviceSettings, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) ListAlerts(context.Context) ([]models.Alert, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) InsertAlert(context.Context, *models.Alert) ([]models.Alert, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) UpdateAlert(context.Context, string, Patch) (*models.Alert, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) WeeklyAlerts(context.Context, time.Time) ([]models.WeeklyAlerts, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) MonthlyTrend(context.Context) ([]models.MonthlyTrend, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) AlertTypesSince(context.Context, time.Time) ([]models.AlertType, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) DeviceStatuses(context.Context) ([]models.DeviceStatus, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) AnalyticsSummary(context.Context) (*models.AnalyticsSummary, error) {
	return nil, ErrNotConfigured
}

func (Unconfigured) Close() error { return nil }
