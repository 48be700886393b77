package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// Common errors
var (
	// ErrNotConfigured means the store credentials were absent at startup.
	// It is permanent for the process lifetime.
	ErrNotConfigured = errors.New("store not configured")
	ErrNotFound      = errors.New("not found")
	ErrDuplicateKey  = errors.New("duplicate key")
	ErrInvalidData   = errors.New("invalid data")
)

// StoreError classifies a failed call against a configured store
type StoreError struct {
	Op     string
	Entity Entity
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// storeErr wraps err unless it is nil or already classified
func storeErr(op string, entity Entity, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) || errors.Is(err, ErrNotConfigured) {
		return err
	}
	return &StoreError{Op: op, Entity: entity, Err: err}
}

// IsStoreError reports whether err came from a configured but failing store
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}

// Gateway is the persistence contract used by the resource handlers.
// Every method either returns data or a *StoreError; when the gateway
// is not configured every method returns ErrNotConfigured.
type Gateway interface {
	Configured() bool

	// Device methods
	ListDevices(ctx context.Context) ([]models.Device, error)
	InsertDevice(ctx context.Context, device *models.Device) ([]models.Device, error)
	UpdateDevice(ctx context.Context, deviceID string, patch Patch) (*models.Device, error)
	UpsertDeviceSettings(ctx context.Context, settings *models.DeviceSettings) ([]models.DeviceSettings, error)

	// Alert methods
	ListAlerts(ctx context.Context) ([]models.Alert, error)
	InsertAlert(ctx context.Context, alert *models.Alert) ([]models.Alert, error)
	UpdateAlert(ctx context.Context, alertID string, patch Patch) (*models.Alert, error)

	// Analytics methods
	WeeklyAlerts(ctx context.Context, since time.Time) ([]models.WeeklyAlerts, error)
	MonthlyTrend(ctx context.Context) ([]models.MonthlyTrend, error)
	AlertTypesSince(ctx context.Context, since time.Time) ([]models.AlertType, error)
	DeviceStatuses(ctx context.Context) ([]models.DeviceStatus, error)
	AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error)

	// Close the store
	Close() error
}
