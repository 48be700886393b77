package resource

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/fallback"
	"github.com/wildwatch/wildwatch-server/internal/models"
	"github.com/wildwatch/wildwatch-server/internal/storage"
	"github.com/wildwatch/wildwatch-server/internal/validation"
)

// MsgSettingsUpdated is echoed when settings cannot be persisted
const MsgSettingsUpdated = "Device settings updated successfully"

// DeviceService handles device reads, registration, settings and health
type DeviceService struct {
	store storage.Gateway
	data  *fallback.Dataset
	now   func() time.Time
}

func NewDeviceService(store storage.Gateway, data *fallback.Dataset) *DeviceService {
	return &DeviceService{store: store, data: data, now: time.Now}
}

// List returns every device. It never fails: store errors degrade to
// fallback data. A configured store's empty result is returned as-is.
func (s *DeviceService) List(ctx context.Context) []models.Device {
	start := time.Now()
	devices, err := s.store.ListDevices(ctx)
	observe(s.store, "list", storage.EntityDevices, start, err)
	if err != nil {
		servingFallback("devices", err)
		return s.data.Devices()
	}
	return clampDevices(devices)
}

// clampDevices forces store rows into their valid numeric ranges
func clampDevices(devices []models.Device) []models.Device {
	for i := range devices {
		devices[i].Clamp()
	}
	return devices
}

// Create validates and registers a device. The result always holds the
// created record; fallback mode returns exactly one.
func (s *DeviceService) Create(ctx context.Context, raw map[string]interface{}) ([]models.Device, error) {
	in, err := validation.ParseCreateDevice(raw)
	if err != nil {
		return nil, err
	}

	device := in.Device(s.now().UTC())

	if !s.store.Configured() {
		created, ok := s.data.AddDevice(device)
		if !ok {
			return nil, validation.New("device_id", "unique", validation.MsgDeviceIDTaken)
		}
		log.Info().
			Str("device_id", created.DeviceID).
			Str("name", created.Name).
			Msg("Added device to fallback dataset")
		return []models.Device{created}, nil
	}

	start := time.Now()
	created, err := s.store.InsertDevice(ctx, &device)
	observe(s.store, "insert", storage.EntityDevices, start, err)
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil, validation.New("device_id", "unique", validation.MsgDeviceIDTaken)
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}

// SettingsResult is either the stored rows or, without a store, an echo
type SettingsResult struct {
	Rows []models.DeviceSettings
	Echo *models.DeviceSettingsEcho
}

// Body returns the value to encode in the response
func (r SettingsResult) Body() interface{} {
	if r.Echo != nil {
		return r.Echo
	}
	return r.Rows
}

// UpdateSettings upserts the settings row for a device. Without a store
// nothing is persisted and the submitted values are echoed.
func (s *DeviceService) UpdateSettings(ctx context.Context, deviceID string, raw map[string]interface{}) (SettingsResult, error) {
	in, err := validation.ParseDeviceSettings(raw)
	if err != nil {
		return SettingsResult{}, err
	}

	settings := in.Settings(deviceID, s.now().UTC())

	if !s.store.Configured() {
		log.Info().
			Str("device_id", deviceID).
			Int("ping_interval", settings.PingInterval).
			Int("battery_threshold", settings.BatteryThreshold).
			Str("connectivity", settings.Connectivity).
			Msg("Device settings received without store")
		return SettingsResult{Echo: &models.DeviceSettingsEcho{
			Message:  MsgSettingsUpdated,
			Settings: settings,
		}}, nil
	}

	start := time.Now()
	rows, err := s.store.UpsertDeviceSettings(ctx, &settings)
	observe(s.store, "upsert", storage.EntityDeviceSettings, start, err)
	if err != nil {
		return SettingsResult{}, err
	}
	return SettingsResult{Rows: rows}, nil
}

// Health aggregates the authoritative device collection: the store's when
// it answers with at least one device, otherwise the fallback dataset.
func (s *DeviceService) Health(ctx context.Context) models.DeviceHealth {
	devices, err := s.store.ListDevices(ctx)
	switch {
	case err != nil:
		servingFallback("device health", err)
		devices = s.data.Devices()
	case len(devices) == 0:
		devices = s.data.Devices()
	default:
		devices = clampDevices(devices)
	}
	return Aggregate(devices, s.now().UTC())
}

// Aggregate computes fleet health. The mean denominator is max(count, 1).
func Aggregate(devices []models.Device, now time.Time) models.DeviceHealth {
	online := 0
	var battery, uptime float64
	for _, d := range devices {
		if d.Status == models.DeviceStatusOnline {
			online++
		}
		battery += d.Battery
		uptime += d.UptimePercentage
	}

	denom := float64(len(devices))
	if denom < 1 {
		denom = 1
	}

	return models.DeviceHealth{
		TotalDevices:   len(devices),
		OnlineDevices:  online,
		OfflineDevices: len(devices) - online,
		AverageBattery: math.Round(battery / denom),
		AverageUptime:  math.Round(uptime/denom*100) / 100,
		LastUpdated:    now,
	}
}

// ApplyStatus records a status report from a sensor. It reports false when
// the device is unknown.
func (s *DeviceService) ApplyStatus(ctx context.Context, report models.DeviceStatusReport) (bool, error) {
	if report.DeviceID == "" {
		return false, validation.New("device_id", "required", "device_id is required")
	}

	if !s.store.Configured() {
		_, ok := s.data.UpdateDevice(report.DeviceID, func(d *models.Device) {
			applyReport(d, report)
		})
		return ok, nil
	}

	patch := storage.Patch{}
	if report.Status.Valid() {
		patch["status"] = string(report.Status)
	}
	if report.Battery != nil {
		patch["battery"] = models.ClampPercent(*report.Battery)
	}
	if report.SignalStrength != nil {
		patch["signal_strength"] = models.ClampPercent(*report.SignalStrength)
	}
	if report.LastPing != nil {
		patch["last_ping"] = report.LastPing.UTC()
	} else {
		patch["last_ping"] = s.now().UTC()
	}

	start := time.Now()
	_, err := s.store.UpdateDevice(ctx, report.DeviceID, patch)
	observe(s.store, "update", storage.EntityDevices, start, err)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func applyReport(d *models.Device, report models.DeviceStatusReport) {
	if report.Status.Valid() {
		d.Status = report.Status
	}
	if report.Battery != nil {
		d.Battery = models.ClampPercent(*report.Battery)
	}
	if report.SignalStrength != nil {
		d.SignalStrength = models.ClampPercent(*report.SignalStrength)
	}
	if report.LastPing != nil {
		d.LastPing = report.LastPing.UTC()
	} else {
		d.LastPing = time.Now().UTC()
	}
}
