package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// ========== Device Methods ==========

const deviceColumns = `id, device_id, name, location, status, battery, signal_strength,
               connectivity, last_ping, alerts_count, uptime_percentage, created_at, updated_at`

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row scanner) (*models.Device, error) {
	device := &models.Device{}
	err := row.Scan(
		&device.ID, &device.DeviceID, &device.Name, &device.Location, &device.Status,
		&device.Battery, &device.SignalStrength, &device.Connectivity, &device.LastPing,
		&device.AlertsCount, &device.UptimePercentage, &device.CreatedAt, &device.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return device, nil
}

func collectDevices(rows *sql.Rows) ([]models.Device, error) {
	defer rows.Close()

	devices := []models.Device{}
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *device)
	}
	return devices, rows.Err()
}

// ListDevices lists all devices
func (s *PostgresStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	query := "SELECT " + deviceColumns + " FROM devices ORDER BY id ASC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("query", EntityDevices, err)
	}

	devices, err := collectDevices(rows)
	return devices, storeErr("scan", EntityDevices, err)
}

// InsertDevice inserts a device and returns the stored rows
func (s *PostgresStore) InsertDevice(ctx context.Context, device *models.Device) ([]models.Device, error) {
	now := s.now().UTC()
	device.CreatedAt = now
	device.UpdatedAt = now
	if device.LastPing.IsZero() {
		device.LastPing = now
	}

	query := `
        INSERT INTO devices (
            device_id, name, location, status, battery, signal_strength,
            connectivity, last_ping, alerts_count, uptime_percentage, created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
        )
        RETURNING ` + deviceColumns

	rows, err := s.db.QueryContext(ctx, query,
		device.DeviceID, device.Name, device.Location, device.Status, device.Battery,
		device.SignalStrength, device.Connectivity, device.LastPing, device.AlertsCount,
		device.UptimePercentage, device.CreatedAt, device.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, storeErr("insert", EntityDevices, ErrDuplicateKey)
		}
		return nil, storeErr("insert", EntityDevices, err)
	}

	devices, err := collectDevices(rows)
	return devices, storeErr("insert", EntityDevices, err)
}

// UpdateDevice applies patch to the device with the given natural key
func (s *PostgresStore) UpdateDevice(ctx context.Context, deviceID string, patch Patch) (*models.Device, error) {
	stamped := Patch{"updated_at": s.now().UTC()}
	for k, v := range patch {
		stamped[k] = v
	}

	query, args, err := updateSQL(EntityDevices, "device_id", deviceID, stamped, deviceColumns)
	if err != nil {
		return nil, storeErr("update", EntityDevices, err)
	}

	device, err := scanDevice(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, storeErr("update", EntityDevices, ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("update", EntityDevices, err)
	}
	return device, nil
}

// UpsertDeviceSettings replaces the settings row for a device, creating it if needed
func (s *PostgresStore) UpsertDeviceSettings(ctx context.Context, settings *models.DeviceSettings) ([]models.DeviceSettings, error) {
	settings.UpdatedAt = s.now().UTC()

	query := `
        INSERT INTO device_settings (device_id, ping_interval, battery_threshold, connectivity, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (device_id) DO UPDATE SET
            ping_interval = EXCLUDED.ping_interval,
            battery_threshold = EXCLUDED.battery_threshold,
            connectivity = EXCLUDED.connectivity,
            updated_at = EXCLUDED.updated_at
        RETURNING device_id, ping_interval, battery_threshold, connectivity, updated_at`

	row := s.db.QueryRowContext(ctx, query,
		settings.DeviceID, settings.PingInterval, settings.BatteryThreshold,
		settings.Connectivity, settings.UpdatedAt,
	)

	var stored models.DeviceSettings
	err := row.Scan(&stored.DeviceID, &stored.PingInterval, &stored.BatteryThreshold,
		&stored.Connectivity, &stored.UpdatedAt)
	if err != nil {
		return nil, storeErr("upsert", EntityDeviceSettings, err)
	}

	return []models.DeviceSettings{stored}, nil
}
