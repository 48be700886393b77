package models

import "time"

// DeviceSettings are the per-device tuning values pushed from the dashboard
type DeviceSettings struct {
	DeviceID         string    `json:"device_id" db:"device_id"`
	PingInterval     int       `json:"ping_interval" db:"ping_interval"`
	BatteryThreshold int       `json:"battery_threshold" db:"battery_threshold"`
	Connectivity     string    `json:"connectivity" db:"connectivity"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// DeviceSettingsEcho is answered when no store is available to upsert into
type DeviceSettingsEcho struct {
	Message  string         `json:"message"`
	Settings DeviceSettings `json:"settings"`
}
