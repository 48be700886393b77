package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// DeviceStatus is the reported operating state of a sensor
type DeviceStatus string

const (
	DeviceStatusOnline      DeviceStatus = "online"
	DeviceStatusOffline     DeviceStatus = "offline"
	DeviceStatusMaintenance DeviceStatus = "maintenance"
)

// Valid reports whether s is one of the known statuses
func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceStatusOnline, DeviceStatusOffline, DeviceStatusMaintenance:
		return true
	}
	return false
}

// Fallback coordinates used when a new device arrives without a usable location.
const (
	DefaultDeviceLat  = 11.7
	DefaultDeviceLng  = 76.58
	DefaultDeviceZone = "New Device Zone"
)

// DeviceLocation is where a sensor is installed
type DeviceLocation struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Zone string  `json:"zone"`
}

// DefaultDeviceLocation returns the placement assigned to devices registered without one
func DefaultDeviceLocation() DeviceLocation {
	return DeviceLocation{Lat: DefaultDeviceLat, Lng: DefaultDeviceLng, Zone: DefaultDeviceZone}
}

// Value implements driver.Valuer
func (l DeviceLocation) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *DeviceLocation) Scan(value interface{}) error {
	if value == nil {
		*l = DeviceLocation{}
		return nil
	}
	return scanJSON(value, l)
}

// Device represents a field sensor
type Device struct {
	Record

	DeviceID         string         `json:"device_id" db:"device_id"`
	Name             string         `json:"name" db:"name"`
	Location         DeviceLocation `json:"location" db:"location"`
	Status           DeviceStatus   `json:"status" db:"status"`
	Battery          float64        `json:"battery" db:"battery"`
	SignalStrength   float64        `json:"signal_strength" db:"signal_strength"`
	Connectivity     string         `json:"connectivity" db:"connectivity"`
	LastPing         time.Time      `json:"last_ping" db:"last_ping"`
	AlertsCount      int            `json:"alerts_count" db:"alerts_count"`
	UptimePercentage float64        `json:"uptime_percentage" db:"uptime_percentage"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// Clamp forces every ranged field into its valid interval
func (d *Device) Clamp() {
	d.Battery = ClampPercent(d.Battery)
	d.SignalStrength = ClampPercent(d.SignalStrength)
	d.UptimePercentage = ClampPercent(d.UptimePercentage)
	if d.AlertsCount < 0 {
		d.AlertsCount = 0
	}
	if !d.Status.Valid() {
		d.Status = DeviceStatusOffline
	}
}

// ClampPercent limits v to [0,100]; NaN becomes 0
func ClampPercent(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// DeviceStatusReport is a status message published by a sensor in the field
type DeviceStatusReport struct {
	DeviceID       string       `json:"device_id"`
	Status         DeviceStatus `json:"status"`
	Battery        *float64     `json:"battery,omitempty"`
	SignalStrength *float64     `json:"signal_strength,omitempty"`
	LastPing       *time.Time   `json:"last_ping,omitempty"`
}

// DeviceHealth is the fleet-wide aggregate computed on every request
type DeviceHealth struct {
	TotalDevices   int       `json:"total_devices"`
	OnlineDevices  int       `json:"online_devices"`
	OfflineDevices int       `json:"offline_devices"`
	AverageBattery float64   `json:"average_battery"`
	AverageUptime  float64   `json:"average_uptime"`
	LastUpdated    time.Time `json:"last_updated"`
}
