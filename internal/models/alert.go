package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AlertType is the acoustic event class detected by a sensor
type AlertType string

const (
	AlertTypeGunshot        AlertType = "gunshot"
	AlertTypeChainsaw       AlertType = "chainsaw"
	AlertTypeVehicle        AlertType = "vehicle"
	AlertTypeAnimalDistress AlertType = "animal_distress"
)

// Valid reports whether t is a known alert type
func (t AlertType) Valid() bool {
	switch t {
	case AlertTypeGunshot, AlertTypeChainsaw, AlertTypeVehicle, AlertTypeAnimalDistress:
		return true
	}
	return false
}

// Severity represents alert priority
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// Valid reports whether s is a known severity
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// AlertLocation is where an alert was detected
type AlertLocation struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Name string  `json:"name"`
}

// Value implements driver.Valuer
func (l AlertLocation) Value() (driver.Value, error) {
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *AlertLocation) Scan(value interface{}) error {
	if value == nil {
		*l = AlertLocation{}
		return nil
	}
	return scanJSON(value, l)
}

// Alert represents a detection raised by a sensor.
// DeviceID is a weak reference; the device may not exist.
type Alert struct {
	Record

	AlertID     string        `json:"alert_id" db:"alert_id"`
	DeviceID    string        `json:"device_id" db:"device_id"`
	AlertType   AlertType     `json:"alert_type" db:"alert_type"`
	Severity    Severity      `json:"severity" db:"severity"`
	Location    AlertLocation `json:"location" db:"location"`
	Description string        `json:"description" db:"description"`
	AudioURL    string        `json:"audio_url" db:"audio_url"`
	PhotoURL    string        `json:"photo_url,omitempty" db:"photo_url"`
	Timestamp   time.Time     `json:"timestamp" db:"timestamp"`
	Resolved    bool          `json:"resolved" db:"resolved"`
}

// AlertResponseRequest is the body of a respond action
type AlertResponseRequest struct {
	AlertID   string    `json:"alert_id"`
	Action    string    `json:"action"`
	Timestamp string    `json:"timestamp"`
	Location  string    `json:"location"`
	AlertType AlertType `json:"alert_type"`
}

// AlertResponse confirms that a response team was dispatched
type AlertResponse struct {
	Success          bool      `json:"success"`
	Message          string    `json:"message"`
	AlertID          string    `json:"alert_id"`
	Action           string    `json:"action"`
	Timestamp        string    `json:"timestamp"`
	Location         string    `json:"location"`
	AlertType        AlertType `json:"alert_type"`
	ResponseID       string    `json:"response_id"`
	EstimatedArrival time.Time `json:"estimated_arrival"`
}

// PhotoUploadResult is returned after an alert photo is stored
type PhotoUploadResult struct {
	Success  bool   `json:"success"`
	PhotoURL string `json:"photo_url"`
	Mock     bool   `json:"mock,omitempty"`
}
