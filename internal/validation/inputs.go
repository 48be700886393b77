package validation

import (
	"math"
	"strings"
	"time"

	"github.com/wildwatch/wildwatch-server/internal/models"
	"github.com/wildwatch/wildwatch-server/internal/normalize"
)

// Messages returned for device registration failures
const (
	MsgDeviceFieldsRequired = "Device ID and name are required"
	MsgDeviceFieldsEmpty    = "Device ID and name cannot be empty"
	MsgDeviceIDTaken        = "A device with this ID is already registered"
	MsgAlertIDRequired      = "Alert ID is required"
	MsgPhotoRequired        = "Photo file is required"
)

// DefaultConnectivity is assigned to devices registered without one
const DefaultConnectivity = "LoRa"

// CreateDeviceInput is a validated device registration
type CreateDeviceInput struct {
	DeviceID     string                `json:"device_id" validate:"required,max=64"`
	Name         string                `json:"name" validate:"required,max=128"`
	Location     models.DeviceLocation `json:"location"`
	Connectivity string                `json:"connectivity" validate:"max=32"`
}

// Device builds the record persisted for a new registration
func (in CreateDeviceInput) Device(now time.Time) models.Device {
	return models.Device{
		Record:           models.Record{CreatedAt: now},
		DeviceID:         in.DeviceID,
		Name:             in.Name,
		Location:         in.Location,
		Status:           models.DeviceStatusOnline,
		Battery:          100,
		SignalStrength:   95,
		Connectivity:     in.Connectivity,
		LastPing:         now,
		AlertsCount:      0,
		UptimePercentage: 100,
		UpdatedAt:        now,
	}
}

// ParseCreateDevice validates a device registration body.
// device_id and name must be present and non-empty after trimming.
func ParseCreateDevice(raw map[string]interface{}) (*CreateDeviceInput, error) {
	if isFalsy(raw["device_id"]) || isFalsy(raw["name"]) {
		return nil, New("device_id", "required", MsgDeviceFieldsRequired)
	}

	in := &CreateDeviceInput{
		DeviceID:     strings.TrimSpace(normalize.String(raw["device_id"], "")),
		Name:         strings.TrimSpace(normalize.String(raw["name"], "")),
		Location:     normalize.DeviceLocation(raw["location"], models.DefaultDeviceLocation()),
		Connectivity: normalize.String(raw["connectivity"], DefaultConnectivity),
	}

	if err := ValidateStruct(in); err != nil {
		ve := err.(*RequestValidationError)
		if in.DeviceID == "" || in.Name == "" {
			return nil, ve.withSummary(MsgDeviceFieldsEmpty)
		}
		return nil, ve
	}
	return in, nil
}

// CreateAlertInput is a validated alert insert
type CreateAlertInput struct {
	AlertID     string               `json:"alert_id" validate:"required"`
	DeviceID    string               `json:"device_id" validate:"required"`
	AlertType   string               `json:"alert_type" validate:"required,alert_type"`
	Severity    string               `json:"severity" validate:"required,severity"`
	Location    models.AlertLocation `json:"location"`
	Description string               `json:"description"`
	AudioURL    string               `json:"audio_url"`
	PhotoURL    string               `json:"photo_url"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Alert builds the record persisted for the insert
func (in CreateAlertInput) Alert() models.Alert {
	return models.Alert{
		AlertID:     in.AlertID,
		DeviceID:    in.DeviceID,
		AlertType:   models.AlertType(in.AlertType),
		Severity:    models.Severity(in.Severity),
		Location:    in.Location,
		Description: in.Description,
		AudioURL:    in.AudioURL,
		PhotoURL:    in.PhotoURL,
		Timestamp:   in.Timestamp,
	}
}

// ParseCreateAlert validates an alert body; a missing timestamp becomes now
func ParseCreateAlert(raw map[string]interface{}, now time.Time) (*CreateAlertInput, error) {
	in := &CreateAlertInput{
		AlertID:     strings.TrimSpace(normalize.String(raw["alert_id"], "")),
		DeviceID:    strings.TrimSpace(normalize.String(raw["device_id"], "")),
		AlertType:   normalize.String(raw["alert_type"], ""),
		Severity:    normalize.String(raw["severity"], ""),
		Location:    normalize.AlertLocation(raw["location"], models.AlertLocation{}),
		Description: normalize.String(raw["description"], ""),
		AudioURL:    normalize.String(raw["audio_url"], ""),
		PhotoURL:    normalize.String(raw["photo_url"], ""),
		Timestamp:   normalize.Time(raw["timestamp"], now),
	}
	if err := ValidateStruct(in); err != nil {
		return nil, err
	}
	return in, nil
}

// DeviceSettingsInput is a validated settings update
type DeviceSettingsInput struct {
	PingInterval     int    `json:"ping_interval" validate:"gte=0"`
	BatteryThreshold int    `json:"battery_threshold" validate:"gte=0,lte=100"`
	Connectivity     string `json:"connectivity" validate:"max=32"`
}

// Settings attaches the input to a device
func (in DeviceSettingsInput) Settings(deviceID string, now time.Time) models.DeviceSettings {
	return models.DeviceSettings{
		DeviceID:         deviceID,
		PingInterval:     in.PingInterval,
		BatteryThreshold: in.BatteryThreshold,
		Connectivity:     in.Connectivity,
		UpdatedAt:        now,
	}
}

// ParseDeviceSettings validates a settings body. Numeric fields may arrive
// as JSON numbers or numeric strings; anything else is rejected.
func ParseDeviceSettings(raw map[string]interface{}) (*DeviceSettingsInput, error) {
	var typeErrs []ValidationError
	intField := func(key string) int {
		v, ok := raw[key]
		if !ok || v == nil {
			return 0
		}
		f := normalize.Number(v, math.NaN())
		if _, isBool := v.(bool); isBool || math.IsNaN(f) {
			typeErrs = append(typeErrs, ValidationError{
				field: key, tag: "number", value: v, message: key + " must be a number",
			})
			return 0
		}
		return int(f)
	}

	in := &DeviceSettingsInput{
		PingInterval:     intField("ping_interval"),
		BatteryThreshold: intField("battery_threshold"),
		Connectivity:     normalize.String(raw["connectivity"], ""),
	}
	if len(typeErrs) > 0 {
		return nil, &RequestValidationError{errors: typeErrs}
	}
	if err := ValidateStruct(in); err != nil {
		return nil, err
	}
	return in, nil
}

// RespondInput is a validated alert response request
type RespondInput struct {
	AlertID   string `json:"alert_id" validate:"required"`
	Action    string `json:"action" validate:"required,max=64"`
	Timestamp string `json:"timestamp"`
	Location  string `json:"location"`
	AlertType string `json:"alert_type"`
}

// Request converts the input into the dispatch request
func (in RespondInput) Request() models.AlertResponseRequest {
	return models.AlertResponseRequest{
		AlertID:   in.AlertID,
		Action:    in.Action,
		Timestamp: in.Timestamp,
		Location:  in.Location,
		AlertType: models.AlertType(in.AlertType),
	}
}

// ParseRespond validates a respond body; action defaults to "respond"
func ParseRespond(raw map[string]interface{}) (*RespondInput, error) {
	in := &RespondInput{
		AlertID:   strings.TrimSpace(normalize.String(raw["alert_id"], "")),
		Action:    normalize.String(raw["action"], "respond"),
		Timestamp: normalize.String(raw["timestamp"], ""),
		Location:  normalize.String(raw["location"], ""),
		AlertType: normalize.String(raw["alert_type"], ""),
	}
	if err := ValidateStruct(in); err != nil {
		return nil, err
	}
	return in, nil
}

// isFalsy matches values a JSON client would consider unset
func isFalsy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	}
	return false
}
