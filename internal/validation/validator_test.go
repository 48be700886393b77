package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

var now = time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)

func TestGetValidator_Singleton(t *testing.T) {
	assert.Same(t, GetValidator(), GetValidator())
}

func TestValidateStruct_UsesJSONNames(t *testing.T) {
	err := ValidateStruct(&RespondInput{Action: "respond"})

	require.Error(t, err)
	ve, ok := err.(*RequestValidationError)
	require.True(t, ok)
	require.Len(t, ve.Errors(), 1)
	assert.Equal(t, "alert_id", ve.Errors()[0].Field())
	assert.Equal(t, "required", ve.Errors()[0].Tag())
	assert.Equal(t, "alert_id is required", ve.Error())
}

func TestParseCreateDevice(t *testing.T) {
	tests := []struct {
		name    string
		raw     map[string]interface{}
		wantErr string
	}{
		{"missing name", map[string]interface{}{"device_id": "SEN-099"}, MsgDeviceFieldsRequired},
		{"empty id", map[string]interface{}{"device_id": "", "name": "X"}, MsgDeviceFieldsRequired},
		{"whitespace name", map[string]interface{}{"device_id": "SEN-099", "name": "   "}, MsgDeviceFieldsEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := ParseCreateDevice(tt.raw)
			assert.Nil(t, in)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestParseCreateDevice_Defaults(t *testing.T) {
	in, err := ParseCreateDevice(map[string]interface{}{
		"device_id": "  SEN-099 ",
		"name":      " Ridge Sensor ",
	})
	require.NoError(t, err)

	assert.Equal(t, "SEN-099", in.DeviceID)
	assert.Equal(t, "Ridge Sensor", in.Name)
	assert.Equal(t, models.DefaultDeviceLocation(), in.Location)
	assert.Equal(t, DefaultConnectivity, in.Connectivity)

	d := in.Device(now)
	assert.Equal(t, models.DeviceStatusOnline, d.Status)
	assert.Equal(t, 100.0, d.Battery)
	assert.Equal(t, 95.0, d.SignalStrength)
	assert.Equal(t, 100.0, d.UptimePercentage)
	assert.Equal(t, now, d.LastPing)
}

func TestParseCreateDevice_PartialLocation(t *testing.T) {
	in, err := ParseCreateDevice(map[string]interface{}{
		"device_id": "SEN-100",
		"name":      "Gorge",
		"location":  map[string]interface{}{"lat": 11.8},
	})
	require.NoError(t, err)
	assert.Equal(t, models.DeviceLocation{Lat: 11.8, Lng: models.DefaultDeviceLng, Zone: models.DefaultDeviceZone}, in.Location)
}

func TestParseCreateAlert(t *testing.T) {
	in, err := ParseCreateAlert(map[string]interface{}{
		"alert_id":   "ALT-100",
		"device_id":  "SEN-001",
		"alert_type": "gunshot",
		"severity":   "High",
		"location":   map[string]interface{}{"lat": 11.7, "lng": 76.6, "name": "Ridge"},
	}, now)
	require.NoError(t, err)

	a := in.Alert()
	assert.Equal(t, models.AlertTypeGunshot, a.AlertType)
	assert.Equal(t, models.SeverityHigh, a.Severity)
	assert.Equal(t, now, a.Timestamp)
	assert.Equal(t, "Ridge", a.Location.Name)
}

func TestParseCreateAlert_RejectsUnknownEnums(t *testing.T) {
	_, err := ParseCreateAlert(map[string]interface{}{
		"alert_id":   "ALT-100",
		"device_id":  "SEN-001",
		"alert_type": "fireworks",
		"severity":   "Critical",
	}, now)

	require.Error(t, err)
	fields := err.(*RequestValidationError).Fields()
	assert.Contains(t, fields, "alert_type")
	assert.Contains(t, fields, "severity")
}

func TestParseDeviceSettings(t *testing.T) {
	in, err := ParseDeviceSettings(map[string]interface{}{
		"ping_interval":     10.0,
		"battery_threshold": "25",
		"connectivity":      "lora",
	})
	require.NoError(t, err)
	assert.Equal(t, 10, in.PingInterval)
	assert.Equal(t, 25, in.BatteryThreshold)

	s := in.Settings("SEN-001", now)
	assert.Equal(t, "SEN-001", s.DeviceID)
	assert.Equal(t, now, s.UpdatedAt)
}

func TestParseDeviceSettings_Invalid(t *testing.T) {
	_, err := ParseDeviceSettings(map[string]interface{}{"ping_interval": "often"})
	require.Error(t, err)
	assert.Equal(t, "ping_interval must be a number", err.Error())

	_, err = ParseDeviceSettings(map[string]interface{}{"battery_threshold": 140.0})
	require.Error(t, err)
	assert.Equal(t, "battery_threshold must be less than or equal to 100", err.Error())
}

func TestParseRespond(t *testing.T) {
	in, err := ParseRespond(map[string]interface{}{"alert_id": "ALT-001", "location": "Zone A"})
	require.NoError(t, err)
	assert.Equal(t, "respond", in.Action)
	assert.Equal(t, "Zone A", in.Request().Location)

	_, err = ParseRespond(map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}
