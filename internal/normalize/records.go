package normalize

import (
	"fmt"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// Device builds a well-formed device from an untrusted record. idx is the
// record's position in its collection and seeds the placeholder identity.
func Device(raw map[string]interface{}, idx int) models.Device {
	n := idx + 1

	status := models.DeviceStatus(String(raw["status"], ""))
	if !status.Valid() {
		status = models.DeviceStatusOffline
	}

	alertsCount := int(Number(raw["alerts_count"], 0))
	if alertsCount < 0 {
		alertsCount = 0
	}

	return models.Device{
		Record: models.Record{
			ID:        int64(Number(raw["id"], float64(n))),
			CreatedAt: Time(raw["created_at"], Epoch),
		},
		DeviceID:         String(raw["device_id"], fmt.Sprintf("UNKNOWN-%d", n)),
		Name:             String(raw["name"], fmt.Sprintf("Device %d", n)),
		Location:         DeviceLocation(raw["location"], models.DeviceLocation{Zone: "Unknown"}),
		Status:           status,
		Battery:          Percent(raw["battery"], 0),
		SignalStrength:   Percent(raw["signal_strength"], 0),
		Connectivity:     String(raw["connectivity"], "unknown"),
		LastPing:         Time(raw["last_ping"], Epoch),
		AlertsCount:      alertsCount,
		UptimePercentage: Percent(raw["uptime_percentage"], 0),
		UpdatedAt:        Time(raw["updated_at"], Epoch),
	}
}

// Alert builds a well-formed alert from an untrusted record
func Alert(raw map[string]interface{}, idx int) models.Alert {
	n := idx + 1

	alertType := models.AlertType(String(raw["alert_type"], ""))
	if !alertType.Valid() {
		alertType = models.AlertTypeAnimalDistress
	}
	severity := models.Severity(String(raw["severity"], ""))
	if !severity.Valid() {
		severity = models.SeverityLow
	}

	created := Time(raw["created_at"], Epoch)

	return models.Alert{
		Record: models.Record{
			ID:        int64(Number(raw["id"], float64(n))),
			CreatedAt: created,
		},
		AlertID:     String(raw["alert_id"], fmt.Sprintf("UNKNOWN-ALERT-%d", n)),
		DeviceID:    String(raw["device_id"], "UNKNOWN"),
		AlertType:   alertType,
		Severity:    severity,
		Location:    AlertLocation(raw["location"], models.AlertLocation{Name: "Unknown Location"}),
		Description: String(raw["description"], ""),
		AudioURL:    String(raw["audio_url"], ""),
		PhotoURL:    String(raw["photo_url"], ""),
		Timestamp:   Time(raw["timestamp"], created),
		Resolved:    Bool(raw["resolved"]),
	}
}

// Devices normalizes every element; non-object elements are normalized from an empty record
func Devices(raw []interface{}) []models.Device {
	out := make([]models.Device, 0, len(raw))
	for i, r := range raw {
		out = append(out, Device(Object(r), i))
	}
	return out
}

// Alerts normalizes every element; non-object elements are normalized from an empty record
func Alerts(raw []interface{}) []models.Alert {
	out := make([]models.Alert, 0, len(raw))
	for i, r := range raw {
		out = append(out, Alert(Object(r), i))
	}
	return out
}
