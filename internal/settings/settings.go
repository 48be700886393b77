// Package settings persists the dashboard's local configuration. There is
// no server-side copy; the last save wins.
package settings

import (
	"github.com/wildwatch/wildwatch-server/internal/mapview"
)

// Notifications controls how operators are alerted
type Notifications struct {
	Email         bool   `json:"email"`
	SMS           bool   `json:"sms"`
	AutoResponse  bool   `json:"autoResponse"`
	HighThreshold string `json:"highThreshold" validate:"omitempty,alert_type"`
	ResponseTime  int    `json:"responseTime" validate:"gte=0"`
}

// Security holds session policy
type Security struct {
	MaintenanceMode bool   `json:"maintenanceMode"`
	SessionTimeout  string `json:"sessionTimeout"`
	PasswordPolicy  string `json:"passwordPolicy" validate:"omitempty,oneof=standard strong"`
}

// Devices are the defaults pushed to new sensors
type Devices struct {
	PingInterval     int    `json:"pingInterval" validate:"gte=1"`
	BatteryThreshold int    `json:"batteryThreshold" validate:"gte=0,lte=100"`
	Connectivity     string `json:"connectivity" validate:"required"`
}

// EmergencyContacts are phone numbers shown to operators
type EmergencyContacts struct {
	ForestOfficer     string `json:"forestOfficer"`
	RangerStation     string `json:"rangerStation"`
	EmergencyServices string `json:"emergencyServices"`
}

// Geographic is the monitored area
type Geographic struct {
	CenterLat         float64           `json:"centerLat" validate:"gte=-90,lte=90"`
	CenterLng         float64           `json:"centerLng" validate:"gte=-180,lte=180"`
	CoverageRadius    float64           `json:"coverageRadius" validate:"gt=0"`
	EmergencyContacts EmergencyContacts `json:"emergencyContacts"`
}

// Settings is the whole local configuration
type Settings struct {
	Notifications Notifications `json:"notifications"`
	Security      Security      `json:"security"`
	Devices       Devices       `json:"devices"`
	Geographic    Geographic    `json:"geographic"`
}

// Defaults returns the settings used before anything is saved
func Defaults() Settings {
	return Settings{
		Notifications: Notifications{
			Email:         true,
			AutoResponse:  true,
			HighThreshold: "gunshot",
			ResponseTime:  15,
		},
		Security: Security{
			SessionTimeout: "8",
			PasswordPolicy: "standard",
		},
		Devices: Devices{
			PingInterval:     5,
			BatteryThreshold: 20,
			Connectivity:     "lora",
		},
		Geographic: Geographic{
			CenterLat:      mapview.CenterLat,
			CenterLng:      mapview.CenterLng,
			CoverageRadius: 25,
			EmergencyContacts: EmergencyContacts{
				ForestOfficer:     "+91-XXXXXXXXXX",
				RangerStation:     "+91-XXXXXXXXXX",
				EmergencyServices: "100",
			},
		},
	}
}
