package client

import (
	"github.com/wildwatch/wildwatch-server/internal/fallback"
	"github.com/wildwatch/wildwatch-server/internal/models"
)

// The dashboard shows these when the API cannot be reached at all. They
// are separate from the server's own fallback dataset, which is only used
// when the server is up but its store is not.

// MockAlerts is the static alert set for an unreachable API
func MockAlerts() []models.Alert {
	return fallback.SeedAlerts()
}

// MockDevices is empty: without the API there is no device to show
func MockDevices() []models.Device {
	return []models.Device{}
}

// MockAnalytics is the static analytics payload for an unreachable API
func MockAnalytics() models.Analytics {
	return fallback.MockAnalytics()
}
