package fallback

import (
	"time"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func seedDevices() []models.Device {
	created := ts("2024-01-01T00:00:00Z")
	return []models.Device{
		{
			Record:           models.Record{ID: 1, CreatedAt: created},
			DeviceID:         "SEN-001",
			Name:             "Core Area Sector 7",
			Location:         models.DeviceLocation{Lat: 11.7089, Lng: 76.5731, Zone: "Core Protected Zone"},
			Status:           models.DeviceStatusOnline,
			Battery:          85,
			SignalStrength:   90,
			Connectivity:     "LoRa",
			LastPing:         ts("2024-01-15T14:23:45Z"),
			AlertsCount:      3,
			UptimePercentage: 99.2,
			UpdatedAt:        ts("2024-01-15T14:23:45Z"),
		},
		{
			Record:           models.Record{ID: 2, CreatedAt: created},
			DeviceID:         "SEN-004",
			Name:             "Buffer Zone Northeast",
			Location:         models.DeviceLocation{Lat: 11.6989, Lng: 76.5631, Zone: "Buffer Management Area"},
			Status:           models.DeviceStatusOnline,
			Battery:          72,
			SignalStrength:   85,
			Connectivity:     "GSM",
			LastPing:         ts("2024-01-15T14:22:12Z"),
			AlertsCount:      0,
			UptimePercentage: 95.8,
			UpdatedAt:        ts("2024-01-15T14:22:12Z"),
		},
		{
			Record:           models.Record{ID: 3, CreatedAt: created},
			DeviceID:         "SEN-007",
			Name:             "Safari Route Checkpoint",
			Location:         models.DeviceLocation{Lat: 11.6889, Lng: 76.5431, Zone: "Tourist Safari Zone"},
			Status:           models.DeviceStatusOffline,
			Battery:          15,
			SignalStrength:   0,
			Connectivity:     "LoRa",
			LastPing:         ts("2024-01-14T09:45:33Z"),
			AlertsCount:      1,
			UptimePercentage: 67.3,
			UpdatedAt:        ts("2024-01-14T09:45:33Z"),
		},
	}
}

// SeedAlerts returns the alert seed; the dashboard reuses it as its static mock set
func SeedAlerts() []models.Alert {
	return []models.Alert{
		{
			Record:      models.Record{ID: 1, CreatedAt: ts("2024-01-15T14:23:45Z")},
			AlertID:     "ALT-001",
			DeviceID:    "SEN-004",
			AlertType:   models.AlertTypeGunshot,
			Severity:    models.SeverityHigh,
			Location:    models.AlertLocation{Lat: 11.7089, Lng: 76.5731, Name: "Core Area Sector 7"},
			Description: "Gunshot detected near elephant corridor",
			AudioURL:    "/api/audio/gunshot-001.wav",
			PhotoURL:    "/placeholder.svg",
			Timestamp:   ts("2024-01-15T14:23:45Z"),
		},
		{
			Record:      models.Record{ID: 2, CreatedAt: ts("2024-01-15T13:45:12Z")},
			AlertID:     "ALT-002",
			DeviceID:    "SEN-007",
			AlertType:   models.AlertTypeChainsaw,
			Severity:    models.SeverityHigh,
			Location:    models.AlertLocation{Lat: 11.6889, Lng: 76.5431, Name: "Buffer Zone Northeast"},
			Description: "Chainsaw activity detected in protected area",
			AudioURL:    "/api/audio/chainsaw-002.wav",
			PhotoURL:    "/placeholder.svg",
			Timestamp:   ts("2024-01-15T13:45:12Z"),
		},
		{
			Record:      models.Record{ID: 3, CreatedAt: ts("2024-01-15T12:12:33Z")},
			AlertID:     "ALT-003",
			DeviceID:    "SEN-001",
			AlertType:   models.AlertTypeVehicle,
			Severity:    models.SeverityMedium,
			Location:    models.AlertLocation{Lat: 11.7189, Lng: 76.5931, Name: "Patrol Route Delta"},
			Description: "Unauthorized vehicle movement after hours",
			AudioURL:    "/api/audio/vehicle-003.wav",
			PhotoURL:    "/placeholder.svg",
			Timestamp:   ts("2024-01-15T12:12:33Z"),
			Resolved:    true,
		},
		{
			Record:      models.Record{ID: 4, CreatedAt: ts("2024-01-15T11:34:56Z")},
			AlertID:     "ALT-004",
			DeviceID:    "SEN-012",
			AlertType:   models.AlertTypeAnimalDistress,
			Severity:    models.SeverityMedium,
			Location:    models.AlertLocation{Lat: 11.6989, Lng: 76.5631, Name: "Wildlife Corridor South"},
			Description: "Animal distress calls detected",
			AudioURL:    "/api/audio/distress-004.wav",
			PhotoURL:    "/placeholder.svg",
			Timestamp:   ts("2024-01-15T11:34:56Z"),
		},
	}
}

// MockAnalytics returns the analytics payload served without a store
func MockAnalytics() models.Analytics {
	return models.Analytics{
		WeeklyAlerts: MockWeeklyAlerts(),
		MonthlyTrend: MockMonthlyTrend(),
		AlertTypes:   MockAlertTypes(),
		Summary:      MockSummary(),
	}
}

func MockWeeklyAlerts() []models.WeeklyAlerts {
	return []models.WeeklyAlerts{
		{Day: "Mon", Gunshots: 2, Chainsaws: 1, Vehicles: 3, Total: 6},
		{Day: "Tue", Gunshots: 0, Chainsaws: 0, Vehicles: 1, Total: 1},
		{Day: "Wed", Gunshots: 1, Chainsaws: 2, Vehicles: 2, Total: 5},
		{Day: "Thu", Gunshots: 3, Chainsaws: 0, Vehicles: 1, Total: 4},
		{Day: "Fri", Gunshots: 1, Chainsaws: 1, Vehicles: 4, Total: 6},
		{Day: "Sat", Gunshots: 2, Chainsaws: 3, Vehicles: 2, Total: 7},
		{Day: "Sun", Gunshots: 0, Chainsaws: 1, Vehicles: 1, Total: 2},
	}
}

func MockMonthlyTrend() []models.MonthlyTrend {
	return []models.MonthlyTrend{
		{Month: "Jan", Alerts: 45, Incidents: 12},
		{Month: "Feb", Alerts: 38, Incidents: 8},
		{Month: "Mar", Alerts: 52, Incidents: 15},
		{Month: "Apr", Alerts: 41, Incidents: 10},
		{Month: "May", Alerts: 47, Incidents: 13},
		{Month: "Jun", Alerts: 35, Incidents: 7},
	}
}

func MockAlertTypes() []models.AlertTypeShare {
	return []models.AlertTypeShare{
		{Name: "Vehicle Movement", Value: 45, Color: "#8B5CF6"},
		{Name: "Gunshots", Value: 28, Color: "#EF4444"},
		{Name: "Chainsaw Activity", Value: 18, Color: "#F59E0B"},
		{Name: "Animal Distress", Value: 9, Color: "#10B981"},
	}
}

func MockSummary() *models.AnalyticsSummary {
	return &models.AnalyticsSummary{
		TotalAlerts:    31,
		AvgDailyAlerts: 4.4,
		PeakDay:        "Sat",
		ResponseRate:   94,
		OnlineDevices:  4,
		TotalDevices:   6,
		NetworkHealth:  67,
	}
}
