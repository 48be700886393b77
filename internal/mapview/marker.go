// Package mapview keeps a long-lived marker surface in step with the
// device and alert collections.
package mapview

import (
	"fmt"
	"html"
	"strings"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// Initial view of the park map
const (
	CenterLat   = 11.7
	CenterLng   = 76.58
	InitialZoom = 12
)

// Kind is the entity a marker stands for
type Kind string

const (
	KindDevice Kind = "device"
	KindAlert  Kind = "alert"
)

// Layers; alerts draw above devices
const (
	LayerDevices = 0
	LayerAlerts  = 1
)

// Marker colors
const (
	ColorOnline  = "green"
	ColorOffline = "red"
	ColorHigh    = "red"
	ColorOther   = "orange"
)

// Marker is everything the surface needs to draw one entity
type Marker struct {
	Key   string  `json:"key"`
	Kind  Kind    `json:"kind"`
	Lat   float64 `json:"lat"`
	Lng   float64 `json:"lng"`
	Color string  `json:"color"`
	Size  int     `json:"size"`
	Layer int     `json:"layer"`
	Popup string  `json:"popup"`
}

// Key builds the marker identity for an entity id
func Key(kind Kind, id string) string {
	return string(kind) + ":" + id
}

// DeviceMarker derives a device marker from the record alone
func DeviceMarker(d models.Device) Marker {
	color := ColorOffline
	if d.Status == models.DeviceStatusOnline {
		color = ColorOnline
	}

	popup := fmt.Sprintf(
		"<strong>%s</strong><br/>Status: <span style=\"color: %s;\">%s</span><br/>Battery: %s%%<br/>Signal: %s%%<br/>Last Alert: %d alerts",
		html.EscapeString(d.DeviceID),
		color,
		html.EscapeString(string(d.Status)),
		formatNumber(d.Battery),
		formatNumber(d.SignalStrength),
		d.AlertsCount,
	)

	return Marker{
		Key:   Key(KindDevice, d.DeviceID),
		Kind:  KindDevice,
		Lat:   d.Location.Lat,
		Lng:   d.Location.Lng,
		Color: color,
		Size:  20,
		Layer: LayerDevices,
		Popup: popup,
	}
}

// AlertMarker derives an alert marker from the record alone
func AlertMarker(a models.Alert) Marker {
	color := ColorOther
	if a.Severity == models.SeverityHigh {
		color = ColorHigh
	}

	popup := fmt.Sprintf(
		"<strong>%s Alert</strong><br/><span style=\"color: %s;\">%s Priority</span><br/>Location: %s<br/>Time: %s<br/>Device: %s<br/><em>%s</em>",
		html.EscapeString(TypeTitle(a.AlertType)),
		color,
		html.EscapeString(string(a.Severity)),
		html.EscapeString(a.Location.Name),
		a.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"),
		html.EscapeString(a.DeviceID),
		html.EscapeString(a.Description),
	)

	return Marker{
		Key:   Key(KindAlert, a.AlertID),
		Kind:  KindAlert,
		Lat:   a.Location.Lat,
		Lng:   a.Location.Lng,
		Color: color,
		Size:  30,
		Layer: LayerAlerts,
		Popup: popup,
	}
}

// TypeTitle renders "animal_distress" as "Animal distress"
func TypeTitle(t models.AlertType) string {
	s := strings.Replace(string(t), "_", " ", 1)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatNumber(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", v), "0"), ".")
}
