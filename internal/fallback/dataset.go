package fallback

import (
	"sync"
	"time"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// Placeholder values for an alert synthesized from an orphan photo upload
const (
	UnknownDeviceID      = "UNKNOWN"
	UnknownLocationName  = "Unknown Location"
	PhotoOnlyDescription = "Photo received"
)

// Dataset is the process-lifetime in-memory collection of devices and alerts
type Dataset struct {
	mu      sync.RWMutex
	devices []models.Device
	alerts  []models.Alert
	now     func() time.Time
}

// New creates a dataset populated with the seed records
func New() *Dataset {
	return &Dataset{
		devices: seedDevices(),
		alerts:  SeedAlerts(),
		now:     time.Now,
	}
}

// Devices returns a snapshot of the device collection
func (d *Dataset) Devices() []models.Device {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.Device, len(d.devices))
	copy(out, d.devices)
	return out
}

// AddDevice assigns the next local id, stamps timestamps and appends.
// It reports false, adding nothing, when the device_id is already taken.
func (d *Dataset) AddDevice(device models.Device) (models.Device, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, existing := range d.devices {
		if existing.DeviceID == device.DeviceID {
			return existing, false
		}
	}

	now := d.now().UTC()
	device.ID = int64(len(d.devices) + 1)
	device.CreatedAt = now
	device.UpdatedAt = now
	if device.LastPing.IsZero() {
		device.LastPing = now
	}

	d.devices = append(d.devices, device)
	return device, true
}

// UpdateDevice applies fn to the device with the given id.
// It reports false when no such device exists.
func (d *Dataset) UpdateDevice(deviceID string, fn func(*models.Device)) (models.Device, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.devices {
		if d.devices[i].DeviceID == deviceID {
			fn(&d.devices[i])
			d.devices[i].UpdatedAt = d.now().UTC()
			return d.devices[i], true
		}
	}
	return models.Device{}, false
}

// Alerts returns a snapshot of the alert collection
func (d *Dataset) Alerts() []models.Alert {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]models.Alert, len(d.alerts))
	copy(out, d.alerts)
	return out
}

// AttachPhoto sets photo_url on the alert with the given id. Unknown ids get a
// minimal placeholder alert so the photo is never dropped. It reports whether
// a new alert was synthesized.
func (d *Dataset) AttachPhoto(alertID, photoURL string) (models.Alert, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.alerts {
		if d.alerts[i].AlertID == alertID {
			d.alerts[i].PhotoURL = photoURL
			return d.alerts[i], false
		}
	}

	now := d.now().UTC()
	alert := models.Alert{
		Record:      models.Record{ID: int64(len(d.alerts) + 1), CreatedAt: now},
		AlertID:     alertID,
		DeviceID:    UnknownDeviceID,
		AlertType:   models.AlertTypeAnimalDistress,
		Severity:    models.SeverityLow,
		Location:    models.AlertLocation{Lat: 0, Lng: 0, Name: UnknownLocationName},
		Description: PhotoOnlyDescription,
		PhotoURL:    photoURL,
		Timestamp:   now,
	}
	d.alerts = append(d.alerts, alert)
	return alert, true
}

// ResolveAlert marks an alert resolved. It reports false for unknown ids.
func (d *Dataset) ResolveAlert(alertID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i := range d.alerts {
		if d.alerts[i].AlertID == alertID {
			d.alerts[i].Resolved = true
			return true
		}
	}
	return false
}
