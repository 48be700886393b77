// Package dashboard runs the operator dashboard: it polls the API, keeps
// the map surface reconciled, and exposes the alert actions.
package dashboard

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wildwatch/wildwatch-server/internal/client"
	"github.com/wildwatch/wildwatch-server/internal/mapview"
	"github.com/wildwatch/wildwatch-server/internal/models"
	"github.com/wildwatch/wildwatch-server/internal/respond"
	"github.com/wildwatch/wildwatch-server/internal/settings"
)

// GallerySize is how many photos the gallery shows
const GallerySize = 6

// maxNotifications kept for the state endpoint
const maxNotifications = 20

// MsgUsingMockData is shown when the API could not be reached
const MsgUsingMockData = "Failed to load data. Using mock data."

// API is what the agent needs from the API client
type API interface {
	respond.Backend
	Health(ctx context.Context) (*client.HealthStatus, error)
	Devices(ctx context.Context) ([]models.Device, error)
	Alerts(ctx context.Context) ([]models.Alert, error)
	CreateDevice(ctx context.Context, device client.NewDevice) ([]models.Device, error)
	UpdateDeviceSettings(ctx context.Context, deviceID string, update client.SettingsUpdate) (json.RawMessage, error)
}

// Agent ties the client, reconciler and orchestrator together
type Agent struct {
	api          API
	reconciler   *mapview.Reconciler
	orchestrator *respond.Orchestrator
	settings     *settings.Store
	pollInterval time.Duration
	refresh      chan struct{}

	mu            sync.Mutex
	devices       []models.Device
	loadError     string
	lastUpdated   time.Time
	seq           uint64 // last refresh started
	committed     uint64 // last refresh applied
	notifications []respond.Notification
}

// Options configures an Agent
type Options struct {
	PollInterval  time.Duration
	FallbackDelay time.Duration
}

// NewAgent creates an agent drawing on surface
func NewAgent(api API, surface mapview.Surface, store *settings.Store, opts Options) *Agent {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 30 * time.Second
	}

	a := &Agent{
		api:          api,
		reconciler:   mapview.NewReconciler(func() (mapview.Surface, error) { return surface, nil }),
		settings:     store,
		pollInterval: opts.PollInterval,
		refresh:      make(chan struct{}, 1),
	}
	a.orchestrator = respond.New(api, respond.NotifierFunc(a.notify), opts.FallbackDelay)
	return a
}

// Run mounts the map, refreshes every poll interval and on demand, and
// tears the map down when ctx ends.
func (a *Agent) Run(ctx context.Context) error {
	if err := a.reconciler.Mount(); err != nil {
		return err
	}
	defer func() {
		if err := a.reconciler.Unmount(); err != nil {
			log.Warn().Err(err).Msg("Failed to destroy map surface")
		}
	}()

	a.Refresh(ctx)

	ticker := time.NewTicker(a.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Dashboard agent stopping")
			return nil
		case <-ticker.C:
			a.Refresh(ctx)
		case <-a.refresh:
			a.Refresh(ctx)
		}
	}
}

// TriggerRefresh asks Run for an immediate refresh
func (a *Agent) TriggerRefresh() {
	select {
	case a.refresh <- struct{}{}:
	default:
	}
}

// Refresh fetches devices and alerts together. If either fails the static
// mocks are shown instead. A result older than one already applied is dropped.
func (a *Agent) Refresh(ctx context.Context) {
	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	var devices []models.Device
	var alerts []models.Alert

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		alerts, err = a.api.Alerts(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		devices, err = a.api.Devices(gctx)
		return err
	})

	loadError := ""
	if err := g.Wait(); err != nil {
		log.Warn().Err(err).Msg("Failed to fetch dashboard data, using mock data")
		loadError = MsgUsingMockData
		alerts = client.MockAlerts()
		devices = client.MockDevices()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if seq < a.committed {
		log.Debug().Uint64("seq", seq).Msg("Dropping stale refresh")
		return
	}
	a.committed = seq
	a.devices = devices
	a.loadError = loadError
	a.lastUpdated = time.Now().UTC()
	a.orchestrator.SetAlerts(alerts)
	a.reconcileLocked()
}

func (a *Agent) reconcile() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reconcileLocked()
}

// reconcileLocked draws the committed state; a.mu must be held so a
// concurrent refresh cannot commit between the read and the draw.
func (a *Agent) reconcileLocked() {
	if _, err := a.reconciler.Reconcile(a.devices, a.orchestrator.Alerts()); err != nil {
		log.Warn().Err(err).Msg("Failed to reconcile map")
	}
}

// Respond runs the respond action for an alert
func (a *Agent) Respond(ctx context.Context, alertID string) (respond.Outcome, error) {
	out, err := a.orchestrator.Respond(ctx, alertID)
	if err == nil {
		a.reconcile()
	}
	return out, err
}

// UploadPhoto runs the photo upload action for an alert
func (a *Agent) UploadPhoto(ctx context.Context, alertID, filename string, r io.Reader) (*models.PhotoUploadResult, error) {
	res, err := a.orchestrator.UploadPhoto(ctx, alertID, filename, r)
	if err == nil {
		a.reconcile()
	}
	return res, err
}

// AddDevice registers a device at the configured map center and refreshes
func (a *Agent) AddDevice(ctx context.Context, deviceID string) ([]models.Device, error) {
	s, _ := a.settings.Load(ctx)
	id := strings.TrimSpace(deviceID)

	created, err := a.api.CreateDevice(ctx, client.NewDevice{
		DeviceID: id,
		Name:     "Device " + id,
		Location: &models.DeviceLocation{
			Lat:  s.Geographic.CenterLat,
			Lng:  s.Geographic.CenterLng,
			Zone: models.DefaultDeviceZone,
		},
		Connectivity: s.Devices.Connectivity,
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("device_id", id).Msg("Device added, refreshing")
	a.TriggerRefresh()
	return created, nil
}

// ApplyDeviceSettings pushes the saved device defaults to one device
func (a *Agent) ApplyDeviceSettings(ctx context.Context, deviceID string) (json.RawMessage, error) {
	s, _ := a.settings.Load(ctx)
	return a.api.UpdateDeviceSettings(ctx, strings.TrimSpace(deviceID), client.SettingsUpdate{
		PingInterval:     s.Devices.PingInterval,
		BatteryThreshold: s.Devices.BatteryThreshold,
		Connectivity:     s.Devices.Connectivity,
	})
}

// APIStatus reports "Operational", "Degraded" or "Offline"
func (a *Agent) APIStatus(ctx context.Context) string {
	_, err := a.api.Health(ctx)
	switch {
	case err == nil:
		return "Operational"
	case client.KindOf(err) == client.KindStatus:
		return "Degraded"
	default:
		return "Offline"
	}
}

func (a *Agent) notify(n respond.Notification) {
	log.Info().
		Str("alert_id", n.AlertID).
		Str("level", string(n.Level)).
		Str("title", n.Title).
		Msg(n.Description)

	a.mu.Lock()
	a.notifications = append(a.notifications, n)
	if len(a.notifications) > maxNotifications {
		a.notifications = a.notifications[len(a.notifications)-maxNotifications:]
	}
	a.mu.Unlock()
}

// State is the dashboard snapshot served to the page
type State struct {
	Devices       []models.Device        `json:"devices"`
	Alerts        []models.Alert         `json:"alerts"`
	Gallery       []models.Alert         `json:"gallery"`
	Markers       []mapview.Marker       `json:"markers"`
	Error         string                 `json:"error,omitempty"`
	LastUpdated   time.Time              `json:"last_updated"`
	Notifications []respond.Notification `json:"notifications"`
	CanRespond    map[string]bool        `json:"can_respond"`
}

// Snapshot returns the current state
func (a *Agent) Snapshot() State {
	alerts := a.orchestrator.Alerts()
	can := make(map[string]bool, len(alerts))
	for _, al := range alerts {
		can[al.AlertID] = a.orchestrator.CanRespond(al.AlertID)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	devices := make([]models.Device, len(a.devices))
	copy(devices, a.devices)
	notes := make([]respond.Notification, len(a.notifications))
	copy(notes, a.notifications)

	return State{
		Devices:       devices,
		Alerts:        alerts,
		Gallery:       Gallery(alerts, GallerySize),
		Markers:       a.reconciler.Markers(),
		Error:         a.loadError,
		LastUpdated:   a.lastUpdated,
		Notifications: notes,
		CanRespond:    can,
	}
}

// Gallery returns up to n alerts with photos, newest first
func Gallery(alerts []models.Alert, n int) []models.Alert {
	out := make([]models.Alert, 0, n)
	for _, a := range alerts {
		if a.PhotoURL != "" {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
