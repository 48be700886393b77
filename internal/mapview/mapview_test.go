package mapview

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

type op struct {
	kind string
	key  string
}

// recorder is a Surface that logs every call
type recorder struct {
	ops       []op
	markers   map[string]Marker
	destroyed int
}

func newRecorder() *recorder {
	return &recorder{markers: map[string]Marker{}}
}

func (r *recorder) AddMarker(m Marker) error {
	r.ops = append(r.ops, op{"add", m.Key})
	r.markers[m.Key] = m
	return nil
}

func (r *recorder) UpdateMarker(m Marker) error {
	r.ops = append(r.ops, op{"update", m.Key})
	r.markers[m.Key] = m
	return nil
}

func (r *recorder) RemoveMarker(key string) error {
	r.ops = append(r.ops, op{"remove", key})
	delete(r.markers, key)
	return nil
}

func (r *recorder) Destroy() error {
	r.destroyed++
	return nil
}

func device(id string, status models.DeviceStatus) models.Device {
	return models.Device{DeviceID: id, Status: status, Battery: 80, Location: models.DeviceLocation{Lat: 11.7, Lng: 76.5}}
}

func alert(id string, sev models.Severity) models.Alert {
	return models.Alert{AlertID: id, AlertType: models.AlertTypeAnimalDistress, Severity: sev, Location: models.AlertLocation{Lat: 11.6, Lng: 76.4, Name: "Corridor"}}
}

func mounted(t *testing.T) (*Reconciler, *recorder, *int) {
	t.Helper()
	rec := newRecorder()
	created := 0
	r := NewReconciler(func() (Surface, error) {
		created++
		return rec, nil
	})
	require.NoError(t, r.Mount())
	return r, rec, &created
}

func TestMarkers(t *testing.T) {
	d := DeviceMarker(device("SEN-001", models.DeviceStatusOnline))
	assert.Equal(t, "device:SEN-001", d.Key)
	assert.Equal(t, ColorOnline, d.Color)
	assert.Equal(t, LayerDevices, d.Layer)
	assert.Contains(t, d.Popup, "Battery: 80%")

	assert.Equal(t, ColorOffline, DeviceMarker(device("SEN-002", models.DeviceStatusMaintenance)).Color)

	a := AlertMarker(alert("ALT-1", models.SeverityHigh))
	assert.Equal(t, ColorHigh, a.Color)
	assert.Equal(t, LayerAlerts, a.Layer)
	assert.Contains(t, a.Popup, "Animal distress Alert")
	assert.Equal(t, ColorOther, AlertMarker(alert("ALT-2", models.SeverityLow)).Color)

	evil := alert("ALT-3", models.SeverityLow)
	evil.Description = "<script>"
	assert.NotContains(t, AlertMarker(evil).Popup, "<script>")
}

func TestReconcile_AddUpdateRemove(t *testing.T) {
	r, rec, created := mounted(t)

	stats, err := r.Reconcile(
		[]models.Device{device("SEN-001", models.DeviceStatusOnline), device("SEN-002", models.DeviceStatusOnline)},
		[]models.Alert{alert("ALT-1", models.SeverityHigh)},
	)
	require.NoError(t, err)
	assert.Equal(t, Stats{Added: 3}, stats)
	assert.Equal(t, []op{{"add", "device:SEN-001"}, {"add", "device:SEN-002"}, {"add", "alert:ALT-1"}}, rec.ops)

	rec.ops = nil
	stats, err = r.Reconcile(
		[]models.Device{device("SEN-001", models.DeviceStatusOffline), device("SEN-003", models.DeviceStatusOnline)},
		[]models.Alert{alert("ALT-1", models.SeverityHigh)},
	)
	require.NoError(t, err)
	assert.Equal(t, Stats{Added: 1, Updated: 1, Removed: 1, Unchanged: 1}, stats)
	assert.Equal(t, []op{
		{"remove", "device:SEN-002"},
		{"update", "device:SEN-001"},
		{"add", "device:SEN-003"},
	}, rec.ops)
	assert.Equal(t, ColorOffline, rec.markers["device:SEN-001"].Color)

	assert.Equal(t, 1, *created)
	assert.Len(t, r.Markers(), 3)
}

func TestReconcile_NoChangeIsNoOp(t *testing.T) {
	r, rec, _ := mounted(t)
	devices := []models.Device{device("SEN-001", models.DeviceStatusOnline)}

	_, err := r.Reconcile(devices, nil)
	require.NoError(t, err)
	rec.ops = nil

	stats, err := r.Reconcile(devices, nil)
	require.NoError(t, err)
	assert.Equal(t, Stats{Unchanged: 1}, stats)
	assert.Empty(t, rec.ops)
}

func TestReconcile_Lifecycle(t *testing.T) {
	r := NewReconciler(func() (Surface, error) { return newRecorder(), nil })
	_, err := r.Reconcile(nil, nil)
	assert.ErrorIs(t, err, ErrNotMounted)

	r, rec, created := mounted(t)
	require.NoError(t, r.Mount())
	assert.Equal(t, 1, *created)

	require.NoError(t, r.Unmount())
	require.NoError(t, r.Unmount())
	assert.Equal(t, 1, rec.destroyed)

	_, err = r.Reconcile(nil, nil)
	assert.ErrorIs(t, err, ErrDestroyed)
	assert.ErrorIs(t, r.Mount(), ErrDestroyed)

	failing := NewReconciler(func() (Surface, error) { return nil, errors.New("no canvas") })
	assert.Error(t, failing.Mount())
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_SnapshotThenOps(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	r := NewReconciler(func() (Surface, error) { return hub, nil })
	require.NoError(t, r.Mount())
	_, err := r.Reconcile([]models.Device{device("SEN-001", models.DeviceStatusOnline)}, nil)
	require.NoError(t, err)

	conn := dial(t, srv.URL)
	snap := read(t, conn)
	assert.Equal(t, MessageTypeSnapshot, snap.Type)
	require.Len(t, snap.Markers, 1)
	assert.Equal(t, "device:SEN-001", snap.Markers[0].Key)
	require.NotNil(t, snap.View)
	assert.Equal(t, InitialZoom, snap.View.Zoom)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 10*time.Millisecond)

	_, err = r.Reconcile(nil, []models.Alert{alert("ALT-1", models.SeverityHigh)})
	require.NoError(t, err)

	removed := read(t, conn)
	assert.Equal(t, MessageTypeRemove, removed.Type)
	assert.Equal(t, "device:SEN-001", removed.Key)

	added := read(t, conn)
	assert.Equal(t, MessageTypeAdd, added.Type)
	require.NotNil(t, added.Marker)
	assert.Equal(t, ColorHigh, added.Marker.Color)

	require.NoError(t, r.Unmount())
	assert.Equal(t, MessageTypeDestroy, read(t, conn).Type)
	assert.Equal(t, 0, hub.Clients())
	assert.ErrorIs(t, hub.AddMarker(Marker{Key: "x"}), ErrDestroyed)
}
