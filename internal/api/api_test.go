package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildwatch/wildwatch-server/internal/auth"
	"github.com/wildwatch/wildwatch-server/internal/config"
	"github.com/wildwatch/wildwatch-server/internal/dispatch"
	"github.com/wildwatch/wildwatch-server/internal/fallback"
	"github.com/wildwatch/wildwatch-server/internal/media"
	"github.com/wildwatch/wildwatch-server/internal/models"
	"github.com/wildwatch/wildwatch-server/internal/resource"
	"github.com/wildwatch/wildwatch-server/internal/storage"
	"github.com/wildwatch/wildwatch-server/internal/validation"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func testConfig(env string) *config.Config {
	return &config.Config{
		Server:  config.ServerConfig{Name: "wildwatch", Version: "1.0.0", Environment: env},
		API:     config.APIConfig{CORSOrigins: []string{"http://localhost:5173"}, UploadRateLimit: 100},
		Uploads: config.UploadsConfig{PublicPrefix: "/uploads"},
	}
}

func newTestServer(t *testing.T, env string, sessions auth.SessionProvider) *RESTServer {
	t.Helper()

	store := storage.Unconfigured{}
	data := fallback.New()
	alerts := resource.NewAlertService(store, data)
	dir := t.TempDir()

	return NewRESTServer(testConfig(env), Services{
		Devices:    resource.NewDeviceService(store, data),
		Alerts:     alerts,
		Analytics:  resource.NewAnalyticsService(store, nil),
		Photos:     media.NewIngestor(media.NewDiskStore(dir, "/uploads"), 0),
		Dispatcher: dispatch.NewDispatcher(nil, alerts, "wildwatch"),
		Sessions:   sessions,
		UploadsDir: dir,
	})
}

func do(t *testing.T, s *RESTServer, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dst))
}

func uploadPhoto(t *testing.T, s *RESTServer, alertID string, content []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "capture.png")
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/alerts/"+alertID+"/photo", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRoot(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := do(t, s, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	decode(t, rec, &body)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := do(t, s, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, map[string]string{"error": MsgNotFound, "path": "/api/nope", "method": "GET"}, body)
}

func TestCreateDeviceThenList(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := do(t, s, http.MethodPost, "/api/devices", map[string]interface{}{"device_id": "SEN-099", "name": "Test"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created []models.Device
	decode(t, rec, &created)
	require.Len(t, created, 1)
	assert.Equal(t, "SEN-099", created[0].DeviceID)

	rec = do(t, s, http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var devices []models.Device
	decode(t, rec, &devices)

	var matches []models.Device
	for _, d := range devices {
		if d.DeviceID == "SEN-099" {
			matches = append(matches, d)
		}
	}
	require.Len(t, matches, 1)
	assert.Equal(t, models.DeviceStatusOnline, matches[0].Status)
	assert.Equal(t, 100.0, matches[0].Battery)

	rec = do(t, s, http.MethodPost, "/api/devices", map[string]interface{}{"device_id": "SEN-099", "name": "Again"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), validation.MsgDeviceIDTaken)
}

func TestCreateDevice_Invalid(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := do(t, s, http.MethodPost, "/api/devices", map[string]interface{}{"device_id": "SEN-100"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Device ID and name are required")

	rec = do(t, s, http.MethodPost, "/api/devices", map[string]interface{}{"device_id": "  ", "name": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Device ID and name cannot be empty")

	req := httptest.NewRequest(http.MethodPost, "/api/devices", strings.NewReader("{not json"))
	out := httptest.NewRecorder()
	s.Handler().ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestDeviceSettings_Echo(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := do(t, s, http.MethodPut, "/api/devices/SEN-001/settings", map[string]interface{}{
		"ping_interval": 5, "battery_threshold": 20, "connectivity": "lora",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var echo models.DeviceSettingsEcho
	decode(t, rec, &echo)
	assert.Equal(t, resource.MsgSettingsUpdated, echo.Message)
	assert.Equal(t, "SEN-001", echo.Settings.DeviceID)
	assert.Equal(t, 20, echo.Settings.BatteryThreshold)
}

func TestDeviceHealth(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := do(t, s, http.MethodGet, "/api/devices/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var health models.DeviceHealth
	decode(t, rec, &health)
	assert.Equal(t, 3, health.TotalDevices)
	assert.Equal(t, 2, health.OnlineDevices)
}

func TestCreateAlert_StoreRequired(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := do(t, s, http.MethodPost, "/api/alerts", map[string]interface{}{"alert_id": "ALT-9"})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgStoreRequired)
}

func TestRespond(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := do(t, s, http.MethodPost, "/api/alerts/respond", map[string]interface{}{
		"alert_id": "ALT-001", "action": "respond", "location": "Core Area Sector 7", "alert_type": "gunshot",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.AlertResponse
	decode(t, rec, &resp)
	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.ResponseID, "RESP-"))
	assert.WithinDuration(t, time.Now().Add(dispatch.ArrivalEstimate), resp.EstimatedArrival, time.Minute)

	rec = do(t, s, http.MethodGet, "/api/alerts", nil)
	var alerts []models.Alert
	decode(t, rec, &alerts)
	for _, a := range alerts {
		if a.AlertID == "ALT-001" {
			assert.True(t, a.Resolved)
		}
	}

	rec = do(t, s, http.MethodPost, "/api/alerts/respond", map[string]interface{}{"action": "respond"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadPhoto_SynthesizesAlert(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := uploadPhoto(t, s, "ALT-777", pngHeader)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result models.PhotoUploadResult
	decode(t, rec, &result)
	assert.True(t, result.Success)
	assert.True(t, result.Mock)
	assert.True(t, strings.HasPrefix(result.PhotoURL, "/uploads/alerts/"))

	rec = do(t, s, http.MethodGet, "/api/alerts", nil)
	var alerts []models.Alert
	decode(t, rec, &alerts)

	found := false
	for _, a := range alerts {
		if a.AlertID == "ALT-777" {
			found = true
			assert.Equal(t, result.PhotoURL, a.PhotoURL)
		}
	}
	assert.True(t, found)

	rec = do(t, s, http.MethodGet, result.PhotoURL, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngHeader, rec.Body.Bytes())
}

func TestUploadPhoto_Rejects(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := uploadPhoto(t, s, "ALT-001", []byte("just some text"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), media.MsgNotImage)

	req := httptest.NewRequest(http.MethodPost, "/api/alerts/ALT-001/photo", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	out := httptest.NewRecorder()
	s.Handler().ServeHTTP(out, req)
	assert.Equal(t, http.StatusBadRequest, out.Code)
}

func TestAnalytics_Mock(t *testing.T) {
	s := newTestServer(t, "development", nil)

	rec := do(t, s, http.MethodGet, "/api/analytics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var analytics models.Analytics
	decode(t, rec, &analytics)
	assert.Equal(t, fallback.MockAnalytics(), analytics)

	rec = do(t, s, http.MethodGet, "/api/analytics/summary", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var summary models.AnalyticsSummary
	decode(t, rec, &summary)
	assert.Equal(t, *fallback.MockSummary(), summary)
}

func TestGetCurrentUser(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		s := newTestServer(t, "development", auth.NewJWTManager("", ""))
		rec := do(t, s, http.MethodGet, "/api/auth/me", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	jwtm := auth.NewJWTManager("secret", "wildwatch")
	s := newTestServer(t, "development", jwtm)

	t.Run("no token", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/api/auth/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), MsgNoToken)
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := jwtm.GenerateToken(auth.User{ID: "ranger-1", Email: "r@example.org"}, time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			User auth.User `json:"user"`
		}
		decode(t, rec, &body)
		assert.Equal(t, "ranger-1", body.User.ID)
	})
}

func TestPanicDetail(t *testing.T) {
	for _, tc := range []struct {
		env        string
		wantDetail bool
	}{
		{"development", true},
		{"production", false},
	} {
		t.Run(tc.env, func(t *testing.T) {
			s := newTestServer(t, tc.env, nil)
			s.router.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("kaboom") })

			rec := do(t, s, http.MethodGet, "/boom", nil)
			assert.Equal(t, http.StatusInternalServerError, rec.Code)

			var body map[string]string
			decode(t, rec, &body)
			assert.Equal(t, "Internal server error", body["error"])
			_, hasDetail := body["detail"]
			assert.Equal(t, tc.wantDetail, hasDetail)
		})
	}
}

// missingAlertStore is a configured store that knows no alerts
type missingAlertStore struct {
	storage.Unconfigured
}

func (missingAlertStore) Configured() bool { return true }

func (missingAlertStore) UpdateAlert(context.Context, string, storage.Patch) (*models.Alert, error) {
	return nil, &storage.StoreError{Op: "update", Entity: storage.EntityAlerts, Err: storage.ErrNotFound}
}

func TestUploadPhoto_UnknownAlertRemovesFile(t *testing.T) {
	store := missingAlertStore{}
	data := fallback.New()
	alerts := resource.NewAlertService(store, data)
	dir := t.TempDir()

	s := NewRESTServer(testConfig("development"), Services{
		Devices:    resource.NewDeviceService(store, data),
		Alerts:     alerts,
		Analytics:  resource.NewAnalyticsService(store, nil),
		Photos:     media.NewIngestor(media.NewDiskStore(dir, "/uploads"), 0),
		Dispatcher: dispatch.NewDispatcher(nil, alerts, "wildwatch"),
		UploadsDir: dir,
	})

	rec := uploadPhoto(t, s, "ALT-404", pngHeader)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries, err := os.ReadDir(filepath.Join(dir, media.CategoryAlerts))
	if err == nil {
		assert.Empty(t, entries)
	} else {
		assert.True(t, os.IsNotExist(err))
	}
}
