// Package client is the dashboard's single path to the API. Every entity
// it returns has been normalized, so callers never see missing or
// out-of-range fields whatever the server sent.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/metrics"
	"github.com/wildwatch/wildwatch-server/internal/models"
	"github.com/wildwatch/wildwatch-server/internal/normalize"
)

// DefaultTimeout bounds a single call
const DefaultTimeout = 30 * time.Second

// MsgUploadFailed is used when an upload fails without a server message
const MsgUploadFailed = "Failed to upload photo"

// NewDevice is the body of a device registration
type NewDevice struct {
	DeviceID     string                 `json:"device_id"`
	Name         string                 `json:"name"`
	Location     *models.DeviceLocation `json:"location,omitempty"`
	Connectivity string                 `json:"connectivity,omitempty"`
}

// SettingsUpdate is the body of a device settings update
type SettingsUpdate struct {
	PingInterval     int    `json:"ping_interval"`
	BatteryThreshold int    `json:"battery_threshold"`
	Connectivity     string `json:"connectivity"`
}

// HealthStatus is the API root response
type HealthStatus struct {
	Message   string `json:"message"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// Client calls the WildWatch REST API
type Client struct {
	http *resty.Client
}

// New creates a client for the API at baseURL (scheme and host, no /api)
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &Client{http: rc}
}

// Health calls the API root
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	if err := c.do(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Devices fetches and normalizes every device
func (c *Client) Devices(ctx context.Context) ([]models.Device, error) {
	var raw []interface{}
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, &raw); err != nil {
		return nil, err
	}
	return normalize.Devices(raw), nil
}

// CreateDevice registers a device and returns the normalized created records
func (c *Client) CreateDevice(ctx context.Context, device NewDevice) ([]models.Device, error) {
	var raw []interface{}
	if err := c.do(ctx, http.MethodPost, "/api/devices", device, &raw); err != nil {
		return nil, err
	}
	return normalize.Devices(raw), nil
}

// UpdateDeviceSettings pushes settings for one device. The response shape
// differs between store and fallback mode, so it is returned undecoded.
func (c *Client) UpdateDeviceSettings(ctx context.Context, deviceID string, settings SettingsUpdate) (json.RawMessage, error) {
	var out json.RawMessage
	endpoint := "/api/devices/" + deviceID + "/settings"
	if err := c.do(ctx, http.MethodPut, endpoint, settings, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeviceHealth fetches the fleet aggregate
func (c *Client) DeviceHealth(ctx context.Context) (*models.DeviceHealth, error) {
	var out models.DeviceHealth
	if err := c.do(ctx, http.MethodGet, "/api/devices/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Alerts fetches and normalizes every alert
func (c *Client) Alerts(ctx context.Context) ([]models.Alert, error) {
	var raw []interface{}
	if err := c.do(ctx, http.MethodGet, "/api/alerts", nil, &raw); err != nil {
		return nil, err
	}
	return normalize.Alerts(raw), nil
}

// CreateAlert submits an alert. It fails with a 503 FetchError without a store.
func (c *Client) CreateAlert(ctx context.Context, alert map[string]interface{}) ([]models.Alert, error) {
	var raw []interface{}
	if err := c.do(ctx, http.MethodPost, "/api/alerts", alert, &raw); err != nil {
		return nil, err
	}
	return normalize.Alerts(raw), nil
}

// RespondToAlert asks the backend to dispatch a response team
func (c *Client) RespondToAlert(ctx context.Context, req models.AlertResponseRequest) (*models.AlertResponse, error) {
	var out models.AlertResponse
	if err := c.do(ctx, http.MethodPost, "/api/alerts/respond", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadAlertPhoto sends one image as the multipart field "photo"
func (c *Client) UploadAlertPhoto(ctx context.Context, alertID, filename string, r io.Reader) (*models.PhotoUploadResult, error) {
	endpoint := "/api/alerts/" + alertID + "/photo"
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader("photo", filename, r).
		Post(endpoint)

	var out models.PhotoUploadResult
	if err := c.finish(endpoint, resp, err, &out); err != nil {
		var fe *FetchError
		if errors.As(err, &fe) && fe.Kind == KindStatus && fe.Message == "" {
			fe.Message = MsgUploadFailed
		}
		return nil, err
	}
	return &out, nil
}

// Analytics fetches the analytics payload
func (c *Client) Analytics(ctx context.Context) (*models.Analytics, error) {
	var out models.Analytics
	if err := c.do(ctx, http.MethodGet, "/api/analytics", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AnalyticsSummary fetches the headline numbers
func (c *Client) AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error) {
	var out models.AnalyticsSummary
	if err := c.do(ctx, http.MethodGet, "/api/analytics/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, result interface{}) error {
	req := c.http.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	resp, err := req.Execute(method, endpoint)
	return c.finish(endpoint, resp, err, result)
}

// finish classifies the outcome of a call and decodes the body into result
func (c *Client) finish(endpoint string, resp *resty.Response, err error, result interface{}) error {
	var fe *FetchError
	switch {
	case err != nil:
		fe = &FetchError{Kind: KindNetwork, Endpoint: endpoint, Err: err}
	case resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() > 299:
		fe = &FetchError{Kind: KindStatus, Endpoint: endpoint, Status: resp.StatusCode(), Message: errorMessage(resp.Body())}
	case result != nil:
		if derr := json.Unmarshal(resp.Body(), result); derr != nil {
			fe = &FetchError{Kind: KindDecode, Endpoint: endpoint, Status: resp.StatusCode(), Err: derr}
		}
	}
	if fe == nil {
		return nil
	}

	metrics.ClientFetchErrors.WithLabelValues(routeLabel(endpoint), string(fe.Kind)).Inc()
	log.Debug().Err(fe).Str("endpoint", endpoint).Msg("API request failed")
	return fe
}

// errorMessage extracts {"error": "..."} from an error body
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.Error
}

// routeLabel replaces the id segment of per-entity endpoints
func routeLabel(endpoint string) string {
	parts := strings.Split(endpoint, "/")
	if len(parts) == 5 && (parts[4] == "settings" || parts[4] == "photo") {
		parts[3] = "{id}"
	}
	return strings.Join(parts, "/")
}
