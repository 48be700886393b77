// Package ingest applies device status reports published by field sensors.
// Reports arrive over MQTT or NATS and are handed to a StatusSink.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/metrics"
	"github.com/wildwatch/wildwatch-server/internal/models"
	"github.com/wildwatch/wildwatch-server/internal/normalize"
)

// Report outcomes
const (
	OutcomeApplied       = "applied"
	OutcomeUnknownDevice = "unknown_device"
	OutcomeInvalid       = "invalid"
	OutcomeFailed        = "failed"
)

// StatusSink records a status report; it reports false for unknown devices
type StatusSink interface {
	ApplyStatus(ctx context.Context, report models.DeviceStatusReport) (bool, error)
}

// Handler decodes status payloads and forwards them to the sink
type Handler struct {
	sink    StatusSink
	timeout time.Duration
}

func NewHandler(sink StatusSink) *Handler {
	return &Handler{sink: sink, timeout: 5 * time.Second}
}

// ParseReport decodes a status payload. fallbackID is used when the payload
// carries no device_id, typically the id taken from the topic.
func ParseReport(payload []byte, fallbackID string) (models.DeviceStatusReport, error) {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return models.DeviceStatusReport{}, fmt.Errorf("decode status payload: %w", err)
	}

	report := models.DeviceStatusReport{
		DeviceID: strings.TrimSpace(normalize.String(raw["device_id"], fallbackID)),
		Status:   models.DeviceStatus(normalize.String(raw["status"], "")),
	}
	if report.DeviceID == "" {
		return report, fmt.Errorf("status payload has no device_id")
	}
	if report.Status != "" && !report.Status.Valid() {
		return report, fmt.Errorf("unknown status %q", report.Status)
	}

	report.Battery = optionalNumber(raw["battery"])
	report.SignalStrength = optionalNumber(raw["signal_strength"])
	if ts := normalize.Time(raw["last_ping"], time.Time{}); !ts.IsZero() {
		report.LastPing = &ts
	}
	return report, nil
}

func optionalNumber(v interface{}) *float64 {
	f := normalize.Number(v, math.NaN())
	if math.IsNaN(f) {
		return nil
	}
	return &f
}

// Handle processes one payload and returns its outcome
func (h *Handler) Handle(ctx context.Context, source, fallbackID string, payload []byte) string {
	report, err := ParseReport(payload, fallbackID)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Msg("Invalid device status report")
		metrics.RecordStatusReport(OutcomeInvalid)
		return OutcomeInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	found, err := h.sink.ApplyStatus(ctx, report)
	switch {
	case err != nil:
		log.Error().Err(err).Str("device_id", report.DeviceID).Msg("Failed to apply device status")
		metrics.RecordStatusReport(OutcomeFailed)
		return OutcomeFailed
	case !found:
		log.Info().Str("device_id", report.DeviceID).Str("source", source).Msg("Status report for unknown device ignored")
		metrics.RecordStatusReport(OutcomeUnknownDevice)
		return OutcomeUnknownDevice
	}

	log.Debug().
		Str("device_id", report.DeviceID).
		Str("status", string(report.Status)).
		Str("source", source).
		Msg("Device status applied")
	metrics.RecordStatusReport(OutcomeApplied)
	return OutcomeApplied
}

// DeviceIDFromTopic extracts <device_id> from "<prefix>/<device_id>/status"
func DeviceIDFromTopic(topic, prefix string) (string, bool) {
	rest := strings.TrimPrefix(topic, strings.TrimSuffix(prefix, "/")+"/")
	if rest == topic {
		return "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[1] != "status" || parts[0] == "" {
		return "", false
	}
	return parts[0], true
}
