// Package dispatch turns alert response requests into dispatch
// confirmations and announces them to response teams over NATS.
package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/metrics"
	"github.com/wildwatch/wildwatch-server/internal/models"
)

// MsgDispatched is the confirmation message returned to the caller
const MsgDispatched = "Response team dispatched successfully"

// ArrivalEstimate is added to the dispatch time to form estimated_arrival
const ArrivalEstimate = 15 * time.Minute

// Publisher is the subset of *nats.Conn used for announcements
type Publisher interface {
	Publish(subj string, data []byte) error
}

// Resolver marks an alert resolved in the authoritative collection
type Resolver interface {
	MarkResolved(ctx context.Context, alertID string) (bool, error)
}

// Dispatcher builds confirmations and publishes them
type Dispatcher struct {
	pub      Publisher
	resolver Resolver
	prefix   string
	now      func() time.Time
}

// NewDispatcher creates a dispatcher. pub and resolver may be nil.
func NewDispatcher(pub Publisher, resolver Resolver, subjectPrefix string) *Dispatcher {
	return &Dispatcher{pub: pub, resolver: resolver, prefix: subjectPrefix, now: time.Now}
}

// Subject returns the NATS subject a response for alertID is published on
func (d *Dispatcher) Subject(alertID string) string {
	token := strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_").Replace(alertID)
	if d.prefix == "" {
		return fmt.Sprintf("alerts.%s.respond", token)
	}
	return fmt.Sprintf("%s.alerts.%s.respond", d.prefix, token)
}

// Respond confirms the request with a fresh response id and an arrival
// estimate. Publishing and resolving are best effort and only logged.
func (d *Dispatcher) Respond(ctx context.Context, req models.AlertResponseRequest) (*models.AlertResponse, error) {
	now := d.now().UTC()

	resp := &models.AlertResponse{
		Success:          true,
		Message:          MsgDispatched,
		AlertID:          req.AlertID,
		Action:           req.Action,
		Timestamp:        req.Timestamp,
		Location:         req.Location,
		AlertType:        req.AlertType,
		ResponseID:       fmt.Sprintf("RESP-%d", now.UnixMilli()),
		EstimatedArrival: now.Add(ArrivalEstimate),
	}

	log.Info().
		Str("alert_id", req.AlertID).
		Str("action", req.Action).
		Str("alert_type", string(req.AlertType)).
		Str("location", req.Location).
		Str("response_id", resp.ResponseID).
		Msg("Alert response dispatched")

	published := d.publish(resp)
	metrics.RecordDispatch(published)

	if d.resolver != nil {
		if found, err := d.resolver.MarkResolved(ctx, req.AlertID); err != nil {
			log.Warn().Err(err).Str("alert_id", req.AlertID).Msg("Failed to mark alert resolved")
		} else if !found {
			log.Debug().Str("alert_id", req.AlertID).Msg("Responded alert not found in store")
		}
	}

	return resp, nil
}

func (d *Dispatcher) publish(resp *models.AlertResponse) bool {
	if d.pub == nil {
		return false
	}

	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal alert response")
		return false
	}

	subject := d.Subject(resp.AlertID)
	if err := d.pub.Publish(subject, data); err != nil {
		log.Warn().Err(err).Str("subject", subject).Msg("Failed to publish alert response")
		return false
	}
	return true
}
