// Package respond tracks the per-alert "respond" and "upload photo"
// actions started from the dashboard and applies their results to the
// local alert collection.
package respond

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/client"
	"github.com/wildwatch/wildwatch-server/internal/models"
)

// DefaultFallbackDelay is waited before an unconfirmed respond succeeds
const DefaultFallbackDelay = time.Second

// Action is a user action on an alert
type Action string

const (
	ActionRespond Action = "respond"
	ActionUpload  Action = "upload"
)

// State of one action on one alert
type State string

const (
	StateIdle     State = "idle"
	StateInFlight State = "in_flight"
)

// Errors
var (
	ErrUnknownAlert = errors.New("unknown alert")
	ErrResolved     = errors.New("alert already resolved")
	ErrInFlight     = errors.New("action already in progress")
)

// Notification texts
const (
	TitleRespondOK     = "Alert Response Initiated"
	TitleRespondFailed = "Response Failed"
	MsgRespondFailed   = "Failed to dispatch response team. Please try again."
	TitlePhotoOK       = "Photo Received"
	MsgPhotoOK         = "Latest image attached to the alert."
	TitlePhotoFailed   = "Photo Upload Failed"
	MsgPhotoFailed     = "Unable to upload photo"
)

// Backend is the part of the API client the orchestrator calls
type Backend interface {
	RespondToAlert(ctx context.Context, req models.AlertResponseRequest) (*models.AlertResponse, error)
	UploadAlertPhoto(ctx context.Context, alertID, filename string, r io.Reader) (*models.PhotoUploadResult, error)
}

// Level of a notification
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a user-facing message about an action
type Notification struct {
	AlertID     string `json:"alert_id"`
	Level       Level  `json:"level"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Notifier receives notifications
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Outcome of a completed respond action. Confirmed is false when the
// backend could not be reached and the action completed on the local
// delay alone; no response team is known to have been notified then.
type Outcome struct {
	AlertID          string    `json:"alert_id"`
	Confirmed        bool      `json:"confirmed"`
	ResponseID       string    `json:"response_id,omitempty"`
	EstimatedArrival time.Time `json:"estimated_arrival,omitempty"`
}

type actionKey struct {
	alertID string
	action  Action
}

// Orchestrator owns the dashboard's alert collection
type Orchestrator struct {
	mu            sync.Mutex
	backend       Backend
	notifier      Notifier
	fallbackDelay time.Duration
	now           func() time.Time
	sleep         func(ctx context.Context, d time.Duration) error

	alerts   []models.Alert
	index    map[string]int
	resolved map[string]bool // resolved locally, not yet confirmed by a refresh
	inFlight map[actionKey]bool
}

// New creates an orchestrator. notifier may be nil.
func New(backend Backend, notifier Notifier, fallbackDelay time.Duration) *Orchestrator {
	if fallbackDelay <= 0 {
		fallbackDelay = DefaultFallbackDelay
	}
	if notifier == nil {
		notifier = NotifierFunc(func(Notification) {})
	}
	return &Orchestrator{
		backend:       backend,
		notifier:      notifier,
		fallbackDelay: fallbackDelay,
		now:           time.Now,
		sleep:         sleepCtx,
		index:         make(map[string]int),
		resolved:      make(map[string]bool),
		inFlight:      make(map[actionKey]bool),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// SetAlerts replaces the collection with a refresh. An alert resolved
// locally stays resolved until a refresh also reports it resolved, after
// which the refreshed value is authoritative again.
func (o *Orchestrator) SetAlerts(alerts []models.Alert) {
	o.mu.Lock()
	defer o.mu.Unlock()

	merged := make([]models.Alert, len(alerts))
	index := make(map[string]int, len(alerts))
	for i, a := range alerts {
		if o.resolved[a.AlertID] {
			if a.Resolved {
				delete(o.resolved, a.AlertID)
			}
			a.Resolved = true
		}
		merged[i] = a
		index[a.AlertID] = i
	}
	o.alerts = merged
	o.index = index
}

// Alerts returns a snapshot of the collection
func (o *Orchestrator) Alerts() []models.Alert {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]models.Alert, len(o.alerts))
	copy(out, o.alerts)
	return out
}

// State reports whether action is in flight for alertID
func (o *Orchestrator) State(alertID string, action Action) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.inFlight[actionKey{alertID, action}] {
		return StateInFlight
	}
	return StateIdle
}

// CanRespond is false once the alert is resolved or while a respond is in flight
func (o *Orchestrator) CanRespond(alertID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	i, ok := o.index[alertID]
	return ok && !o.alerts[i].Resolved && !o.inFlight[actionKey{alertID, ActionRespond}]
}

// begin moves an action to in flight, or explains why it cannot start
func (o *Orchestrator) begin(key actionKey) error {
	if o.inFlight[key] {
		return ErrInFlight
	}
	o.inFlight[key] = true
	return nil
}

func (o *Orchestrator) end(key actionKey) {
	o.mu.Lock()
	delete(o.inFlight, key)
	o.mu.Unlock()
}

// Respond dispatches a response team to an alert. If the backend call
// fails the action still succeeds after the fallback delay, with
// Outcome.Confirmed false. Either way the alert is marked resolved
// locally. It fails only when ctx ends during the delay.
func (o *Orchestrator) Respond(ctx context.Context, alertID string) (Outcome, error) {
	key := actionKey{alertID, ActionRespond}

	o.mu.Lock()
	i, ok := o.index[alertID]
	if !ok {
		o.mu.Unlock()
		return Outcome{}, ErrUnknownAlert
	}
	alert := o.alerts[i]
	if alert.Resolved {
		o.mu.Unlock()
		return Outcome{}, ErrResolved
	}
	if err := o.begin(key); err != nil {
		o.mu.Unlock()
		return Outcome{}, err
	}
	o.mu.Unlock()
	defer o.end(key)

	req := models.AlertResponseRequest{
		AlertID:   alertID,
		Action:    string(ActionRespond),
		Timestamp: o.now().UTC().Format(time.RFC3339Nano),
		Location:  alert.Location.Name,
		AlertType: alert.AlertType,
	}

	outcome := Outcome{AlertID: alertID}
	resp, err := o.backend.RespondToAlert(ctx, req)
	if err == nil {
		outcome.Confirmed = true
		outcome.ResponseID = resp.ResponseID
		outcome.EstimatedArrival = resp.EstimatedArrival
	} else {
		log.Warn().Err(err).Str("alert_id", alertID).Msg("Respond call failed, completing locally")
		if werr := o.sleep(ctx, o.fallbackDelay); werr != nil {
			o.notifier.Notify(Notification{AlertID: alertID, Level: LevelError, Title: TitleRespondFailed, Description: MsgRespondFailed})
			return Outcome{}, fmt.Errorf("respond to %s: %w", alertID, werr)
		}
	}

	o.mu.Lock()
	if j, ok := o.index[alertID]; ok {
		o.alerts[j].Resolved = true
	}
	o.resolved[alertID] = true
	o.mu.Unlock()

	description := fmt.Sprintf("Response team dispatched to %s for %s alert", alert.Location.Name, alert.AlertType)
	if !outcome.Confirmed {
		description += " (pending confirmation)"
	}
	o.notifier.Notify(Notification{AlertID: alertID, Level: LevelSuccess, Title: TitleRespondOK, Description: description})

	log.Info().
		Str("alert_id", alertID).
		Bool("confirmed", outcome.Confirmed).
		Str("response_id", outcome.ResponseID).
		Msg("Alert response completed")
	return outcome, nil
}

// UploadPhoto sends a photo for an alert. It may run while a respond for
// the same alert is in flight. The alert's photo_url is updated locally on success.
func (o *Orchestrator) UploadPhoto(ctx context.Context, alertID, filename string, r io.Reader) (*models.PhotoUploadResult, error) {
	key := actionKey{alertID, ActionUpload}

	o.mu.Lock()
	if err := o.begin(key); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	o.mu.Unlock()
	defer o.end(key)

	result, err := o.backend.UploadAlertPhoto(ctx, alertID, filename, r)
	if err != nil {
		o.notifier.Notify(Notification{
			AlertID:     alertID,
			Level:       LevelError,
			Title:       TitlePhotoFailed,
			Description: client.UserMessage(err, MsgPhotoFailed),
		})
		return nil, err
	}

	o.mu.Lock()
	if i, ok := o.index[alertID]; ok {
		o.alerts[i].PhotoURL = result.PhotoURL
	}
	o.mu.Unlock()

	o.notifier.Notify(Notification{AlertID: alertID, Level: LevelSuccess, Title: TitlePhotoOK, Description: MsgPhotoOK})
	return result, nil
}
