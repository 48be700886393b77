package respond

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildwatch/wildwatch-server/internal/client"
	"github.com/wildwatch/wildwatch-server/internal/models"
)

type fakeBackend struct {
	mu        sync.Mutex
	calls     int
	err       error
	block     chan struct{}
	uploadErr error
}

func (f *fakeBackend) RespondToAlert(ctx context.Context, req models.AlertResponseRequest) (*models.AlertResponse, error) {
	f.mu.Lock()
	f.calls++
	block := f.block
	f.mu.Unlock()

	if block != nil {
		<-block
	}
	if f.err != nil {
		return nil, f.err
	}
	return &models.AlertResponse{Success: true, AlertID: req.AlertID, ResponseID: "RESP-42"}, nil
}

func (f *fakeBackend) UploadAlertPhoto(_ context.Context, alertID, filename string, r io.Reader) (*models.PhotoUploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &models.PhotoUploadResult{Success: true, PhotoURL: "/uploads/alerts/" + filename}, nil
}

type notes struct {
	mu  sync.Mutex
	got []Notification
}

func (n *notes) Notify(x Notification) {
	n.mu.Lock()
	n.got = append(n.got, x)
	n.mu.Unlock()
}

func (n *notes) last() Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.got[len(n.got)-1]
}

func seed() []models.Alert {
	return []models.Alert{
		{AlertID: "ALT-001", AlertType: models.AlertTypeGunshot, Severity: models.SeverityHigh, Location: models.AlertLocation{Name: "Core Area Sector 7"}},
		{AlertID: "ALT-003", AlertType: models.AlertTypeVehicle, Resolved: true},
	}
}

func newOrchestrator(b Backend) (*Orchestrator, *notes, *[]time.Duration) {
	n := &notes{}
	o := New(b, n, 0)
	var slept []time.Duration
	o.sleep = func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return ctx.Err()
	}
	o.SetAlerts(seed())
	return o, n, &slept
}

func TestRespond_Confirmed(t *testing.T) {
	b := &fakeBackend{}
	o, n, slept := newOrchestrator(b)

	out, err := o.Respond(context.Background(), "ALT-001")
	require.NoError(t, err)
	assert.True(t, out.Confirmed)
	assert.Equal(t, "RESP-42", out.ResponseID)
	assert.Empty(t, *slept)

	assert.True(t, o.Alerts()[0].Resolved)
	assert.False(t, o.CanRespond("ALT-001"))
	assert.Equal(t, StateIdle, o.State("ALT-001", ActionRespond))
	assert.Equal(t, Notification{
		AlertID:     "ALT-001",
		Level:       LevelSuccess,
		Title:       TitleRespondOK,
		Description: "Response team dispatched to Core Area Sector 7 for gunshot alert",
	}, n.last())
}

func TestRespond_BackendDownCompletesUnconfirmed(t *testing.T) {
	b := &fakeBackend{err: &client.FetchError{Kind: client.KindNetwork, Endpoint: "/api/alerts/respond", Err: errors.New("refused")}}
	o, n, slept := newOrchestrator(b)

	out, err := o.Respond(context.Background(), "ALT-001")
	require.NoError(t, err)
	assert.False(t, out.Confirmed)
	assert.Equal(t, []time.Duration{DefaultFallbackDelay}, *slept)
	assert.True(t, o.Alerts()[0].Resolved)
	assert.Contains(t, n.last().Description, "pending confirmation")
}

func TestRespond_CancelledDuringDelayFails(t *testing.T) {
	b := &fakeBackend{err: errors.New("down")}
	o, n, _ := newOrchestrator(b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Respond(ctx, "ALT-001")
	require.Error(t, err)
	assert.False(t, o.Alerts()[0].Resolved)
	assert.True(t, o.CanRespond("ALT-001"))
	assert.Equal(t, LevelError, n.last().Level)
	assert.Equal(t, MsgRespondFailed, n.last().Description)
}

func TestRespond_SingleDispatch(t *testing.T) {
	b := &fakeBackend{}
	o, _, _ := newOrchestrator(b)

	_, err := o.Respond(context.Background(), "ALT-001")
	require.NoError(t, err)

	_, err = o.Respond(context.Background(), "ALT-001")
	assert.ErrorIs(t, err, ErrResolved)
	assert.Equal(t, 1, b.calls)

	_, err = o.Respond(context.Background(), "ALT-003")
	assert.ErrorIs(t, err, ErrResolved)

	_, err = o.Respond(context.Background(), "ALT-999")
	assert.ErrorIs(t, err, ErrUnknownAlert)
}

func TestRespond_InFlightRefusesSecond(t *testing.T) {
	b := &fakeBackend{block: make(chan struct{})}
	o, _, _ := newOrchestrator(b)

	done := make(chan error, 1)
	go func() {
		_, err := o.Respond(context.Background(), "ALT-001")
		done <- err
	}()

	require.Eventually(t, func() bool {
		return o.State("ALT-001", ActionRespond) == StateInFlight
	}, time.Second, 5*time.Millisecond)
	assert.False(t, o.CanRespond("ALT-001"))

	_, err := o.Respond(context.Background(), "ALT-001")
	assert.ErrorIs(t, err, ErrInFlight)

	// uploads are independent of a pending respond
	res, err := o.UploadPhoto(context.Background(), "ALT-001", "a.jpg", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/alerts/a.jpg", res.PhotoURL)

	close(b.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, b.calls)
}

func TestSetAlerts_ResolvedIsMonotonic(t *testing.T) {
	o, _, _ := newOrchestrator(&fakeBackend{})

	_, err := o.Respond(context.Background(), "ALT-001")
	require.NoError(t, err)

	// stale refresh still says unresolved
	o.SetAlerts(seed())
	assert.True(t, o.Alerts()[0].Resolved)

	// store confirms, then is authoritative again
	confirmed := seed()
	confirmed[0].Resolved = true
	o.SetAlerts(confirmed)
	assert.True(t, o.Alerts()[0].Resolved)

	o.SetAlerts(seed())
	assert.False(t, o.Alerts()[0].Resolved)
}

func TestUploadPhoto(t *testing.T) {
	t.Run("updates alert", func(t *testing.T) {
		o, n, _ := newOrchestrator(&fakeBackend{})

		_, err := o.UploadPhoto(context.Background(), "ALT-001", "cam.jpg", strings.NewReader("x"))
		require.NoError(t, err)
		assert.Equal(t, "/uploads/alerts/cam.jpg", o.Alerts()[0].PhotoURL)
		assert.Equal(t, TitlePhotoOK, n.last().Title)
		assert.Equal(t, StateIdle, o.State("ALT-001", ActionUpload))
	})

	t.Run("failure notifies server message", func(t *testing.T) {
		b := &fakeBackend{uploadErr: &client.FetchError{Kind: client.KindStatus, Status: 400, Message: "Only image uploads are allowed"}}
		o, n, _ := newOrchestrator(b)

		_, err := o.UploadPhoto(context.Background(), "ALT-001", "notes.txt", strings.NewReader("x"))
		require.Error(t, err)
		assert.Equal(t, TitlePhotoFailed, n.last().Title)
		assert.Equal(t, "Only image uploads are allowed", n.last().Description)
		assert.Empty(t, o.Alerts()[0].PhotoURL)
	})
}
