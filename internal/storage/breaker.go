package storage

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// BreakerSettings configures the gateway circuit breaker
type BreakerSettings struct {
	Name             string        `yaml:"name"`
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

// Breaker wraps a Gateway so that a store which keeps failing is skipped
// for a cool-down period. Calls rejected by an open breaker surface as
// *StoreError, so reads fall back and writes fail exactly like any other
// store failure. Nothing is retried.
type Breaker struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[any]
}

var _ Gateway = (*Breaker)(nil)

// NewBreaker wraps next
func NewBreaker(next Gateway, st BreakerSettings) *Breaker {
	if st.Name == "" {
		st.Name = "store"
	}
	threshold := st.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	settings := gobreaker.Settings{
		Name:        st.Name,
		MaxRequests: st.MaxRequests,
		Interval:    st.Interval,
		Timeout:     st.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Store circuit breaker state changed")
		},
		IsSuccessful: isInfraSuccess,
	}

	return &Breaker{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[any](settings),
	}
}

// isInfraSuccess treats data-level outcomes as healthy calls; only
// transport and server failures count toward tripping.
func isInfraSuccess(err error) bool {
	if err == nil {
		return true
	}
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrDuplicateKey) ||
		errors.Is(err, ErrInvalidData) ||
		errors.Is(err, context.Canceled)
}

// State reports the current breaker state
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func call[T any](b *Breaker, op string, entity Entity, fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &StoreError{Op: op, Entity: entity, Err: err}
		}
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}

func (b *Breaker) Configured() bool {
	return b.next.Configured()
}

func (b *Breaker) ListDevices(ctx context.Context) ([]models.Device, error) {
	return call(b, "query", EntityDevices, func() ([]models.Device, error) {
		return b.next.ListDevices(ctx)
	})
}

func (b *Breaker) InsertDevice(ctx context.Context, device *models.Device) ([]models.Device, error) {
	return call(b, "insert", EntityDevices, func() ([]models.Device, error) {
		return b.next.InsertDevice(ctx, device)
	})
}

func (b *Breaker) UpdateDevice(ctx context.Context, deviceID string, patch Patch) (*models.Device, error) {
	return call(b, "update", EntityDevices, func() (*models.Device, error) {
		return b.next.UpdateDevice(ctx, deviceID, patch)
	})
}

func (b *Breaker) UpsertDeviceSettings(ctx context.Context, settings *models.DeviceSettings) ([]models.DeviceSettings, error) {
	return call(b, "upsert", EntityDeviceSettings, func() ([]models.DeviceSettings, error) {
		return b.next.UpsertDeviceSettings(ctx, settings)
	})
}

func (b *Breaker) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	return call(b, "query", EntityAlerts, func() ([]models.Alert, error) {
		return b.next.ListAlerts(ctx)
	})
}

func (b *Breaker) InsertAlert(ctx context.Context, alert *models.Alert) ([]models.Alert, error) {
	return call(b, "insert", EntityAlerts, func() ([]models.Alert, error) {
		return b.next.InsertAlert(ctx, alert)
	})
}

func (b *Breaker) UpdateAlert(ctx context.Context, alertID string, patch Patch) (*models.Alert, error) {
	return call(b, "update", EntityAlerts, func() (*models.Alert, error) {
		return b.next.UpdateAlert(ctx, alertID, patch)
	})
}

func (b *Breaker) WeeklyAlerts(ctx context.Context, since time.Time) ([]models.WeeklyAlerts, error) {
	return call(b, "query", EntityAnalytics, func() ([]models.WeeklyAlerts, error) {
		return b.next.WeeklyAlerts(ctx, since)
	})
}

func (b *Breaker) MonthlyTrend(ctx context.Context) ([]models.MonthlyTrend, error) {
	return call(b, "query", EntityAnalytics, func() ([]models.MonthlyTrend, error) {
		return b.next.MonthlyTrend(ctx)
	})
}

func (b *Breaker) AlertTypesSince(ctx context.Context, since time.Time) ([]models.AlertType, error) {
	return call(b, "query", EntityAlerts, func() ([]models.AlertType, error) {
		return b.next.AlertTypesSince(ctx, since)
	})
}

func (b *Breaker) DeviceStatuses(ctx context.Context) ([]models.DeviceStatus, error) {
	return call(b, "query", EntityDevices, func() ([]models.DeviceStatus, error) {
		return b.next.DeviceStatuses(ctx)
	})
}

func (b *Breaker) AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error) {
	return call(b, "rpc", EntityAnalytics, func() (*models.AnalyticsSummary, error) {
		return b.next.AnalyticsSummary(ctx)
	})
}

func (b *Breaker) Close() error {
	return b.next.Close()
}
