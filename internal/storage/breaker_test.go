package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// flakyGateway fails ListDevices with err and counts calls
type flakyGateway struct {
	Unconfigured
	err   error
	calls int
}

func (f *flakyGateway) Configured() bool { return true }

func (f *flakyGateway) ListDevices(context.Context) ([]models.Device, error) {
	f.calls++
	return nil, f.err
}

func (f *flakyGateway) AnalyticsSummary(context.Context) (*models.AnalyticsSummary, error) {
	return nil, nil
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyGateway{err: &StoreError{Op: "query", Entity: EntityDevices, Err: errors.New("timeout")}}
	b := NewBreaker(inner, BreakerSettings{FailureThreshold: 2, Timeout: time.Minute})

	for i := 0; i < 2; i++ {
		_, err := b.ListDevices(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.ListDevices(context.Background())
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, 2, inner.calls, "open breaker must not reach the store")
}

func TestBreaker_NotFoundDoesNotTrip(t *testing.T) {
	inner := &flakyGateway{err: &StoreError{Op: "update", Entity: EntityDevices, Err: ErrNotFound}}
	b := NewBreaker(inner, BreakerSettings{FailureThreshold: 1})

	for i := 0; i < 3; i++ {
		_, _ = b.ListDevices(context.Background())
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, 3, inner.calls)
}

func TestBreaker_NilResultPassesThrough(t *testing.T) {
	b := NewBreaker(&flakyGateway{}, BreakerSettings{})

	sum, err := b.AnalyticsSummary(context.Background())

	require.NoError(t, err)
	assert.Nil(t, sum)
	assert.True(t, b.Configured())
}
