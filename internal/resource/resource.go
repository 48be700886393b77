// Package resource implements the device, alert and analytics operations
// behind the REST surface. Reads try the store first and degrade to the
// in-memory fallback dataset; writes never degrade silently.
package resource

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wildwatch/wildwatch-server/internal/metrics"
	"github.com/wildwatch/wildwatch-server/internal/storage"
)

// servingFallback logs why a read is being answered from fallback data.
// An unconfigured store and a failing store use different messages.
func servingFallback(resource string, err error) {
	if errors.Is(err, storage.ErrNotConfigured) {
		log.Info().Str("resource", resource).Msgf("Store not configured, serving fallback %s", resource)
		metrics.RecordFallback(resource, metrics.ReasonNotConfigured)
		return
	}
	log.Warn().Err(err).Str("resource", resource).Msgf("Store query failed, serving fallback %s", resource)
	metrics.RecordFallback(resource, metrics.ReasonStoreError)
}

// observe records a store call made against a configured gateway
func observe(store storage.Gateway, op string, entity storage.Entity, start time.Time, err error) {
	if !store.Configured() {
		return
	}
	metrics.RecordStoreCall(op, string(entity), time.Since(start), err)
}
