package resource

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wildwatch/wildwatch-server/internal/cache"
	"github.com/wildwatch/wildwatch-server/internal/fallback"
	"github.com/wildwatch/wildwatch-server/internal/metrics"
	"github.com/wildwatch/wildwatch-server/internal/models"
	"github.com/wildwatch/wildwatch-server/internal/storage"
)

// Analytics query windows
const (
	WeeklyWindow    = 7 * 24 * time.Hour
	AlertTypeWindow = 30 * 24 * time.Hour
)

const (
	cacheKeyAnalytics = "full"
	cacheKeySummary   = "summary"
)

// alertTypeLabels gives each alert type its chart label and color
var alertTypeLabels = []struct {
	Type  models.AlertType
	Name  string
	Color string
}{
	{models.AlertTypeVehicle, "Vehicle Movement", "#8B5CF6"},
	{models.AlertTypeGunshot, "Gunshots", "#EF4444"},
	{models.AlertTypeChainsaw, "Chainsaw Activity", "#F59E0B"},
	{models.AlertTypeAnimalDistress, "Animal Distress", "#10B981"},
}

// AnalyticsService builds the analytics payloads
type AnalyticsService struct {
	store storage.Gateway
	cache *cache.JSON
	now   func() time.Time
}

// NewAnalyticsService creates the service. c may be nil.
func NewAnalyticsService(store storage.Gateway, c *cache.JSON) *AnalyticsService {
	return &AnalyticsService{store: store, cache: c, now: time.Now}
}

// Analytics runs the four store queries in parallel and substitutes the
// mock value for each part whose query failed or came back empty.
func (s *AnalyticsService) Analytics(ctx context.Context) models.Analytics {
	if !s.store.Configured() {
		servingFallback("analytics", storage.ErrNotConfigured)
		return fallback.MockAnalytics()
	}

	var cached models.Analytics
	if err := s.cache.Get(ctx, cacheKeyAnalytics, &cached); err == nil {
		metrics.AnalyticsCacheHits.Inc()
		return cached
	}
	metrics.AnalyticsCacheMisses.Inc()

	now := s.now().UTC()
	var (
		weekly   []models.WeeklyAlerts
		monthly  []models.MonthlyTrend
		types    []models.AlertType
		statuses []models.DeviceStatus
		errs     [4]error
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		weekly, errs[0] = s.store.WeeklyAlerts(gCtx, now.Add(-WeeklyWindow))
		return nil
	})
	g.Go(func() error {
		monthly, errs[1] = s.store.MonthlyTrend(gCtx)
		return nil
	})
	g.Go(func() error {
		types, errs[2] = s.store.AlertTypesSince(gCtx, now.Add(-AlertTypeWindow))
		return nil
	})
	g.Go(func() error {
		statuses, errs[3] = s.store.DeviceStatuses(gCtx)
		return nil
	})
	_ = g.Wait()

	out := models.Analytics{
		WeeklyAlerts: weekly,
		MonthlyTrend: monthly,
		AlertTypes:   AlertTypeShares(types),
		Summary:      SummaryFromStatuses(statuses),
	}

	substituted := false
	if errs[0] != nil || len(out.WeeklyAlerts) == 0 {
		out.WeeklyAlerts = fallback.MockWeeklyAlerts()
		substituted = true
	}
	if errs[1] != nil || len(out.MonthlyTrend) == 0 {
		out.MonthlyTrend = fallback.MockMonthlyTrend()
		substituted = true
	}
	if errs[2] != nil || len(out.AlertTypes) == 0 {
		out.AlertTypes = fallback.MockAlertTypes()
		substituted = true
	}
	if errs[3] != nil || out.Summary == nil {
		out.Summary = fallback.MockSummary()
		substituted = true
	}

	for i, err := range errs {
		if err != nil {
			log.Warn().Err(err).Int("query", i).Msg("Analytics query failed, substituting fallback values")
		}
	}
	if substituted {
		metrics.RecordFallback("analytics", metrics.ReasonEmpty)
		return out
	}

	if err := s.cache.Set(ctx, cacheKeyAnalytics, out); err != nil {
		log.Warn().Err(err).Msg("Failed to cache analytics")
	}
	return out
}

// Summary returns the store's headline numbers, or the mock summary
func (s *AnalyticsService) Summary(ctx context.Context) models.AnalyticsSummary {
	var cached models.AnalyticsSummary
	if s.store.Configured() {
		if err := s.cache.Get(ctx, cacheKeySummary, &cached); err == nil {
			metrics.AnalyticsCacheHits.Inc()
			return cached
		}
		metrics.AnalyticsCacheMisses.Inc()
	}

	start := time.Now()
	summary, err := s.store.AnalyticsSummary(ctx)
	observe(s.store, "summary", storage.EntityAnalytics, start, err)
	if err != nil {
		servingFallback("analytics summary", err)
		return *fallback.MockSummary()
	}
	if summary == nil {
		metrics.RecordFallback("analytics summary", metrics.ReasonEmpty)
		return *fallback.MockSummary()
	}

	if err := s.cache.Set(ctx, cacheKeySummary, summary); err != nil {
		log.Warn().Err(err).Msg("Failed to cache analytics summary")
	}
	return *summary
}

// AlertTypeShares converts an alert type sample into percentage shares.
// Types absent from the sample are omitted.
func AlertTypeShares(sample []models.AlertType) []models.AlertTypeShare {
	if len(sample) == 0 {
		return nil
	}

	counts := make(map[models.AlertType]int, len(alertTypeLabels))
	for _, t := range sample {
		counts[t]++
	}

	shares := make([]models.AlertTypeShare, 0, len(alertTypeLabels))
	for _, l := range alertTypeLabels {
		n := counts[l.Type]
		if n == 0 {
			continue
		}
		shares = append(shares, models.AlertTypeShare{
			Name:  l.Name,
			Value: int(math.Round(float64(n) * 100 / float64(len(sample)))),
			Color: l.Color,
		})
	}
	return shares
}

// SummaryFromStatuses derives device figures from a status sample and
// takes the alert figures from the mock summary. An empty sample yields nil.
func SummaryFromStatuses(statuses []models.DeviceStatus) *models.AnalyticsSummary {
	if len(statuses) == 0 {
		return nil
	}

	online := 0
	for _, st := range statuses {
		if st == models.DeviceStatusOnline {
			online++
		}
	}

	summary := fallback.MockSummary()
	summary.OnlineDevices = online
	summary.TotalDevices = len(statuses)
	summary.NetworkHealth = math.Round(float64(online) * 100 / float64(len(statuses)))
	return summary
}
