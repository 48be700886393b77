package storage

import (
	"context"
	"database/sql"
	"time"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// ========== Analytics Methods ==========

// query runs q and hands each row to scan
func (s *PostgresStore) query(ctx context.Context, q Query, scan func(*sql.Rows) error) error {
	stmt, args, err := q.SQL()
	if err != nil {
		return storeErr("query", q.Entity, err)
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return storeErr("query", q.Entity, err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return storeErr("scan", q.Entity, err)
		}
	}
	return storeErr("scan", q.Entity, rows.Err())
}

// WeeklyAlerts returns the per-day breakdown recorded since the given time
func (s *PostgresStore) WeeklyAlerts(ctx context.Context, since time.Time) ([]models.WeeklyAlerts, error) {
	q := Query{
		Entity:  EntityAnalytics,
		Columns: []string{"day", "gunshots", "chainsaws", "vehicles", "total"},
		Filters: []Filter{{Column: "date", Op: OpGte, Value: since}},
		Order:   &Order{Column: "date", Ascending: true},
	}

	var out []models.WeeklyAlerts
	err := s.query(ctx, q, func(rows *sql.Rows) error {
		var w models.WeeklyAlerts
		if err := rows.Scan(&w.Day, &w.Gunshots, &w.Chainsaws, &w.Vehicles, &w.Total); err != nil {
			return err
		}
		out = append(out, w)
		return nil
	})
	return out, err
}

// MonthlyTrend returns the full monthly alert/incident series
func (s *PostgresStore) MonthlyTrend(ctx context.Context) ([]models.MonthlyTrend, error) {
	q := Query{
		Entity:  EntityAnalytics,
		Columns: []string{"month", "alerts", "incidents"},
		Order:   &Order{Column: "date", Ascending: true},
	}

	var out []models.MonthlyTrend
	err := s.query(ctx, q, func(rows *sql.Rows) error {
		var m models.MonthlyTrend
		if err := rows.Scan(&m.Month, &m.Alerts, &m.Incidents); err != nil {
			return err
		}
		out = append(out, m)
		return nil
	})
	return out, err
}

// AlertTypesSince samples alert types created since the given time
func (s *PostgresStore) AlertTypesSince(ctx context.Context, since time.Time) ([]models.AlertType, error) {
	q := Query{
		Entity:  EntityAlerts,
		Columns: []string{"alert_type"},
		Filters: []Filter{{Column: "created_at", Op: OpGte, Value: since}},
	}

	var out []models.AlertType
	err := s.query(ctx, q, func(rows *sql.Rows) error {
		var t models.AlertType
		if err := rows.Scan(&t); err != nil {
			return err
		}
		out = append(out, t)
		return nil
	})
	return out, err
}

// DeviceStatuses samples the status of every device
func (s *PostgresStore) DeviceStatuses(ctx context.Context) ([]models.DeviceStatus, error) {
	q := Query{
		Entity:  EntityDevices,
		Columns: []string{"status"},
	}

	var out []models.DeviceStatus
	err := s.query(ctx, q, func(rows *sql.Rows) error {
		var st models.DeviceStatus
		if err := rows.Scan(&st); err != nil {
			return err
		}
		out = append(out, st)
		return nil
	})
	return out, err
}

// AnalyticsSummary calls the get_analytics_summary() database function.
// A function that yields no row returns (nil, nil).
func (s *PostgresStore) AnalyticsSummary(ctx context.Context) (*models.AnalyticsSummary, error) {
	query := `
        SELECT total_alerts, avg_daily_alerts, peak_day, response_rate,
               online_devices, total_devices, network_health
        FROM get_analytics_summary()`

	var sum models.AnalyticsSummary
	err := s.db.QueryRowContext(ctx, query).Scan(
		&sum.TotalAlerts, &sum.AvgDailyAlerts, &sum.PeakDay, &sum.ResponseRate,
		&sum.OnlineDevices, &sum.TotalDevices, &sum.NetworkHealth,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr("rpc", EntityAnalytics, err)
	}
	return &sum, nil
}
