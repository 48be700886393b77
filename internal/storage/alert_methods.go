package storage

import (
	"context"
	"database/sql"
	"strings"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

// ========== Alert Methods ==========

const alertColumns = `id, alert_id, device_id, alert_type, severity, location, description,
               audio_url, photo_url, timestamp, resolved, created_at`

func scanAlert(row scanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var audioURL, photoURL sql.NullString

	err := row.Scan(
		&alert.ID, &alert.AlertID, &alert.DeviceID, &alert.AlertType, &alert.Severity,
		&alert.Location, &alert.Description, &audioURL, &photoURL, &alert.Timestamp,
		&alert.Resolved, &alert.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	alert.AudioURL = audioURL.String
	alert.PhotoURL = photoURL.String
	return alert, nil
}

func collectAlerts(rows *sql.Rows) ([]models.Alert, error) {
	defer rows.Close()

	alerts := []models.Alert{}
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, *alert)
	}
	return alerts, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ListAlerts lists alerts newest first
func (s *PostgresStore) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	query := "SELECT " + alertColumns + " FROM alerts ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("query", EntityAlerts, err)
	}

	alerts, err := collectAlerts(rows)
	return alerts, storeErr("scan", EntityAlerts, err)
}

// InsertAlert inserts an alert and returns the stored rows
func (s *PostgresStore) InsertAlert(ctx context.Context, alert *models.Alert) ([]models.Alert, error) {
	now := s.now().UTC()
	alert.CreatedAt = now
	if alert.Timestamp.IsZero() {
		alert.Timestamp = now
	}

	query := `
        INSERT INTO alerts (
            alert_id, device_id, alert_type, severity, location, description,
            audio_url, photo_url, timestamp, resolved, created_at
        ) VALUES (
            $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
        )
        RETURNING ` + alertColumns

	rows, err := s.db.QueryContext(ctx, query,
		alert.AlertID, alert.DeviceID, alert.AlertType, alert.Severity, alert.Location,
		alert.Description, nullString(alert.AudioURL), nullString(alert.PhotoURL),
		alert.Timestamp, alert.Resolved, alert.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return nil, storeErr("insert", EntityAlerts, ErrDuplicateKey)
		}
		return nil, storeErr("insert", EntityAlerts, err)
	}

	alerts, err := collectAlerts(rows)
	return alerts, storeErr("insert", EntityAlerts, err)
}

// UpdateAlert applies patch to the alert with the given natural key
func (s *PostgresStore) UpdateAlert(ctx context.Context, alertID string, patch Patch) (*models.Alert, error) {
	query, args, err := updateSQL(EntityAlerts, "alert_id", alertID, patch, alertColumns)
	if err != nil {
		return nil, storeErr("update", EntityAlerts, err)
	}

	alert, err := scanAlert(s.db.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, storeErr("update", EntityAlerts, ErrNotFound)
	}
	if err != nil {
		return nil, storeErr("update", EntityAlerts, err)
	}
	return alert, nil
}
