package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wildwatch/wildwatch-server/internal/models"
)

var fixedNow = time.Date(2024, 1, 15, 14, 0, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresStore) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	store := NewPostgresStoreFromDB(db)
	store.now = func() time.Time { return fixedNow }

	return db, mock, store
}

func deviceRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "device_id", "name", "location", "status", "battery",
		"signal_strength", "connectivity", "last_ping", "alerts_count", "uptime_percentage",
		"created_at", "updated_at"})
}

func alertRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "alert_id", "device_id", "alert_type", "severity",
		"location", "description", "audio_url", "photo_url", "timestamp", "resolved", "created_at"})
}

func TestListDevices_Success(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	rows := deviceRows().
		AddRow(1, "SEN-001", "Core Area Sector 7", []byte(`{"lat":11.7089,"lng":76.5731,"zone":"Core Protected Zone"}`),
			"online", 85.0, 90.0, "LoRa", fixedNow, 3, 99.2, fixedNow, fixedNow).
		AddRow(2, "SEN-007", "Safari Route Checkpoint", []byte(`{"lat":11.6889,"lng":76.5431,"zone":"Tourist Safari Zone"}`),
			"offline", 15.0, 0.0, "LoRa", fixedNow, 1, 67.3, fixedNow, fixedNow)

	mock.ExpectQuery(`SELECT .* FROM devices ORDER BY id ASC`).WillReturnRows(rows)

	devices, err := store.ListDevices(context.Background())

	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "SEN-001", devices[0].DeviceID)
	assert.Equal(t, "Core Protected Zone", devices[0].Location.Zone)
	assert.Equal(t, models.DeviceStatusOffline, devices[1].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListDevices_EmptyIsNotAnError(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM devices`).WillReturnRows(deviceRows())

	devices, err := store.ListDevices(context.Background())

	require.NoError(t, err)
	assert.NotNil(t, devices)
	assert.Len(t, devices, 0)
}

func TestListDevices_QueryErrorIsStoreError(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM devices`).WillReturnError(errors.New("connection refused"))

	_, err := store.ListDevices(context.Background())

	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.False(t, errors.Is(err, ErrNotConfigured))
}

func TestInsertDevice_ReturnsStoredRow(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO devices`).
		WithArgs("SEN-099", "Test", sqlmock.AnyArg(), "online", 100.0, 95.0, "LoRa",
			fixedNow, 0, 100.0, fixedNow, fixedNow).
		WillReturnRows(deviceRows().AddRow(9, "SEN-099", "Test",
			[]byte(`{"lat":11.7,"lng":76.58,"zone":"New Device Zone"}`), "online", 100.0, 95.0,
			"LoRa", fixedNow, 0, 100.0, fixedNow, fixedNow))

	device := &models.Device{
		DeviceID:         "SEN-099",
		Name:             "Test",
		Location:         models.DefaultDeviceLocation(),
		Status:           models.DeviceStatusOnline,
		Battery:          100,
		SignalStrength:   95,
		Connectivity:     "LoRa",
		UptimePercentage: 100,
	}
	devices, err := store.InsertDevice(context.Background(), device)

	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, int64(9), devices[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertDevice_DuplicateKey(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO devices`).
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "devices_device_id_key"`))

	_, err := store.InsertDevice(context.Background(), &models.Device{DeviceID: "SEN-001", Name: "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateKey))
	assert.True(t, IsStoreError(err))
}

func TestUpsertDeviceSettings(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`ON CONFLICT (device_id) DO UPDATE`)).
		WithArgs("SEN-001", 10, 25, "gsm", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"device_id", "ping_interval", "battery_threshold", "connectivity", "updated_at"}).
			AddRow("SEN-001", 10, 25, "gsm", fixedNow))

	out, err := store.UpsertDeviceSettings(context.Background(), &models.DeviceSettings{
		DeviceID: "SEN-001", PingInterval: 10, BatteryThreshold: 25, Connectivity: "gsm",
	})

	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 25, out[0].BatteryThreshold)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAlerts_OrderedNewestFirst(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM alerts ORDER BY created_at DESC`).
		WillReturnRows(alertRows().
			AddRow(1, "ALT-001", "SEN-004", "gunshot", "High", []byte(`{"lat":11.7,"lng":76.5,"name":"Core"}`),
				"Gunshot detected", "/api/audio/gunshot-001.wav", nil, fixedNow, false, fixedNow))

	alerts, err := store.ListAlerts(context.Background())

	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertTypeGunshot, alerts[0].AlertType)
	assert.Equal(t, "", alerts[0].PhotoURL)
	assert.Equal(t, "Core", alerts[0].Location.Name)
}

func TestUpdateAlert_PhotoURL(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE alerts SET photo_url = $1 WHERE alert_id = $2 RETURNING`)).
		WithArgs("/uploads/alerts/1-abc.jpg", "ALT-002").
		WillReturnRows(alertRows().
			AddRow(2, "ALT-002", "SEN-007", "chainsaw", "High", []byte(`{}`), "Chainsaw",
				"", "/uploads/alerts/1-abc.jpg", fixedNow, false, fixedNow))

	alert, err := store.UpdateAlert(context.Background(), "ALT-002", Patch{"photo_url": "/uploads/alerts/1-abc.jpg"})

	require.NoError(t, err)
	assert.Equal(t, "/uploads/alerts/1-abc.jpg", alert.PhotoURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAlert_NotFound(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`UPDATE alerts`).WillReturnRows(alertRows())

	_, err := store.UpdateAlert(context.Background(), "ALT-404", Patch{"photo_url": "x"})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, IsStoreError(err))
}

func TestUpdateDevice_StampsUpdatedAt(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE devices SET battery = $1, status = $2, updated_at = $3 WHERE device_id = $4`)).
		WithArgs(40.0, models.DeviceStatusOnline, fixedNow, "SEN-001").
		WillReturnRows(deviceRows().AddRow(1, "SEN-001", "Core", []byte(`{}`), "online", 40.0, 90.0,
			"LoRa", fixedNow, 3, 99.2, fixedNow, fixedNow))

	patch := Patch{"battery": 40.0, "status": models.DeviceStatusOnline}
	device, err := store.UpdateDevice(context.Background(), "SEN-001", patch)

	require.NoError(t, err)
	assert.Equal(t, 40.0, device.Battery)
	assert.Len(t, patch, 2, "caller patch must not be modified")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWeeklyAlerts_UsesWindow(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	since := fixedNow.Add(-7 * 24 * time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT day, gunshots, chainsaws, vehicles, total FROM analytics WHERE 1=1 AND date >= $1 ORDER BY date ASC`)).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"day", "gunshots", "chainsaws", "vehicles", "total"}).
			AddRow("Mon", 2, 1, 3, 6))

	weekly, err := store.WeeklyAlerts(context.Background(), since)

	require.NoError(t, err)
	require.Len(t, weekly, 1)
	assert.Equal(t, 6, weekly[0].Total)
}

func TestAnalyticsSummary_NoRow(t *testing.T) {
	db, mock, store := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(`FROM get_analytics_summary\(\)`).
		WillReturnRows(sqlmock.NewRows([]string{"total_alerts"}))

	sum, err := store.AnalyticsSummary(context.Background())

	require.NoError(t, err)
	assert.Nil(t, sum)
}

func TestBuildDSN(t *testing.T) {
	dsn, err := BuildDSN("postgres://wildwatch@db:5432/wildwatch?sslmode=disable", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "postgres://wildwatch:s3cret@db:5432/wildwatch?sslmode=disable", dsn)

	dsn, err = BuildDSN("host=db user=wildwatch dbname=wildwatch", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "host=db user=wildwatch dbname=wildwatch password='s3cret'", dsn)
}

func TestOpen_MissingCredentialIsUnconfigured(t *testing.T) {
	for _, creds := range [][2]string{{"", "key"}, {"postgres://db/x", ""}, {"", ""}} {
		gw, err := Open(creds[0], creds[1], PoolOptions{}, BreakerSettings{})
		require.NoError(t, err)
		assert.False(t, gw.Configured())

		_, err = gw.ListDevices(context.Background())
		assert.True(t, errors.Is(err, ErrNotConfigured))
		assert.False(t, IsStoreError(err))
	}
}
