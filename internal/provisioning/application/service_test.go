package application

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sensoralert/internal/audit"
	thresholds "sensoralert/internal/thresholds/domain"

	"go.uber.org/zap"
)

type auditSpy struct {
	entries []audit.Entry
}

func (a *auditSpy) Log(_ context.Context, entry audit.Entry) error {
	a.entries = append(a.entries, entry)
	return nil
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

func configRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "company_id", "sensor_id", "sensor_type", "unit", "precision",
		"range_min", "range_max", "alert_low", "alert_high", "critical_low", "critical_high",
		"severity", "read_interval_seconds", "active", "created_at", "updated_at",
	})
}

func recipientRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "company_id", "name", "email", "phone", "role", "active", "created_at", "updated_at",
	})
}

func TestOnSensorCreatedProvisionsDefaults(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	spy := &auditSpy{}
	svc, err := NewService(db, zap.NewNop(), WithClock(fixedClock{now: now}), WithAuditor(spy))
	require.NoError(t, err)

	// No config yet for this sensor.
	mock.ExpectQuery(`FROM sensor_threshold_configs`).
		WithArgs("company-1", "sensor-1").
		WillReturnRows(configRows())

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sensor_threshold_configs`).
		WithArgs(sqlmock.AnyArg(), "company-1", "sensor-1", "TEMPERATURE", "°C", 2,
			15.0, 25.0, 18.0, 22.0, 15.0, 25.0,
			thresholds.SeverityAlert, 0, true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO notification_channel_configs`).
		WithArgs(sqlmock.AnyArg(), "company-1", true, true, true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM recipients`).
		WithArgs("company-1").
		WillReturnRows(recipientRows().
			AddRow("rec-1", "company-1", "Ops", "ops@example.com", "+34600111222", "manager", true, now, now).
			AddRow("rec-2", "company-1", "Backup", "backup@example.com", nil, "viewer", true, now, now))
	mock.ExpectExec(`INSERT INTO sensor_config_recipients`).
		WithArgs(sqlmock.AnyArg(), "rec-1", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO sensor_config_recipients`).
		WithArgs(sqlmock.AnyArg(), "rec-2", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	result, err := svc.OnSensorCreated(context.Background(), SensorCreated{
		CompanyID:  "company-1",
		SensorID:   "sensor-1",
		SensorType: "TEMPERATURE",
		Actor:      "admin@example.com",
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 2, result.LinkedRecipients)
	assert.NotEmpty(t, result.ConfigID)

	require.Len(t, spy.entries, 1)
	assert.Equal(t, "sensor.provision", spy.entries[0].Action)
	assert.Equal(t, "sensor-1", spy.entries[0].SensorID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOnSensorCreatedIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	svc, err := NewService(db, zap.NewNop())
	require.NoError(t, err)

	mock.ExpectQuery(`FROM sensor_threshold_configs`).
		WithArgs("company-1", "sensor-1").
		WillReturnRows(configRows().AddRow(
			"thrcfg-existing", "company-1", "sensor-1", "TEMPERATURE", "°C", 2,
			15.0, 25.0, 18.0, 22.0, 15.0, 25.0,
			thresholds.SeverityAlert, 0, true, now, now))

	result, err := svc.OnSensorCreated(context.Background(), SensorCreated{
		CompanyID:  "company-1",
		SensorID:   "sensor-1",
		SensorType: "TEMPERATURE",
	})
	require.NoError(t, err)
	assert.False(t, result.Created, "existing config must never be re-provisioned")
	assert.Equal(t, "thrcfg-existing", result.ConfigID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOnSensorCreatedUnknownTypeUsesGenericTemplate(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	svc, err := NewService(db, zap.NewNop(), WithClock(fixedClock{now: now}))
	require.NoError(t, err)

	mock.ExpectQuery(`FROM sensor_threshold_configs`).
		WithArgs("company-1", "sensor-9").
		WillReturnRows(configRows())
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sensor_threshold_configs`).
		WithArgs(sqlmock.AnyArg(), "company-1", "sensor-9", "CO2", "", 2,
			0.0, 100.0, 10.0, 90.0, 0.0, 100.0,
			thresholds.SeverityAlert, 0, true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO notification_channel_configs`).
		WithArgs(sqlmock.AnyArg(), "company-1", true, true, true, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM recipients`).
		WithArgs("company-1").
		WillReturnRows(recipientRows())
	mock.ExpectCommit()

	result, err := svc.OnSensorCreated(context.Background(), SensorCreated{
		CompanyID:  "company-1",
		SensorID:   "sensor-9",
		SensorType: "CO2",
	})
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Zero(t, result.LinkedRecipients)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOnSensorCreatedRollsBackOnLinkFailure(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
	svc, err := NewService(db, zap.NewNop(), WithClock(fixedClock{now: now}))
	require.NoError(t, err)

	mock.ExpectQuery(`FROM sensor_threshold_configs`).
		WithArgs("company-1", "sensor-1").
		WillReturnRows(configRows())
	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO sensor_threshold_configs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO notification_channel_configs`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`FROM recipients`).
		WithArgs("company-1").
		WillReturnRows(recipientRows().
			AddRow("rec-1", "company-1", "Ops", "ops@example.com", nil, "manager", true, now, now))
	mock.ExpectExec(`INSERT INTO sensor_config_recipients`).
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	_, err = svc.OnSensorCreated(context.Background(), SensorCreated{
		CompanyID:  "company-1",
		SensorID:   "sensor-1",
		SensorType: "TEMPERATURE",
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOnSensorCreatedValidatesInput(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	svc, err := NewService(db, zap.NewNop())
	require.NoError(t, err)

	cases := []SensorCreated{
		{SensorID: "sensor-1", SensorType: "TEMPERATURE"},
		{CompanyID: "company-1", SensorType: "TEMPERATURE"},
		{CompanyID: "company-1", SensorID: "sensor-1"},
	}
	for _, event := range cases {
		if _, err := svc.OnSensorCreated(context.Background(), event); err == nil {
			t.Fatalf("event %+v must be rejected", event)
		}
	}
}
