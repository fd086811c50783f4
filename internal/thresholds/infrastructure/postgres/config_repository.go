package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	thresholds "sensoralert/internal/thresholds/domain"
)

const (
	defaultConfigsTable        = "sensor_threshold_configs"
	defaultChannelConfigsTable = "notification_channel_configs"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ConfigRepository is a Postgres repository for threshold configs.
type ConfigRepository struct {
	db DBTX
}

// NewConfigRepository constructs a repository.
func NewConfigRepository(db DBTX) *ConfigRepository {
	return &ConfigRepository{db: db}
}

// Create inserts a threshold config together with its channel config.
func (r *ConfigRepository) Create(ctx context.Context, cfg *thresholds.Config, channels *thresholds.ChannelConfig) error {
	if r == nil || r.db == nil {
		return errors.New("threshold repo: nil db")
	}
	if cfg == nil {
		return errors.New("threshold repo: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.CreatedAt.IsZero() {
		cfg.CreatedAt = time.Now().UTC()
	}
	if cfg.UpdatedAt.IsZero() {
		cfg.UpdatedAt = cfg.CreatedAt
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sensor_threshold_configs (
	id, company_id, sensor_id, sensor_type, unit, precision,
	range_min, range_max, alert_low, alert_high, critical_low, critical_high,
	severity, read_interval_seconds, active, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9, $10, $11, $12,
	$13, $14, $15, $16, $17
)`,
		cfg.ID, cfg.CompanyID, cfg.SensorID, cfg.SensorType, cfg.Unit, cfg.Precision,
		cfg.Bounds.RangeMin, cfg.Bounds.RangeMax, cfg.Bounds.AlertLow, cfg.Bounds.AlertHigh,
		cfg.Bounds.CriticalLow, cfg.Bounds.CriticalHigh,
		cfg.Severity, cfg.ReadIntervalSeconds, cfg.Active, cfg.CreatedAt, cfg.UpdatedAt)
	if err != nil {
		return err
	}
	if channels == nil {
		return nil
	}
	if channels.UpdatedAt.IsZero() {
		channels.UpdatedAt = cfg.CreatedAt
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO notification_channel_configs (
	config_id, company_id, email, sms, push, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6
)`, channels.ConfigID, channels.CompanyID, channels.Email, channels.SMS, channels.Push, channels.UpdatedAt)
	return err
}

// GetBySensor loads the config for a sensor, nil when none exists.
func (r *ConfigRepository) GetBySensor(ctx context.Context, companyID, sensorID string) (*thresholds.Config, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("threshold repo: nil db")
	}
	if companyID == "" || sensorID == "" {
		return nil, errors.New("threshold repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, company_id, sensor_id, sensor_type, unit, precision,
	range_min, range_max, alert_low, alert_high, critical_low, critical_high,
	severity, read_interval_seconds, active, created_at, updated_at
FROM sensor_threshold_configs
WHERE company_id = $1 AND sensor_id = $2
LIMIT 1`, companyID, sensorID)
	return scanConfig(row)
}

// UpdateBounds replaces bounds and precision for a sensor's config.
func (r *ConfigRepository) UpdateBounds(ctx context.Context, companyID, sensorID string, bounds thresholds.Bounds, precision int, updatedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("threshold repo: nil db")
	}
	if companyID == "" || sensorID == "" {
		return errors.New("threshold repo: invalid query")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE sensor_threshold_configs
SET range_min = $1, range_max = $2, alert_low = $3, alert_high = $4,
	critical_low = $5, critical_high = $6, precision = $7, updated_at = $8
WHERE company_id = $9 AND sensor_id = $10`,
		bounds.RangeMin, bounds.RangeMax, bounds.AlertLow, bounds.AlertHigh,
		bounds.CriticalLow, bounds.CriticalHigh, precision, updatedAt,
		companyID, sensorID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return thresholds.ErrNotFound
	}
	return nil
}

// SetActive flips the active flag. Configs are disabled, never deleted.
func (r *ConfigRepository) SetActive(ctx context.Context, companyID, sensorID string, active bool, updatedAt time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("threshold repo: nil db")
	}
	if companyID == "" || sensorID == "" {
		return errors.New("threshold repo: invalid query")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE sensor_threshold_configs
SET active = $1, updated_at = $2
WHERE company_id = $3 AND sensor_id = $4`, active, updatedAt, companyID, sensorID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return thresholds.ErrNotFound
	}
	return nil
}

// GetChannels loads the channel switches for a config, nil when none exists.
func (r *ConfigRepository) GetChannels(ctx context.Context, companyID, configID string) (*thresholds.ChannelConfig, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("threshold repo: nil db")
	}
	if companyID == "" || configID == "" {
		return nil, errors.New("threshold repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT config_id, company_id, email, sms, push, updated_at
FROM notification_channel_configs
WHERE company_id = $1 AND config_id = $2
LIMIT 1`, companyID, configID)
	var channels thresholds.ChannelConfig
	if err := row.Scan(
		&channels.ConfigID,
		&channels.CompanyID,
		&channels.Email,
		&channels.SMS,
		&channels.Push,
		&channels.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	channels.UpdatedAt = channels.UpdatedAt.UTC()
	return &channels, nil
}

type configScanner interface {
	Scan(dest ...any) error
}

func scanConfig(row configScanner) (*thresholds.Config, error) {
	var cfg thresholds.Config
	if err := row.Scan(
		&cfg.ID,
		&cfg.CompanyID,
		&cfg.SensorID,
		&cfg.SensorType,
		&cfg.Unit,
		&cfg.Precision,
		&cfg.Bounds.RangeMin,
		&cfg.Bounds.RangeMax,
		&cfg.Bounds.AlertLow,
		&cfg.Bounds.AlertHigh,
		&cfg.Bounds.CriticalLow,
		&cfg.Bounds.CriticalHigh,
		&cfg.Severity,
		&cfg.ReadIntervalSeconds,
		&cfg.Active,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	cfg.CreatedAt = cfg.CreatedAt.UTC()
	cfg.UpdatedAt = cfg.UpdatedAt.UTC()
	return &cfg, nil
}
