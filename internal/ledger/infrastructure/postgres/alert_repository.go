package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	ledger "sensoralert/internal/ledger/domain"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repository needs.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const alertColumns = `id, company_id, sensor_id, location_id, sensor_type, severity, direction,
	value, threshold, unit, message, delivery, terminal, created_at, updated_at`

// AlertRepository is a Postgres repository for alert records. The per-channel
// delivery ledger is stored as a jsonb column so one channel's status update
// does not race another's row-level rewrite.
type AlertRepository struct {
	db DBTX
}

// NewAlertRepository constructs a repository.
func NewAlertRepository(db DBTX) (*AlertRepository, error) {
	if db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	return &AlertRepository{db: db}, nil
}

// Create inserts a new alert record.
func (r *AlertRepository) Create(ctx context.Context, record *ledger.AlertRecord) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if record == nil {
		return errors.New("alert repo: nil record")
	}
	if record.ID == "" || record.CompanyID == "" || record.SensorID == "" {
		return errors.New("alert repo: missing fields")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	if record.UpdatedAt.IsZero() {
		record.UpdatedAt = record.CreatedAt
	}
	delivery := record.Delivery
	if delivery == nil {
		delivery = map[ledger.Channel]ledger.Delivery{}
	}
	payload, err := json.Marshal(delivery)
	if err != nil {
		return &ledger.PersistenceError{Op: "create", Err: err}
	}
	_, err = r.db.ExecContext(ctx, `
INSERT INTO alert_records (
	id, company_id, sensor_id, location_id, sensor_type, severity, direction,
	value, threshold, unit, message, delivery, terminal, created_at, updated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7,
	$8, $9, $10, $11, $12, $13, $14, $15
)`,
		record.ID,
		record.CompanyID,
		record.SensorID,
		nullableString(record.LocationID),
		record.SensorType,
		record.Severity,
		record.Direction,
		record.Value,
		record.Threshold,
		nullableString(record.Unit),
		record.Message,
		payload,
		record.Terminal,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return &ledger.PersistenceError{Op: "create", Err: err}
	}
	return nil
}

// GetByID fetches an alert by id scoped to a company.
func (r *AlertRepository) GetByID(ctx context.Context, companyID, id string) (*ledger.AlertRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if companyID == "" || id == "" {
		return nil, errors.New("alert repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+alertColumns+`
FROM alert_records
WHERE company_id = $1 AND id = $2`, companyID, id)
	return scanAlert(row)
}

// FindOpenSince returns the most recent non-terminal alert for the sensor and
// direction created at or after the given instant. Nil when none exists.
func (r *AlertRepository) FindOpenSince(ctx context.Context, companyID, sensorID, direction string, since time.Time) (*ledger.AlertRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if companyID == "" || sensorID == "" || direction == "" {
		return nil, errors.New("alert repo: invalid query")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+alertColumns+`
FROM alert_records
WHERE company_id = $1 AND sensor_id = $2 AND direction = $3
	AND terminal = FALSE AND created_at >= $4
ORDER BY created_at DESC
LIMIT 1`, companyID, sensorID, direction, since)
	return scanAlert(row)
}

// SetDelivery writes one channel's delivery status into the jsonb ledger.
func (r *AlertRepository) SetDelivery(ctx context.Context, companyID, id string, channel ledger.Channel, status ledger.Delivery) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	if companyID == "" || id == "" || channel == "" {
		return errors.New("alert repo: invalid update")
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return &ledger.PersistenceError{Op: "set delivery", Err: err}
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE alert_records
SET delivery = jsonb_set(delivery, ARRAY[$1], $2::jsonb, true), updated_at = $3
WHERE company_id = $4 AND id = $5`,
		string(channel), payload, status.UpdatedAt, companyID, id)
	if err != nil {
		return &ledger.PersistenceError{Op: "set delivery", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &ledger.PersistenceError{Op: "set delivery", Err: err}
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// MarkTerminal settles the record: delivery bookkeeping is complete.
func (r *AlertRepository) MarkTerminal(ctx context.Context, companyID, id string, at time.Time) error {
	if r == nil || r.db == nil {
		return errors.New("alert repo: nil db")
	}
	result, err := r.db.ExecContext(ctx, `
UPDATE alert_records
SET terminal = TRUE, updated_at = $1
WHERE company_id = $2 AND id = $3`, at, companyID, id)
	if err != nil {
		return &ledger.PersistenceError{Op: "mark terminal", Err: err}
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return &ledger.PersistenceError{Op: "mark terminal", Err: err}
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// ListFilter narrows ListByCompany. Zero values mean "no constraint".
type ListFilter struct {
	SensorID string
	Severity string
	From     time.Time
	To       time.Time
	Limit    int
}

// ListByCompany lists alert records for a company, newest first.
func (r *AlertRepository) ListByCompany(ctx context.Context, companyID string, filter ListFilter) ([]ledger.AlertRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alert repo: nil db")
	}
	if companyID == "" {
		return nil, errors.New("alert repo: invalid query")
	}
	query := `
SELECT ` + alertColumns + `
FROM alert_records
WHERE company_id = $1`
	args := []any{companyID}
	if filter.SensorID != "" {
		args = append(args, filter.SensorID)
		query += " AND sensor_id = $" + strconv.Itoa(len(args))
	}
	if filter.Severity != "" {
		args = append(args, filter.Severity)
		query += " AND severity = $" + strconv.Itoa(len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		query += " AND created_at >= $" + strconv.Itoa(len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		query += " AND created_at < $" + strconv.Itoa(len(args))
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT $" + strconv.Itoa(len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &ledger.PersistenceError{Op: "list", Err: err}
	}
	defer rows.Close()

	var result []ledger.AlertRecord
	for rows.Next() {
		record, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, &ledger.PersistenceError{Op: "list", Err: err}
	}
	return result, nil
}

type alertScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row alertScanner) (*ledger.AlertRecord, error) {
	var record ledger.AlertRecord
	var locationID sql.NullString
	var unit sql.NullString
	var delivery []byte
	if err := row.Scan(
		&record.ID,
		&record.CompanyID,
		&record.SensorID,
		&locationID,
		&record.SensorType,
		&record.Severity,
		&record.Direction,
		&record.Value,
		&record.Threshold,
		&unit,
		&record.Message,
		&delivery,
		&record.Terminal,
		&record.CreatedAt,
		&record.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if locationID.Valid {
		record.LocationID = locationID.String
	}
	if unit.Valid {
		record.Unit = unit.String
	}
	record.Delivery = map[ledger.Channel]ledger.Delivery{}
	if len(delivery) > 0 {
		if err := json.Unmarshal(delivery, &record.Delivery); err != nil {
			return nil, &ledger.PersistenceError{Op: "scan", Err: err}
		}
	}
	record.CreatedAt = record.CreatedAt.UTC()
	record.UpdatedAt = record.UpdatedAt.UTC()
	return &record, nil
}

func nullableString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

