package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	readings "sensoralert/internal/readings/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ReadingRepository appends reading facts. Readings are never updated.
type ReadingRepository struct {
	db DBTX
}

// NewReadingRepository constructs a repository.
func NewReadingRepository(db DBTX) *ReadingRepository {
	return &ReadingRepository{db: db}
}

// Append stores one reading fact.
func (r *ReadingRepository) Append(ctx context.Context, reading *readings.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	if reading == nil {
		return errors.New("reading repo: nil reading")
	}
	if err := reading.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO readings (
	sensor_id, company_id, location_id, sensor_type, value, unit, recorded_at, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8
)`,
		reading.SensorID, reading.CompanyID, reading.LocationID, reading.SensorType,
		reading.Value, reading.Unit, reading.Timestamp.UTC(), time.Now().UTC())
	return err
}
