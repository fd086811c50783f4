// Package application coordinates alert record lifecycle: idempotent
// creation per breach and per-channel delivery bookkeeping.
package application

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	ledger "sensoralert/internal/ledger/domain"
	alertrepo "sensoralert/internal/ledger/infrastructure/postgres"
)

// deliveryWriteAttempts bounds retries of the delivery-status write itself,
// not of the channel send it records.
const deliveryWriteAttempts = 3

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// AlertRepository is the storage the ledger needs.
type AlertRepository interface {
	Create(ctx context.Context, record *ledger.AlertRecord) error
	GetByID(ctx context.Context, companyID, id string) (*ledger.AlertRecord, error)
	FindOpenSince(ctx context.Context, companyID, sensorID, direction string, since time.Time) (*ledger.AlertRecord, error)
	SetDelivery(ctx context.Context, companyID, id string, channel ledger.Channel, status ledger.Delivery) error
	MarkTerminal(ctx context.Context, companyID, id string, at time.Time) error
	ListByCompany(ctx context.Context, companyID string, filter alertrepo.ListFilter) ([]ledger.AlertRecord, error)
}

// Breach describes one threshold crossing to be recorded.
type Breach struct {
	CompanyID  string
	SensorID   string
	LocationID string
	SensorType string
	Severity   string
	Direction  string
	Value      float64
	Threshold  float64
	Unit       string
	At         time.Time
}

// Ledger owns alert records. Creation is idempotent per
// (company, sensor, direction) within the dedup window: a second breach
// arriving while an open record exists returns that record instead of
// inserting a duplicate.
type Ledger struct {
	alerts      AlertRepository
	clock       Clock
	logger      *zap.Logger
	dedupWindow time.Duration

	mu    sync.Mutex
	locks map[string]*keyLock
}

// keyLock is one entry of the keyed-mutex map. refs counts holders and
// waiters so released keys can be dropped from the map.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Option configures the ledger.
type Option func(*Ledger)

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(l *Ledger) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithDedupWindow overrides how far back an open record suppresses a new one.
func WithDedupWindow(window time.Duration) Option {
	return func(l *Ledger) {
		if window > 0 {
			l.dedupWindow = window
		}
	}
}

// NewLedger constructs a ledger.
func NewLedger(alerts AlertRepository, logger *zap.Logger, opts ...Option) (*Ledger, error) {
	if alerts == nil {
		return nil, errors.New("ledger: nil alert repository")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Ledger{
		alerts:      alerts,
		clock:       systemClock{},
		logger:      logger,
		dedupWindow: 5 * time.Minute,
		locks:       map[string]*keyLock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// CreateForBreach records an alert for a threshold crossing. When an open
// record for the same sensor and direction already exists inside the dedup
// window, that record is returned and created reports false.
func (l *Ledger) CreateForBreach(ctx context.Context, breach Breach) (record *ledger.AlertRecord, created bool, err error) {
	if breach.CompanyID == "" || breach.SensorID == "" {
		return nil, false, errors.New("ledger: company and sensor required")
	}
	if breach.Direction != ledger.DirectionLow && breach.Direction != ledger.DirectionHigh {
		return nil, false, fmt.Errorf("ledger: invalid direction %q", breach.Direction)
	}
	if breach.Severity != ledger.SeverityAlert && breach.Severity != ledger.SeverityCritical {
		return nil, false, fmt.Errorf("ledger: invalid severity %q", breach.Severity)
	}

	// Serialize per sensor+direction so two concurrent breaches of the same
	// key cannot both miss FindOpenSince and double-insert.
	unlock := l.lock(breach.CompanyID + "|" + breach.SensorID + "|" + breach.Direction)
	defer unlock()

	at := breach.At
	if at.IsZero() {
		at = l.clock.Now()
	}
	at = at.UTC()

	existing, err := l.alerts.FindOpenSince(ctx, breach.CompanyID, breach.SensorID, breach.Direction, at.Add(-l.dedupWindow))
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	record = &ledger.AlertRecord{
		ID:         buildAlertID(breach.CompanyID, breach.SensorID, breach.Direction, at),
		CompanyID:  breach.CompanyID,
		SensorID:   breach.SensorID,
		LocationID: breach.LocationID,
		SensorType: breach.SensorType,
		Severity:   breach.Severity,
		Direction:  breach.Direction,
		Value:      breach.Value,
		Threshold:  breach.Threshold,
		Unit:       breach.Unit,
		Message:    buildMessage(breach),
		Delivery:   map[ledger.Channel]ledger.Delivery{},
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if err := l.alerts.Create(ctx, record); err != nil {
		return nil, false, err
	}
	l.logger.Info("alert recorded",
		zap.String("alert_id", record.ID),
		zap.String("company_id", record.CompanyID),
		zap.String("sensor_id", record.SensorID),
		zap.String("severity", record.Severity),
		zap.String("direction", record.Direction),
		zap.Float64("value", record.Value),
	)
	return record, true, nil
}

// RecordDelivery persists one channel's delivery outcome. The write is
// retried a few times; if it still fails the inconsistency is logged rather
// than surfaced, since the notification itself already happened.
func (l *Ledger) RecordDelivery(ctx context.Context, companyID, alertID string, channel ledger.Channel, status ledger.Delivery) {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = l.clock.Now().UTC()
	}
	var err error
	for attempt := 1; attempt <= deliveryWriteAttempts; attempt++ {
		err = l.alerts.SetDelivery(ctx, companyID, alertID, channel, status)
		if err == nil {
			return
		}
		if errors.Is(err, ledger.ErrNotFound) || ctx.Err() != nil {
			break
		}
		time.Sleep(time.Duration(attempt) * 50 * time.Millisecond)
	}
	l.logger.Error("delivery status write failed, ledger inconsistent for alert",
		zap.String("alert_id", alertID),
		zap.String("company_id", companyID),
		zap.String("channel", string(channel)),
		zap.Error(err),
	)
}

// MarkTerminal settles the record once every channel has a final outcome.
func (l *Ledger) MarkTerminal(ctx context.Context, companyID, alertID string) error {
	return l.alerts.MarkTerminal(ctx, companyID, alertID, l.clock.Now().UTC())
}

// Get fetches one alert record.
func (l *Ledger) Get(ctx context.Context, companyID, alertID string) (*ledger.AlertRecord, error) {
	record, err := l.alerts.GetByID(ctx, companyID, alertID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ledger.ErrNotFound
	}
	return record, nil
}

// List returns alert history for a company, newest first.
func (l *Ledger) List(ctx context.Context, companyID string, filter alertrepo.ListFilter) ([]ledger.AlertRecord, error) {
	return l.alerts.ListByCompany(ctx, companyID, filter)
}

func (l *Ledger) lock(key string) func() {
	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &keyLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()
	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

func buildAlertID(companyID, sensorID, direction string, at time.Time) string {
	sum := sha1.Sum([]byte(companyID + "|" + sensorID + "|" + direction + "|" + at.Format(time.RFC3339Nano)))
	return "alert-" + hex.EncodeToString(sum[:8])
}

func buildMessage(breach Breach) string {
	relation := "above"
	if breach.Direction == ledger.DirectionLow {
		relation = "below"
	}
	level := "alert"
	if breach.Severity == ledger.SeverityCritical {
		level = "critical"
	}
	unit := breach.Unit
	if unit != "" {
		unit = " " + unit
	}
	return fmt.Sprintf("%s reading %.2f%s %s %s threshold %.2f%s",
		breach.SensorType, breach.Value, unit, relation, level, breach.Threshold, unit)
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }
