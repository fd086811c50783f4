// Package engine runs the reading pipeline: persist, classify against
// thresholds, apply the wait window, record the alert and fan out
// notifications.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"sensoralert/internal/cooldown"
	"sensoralert/internal/dispatch"
	"sensoralert/internal/evaluator"
	ledgerapp "sensoralert/internal/ledger/application"
	ledger "sensoralert/internal/ledger/domain"
	"sensoralert/internal/observability/metrics"
	readings "sensoralert/internal/readings/domain"
	recipientapp "sensoralert/internal/recipients/application"
	thresholds "sensoralert/internal/thresholds/domain"
)

// ReadingAppender persists raw readings.
type ReadingAppender interface {
	Append(ctx context.Context, reading *readings.Reading) error
}

// ConfigReader loads threshold configuration snapshots.
type ConfigReader interface {
	GetThresholds(ctx context.Context, companyID, sensorID string) (*thresholds.Config, error)
}

// AlertCreator records breaches in the ledger.
type AlertCreator interface {
	CreateForBreach(ctx context.Context, breach ledgerapp.Breach) (*ledger.AlertRecord, bool, error)
}

// TargetResolver resolves notification destinations for a config.
type TargetResolver interface {
	Resolve(ctx context.Context, companyID, configID string) (recipientapp.Resolution, error)
}

// AlertDispatcher fans an alert out to its channels.
type AlertDispatcher interface {
	Dispatch(ctx context.Context, record *ledger.AlertRecord, targets dispatch.Targets) ([]dispatch.Outcome, error)
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Result summarizes what happened to one submitted reading.
type Result struct {
	Status     evaluator.Status    `json:"status"`
	Direction  evaluator.Direction `json:"direction,omitempty"`
	Evaluated  bool                `json:"evaluated"`
	Suppressed bool                `json:"suppressed,omitempty"`
	AlertID    string              `json:"alert_id,omitempty"`
	NewAlert   bool                `json:"new_alert,omitempty"`
}

// Engine coordinates the reading pipeline. Notification dispatch runs on a
// background goroutine per alert so ingest latency never includes channel
// latency; Close drains those goroutines.
type Engine struct {
	readings        ReadingAppender
	configs         ConfigReader
	cooldowns       cooldown.Manager
	alerts          AlertCreator
	resolver        TargetResolver
	dispatcher      AlertDispatcher
	clock           Clock
	logger          *zap.Logger
	dispatchTimeout time.Duration
	wg              sync.WaitGroup
}

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithDispatchTimeout bounds how long a background dispatch may run.
func WithDispatchTimeout(timeout time.Duration) Option {
	return func(e *Engine) {
		if timeout > 0 {
			e.dispatchTimeout = timeout
		}
	}
}

// New constructs an engine.
func New(
	readingRepo ReadingAppender,
	configs ConfigReader,
	cooldowns cooldown.Manager,
	alerts AlertCreator,
	resolver TargetResolver,
	dispatcher AlertDispatcher,
	logger *zap.Logger,
	opts ...Option,
) (*Engine, error) {
	if configs == nil {
		return nil, errors.New("engine: nil config reader")
	}
	if cooldowns == nil {
		return nil, errors.New("engine: nil cooldown manager")
	}
	if alerts == nil {
		return nil, errors.New("engine: nil alert creator")
	}
	if resolver == nil {
		return nil, errors.New("engine: nil target resolver")
	}
	if dispatcher == nil {
		return nil, errors.New("engine: nil dispatcher")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		readings:        readingRepo,
		configs:         configs,
		cooldowns:       cooldowns,
		alerts:          alerts,
		resolver:        resolver,
		dispatcher:      dispatcher,
		clock:           systemClock{},
		logger:          logger,
		dispatchTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// SubmitReading runs one reading through the pipeline. The reading is
// persisted even when evaluation does not trigger; a storage failure on the
// raw reading is logged but does not block evaluation.
func (e *Engine) SubmitReading(ctx context.Context, reading readings.Reading) (*Result, error) {
	start := e.clock.Now()
	result, err := e.process(ctx, reading)
	outcome := metrics.ResultSuccess
	if err != nil {
		outcome = metrics.ResultError
	}
	metrics.ObserveReading(outcome, e.clock.Now().Sub(start))
	return result, err
}

func (e *Engine) process(ctx context.Context, reading readings.Reading) (*Result, error) {
	if reading.Timestamp.IsZero() {
		reading.Timestamp = e.clock.Now().UTC()
	}
	if err := reading.Validate(); err != nil {
		return nil, err
	}

	if e.readings != nil {
		stored := reading
		if err := e.readings.Append(ctx, &stored); err != nil {
			e.logger.Warn("reading append failed",
				zap.String("company_id", reading.CompanyID),
				zap.String("sensor_id", reading.SensorID),
				zap.Error(err),
			)
		}
	}

	cfg, err := e.configs.GetThresholds(ctx, reading.CompanyID, reading.SensorID)
	if err != nil {
		if errors.Is(err, thresholds.ErrNotFound) {
			// Fail closed: the reading is kept but never evaluated, and the
			// gap is the operator's to notice, not the sender's.
			e.logger.Warn("reading for unconfigured sensor not evaluated",
				zap.String("company_id", reading.CompanyID),
				zap.String("sensor_id", reading.SensorID),
			)
			return &Result{Status: evaluator.StatusNormal, Evaluated: false}, nil
		}
		return nil, err
	}
	if !cfg.Active {
		return &Result{Status: evaluator.StatusNormal, Evaluated: false}, nil
	}

	classification := evaluator.Classify(reading, *cfg)
	metrics.IncClassification(string(classification.Status))
	result := &Result{
		Status:    classification.Status,
		Direction: classification.Direction,
		Evaluated: true,
	}
	if !classification.Triggers() {
		return result, nil
	}

	allowed, err := e.cooldowns.Acquire(ctx, reading.SensorID, string(classification.Direction), reading.Timestamp)
	if err != nil {
		return nil, err
	}
	if !allowed {
		metrics.IncCooldownSuppressed()
		result.Suppressed = true
		return result, nil
	}

	severity := ledger.SeverityAlert
	if classification.Status == evaluator.StatusCritical {
		severity = ledger.SeverityCritical
	}
	record, created, err := e.alerts.CreateForBreach(ctx, ledgerapp.Breach{
		CompanyID:  reading.CompanyID,
		SensorID:   reading.SensorID,
		LocationID: reading.LocationID,
		SensorType: reading.SensorType,
		Severity:   severity,
		Direction:  string(classification.Direction),
		Value:      classification.Value,
		Threshold:  classification.CrossedValue,
		Unit:       cfg.Unit,
		At:         reading.Timestamp,
	})
	if err != nil {
		// Disarm the window so the failed write does not silence the breach
		// for the rest of the cooldown.
		if relErr := e.cooldowns.Release(ctx, reading.SensorID, string(classification.Direction)); relErr != nil {
			e.logger.Warn("cooldown release failed after ledger error",
				zap.String("sensor_id", reading.SensorID),
				zap.Error(relErr),
			)
		}
		return nil, err
	}
	result.AlertID = record.ID
	result.NewAlert = created
	if !created {
		return result, nil
	}
	metrics.IncAlertCreated(record.Severity)

	e.wg.Add(1)
	go e.dispatchAlert(record, cfg.ID)

	return result, nil
}

// dispatchAlert resolves targets and fans the alert out. It runs detached
// from the ingest request so it carries its own deadline.
func (e *Engine) dispatchAlert(record *ledger.AlertRecord, configID string) {
	defer e.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), e.dispatchTimeout)
	defer cancel()

	resolution, err := e.resolver.Resolve(ctx, record.CompanyID, configID)
	if err != nil {
		e.logger.Error("recipient resolution failed",
			zap.String("alert_id", record.ID),
			zap.String("company_id", record.CompanyID),
			zap.Error(err),
		)
		return
	}
	targets := dispatch.Targets{
		Emails: resolution.EmailAddresses(),
		Phones: resolution.PhoneNumbers(),
		Push:   resolution.Push,
	}

	outcomes, err := e.dispatcher.Dispatch(ctx, record, targets)
	if err != nil {
		e.logger.Error("alert dispatch failed",
			zap.String("alert_id", record.ID),
			zap.Error(err),
		)
	}
	for _, outcome := range outcomes {
		metrics.IncDelivery(string(outcome.Channel), outcome.Succeeded())
	}
}

// Close waits for in-flight dispatches to finish.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.wg.Wait()
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
