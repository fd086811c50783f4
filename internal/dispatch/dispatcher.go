package dispatch

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	ledger "sensoralert/internal/ledger/domain"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffBase = 250 * time.Millisecond
	defaultBackoffCap  = 2 * time.Second
)

// DeliveryRecorder is the slice of the ledger the dispatcher needs.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, companyID, alertID string, channel ledger.Channel, status ledger.Delivery)
	MarkTerminal(ctx context.Context, companyID, alertID string) error
}

// Dispatcher sends one alert over email, SMS and push in parallel. A slow or
// failing channel never delays its siblings. Email and SMS retry with
// backoff; push is a single fire-and-forget attempt.
type Dispatcher struct {
	recorder    DeliveryRecorder
	email       EmailSender
	sms         SMSSender
	push        RealtimePublisher
	logger      *zap.Logger
	maxAttempts int
	backoffBase time.Duration
	backoffCap  time.Duration
}

// DispatcherOption configures the dispatcher.
type DispatcherOption func(*Dispatcher)

// WithMaxAttempts overrides the retry budget for email and SMS.
func WithMaxAttempts(attempts int) DispatcherOption {
	return func(d *Dispatcher) {
		if attempts > 0 {
			d.maxAttempts = attempts
		}
	}
}

// WithBackoff overrides the retry backoff base and cap.
func WithBackoff(base, cap time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if base > 0 {
			d.backoffBase = base
		}
		if cap > 0 {
			d.backoffCap = cap
		}
	}
}

// NewDispatcher constructs a dispatcher. Senders may be nil; a nil sender
// for an enabled channel is recorded as a failed delivery.
func NewDispatcher(recorder DeliveryRecorder, email EmailSender, sms SMSSender, push RealtimePublisher, logger *zap.Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	if recorder == nil {
		return nil, errors.New("dispatcher: nil delivery recorder")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		recorder:    recorder,
		email:       email,
		sms:         sms,
		push:        push,
		logger:      logger,
		maxAttempts: defaultMaxAttempts,
		backoffBase: defaultBackoffBase,
		backoffCap:  defaultBackoffCap,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch delivers the alert to every enabled channel and blocks until all
// outcomes are recorded, then settles the record. Channel failures are
// reflected in the returned outcomes, not in the error.
func (d *Dispatcher) Dispatch(ctx context.Context, record *ledger.AlertRecord, targets Targets) ([]Outcome, error) {
	if d == nil || record == nil {
		return nil, errors.New("dispatcher: nil record")
	}
	channels := targets.Enabled()
	if len(channels) == 0 {
		if err := d.recorder.MarkTerminal(ctx, record.CompanyID, record.ID); err != nil {
			return nil, err
		}
		return nil, nil
	}

	results := make(chan Outcome, len(channels))
	for _, channel := range channels {
		go func(channel ledger.Channel) {
			results <- d.deliver(ctx, record, targets, channel)
		}(channel)
	}

	outcomes := make([]Outcome, 0, len(channels))
	for range channels {
		outcome := <-results
		status := ledger.Delivery{
			Attempted: outcome.Attempts > 0,
			Succeeded: outcome.Succeeded(),
			Attempts:  outcome.Attempts,
		}
		if outcome.Err != nil {
			status.Error = outcome.Err.Error()
			d.logger.Warn("channel delivery failed",
				zap.String("alert_id", record.ID),
				zap.String("channel", string(outcome.Channel)),
				zap.Int("attempts", outcome.Attempts),
				zap.Error(outcome.Err),
			)
		}
		d.recorder.RecordDelivery(ctx, record.CompanyID, record.ID, outcome.Channel, status)
		outcomes = append(outcomes, outcome)
	}

	if err := d.recorder.MarkTerminal(ctx, record.CompanyID, record.ID); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (d *Dispatcher) deliver(ctx context.Context, record *ledger.AlertRecord, targets Targets, channel ledger.Channel) Outcome {
	switch channel {
	case ledger.ChannelEmail:
		if d.email == nil {
			return Outcome{Channel: channel, Err: errors.New("no email sender configured")}
		}
		subject := record.Severity + ": " + record.SensorType + " threshold breach"
		return d.withRetry(ctx, channel, func(ctx context.Context) error {
			return d.email.SendEmail(ctx, targets.Emails, subject, record.Message)
		})
	case ledger.ChannelSMS:
		if d.sms == nil {
			return Outcome{Channel: channel, Err: errors.New("no sms sender configured")}
		}
		return d.withRetry(ctx, channel, func(ctx context.Context) error {
			return d.sms.SendSMS(ctx, targets.Phones, record.Message)
		})
	case ledger.ChannelPush:
		if d.push == nil {
			return Outcome{Channel: channel, Err: errors.New("no realtime publisher configured")}
		}
		// Push gets exactly one attempt.
		err := d.push.Publish(ctx, record.CompanyID, record)
		return Outcome{Channel: channel, Attempts: 1, Err: err}
	default:
		return Outcome{Channel: channel, Err: errors.New("unknown channel")}
	}
}

func (d *Dispatcher) withRetry(ctx context.Context, channel ledger.Channel, send func(ctx context.Context) error) Outcome {
	var lastErr error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				lastErr = err
			}
			return Outcome{Channel: channel, Attempts: attempt - 1, Err: lastErr}
		}
		lastErr = send(ctx)
		if lastErr == nil {
			return Outcome{Channel: channel, Attempts: attempt}
		}
		if attempt < d.maxAttempts {
			select {
			case <-ctx.Done():
				return Outcome{Channel: channel, Attempts: attempt, Err: lastErr}
			case <-time.After(d.backoff(attempt)):
			}
		}
	}
	return Outcome{Channel: channel, Attempts: d.maxAttempts, Err: lastErr}
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.backoffBase << (attempt - 1)
	if delay > d.backoffCap {
		return d.backoffCap
	}
	return delay
}
