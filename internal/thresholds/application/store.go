package application

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"sensoralert/internal/audit"
	thresholds "sensoralert/internal/thresholds/domain"
)

// ConfigRepository is the persistence surface the store needs.
type ConfigRepository interface {
	GetBySensor(ctx context.Context, companyID, sensorID string) (*thresholds.Config, error)
	UpdateBounds(ctx context.Context, companyID, sensorID string, bounds thresholds.Bounds, precision int, updatedAt time.Time) error
	SetActive(ctx context.Context, companyID, sensorID string, active bool, updatedAt time.Time) error
	GetChannels(ctx context.Context, companyID, configID string) (*thresholds.ChannelConfig, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Store owns threshold configuration reads and validated updates.
type Store struct {
	configs ConfigRepository
	auditor audit.Logger
	clock   Clock
	logger  *zap.Logger
}

// StoreOption customizes the store.
type StoreOption func(*Store)

// WithAuditor assigns an audit logger.
func WithAuditor(auditor audit.Logger) StoreOption {
	return func(s *Store) {
		s.auditor = auditor
	}
}

// WithClock overrides the default clock.
func WithClock(clock Clock) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewStore constructs a threshold store.
func NewStore(configs ConfigRepository, logger *zap.Logger, opts ...StoreOption) (*Store, error) {
	if configs == nil {
		return nil, errors.New("threshold store: nil repository")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	store := &Store{configs: configs, clock: systemClock{}, logger: logger}
	for _, opt := range opts {
		opt(store)
	}
	return store, nil
}

// GetThresholds returns the config for a sensor.
func (s *Store) GetThresholds(ctx context.Context, companyID, sensorID string) (*thresholds.Config, error) {
	if s == nil {
		return nil, errors.New("threshold store: nil store")
	}
	if companyID == "" {
		return nil, errors.New("threshold store: company id required")
	}
	if sensorID == "" {
		return nil, errors.New("threshold store: sensor id required")
	}
	cfg, err := s.configs.GetBySensor(ctx, companyID, sensorID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, thresholds.ErrNotFound
	}
	return cfg, nil
}

// SetThresholds validates and persists new bounds. Invalid bounds are
// rejected before persistence and leave the prior config unchanged.
func (s *Store) SetThresholds(ctx context.Context, companyID, sensorID string, bounds thresholds.Bounds, precision int) (*thresholds.Config, error) {
	if s == nil {
		return nil, errors.New("threshold store: nil store")
	}
	if precision < 0 {
		return nil, &thresholds.ValidationError{Bound: "precision", Reason: "precision must not be negative"}
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	current, err := s.GetThresholds(ctx, companyID, sensorID)
	if err != nil {
		return nil, err
	}

	updatedAt := s.clock.Now().UTC()
	if err := s.configs.UpdateBounds(ctx, companyID, sensorID, bounds, precision, updatedAt); err != nil {
		return nil, err
	}
	current.Bounds = bounds
	current.Precision = precision
	current.UpdatedAt = updatedAt

	s.logger.Info("thresholds updated",
		zap.String("company_id", companyID),
		zap.String("sensor_id", sensorID),
	)
	s.logAudit(ctx, current, "thresholds.update")
	return current, nil
}

// Disable logically disables a config; it is never deleted.
func (s *Store) Disable(ctx context.Context, companyID, sensorID string) error {
	if s == nil {
		return errors.New("threshold store: nil store")
	}
	if companyID == "" || sensorID == "" {
		return errors.New("threshold store: company and sensor ids required")
	}
	if err := s.configs.SetActive(ctx, companyID, sensorID, false, s.clock.Now().UTC()); err != nil {
		return err
	}
	s.logger.Info("threshold config disabled",
		zap.String("company_id", companyID),
		zap.String("sensor_id", sensorID),
	)
	return nil
}

// GetChannels returns the channel switches for a sensor's config.
func (s *Store) GetChannels(ctx context.Context, companyID, configID string) (*thresholds.ChannelConfig, error) {
	if s == nil {
		return nil, errors.New("threshold store: nil store")
	}
	if companyID == "" || configID == "" {
		return nil, errors.New("threshold store: company and config ids required")
	}
	return s.configs.GetChannels(ctx, companyID, configID)
}

func (s *Store) logAudit(ctx context.Context, cfg *thresholds.Config, action string) {
	if s.auditor == nil || cfg == nil {
		return
	}
	meta, _ := json.Marshal(map[string]any{
		"range_min":     cfg.Bounds.RangeMin,
		"range_max":     cfg.Bounds.RangeMax,
		"alert_low":     cfg.Bounds.AlertLow,
		"alert_high":    cfg.Bounds.AlertHigh,
		"critical_low":  cfg.Bounds.CriticalLow,
		"critical_high": cfg.Bounds.CriticalHigh,
		"precision":     cfg.Precision,
	})
	_ = s.auditor.Log(ctx, audit.Entry{
		CompanyID:    cfg.CompanyID,
		Action:       action,
		ResourceType: "sensor_threshold_config",
		ResourceID:   cfg.ID,
		SensorID:     cfg.SensorID,
		Metadata:     meta,
		CreatedAt:    s.clock.Now().UTC(),
	})
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
