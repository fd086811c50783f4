// Package application auto-provisions threshold configuration when a sensor
// is created, so every sensor is monitored from its first reading.
package application

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"sensoralert/internal/audit"
	recipientrepo "sensoralert/internal/recipients/infrastructure/postgres"
	thresholds "sensoralert/internal/thresholds/domain"
	thresholdrepo "sensoralert/internal/thresholds/infrastructure/postgres"
)

// SensorCreated describes a freshly created sensor.
type SensorCreated struct {
	CompanyID  string `json:"company_id"`
	SensorID   string `json:"sensor_id"`
	SensorType string `json:"sensor_type"`
	LocationID string `json:"location_id,omitempty"`
	Actor      string `json:"actor,omitempty"`
}

// ProvisionResult summarizes what provisioning created.
type ProvisionResult struct {
	ConfigID         string `json:"config_id"`
	Created          bool   `json:"created"`
	LinkedRecipients int    `json:"linked_recipients"`
}

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Service provisions default thresholds, channel switches and recipient
// links for new sensors. Provisioning runs once per sensor: an existing
// config is never overwritten.
type Service struct {
	db        *sql.DB
	templates map[string]thresholds.Template
	auditor   audit.Logger
	clock     Clock
	logger    *zap.Logger
}

// Option configures the service.
type Option func(*Service)

// WithTemplates overlays operator template overrides on the defaults.
func WithTemplates(overrides map[string]thresholds.Template) Option {
	return func(s *Service) {
		s.templates = thresholds.MergeTemplates(overrides)
	}
}

// WithAuditor injects an audit logger.
func WithAuditor(auditor audit.Logger) Option {
	return func(s *Service) {
		if auditor != nil {
			s.auditor = auditor
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewService constructs a provisioning service.
func NewService(db *sql.DB, logger *zap.Logger, opts ...Option) (*Service, error) {
	if db == nil {
		return nil, errors.New("provisioning: nil db")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:        db,
		templates: thresholds.MergeTemplates(nil),
		clock:     systemClock{},
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OnSensorCreated provisions the sensor's default threshold config inside
// one transaction: the config, its channel switches (all enabled) and links
// to every active recipient of the company. When the sensor already has a
// config the call is a no-op and returns the existing config id.
func (s *Service) OnSensorCreated(ctx context.Context, event SensorCreated) (*ProvisionResult, error) {
	if event.CompanyID == "" {
		return nil, errors.New("provisioning: company id required")
	}
	if event.SensorID == "" {
		return nil, errors.New("provisioning: sensor id required")
	}
	if event.SensorType == "" {
		return nil, errors.New("provisioning: sensor type required")
	}

	existing, err := thresholdrepo.NewConfigRepository(s.db).GetBySensor(ctx, event.CompanyID, event.SensorID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &ProvisionResult{ConfigID: existing.ID, Created: false}, nil
	}

	tpl, ok := s.templates[event.SensorType]
	if !ok {
		tpl = thresholds.TemplateFor(event.SensorType)
	}
	now := s.clock.Now().UTC()
	cfg := &thresholds.Config{
		ID:         stableID("thrcfg", event.CompanyID+"|"+event.SensorID),
		CompanyID:  event.CompanyID,
		SensorID:   event.SensorID,
		SensorType: event.SensorType,
		Unit:       tpl.Unit,
		Precision:  tpl.Precision,
		Bounds:     tpl.Bounds,
		Severity:   tpl.Severity,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	channels := &thresholds.ChannelConfig{
		ConfigID:  cfg.ID,
		CompanyID: event.CompanyID,
		Email:     true,
		SMS:       true,
		Push:      true,
		UpdatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	if err := thresholdrepo.NewConfigRepository(tx).Create(ctx, cfg, channels); err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	recipientRepo := recipientrepo.NewRecipientRepository(tx)
	active, err := recipientRepo.ListActiveByCompany(ctx, event.CompanyID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}
	for _, recipient := range active {
		if err := recipientRepo.Link(ctx, cfg.ID, recipient.ID, now); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("sensor provisioned",
		zap.String("company_id", event.CompanyID),
		zap.String("sensor_id", event.SensorID),
		zap.String("sensor_type", event.SensorType),
		zap.String("config_id", cfg.ID),
		zap.Int("linked_recipients", len(active)),
	)
	s.writeAudit(ctx, event, cfg.ID)

	return &ProvisionResult{ConfigID: cfg.ID, Created: true, LinkedRecipients: len(active)}, nil
}

func (s *Service) writeAudit(ctx context.Context, event SensorCreated, configID string) {
	if s.auditor == nil {
		return
	}
	metadata, _ := json.Marshal(event)
	entry := audit.Entry{
		ID:            audit.NewID(),
		CompanyID:     event.CompanyID,
		Actor:         event.Actor,
		Action:        "sensor.provision",
		ResourceType:  "threshold_config",
		ResourceID:    configID,
		SensorID:      event.SensorID,
		Metadata:      metadata,
		PayloadDigest: audit.DigestJSON(metadata),
		CreatedAt:     s.clock.Now().UTC(),
	}
	if err := s.auditor.Log(ctx, entry); err != nil {
		s.logger.Warn("audit write failed", zap.String("action", entry.Action), zap.Error(err))
	}
}

func stableID(prefix, key string) string {
	sum := sha1.Sum([]byte(key))
	return prefix + "-" + hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
