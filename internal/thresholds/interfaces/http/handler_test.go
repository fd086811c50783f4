package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	thresholdapp "sensoralert/internal/thresholds/application"
	thresholds "sensoralert/internal/thresholds/domain"
)

type repoStub struct {
	cfg *thresholds.Config
}

func (r *repoStub) GetBySensor(_ context.Context, companyID, sensorID string) (*thresholds.Config, error) {
	if r.cfg != nil && r.cfg.CompanyID == companyID && r.cfg.SensorID == sensorID {
		clone := *r.cfg
		return &clone, nil
	}
	return nil, nil
}

func (r *repoStub) UpdateBounds(_ context.Context, _, _ string, bounds thresholds.Bounds, precision int, updatedAt time.Time) error {
	r.cfg.Bounds = bounds
	r.cfg.Precision = precision
	r.cfg.UpdatedAt = updatedAt
	return nil
}

func (r *repoStub) SetActive(_ context.Context, _, _ string, active bool, _ time.Time) error {
	r.cfg.Active = active
	return nil
}

func (r *repoStub) GetChannels(_ context.Context, _, _ string) (*thresholds.ChannelConfig, error) {
	return nil, nil
}

func newTestHandler(t *testing.T) (*Handler, *repoStub) {
	t.Helper()
	repo := &repoStub{cfg: &thresholds.Config{
		ID:        "thrcfg-1",
		CompanyID: "company-1",
		SensorID:  "sensor-1",
		Bounds: thresholds.Bounds{
			RangeMin: 15, RangeMax: 25,
			AlertLow: 18, AlertHigh: 22,
			CriticalLow: 15, CriticalHigh: 25,
		},
		Precision: 2,
		Active:    true,
	}}
	store, err := thresholdapp.NewStore(repo, zap.NewNop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	handler, err := NewHandler(store)
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}
	return handler, repo
}

func TestGetThresholds(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/sensor-1/thresholds?company_id=company-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"sensor_id":"sensor-1"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestGetThresholdsRequiresCompany(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/sensor-1/thresholds", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetThresholdsUnknownSensor(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/sensor-9/thresholds?company_id=company-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestUpdateThresholds(t *testing.T) {
	handler, repo := newTestHandler(t)

	body := `{"bounds":{"range_min":10,"range_max":30,"alert_low":16,"alert_high":24,"critical_low":12,"critical_high":28},"precision":1}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/sensors/sensor-1/thresholds?company_id=company-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if repo.cfg.Bounds.AlertHigh != 24 || repo.cfg.Precision != 1 {
		t.Fatalf("config not updated: %+v", repo.cfg)
	}
}

func TestUpdateThresholdsRejectsMisorderedBounds(t *testing.T) {
	handler, repo := newTestHandler(t)
	before := repo.cfg.Bounds

	// alert_high above critical_high breaks the ordering chain.
	body := `{"bounds":{"range_min":10,"range_max":30,"alert_low":16,"alert_high":29,"critical_low":12,"critical_high":28},"precision":1}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/sensors/sensor-1/thresholds?company_id=company-1", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "alert_high") {
		t.Fatalf("error must name the offending bound, got %s", rec.Body.String())
	}
	if repo.cfg.Bounds != before {
		t.Fatal("rejected update must leave config unchanged")
	}
}

func TestDisableThresholds(t *testing.T) {
	handler, repo := newTestHandler(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sensors/sensor-1/thresholds?company_id=company-1", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if repo.cfg.Active {
		t.Fatal("config must be disabled")
	}
}

func TestUnknownPath(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sensors/sensor-1/other", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
