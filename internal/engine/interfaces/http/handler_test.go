package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"sensoralert/internal/cooldown"
	"sensoralert/internal/dispatch"
	"sensoralert/internal/engine"
	ledgerapp "sensoralert/internal/ledger/application"
	ledger "sensoralert/internal/ledger/domain"
	readings "sensoralert/internal/readings/domain"
	recipientapp "sensoralert/internal/recipients/application"
	thresholds "sensoralert/internal/thresholds/domain"
)

type configStub struct {
	cfg *thresholds.Config
}

func (c *configStub) GetThresholds(_ context.Context, _, _ string) (*thresholds.Config, error) {
	if c.cfg == nil {
		return nil, thresholds.ErrNotFound
	}
	return c.cfg, nil
}

type appenderStub struct{}

func (appenderStub) Append(_ context.Context, _ *readings.Reading) error { return nil }

type creatorStub struct{}

func (creatorStub) CreateForBreach(_ context.Context, breach ledgerapp.Breach) (*ledger.AlertRecord, bool, error) {
	return &ledger.AlertRecord{ID: "alert-1", CompanyID: breach.CompanyID}, true, nil
}

type resolverStub struct{}

func (resolverStub) Resolve(_ context.Context, _, _ string) (recipientapp.Resolution, error) {
	return recipientapp.Resolution{}, nil
}

type dispatcherStub struct{}

func (dispatcherStub) Dispatch(_ context.Context, _ *ledger.AlertRecord, _ dispatch.Targets) ([]dispatch.Outcome, error) {
	return nil, nil
}

func newTestHandler(t *testing.T, cfg *thresholds.Config) *IngestHandler {
	t.Helper()
	eng, err := engine.New(appenderStub{}, &configStub{cfg: cfg}, cooldown.NewMemoryManager(5*time.Minute),
		creatorStub{}, resolverStub{}, dispatcherStub{}, zap.NewNop())
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	t.Cleanup(eng.Close)
	handler, err := NewIngestHandler(eng, zap.NewNop())
	if err != nil {
		t.Fatalf("NewIngestHandler: %v", err)
	}
	return handler
}

func activeConfig() *thresholds.Config {
	return &thresholds.Config{
		ID:         "thrcfg-1",
		CompanyID:  "company-1",
		SensorID:   "sensor-1",
		SensorType: thresholds.TypeTemperature,
		Precision:  2,
		Bounds: thresholds.Bounds{
			RangeMin: 15, RangeMax: 25,
			AlertLow: 18, AlertHigh: 22,
			CriticalLow: 15, CriticalHigh: 25,
		},
		Active: true,
	}
}

func TestIngestAcceptsReading(t *testing.T) {
	handler := newTestHandler(t, activeConfig())

	body := `{"sensor_id":"sensor-1","company_id":"company-1","sensor_type":"TEMPERATURE","value":26,"timestamp":"2026-04-01T09:30:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"CRITICAL"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestIngestRejectsInvalidJSON(t *testing.T) {
	handler := newTestHandler(t, activeConfig())

	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestRejectsBadTimestamp(t *testing.T) {
	handler := newTestHandler(t, activeConfig())

	body := `{"sensor_id":"sensor-1","company_id":"company-1","sensor_type":"TEMPERATURE","value":20,"timestamp":"yesterday"}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIngestUnconfiguredSensorAcceptedUnevaluated(t *testing.T) {
	handler := newTestHandler(t, nil)

	body := `{"sensor_id":"sensor-9","company_id":"company-1","sensor_type":"TEMPERATURE","value":20}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"evaluated":false`) {
		t.Fatalf("body = %s, want unevaluated result", rec.Body.String())
	}
}

func TestIngestDefaultsMissingTimestamp(t *testing.T) {
	handler := newTestHandler(t, activeConfig())

	body := `{"sensor_id":"sensor-1","company_id":"company-1","sensor_type":"TEMPERATURE","value":26}`
	req := httptest.NewRequest(http.MethodPost, "/ingest/readings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"CRITICAL"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestIngestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, activeConfig())

	req := httptest.NewRequest(http.MethodGet, "/ingest/readings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
