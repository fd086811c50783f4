package metrics

import (
	"database/sql"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	metricPrefix = "sensoralert_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	readingsTotal *prometheus.CounterVec
	ingestLatency *prometheus.HistogramVec
	classifyTotal *prometheus.CounterVec
	cooldownTotal prometheus.Counter
	alertsTotal   *prometheus.CounterVec
	deliveryTotal *prometheus.CounterVec
	exportTotal   *prometheus.CounterVec
	exportLatency *prometheus.HistogramVec
)

// Init registers metrics and DB-backed gauges. Safe to call more than once.
func Init(db *sql.DB, logger *zap.Logger) {
	registerOnce.Do(func() {
		readingsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_total",
				Help: "Total submitted readings by result",
			},
			[]string{"result"},
		)
		ingestLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "ingest_latency_seconds",
				Help:    "Reading ingest latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)
		classifyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "classifications_total",
				Help: "Total reading classifications by status",
			},
			[]string{"status"},
		)
		cooldownTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "cooldown_suppressed_total",
				Help: "Total alerts suppressed by the wait window",
			},
		)
		alertsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alerts_created_total",
				Help: "Total alert records created by severity",
			},
			[]string{"severity"},
		)
		deliveryTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "delivery_total",
				Help: "Total channel deliveries by channel and result",
			},
			[]string{"channel", "result"},
		)
		exportTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "alert_export_total",
				Help: "Total alert history exports by format and result",
			},
			[]string{"format", "result"},
		)
		exportLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "alert_export_latency_seconds",
				Help:    "Alert history export latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			readingsTotal,
			ingestLatency,
			classifyTotal,
			cooldownTotal,
			alertsTotal,
			deliveryTotal,
			exportTotal,
			exportLatency,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveReading records one reading submission and its latency.
func ObserveReading(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if readingsTotal != nil {
		readingsTotal.WithLabelValues(result).Inc()
	}
	if ingestLatency != nil {
		ingestLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncClassification counts one classification outcome.
func IncClassification(status string) {
	if status == "" {
		status = "unknown"
	}
	if classifyTotal != nil {
		classifyTotal.WithLabelValues(status).Inc()
	}
}

// IncCooldownSuppressed counts one wait-window suppression.
func IncCooldownSuppressed() {
	if cooldownTotal != nil {
		cooldownTotal.Inc()
	}
}

// IncAlertCreated counts one new alert record.
func IncAlertCreated(severity string) {
	if severity == "" {
		severity = "unknown"
	}
	if alertsTotal != nil {
		alertsTotal.WithLabelValues(severity).Inc()
	}
}

// IncDelivery counts one channel delivery outcome.
func IncDelivery(channel string, succeeded bool) {
	if channel == "" {
		channel = "unknown"
	}
	result := resultSuccess
	if !succeeded {
		result = resultError
	}
	if deliveryTotal != nil {
		deliveryTotal.WithLabelValues(channel, result).Inc()
	}
}

// ObserveExport records alert history export latency and result.
func ObserveExport(format, result string, duration time.Duration) {
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if exportTotal != nil {
		exportTotal.WithLabelValues(format, result).Inc()
	}
	if exportLatency != nil {
		exportLatency.WithLabelValues(format, result).Observe(duration.Seconds())
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
