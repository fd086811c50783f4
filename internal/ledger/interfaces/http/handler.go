// Package http exposes alert history endpoints: listing, lookup and export.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	ledgerapp "sensoralert/internal/ledger/application"
	ledger "sensoralert/internal/ledger/domain"
	alertrepo "sensoralert/internal/ledger/infrastructure/postgres"
	"sensoralert/internal/observability/metrics"
)

const timeLayout = time.RFC3339

// Handler provides alert HTTP endpoints.
type Handler struct {
	service *ledgerapp.Ledger
}

// NewHandler constructs a handler.
func NewHandler(service *ledgerapp.Ledger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alerts handler: nil service")
	}
	return &Handler{service: service}, nil
}

// ServeHTTP handles /api/v1/alerts and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch {
	case r.URL.Path == "/api/v1/alerts":
		h.handleList(w, r)
	case r.URL.Path == "/api/v1/alerts/export":
		h.handleExport(w, r)
	case strings.HasPrefix(r.URL.Path, "/api/v1/alerts/"):
		h.handleGet(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	companyID, filter, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	records, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []ledger.AlertRecord{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(records)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		http.Error(w, "company_id is required", http.StatusBadRequest)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	if id == "" || strings.Contains(id, "/") {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	record, err := h.service.Get(r.Context(), companyID, id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(record)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	companyID, filter, err := parseListQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "xlsx"
	}
	if format != "xlsx" && format != "pdf" {
		http.Error(w, "format must be xlsx or pdf", http.StatusBadRequest)
		return
	}

	start := time.Now()
	records, err := h.service.List(r.Context(), companyID, filter)
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	var payload []byte
	var contentType, filename string
	switch format {
	case "pdf":
		payload, err = BuildAlertHistoryPDF(companyID, records, time.Now())
		contentType = "application/pdf"
		filename = "alerts.pdf"
	default:
		payload, err = BuildAlertHistoryXLSX(companyID, records, time.Now())
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		filename = "alerts.xlsx"
	}
	if err != nil {
		metrics.ObserveExport(format, metrics.ResultError, time.Since(start))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	metrics.ObserveExport(format, metrics.ResultSuccess, time.Since(start))

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = w.Write(payload)
}

func parseListQuery(r *http.Request) (string, alertrepo.ListFilter, error) {
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		return "", alertrepo.ListFilter{}, errors.New("company_id is required")
	}
	filter := alertrepo.ListFilter{
		SensorID: r.URL.Query().Get("sensor_id"),
		Severity: r.URL.Query().Get("severity"),
	}
	if value := r.URL.Query().Get("from"); value != "" {
		parsed, err := time.Parse(timeLayout, value)
		if err != nil {
			return "", alertrepo.ListFilter{}, errors.New("from must be RFC3339")
		}
		filter.From = parsed.UTC()
	}
	if value := r.URL.Query().Get("to"); value != "" {
		parsed, err := time.Parse(timeLayout, value)
		if err != nil {
			return "", alertrepo.ListFilter{}, errors.New("to must be RFC3339")
		}
		filter.To = parsed.UTC()
	}
	if value := r.URL.Query().Get("limit"); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit < 0 {
			return "", alertrepo.ListFilter{}, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return companyID, filter, nil
}
