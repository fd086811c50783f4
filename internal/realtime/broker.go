// Package realtime pushes alert records to connected dashboard clients over
// server-sent events, scoped per company.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	ledger "sensoralert/internal/ledger/domain"
)

// Broker fans alert records out to subscribed clients. Each subscription is
// bound to one company; clients never see another tenant's alerts.
type Broker struct {
	mu      sync.Mutex
	clients map[chan []byte]string
}

// NewBroker constructs a broker.
func NewBroker() *Broker {
	return &Broker{clients: make(map[chan []byte]string)}
}

// Publish implements dispatch.RealtimePublisher. Slow clients are skipped
// rather than waited on. Sends happen under the lock so a channel closed by
// Unsubscribe can never receive one; the sends are non-blocking, so the lock
// is held only briefly.
func (b *Broker) Publish(_ context.Context, companyID string, record *ledger.AlertRecord) error {
	if b == nil || record == nil {
		return nil
	}
	payload, err := json.Marshal(record)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch, company := range b.clients {
		if company != companyID {
			continue
		}
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

// Subscribe registers a client channel for one company's alerts.
func (b *Broker) Subscribe(companyID string) chan []byte {
	if b == nil || companyID == "" {
		return nil
	}
	ch := make(chan []byte, 16)
	b.mu.Lock()
	b.clients[ch] = companyID
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a client channel. The close happens under the same
// lock as Publish's sends, so an in-flight publish either delivers before the
// removal or skips the channel entirely.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b == nil || ch == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.clients[ch]; !ok {
		return
	}
	delete(b.clients, ch)
	close(ch)
}

// StreamHandler serves the SSE alert stream.
type StreamHandler struct {
	broker *Broker
}

// NewStreamHandler constructs a stream handler.
func NewStreamHandler(broker *Broker) *StreamHandler {
	return &StreamHandler{broker: broker}
}

// ServeHTTP handles GET /api/v1/alerts/stream?company_id=...
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.broker == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}
	companyID := r.URL.Query().Get("company_id")
	if companyID == "" {
		http.Error(w, "company_id is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := h.broker.Subscribe(companyID)
	if ch == nil {
		http.Error(w, "stream not ready", http.StatusServiceUnavailable)
		return
	}
	defer h.broker.Unsubscribe(ch)

	_, _ = w.Write([]byte("event: ready\ndata: {}\n\n"))
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write([]byte("event: alert\n"))
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-notify:
			return
		}
	}
}
