package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// WebhookEmailSender posts email jobs to an email gateway webhook. The
// gateway owns the actual SMTP delivery.
type WebhookEmailSender struct {
	url    string
	client *http.Client
}

// WebhookSMSSender posts SMS jobs to an SMS gateway webhook.
type WebhookSMSSender struct {
	url    string
	client *http.Client
}

// WebhookOption configures a webhook sender.
type WebhookOption func(*http.Client) *http.Client

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(current *http.Client) *http.Client {
		if client != nil {
			return client
		}
		return current
	}
}

// NewWebhookEmailSender constructs an email sender.
func NewWebhookEmailSender(url string, opts ...WebhookOption) (*WebhookEmailSender, error) {
	if url == "" {
		return nil, errors.New("email webhook: empty url")
	}
	client := &http.Client{Timeout: 10 * time.Second}
	for _, opt := range opts {
		client = opt(client)
	}
	return &WebhookEmailSender{url: url, client: client}, nil
}

// NewWebhookSMSSender constructs an SMS sender.
func NewWebhookSMSSender(url string, opts ...WebhookOption) (*WebhookSMSSender, error) {
	if url == "" {
		return nil, errors.New("sms webhook: empty url")
	}
	client := &http.Client{Timeout: 10 * time.Second}
	for _, opt := range opts {
		client = opt(client)
	}
	return &WebhookSMSSender{url: url, client: client}, nil
}

type emailJob struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

type smsJob struct {
	To      []string `json:"to"`
	Message string   `json:"message"`
}

// SendEmail implements EmailSender.
func (s *WebhookEmailSender) SendEmail(ctx context.Context, to []string, subject, body string) error {
	if s == nil || s.url == "" {
		return errors.New("email webhook: empty url")
	}
	if len(to) == 0 {
		return errors.New("email webhook: no recipients")
	}
	return postJSON(ctx, s.client, s.url, emailJob{To: to, Subject: subject, Body: body})
}

// SendSMS implements SMSSender.
func (s *WebhookSMSSender) SendSMS(ctx context.Context, to []string, message string) error {
	if s == nil || s.url == "" {
		return errors.New("sms webhook: empty url")
	}
	if len(to) == 0 {
		return errors.New("sms webhook: no recipients")
	}
	return postJSON(ctx, s.client, s.url, smsJob{To: to, Message: message})
}

func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: non-2xx response %d", resp.StatusCode)
	}
	return nil
}
