// Package dispatch fans an alert out to its notification channels
// concurrently and records per-channel outcomes in the ledger.
package dispatch

import (
	"context"

	ledger "sensoralert/internal/ledger/domain"
)

// EmailSender delivers an alert message to email recipients.
type EmailSender interface {
	SendEmail(ctx context.Context, to []string, subject, body string) error
}

// SMSSender delivers an alert message to phone numbers.
type SMSSender interface {
	SendSMS(ctx context.Context, to []string, message string) error
}

// RealtimePublisher pushes an alert to connected dashboard clients.
// Delivery is best effort; there is no acknowledgement.
type RealtimePublisher interface {
	Publish(ctx context.Context, companyID string, record *ledger.AlertRecord) error
}

// Targets carries the resolved destinations for one alert. Empty slices or
// a false Push disable the corresponding channel for this dispatch.
type Targets struct {
	Emails []string
	Phones []string
	Push   bool
}

// Enabled lists the channels this dispatch will attempt.
func (t Targets) Enabled() []ledger.Channel {
	var channels []ledger.Channel
	if len(t.Emails) > 0 {
		channels = append(channels, ledger.ChannelEmail)
	}
	if len(t.Phones) > 0 {
		channels = append(channels, ledger.ChannelSMS)
	}
	if t.Push {
		channels = append(channels, ledger.ChannelPush)
	}
	return channels
}

// Outcome is the final result of one channel's delivery attempt(s).
type Outcome struct {
	Channel  ledger.Channel
	Attempts int
	Err      error
}

// Succeeded reports whether the channel ultimately delivered.
func (o Outcome) Succeeded() bool { return o.Err == nil }
