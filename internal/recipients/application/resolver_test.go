package application

import (
	"context"
	"testing"

	"go.uber.org/zap"

	recipients "sensoralert/internal/recipients/domain"
	thresholds "sensoralert/internal/thresholds/domain"
)

type stubRecipientReader struct {
	list []recipients.Recipient
}

func (s stubRecipientReader) ListActiveByConfig(_ context.Context, _, _ string) ([]recipients.Recipient, error) {
	return s.list, nil
}

type stubChannelReader struct {
	channels *thresholds.ChannelConfig
}

func (s stubChannelReader) GetChannels(_ context.Context, _, _ string) (*thresholds.ChannelConfig, error) {
	return s.channels, nil
}

func newTestResolver(t *testing.T, list []recipients.Recipient, channels *thresholds.ChannelConfig) *Resolver {
	t.Helper()
	resolver, err := NewResolver(stubRecipientReader{list: list}, stubChannelReader{channels: channels}, zap.NewNop())
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func TestResolveEmailOnlyRecipientNeverGetsSMS(t *testing.T) {
	resolver := newTestResolver(t,
		[]recipients.Recipient{
			{ID: "rec-1", CompanyID: "company-1", Name: "Ops", Email: "ops@example.com", Active: true},
		},
		&thresholds.ChannelConfig{Email: true, SMS: true, Push: true},
	)

	resolution, err := resolver.Resolve(context.Background(), "company-1", "cfg-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolution.Recipients) != 1 {
		t.Fatalf("expected 1 resolved recipient, got %d", len(resolution.Recipients))
	}
	resolved := resolution.Recipients[0]
	if !resolved.Email {
		t.Fatal("expected email channel resolved")
	}
	if resolved.SMS {
		t.Fatal("recipient without phone must never resolve for SMS")
	}
	if got := resolution.PhoneNumbers(); len(got) != 0 {
		t.Fatalf("expected no SMS numbers, got %v", got)
	}
}

func TestResolveHonorsGlobalChannelSwitches(t *testing.T) {
	resolver := newTestResolver(t,
		[]recipients.Recipient{
			{ID: "rec-1", CompanyID: "company-1", Name: "Ops", Email: "ops@example.com", Phone: "+14155552671", Active: true},
		},
		&thresholds.ChannelConfig{Email: false, SMS: true, Push: false},
	)

	resolution, err := resolver.Resolve(context.Background(), "company-1", "cfg-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolution.Recipients) != 1 {
		t.Fatalf("expected 1 resolved recipient, got %d", len(resolution.Recipients))
	}
	if resolution.Recipients[0].Email {
		t.Fatal("globally disabled email must not resolve")
	}
	if !resolution.Recipients[0].SMS {
		t.Fatal("expected SMS channel resolved")
	}
	if resolution.Push {
		t.Fatal("push disabled on config must not resolve")
	}
}

func TestResolveSkipsUnaddressableRecipients(t *testing.T) {
	resolver := newTestResolver(t,
		[]recipients.Recipient{
			{ID: "rec-1", CompanyID: "company-1", Name: "No Contact", Active: true},
			{ID: "rec-2", CompanyID: "company-1", Name: "Bad Phone", Phone: "12345", Active: true},
			{ID: "rec-3", CompanyID: "company-1", Name: "Good", Email: "good@example.com", Active: true},
		},
		&thresholds.ChannelConfig{Email: true, SMS: true, Push: true},
	)

	resolution, err := resolver.Resolve(context.Background(), "company-1", "cfg-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolution.Recipients) != 1 {
		t.Fatalf("expected only the addressable recipient, got %d", len(resolution.Recipients))
	}
	if resolution.Recipients[0].Recipient.ID != "rec-3" {
		t.Fatalf("unexpected recipient resolved: %s", resolution.Recipients[0].Recipient.ID)
	}
}

func TestResolveMissingChannelConfig(t *testing.T) {
	resolver := newTestResolver(t,
		[]recipients.Recipient{
			{ID: "rec-1", CompanyID: "company-1", Name: "Ops", Email: "ops@example.com", Active: true},
		},
		nil,
	)

	resolution, err := resolver.Resolve(context.Background(), "company-1", "cfg-1")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolution.Recipients) != 0 || resolution.Push {
		t.Fatalf("missing channel config must resolve nothing, got %+v", resolution)
	}
}
