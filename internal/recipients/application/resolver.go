package application

import (
	"context"
	"errors"

	"go.uber.org/zap"

	recipients "sensoralert/internal/recipients/domain"
	thresholds "sensoralert/internal/thresholds/domain"
)

// RecipientReader loads recipients linked to a threshold config.
type RecipientReader interface {
	ListActiveByConfig(ctx context.Context, companyID, configID string) ([]recipients.Recipient, error)
}

// ChannelReader loads the global channel switches for a config.
type ChannelReader interface {
	GetChannels(ctx context.Context, companyID, configID string) (*thresholds.ChannelConfig, error)
}

// Resolver resolves the deliverable (recipient, channel) pairs for a config.
type Resolver struct {
	recipients RecipientReader
	channels   ChannelReader
	logger     *zap.Logger
}

// NewResolver constructs a resolver.
func NewResolver(recipientReader RecipientReader, channelReader ChannelReader, logger *zap.Logger) (*Resolver, error) {
	if recipientReader == nil {
		return nil, errors.New("recipient resolver: nil recipient reader")
	}
	if channelReader == nil {
		return nil, errors.New("recipient resolver: nil channel reader")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{recipients: recipientReader, channels: channelReader, logger: logger}, nil
}

// Resolution is the channel-level result of resolving a config.
type Resolution struct {
	Recipients []recipients.Resolved
	Push       bool
}

// EmailAddresses returns all deliverable email addresses.
func (r Resolution) EmailAddresses() []string {
	var addresses []string
	for _, resolved := range r.Recipients {
		if resolved.Email {
			addresses = append(addresses, resolved.Recipient.Email)
		}
	}
	return addresses
}

// PhoneNumbers returns all deliverable SMS numbers.
func (r Resolution) PhoneNumbers() []string {
	var numbers []string
	for _, resolved := range r.Recipients {
		if resolved.SMS {
			numbers = append(numbers, resolved.Recipient.Phone)
		}
	}
	return numbers
}

// Resolve returns active recipients restricted to the channels that are both
// globally enabled on the config and individually addressable. A recipient
// missing an address for a channel is excluded from that channel only.
func (r *Resolver) Resolve(ctx context.Context, companyID, configID string) (Resolution, error) {
	if r == nil {
		return Resolution{}, errors.New("recipient resolver: nil resolver")
	}
	if companyID == "" {
		return Resolution{}, errors.New("recipient resolver: company id required")
	}
	if configID == "" {
		return Resolution{}, errors.New("recipient resolver: config id required")
	}

	channels, err := r.channels.GetChannels(ctx, companyID, configID)
	if err != nil {
		return Resolution{}, err
	}
	if channels == nil {
		// No channel config means nothing is deliverable.
		r.logger.Warn("channel config missing for threshold config",
			zap.String("company_id", companyID),
			zap.String("config_id", configID),
		)
		return Resolution{}, nil
	}

	list, err := r.recipients.ListActiveByConfig(ctx, companyID, configID)
	if err != nil {
		return Resolution{}, err
	}

	resolution := Resolution{Push: channels.Push}
	for _, rec := range list {
		if !rec.Active {
			continue
		}
		resolved := recipients.Resolved{
			Recipient: rec,
			Email:     channels.Email && rec.HasEmail(),
			SMS:       channels.SMS && rec.HasValidPhone(),
		}
		if !resolved.Email && !resolved.SMS {
			continue
		}
		resolution.Recipients = append(resolution.Recipients, resolved)
	}
	return resolution, nil
}
