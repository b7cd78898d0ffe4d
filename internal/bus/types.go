package bus

import (
	"context"

	"streambridge/pkg/models"
)

// Publisher is the outbound half of the bus capability: canonical inbound
// messages plus the ack/nack channel for delivery reports.
type Publisher interface {
	PublishInbound(ctx context.Context, msg models.CanonicalMessage) error
	PublishAck(ctx context.Context, userMessageID, sentMessageID string) error
	PublishNack(ctx context.Context, userMessageID, sentMessageID, reason string) error
	Close() error
}

// Consumer drives the outbound path: each message the platform wants posted
// to the social network is handed to the handler.
type Consumer interface {
	ConsumeOutbound(ctx context.Context, handler HandlerFunc) error
	Close() error
}

type HandlerFunc func(ctx context.Context, msg models.CanonicalMessage) error
