package translate

import (
	"fmt"

	"streambridge/internal/address"
	"streambridge/pkg/models"
)

const (
	StrategyPlain   = "plain"
	StrategyMention = "mention"
)

// Strategy is one of the two addressing conventions: "plain" sends the
// message content as an unprefixed status update, "mention" re-encodes the
// recipient as a leading @mention. One deployment uses exactly one of them.
type Strategy interface {
	Name() string
	OutboundBody(msg models.CanonicalMessage) string
}

func NewStrategy(name string) (Strategy, error) {
	switch name {
	case StrategyPlain:
		return plainStrategy{}, nil
	case StrategyMention:
		return mentionStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown addressing strategy: %s (supported: plain, mention)", name)
	}
}

type plainStrategy struct{}

func (plainStrategy) Name() string { return StrategyPlain }

func (plainStrategy) OutboundBody(msg models.CanonicalMessage) string {
	return msg.Content
}

type mentionStrategy struct{}

func (mentionStrategy) Name() string { return StrategyMention }

func (mentionStrategy) OutboundBody(msg models.CanonicalMessage) string {
	return address.FormatOutbound(msg.ToAddr, msg.Content)
}
