// Package translate builds canonical bus messages from raw social posts and
// post requests from canonical outbound messages.
package translate

import (
	"time"

	"streambridge/internal/address"
	"streambridge/internal/constants"
	"streambridge/internal/social"
	"streambridge/pkg/errors"
	"streambridge/pkg/models"
)

type Translator struct {
	strategy Strategy
}

func New(strategy Strategy) *Translator {
	return &Translator{strategy: strategy}
}

func (t *Translator) Strategy() Strategy {
	return t.strategy
}

// validate rejects events missing the fields every translation needs.
// Malformed events are dropped by the caller, never crash a session.
func validate(ev social.RawEvent) error {
	if ev.ID == "" {
		return errors.ErrValidation.WithDetail("message", "event has no id")
	}
	if ev.AuthorScreenName == "" {
		return errors.ErrValidation.WithDetail("message", "event has no author screen name")
	}
	return nil
}

// InboundFromTrack translates a realtime term-matched post. No conversation
// is implied, so the session event stays empty. Screen names pass through
// verbatim; the raw payload is echoed as transport metadata.
func (t *Translator) InboundFromTrack(ev social.RawEvent) (models.CanonicalMessage, error) {
	if err := validate(ev); err != nil {
		return models.CanonicalMessage{}, err
	}
	return models.CanonicalMessage{
		MessageID:         ev.ID,
		FromAddr:          ev.AuthorScreenName,
		ToAddr:            ev.InReplyToScreenName,
		Content:           ev.Text,
		SessionEvent:      models.SessionNone,
		TransportType:     constants.TransportType,
		TransportMetadata: ev.Raw,
		Timestamp:         time.Now().UTC(),
	}, nil
}

// InboundFromReply translates a polled reply. The resume event distinguishes
// it from fresh track hits: it continues an existing conversation.
func (t *Translator) InboundFromReply(ev social.RawEvent) (models.CanonicalMessage, error) {
	if err := validate(ev); err != nil {
		return models.CanonicalMessage{}, err
	}
	return models.CanonicalMessage{
		MessageID:         ev.ID,
		FromAddr:          ev.AuthorScreenName,
		ToAddr:            ev.Title,
		Content:           ev.Text,
		SessionEvent:      models.SessionResume,
		TransportType:     constants.TransportType,
		TransportMetadata: ev.Raw,
		Timestamp:         time.Now().UTC(),
	}, nil
}

// InboundFromStreamTweet translates a user-stream or mention-convention
// track post. Returns ok=false for the bridged account's own posts so its
// outbound updates never loop back as inbound messages.
func (t *Translator) InboundFromStreamTweet(ev social.RawEvent, owner string) (models.CanonicalMessage, bool, error) {
	if err := validate(ev); err != nil {
		return models.CanonicalMessage{}, false, err
	}
	if IsOwnTweet(ev, owner) {
		return models.CanonicalMessage{}, false, nil
	}

	toAddr := address.ToAddrFromMentions(codecMentions(ev.Mentions))
	msg := models.CanonicalMessage{
		MessageID:     ev.ID,
		FromAddr:      address.FromScreenName(ev.AuthorScreenName),
		ToAddr:        toAddr,
		Content:       address.StripLeadingMention(ev.Text, toAddr),
		SessionEvent:  models.SessionNone,
		TransportType: constants.TransportType,
		TransportMetadata: map[string]interface{}{
			"status_id": ev.ID,
		},
		HelperMetadata: map[string]interface{}{
			"in_reply_to_status_id":   ev.InReplyToStatusID,
			"in_reply_to_screen_name": ev.InReplyToScreenName,
			"user_mentions":           ev.Mentions,
		},
		Timestamp: time.Now().UTC(),
	}
	return msg, true, nil
}

// OutboundRequest builds the post request for one outbound message. The body
// encoding depends on the configured strategy; the optional reply correlation
// id rides in from the message's transport metadata.
func (t *Translator) OutboundRequest(msg models.CanonicalMessage) social.PostRequest {
	return social.PostRequest{
		Text:              t.strategy.OutboundBody(msg),
		InReplyToStatusID: msg.InReplyToStatusID(),
	}
}

// IsOwnTweet reports whether the event was authored by the bridged account.
// Screen names compare verbatim, case-sensitive.
func IsOwnTweet(ev social.RawEvent, owner string) bool {
	return ev.AuthorScreenName == owner
}

func codecMentions(mentions []social.Mention) []address.Mention {
	out := make([]address.Mention, len(mentions))
	for i, m := range mentions {
		out[i] = address.Mention{ScreenName: m.ScreenName, Start: m.Start}
	}
	return out
}
