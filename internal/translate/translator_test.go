package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambridge/internal/address"
	"streambridge/internal/social"
	"streambridge/pkg/models"
)

func newPlainTranslator(t *testing.T) *Translator {
	strategy, err := NewStrategy(StrategyPlain)
	require.NoError(t, err)
	return New(strategy)
}

func newMentionTranslator(t *testing.T) *Translator {
	strategy, err := NewStrategy(StrategyMention)
	require.NoError(t, err)
	return New(strategy)
}

func TestInboundFromTrack(t *testing.T) {
	tr := newPlainTranslator(t)

	ev := social.RawEvent{
		ID:                  "1",
		Text:                "text",
		AuthorScreenName:    "@screen_name",
		InReplyToScreenName: "@reply_to",
		Raw:                 map[string]interface{}{"some": "raw"},
	}

	msg, err := tr.InboundFromTrack(ev)
	require.NoError(t, err)

	assert.Equal(t, "1", msg.MessageID)
	assert.Equal(t, "@screen_name", msg.FromAddr)
	assert.Equal(t, "@reply_to", msg.ToAddr)
	assert.Equal(t, "text", msg.Content)
	assert.Equal(t, models.SessionNone, msg.SessionEvent)
	assert.Equal(t, ev.Raw, msg.TransportMetadata)
}

func TestInboundFromTrackEmptyReplyTo(t *testing.T) {
	tr := newPlainTranslator(t)

	msg, err := tr.InboundFromTrack(social.RawEvent{ID: "1", Text: "x", AuthorScreenName: "a"})
	require.NoError(t, err)
	assert.Equal(t, "", msg.ToAddr)
}

func TestInboundFromReply(t *testing.T) {
	tr := newPlainTranslator(t)

	ev := social.RawEvent{
		ID:               "1",
		Text:             "@tweeter hi there",
		AuthorScreenName: "replier",
		PublishedAt:      1,
		Title:            "tweeter",
		Raw:              map[string]interface{}{"some": "raw", "fields": "and values"},
	}

	msg, err := tr.InboundFromReply(ev)
	require.NoError(t, err)

	assert.Equal(t, "1", msg.MessageID)
	assert.Equal(t, "replier", msg.FromAddr)
	assert.Equal(t, "tweeter", msg.ToAddr)
	assert.Equal(t, "@tweeter hi there", msg.Content)
	assert.Equal(t, models.SessionResume, msg.SessionEvent)
	assert.Equal(t, ev.Raw, msg.TransportMetadata)
}

func TestInboundFromStreamTweet(t *testing.T) {
	tr := newMentionTranslator(t)

	ev := social.RawEvent{
		ID:               "42",
		Text:             "@bob hello",
		AuthorScreenName: "alice",
		Mentions:         []social.Mention{{ScreenName: "bob", Start: 0, End: 4}},
	}

	msg, ok, err := tr.InboundFromStreamTweet(ev, "bridged")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "@bob", msg.ToAddr)
	assert.Equal(t, "@alice", msg.FromAddr)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "42", msg.TransportMetadata["status_id"])
}

func TestInboundFromStreamTweetNoLeadingMention(t *testing.T) {
	tr := newMentionTranslator(t)

	ev := social.RawEvent{
		ID:               "42",
		Text:             "just shouting",
		AuthorScreenName: "alice",
	}

	msg, ok, err := tr.InboundFromStreamTweet(ev, "bridged")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, address.NoUser, msg.ToAddr)
	assert.Equal(t, "just shouting", msg.Content)
}

func TestInboundFromStreamTweetSuppressesOwnTweets(t *testing.T) {
	tr := newMentionTranslator(t)

	tests := []struct {
		name   string
		author string
		owner  string
		wantOK bool
	}{
		{name: "own tweet suppressed", author: "bridged", owner: "bridged", wantOK: false},
		{name: "other author passes", author: "alice", owner: "bridged", wantOK: true},
		{name: "comparison is case-sensitive", author: "Bridged", owner: "bridged", wantOK: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := social.RawEvent{ID: "1", Text: "x", AuthorScreenName: tt.author}
			_, ok, err := tr.InboundFromStreamTweet(ev, tt.owner)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestMalformedEventsRejected(t *testing.T) {
	tr := newPlainTranslator(t)

	tests := []struct {
		name string
		ev   social.RawEvent
	}{
		{name: "missing id", ev: social.RawEvent{AuthorScreenName: "a", Text: "x"}},
		{name: "missing author", ev: social.RawEvent{ID: "1", Text: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.InboundFromTrack(tt.ev)
			assert.Error(t, err)

			_, err = tr.InboundFromReply(tt.ev)
			assert.Error(t, err)

			_, _, err = tr.InboundFromStreamTweet(tt.ev, "owner")
			assert.Error(t, err)
		})
	}
}

func TestOutboundRequest(t *testing.T) {
	msg := models.CanonicalMessage{
		MessageID: "m1",
		ToAddr:    "@bob",
		Content:   "hello",
		TransportMetadata: map[string]interface{}{
			"in_reply_to_status_id": "99",
		},
	}

	t.Run("plain strategy sends content verbatim", func(t *testing.T) {
		req := newPlainTranslator(t).OutboundRequest(msg)
		assert.Equal(t, "hello", req.Text)
		assert.Equal(t, "99", req.InReplyToStatusID)
	})

	t.Run("mention strategy prefixes recipient", func(t *testing.T) {
		req := newMentionTranslator(t).OutboundRequest(msg)
		assert.Equal(t, "@bob hello", req.Text)
		assert.Equal(t, "99", req.InReplyToStatusID)
	})

	t.Run("mention strategy with no user", func(t *testing.T) {
		noUser := msg
		noUser.ToAddr = address.NoUser
		req := newMentionTranslator(t).OutboundRequest(noUser)
		assert.Equal(t, "hello", req.Text)
	})
}

func TestNewStrategy(t *testing.T) {
	_, err := NewStrategy("telepathy")
	assert.Error(t, err)
}
