package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambridge/internal/config"
	"streambridge/internal/logger"
	"streambridge/pkg/models"
)

func newTestConsumer() *KafkaConsumer {
	cfg := config.KafkaConfig{
		Brokers:       []string{"localhost:9092"},
		GroupID:       "bridge",
		OutboundTopic: "outbound_messages",
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: time.Millisecond,
		},
	}
	return NewKafkaConsumer(cfg, logger.NopLogger())
}

func encodeMessage(t *testing.T, msg models.CanonicalMessage) []byte {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return body
}

func TestHandleMessageCommitsOnSuccess(t *testing.T) {
	c := newTestConsumer()
	var handled []string

	commit := c.handleMessage(context.Background(), encodeMessage(t, models.CanonicalMessage{MessageID: "m1"}),
		func(_ context.Context, msg models.CanonicalMessage) error {
			handled = append(handled, msg.MessageID)
			return nil
		}, "outbound_messages")

	assert.True(t, commit)
	assert.Equal(t, []string{"m1"}, handled)
}

func TestHandleMessageHoldsOffsetWhenReportFails(t *testing.T) {
	c := newTestConsumer()

	// The handler only errors when the delivery report could not be
	// published; the offset must stay uncommitted so a restarted consumer
	// produces the missing report.
	commit := c.handleMessage(context.Background(), encodeMessage(t, models.CanonicalMessage{MessageID: "m1"}),
		func(context.Context, models.CanonicalMessage) error {
			return fmt.Errorf("event topic unreachable")
		}, "outbound_messages")

	assert.False(t, commit)
}

func TestHandleMessageCommitsUndecodable(t *testing.T) {
	c := newTestConsumer()
	called := false

	commit := c.handleMessage(context.Background(), []byte("not json"),
		func(context.Context, models.CanonicalMessage) error {
			called = true
			return nil
		}, "outbound_messages")

	assert.True(t, commit)
	assert.False(t, called)
}

func TestHandleMessageRecoversPanic(t *testing.T) {
	c := newTestConsumer()

	commit := c.handleMessage(context.Background(), encodeMessage(t, models.CanonicalMessage{MessageID: "m1"}),
		func(context.Context, models.CanonicalMessage) error {
			panic("handler blew up")
		}, "outbound_messages")

	assert.False(t, commit)
}
