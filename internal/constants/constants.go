package constants

import "time"

const (
	TransportType = "twitter"
)

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	DefaultInboundTopic  = "inbound_messages"
	DefaultOutboundTopic = "outbound_messages"
	DefaultEventTopic    = "delivery_events"
)

const (
	WatermarkKeyPrefix = "watermark:"
	WatermarkKeyField  = "last_reply_timestamp"
)

const (
	PostingDisabledReason = "Posting is disabled."
)

const (
	ShutdownTimeout    = 5 * time.Second
	SessionStopTimeout = 3 * time.Second
)

const (
	DefaultCheckRepliesInterval = 60 * time.Second
)
