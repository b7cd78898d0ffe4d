package models

import "time"

// SessionEvent marks how an inbound message relates to an ongoing conversation.
type SessionEvent string

const (
	SessionNone   SessionEvent = ""
	SessionResume SessionEvent = "resume"
)

// CanonicalMessage is the bus-facing message shape. It is created once by the
// translation layer and never mutated afterwards; ownership passes to the bus
// publish call.
type CanonicalMessage struct {
	MessageID         string                 `json:"message_id"`
	FromAddr          string                 `json:"from_addr"`
	ToAddr            string                 `json:"to_addr"`
	Content           string                 `json:"content"`
	SessionEvent      SessionEvent           `json:"session_event,omitempty"`
	TransportType     string                 `json:"transport_type"`
	TransportMetadata map[string]interface{} `json:"transport_metadata,omitempty"`
	HelperMetadata    map[string]interface{} `json:"helper_metadata,omitempty"`
	Timestamp         time.Time              `json:"timestamp"`
	TraceID           string                 `json:"trace_id,omitempty"`
}

// InReplyToStatusID reads the optional reply-correlation id out of the
// transport metadata. Returns "" when absent.
func (m CanonicalMessage) InReplyToStatusID() string {
	if m.TransportMetadata == nil {
		return ""
	}
	if v, ok := m.TransportMetadata["in_reply_to_status_id"].(string); ok {
		return v
	}
	return ""
}
