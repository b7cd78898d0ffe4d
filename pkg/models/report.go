package models

import "time"

type ReportStatus string

const (
	ReportAck  ReportStatus = "ack"
	ReportNack ReportStatus = "nack"
)

// DeliveryReport tells the original sender what happened to one outbound
// message. Every outbound message produces exactly one report.
type DeliveryReport struct {
	Status        ReportStatus `json:"status"`
	UserMessageID string       `json:"user_message_id"`
	SentMessageID string       `json:"sent_message_id"`
	Reason        string       `json:"reason,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}
