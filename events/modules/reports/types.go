// Package report handles Kafka event production for submitted reports.
package report

import "time"

// EventReportSubmitted is the event type of ReportSubmittedEvent
const EventReportSubmitted = "report.submitted"

// ReportSubmittedEvent is published once a report has been mirrored to the tracker.
type ReportSubmittedEvent struct {
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EventTime     time.Time `json:"event_time"`
	SchemaVersion string    `json:"schema_version"`

	ReportID string `json:"report_id"`
	Username string `json:"username"`
	IssueKey string `json:"issue_key"`

	// First attachment stored on the issue, if any
	AttachmentID string `json:"attachment_id,omitempty"`
}
