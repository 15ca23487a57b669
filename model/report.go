package model

import "time"

// Report is one submitted weekly report.
// IssueKey and the attachment fields are filled once, right after the
// report has been mirrored to the tracker.
type Report struct {
	Key                   string    `json:"_key,omitempty"`
	Username              string    `json:"username"`
	ProgramsSupported     int       `json:"programs_supported"`
	ProjectsInProgram     int       `json:"projects_in_program"`
	NewScientistsEmployed int       `json:"new_scientists_employed"`
	PublicationsCount     int       `json:"publications_count"`
	ProgramsCount         int       `json:"programs_count"`
	EventsCount           int       `json:"events_count"`
	Department            string    `json:"department,omitempty"`
	Description           string    `json:"description,omitempty"`
	FilePath              string    `json:"file_path,omitempty"`
	IssueKey              string    `json:"issue_key,omitempty"`
	AttachmentID          string    `json:"attachment_id,omitempty"`
	AttachmentName        string    `json:"attachment_name,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

// ReportFilter restricts report listings by creation time: From <= created_at < To.
// Nil bounds are open.
type ReportFilter struct {
	From *time.Time
	To   *time.Time
}
