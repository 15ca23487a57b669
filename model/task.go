package model

import "time"

// FormType selects which report form an assignment was created for.
type FormType string

// Report form variants. Only the extended form is served; basic is kept
// so that older assignment rows still load.
const (
	FormTypeBasic    FormType = "basic"
	FormTypeExtended FormType = "extended"
)

// Task is the local record of a tracker issue assigned to one user for one
// reporting cycle. Rows are append-only; the active task of an assignee is
// the most recently created one.
type Task struct {
	Key       string    `json:"_key,omitempty"`
	IssueKey  string    `json:"issue_key"`
	QueueKey  string    `json:"queue_key"`
	Assignee  string    `json:"assignee"`
	Summary   string    `json:"summary"`
	FormType  FormType  `json:"form_type"`
	CreatedAt time.Time `json:"created_at"`
}
