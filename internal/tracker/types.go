package tracker

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ID is an identifier the API returns either as a JSON string or a number
type ID string

// UnmarshalJSON accepts "42", 42 and null
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Status is the workflow state of an issue
type Status struct {
	ID      ID     `json:"id,omitempty"`
	Key     string `json:"key,omitempty"`
	Name    string `json:"name,omitempty"`
	Display string `json:"display,omitempty"`
}

// Label is the human readable status name
func (s Status) Label() string {
	if s.Display != "" {
		return s.Display
	}
	return s.Name
}

// UserRef is the short user reference embedded in issues and queues
type UserRef struct {
	ID      ID     `json:"id,omitempty"`
	Login   string `json:"login,omitempty"`
	UID     ID     `json:"uid,omitempty"`
	Display string `json:"display,omitempty"`
}

// Issue is the subset of issue fields this service reads
type Issue struct {
	Key       string   `json:"key"`
	Summary   string   `json:"summary"`
	Status    Status   `json:"status"`
	Assignee  *UserRef `json:"assignee,omitempty"`
	Queue     *Queue   `json:"queue,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// IssueRequest is the body of an issue creation call
type IssueRequest struct {
	Queue       string    `json:"queue"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Type        string    `json:"type,omitempty"`
	Assignee    string    `json:"assignee,omitempty"`
	Priority    *Priority `json:"priority,omitempty"`
}

// Priority reference; "3" is normal
type Priority struct {
	ID string `json:"id"`
}

// Transition is one workflow step currently legal for an issue
type Transition struct {
	ID      string `json:"id"`
	Display string `json:"display"`
}

// FindTransition returns the first transition whose display name contains
// name, ignoring case. Nil when nothing matches or name is empty.
func FindTransition(transitions []Transition, name string) *Transition {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil
	}
	for i := range transitions {
		if strings.Contains(strings.ToLower(transitions[i].Display), needle) {
			return &transitions[i]
		}
	}
	return nil
}

// Attachment is a file stored on an issue
type Attachment struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// Queue is a tracker queue
type Queue struct {
	Key       string    `json:"key"`
	Name      string    `json:"name,omitempty"`
	Display   string    `json:"display,omitempty"`
	TeamUsers []UserRef `json:"teamUsers,omitempty"`
}

// Label is the queue name, or its display text when the name is missing
func (q Queue) Label() string {
	if q.Name != "" {
		return q.Name
	}
	return q.Display
}

// User is a tracker account as returned by /myself and /users/{id}
type User struct {
	UID     ID     `json:"uid,omitempty"`
	Login   string `json:"login"`
	Display string `json:"display,omitempty"`
	Email   string `json:"email,omitempty"`
}
