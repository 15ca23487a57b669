// Package services implements the report workflows on top of the store
// and the tracker: report submission, batch task creation and the
// employee dashboard.
package services

import (
	"context"
	"errors"
	"io"

	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/model"
)

// Errors surfaced to callers
var (
	ErrNoAssignedTask       = errors.New("no task assigned to user, contact an administrator")
	ErrTrackerCommunication = errors.New("tracker communication failed")
)

// Tracker is the part of the tracker client the workflows use
type Tracker interface {
	CreateIssue(ctx context.Context, issue tracker.IssueRequest) (string, error)
	GetIssue(ctx context.Context, key string) (*tracker.Issue, error)
	ListTransitions(ctx context.Context, key string) ([]tracker.Transition, error)
	ExecuteTransition(ctx context.Context, key, transitionID, comment string) error
	AddComment(ctx context.Context, key, text string) error
	AddAttachment(ctx context.Context, key, filename string, content io.Reader) (*tracker.Attachment, error)
	SearchIssues(ctx context.Context, query string) ([]tracker.Issue, error)
}

// EventPublisher announces finished submissions
type EventPublisher interface {
	PublishReportSubmitted(ctx context.Context, report model.Report) error
}

var _ Tracker = (*tracker.Client)(nil)
