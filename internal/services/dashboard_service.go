package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/database"
	"github.com/siriusuniversity/report-backend/internal/tracker"
)

// statuses in which the assignee may submit a report, lower-cased
var submittableStatuses = map[string]bool{
	"in progress": true,
	"в работе":    true,
}

// DashboardStatus is what the employee dashboard shows about the active task
type DashboardStatus struct {
	IssueKey      string `json:"issue_key,omitempty"`
	IssueNotFound bool   `json:"issue_not_found"`
	StatusDisplay string `json:"status_display,omitempty"`
	CanSubmit     bool   `json:"can_submit"`
}

// DashboardService reads the state of a user's assignment from the tracker
type DashboardService struct {
	tasks   database.TaskStore
	tracker Tracker
	queue   string
	log     *zap.Logger
}

// NewDashboardService builds a DashboardService. queue scopes AssignedIssues.
func NewDashboardService(tasks database.TaskStore, t Tracker, queue string, log *zap.Logger) *DashboardService {
	return &DashboardService{tasks: tasks, tracker: t, queue: queue, log: log}
}

// Status reports the tracker status of the user's active task. A user
// without a task gets IssueNotFound and the tracker is not called.
func (s *DashboardService) Status(ctx context.Context, username string) (*DashboardStatus, error) {
	task, err := s.tasks.LatestTaskForAssignee(ctx, username)
	if errors.Is(err, database.ErrNotFound) {
		return &DashboardStatus{IssueNotFound: true}, nil
	}
	if err != nil {
		return nil, err
	}

	issue, err := s.tracker.GetIssue(ctx, task.IssueKey)
	if err != nil {
		s.log.Error("reading issue status failed", zap.String("issue", task.IssueKey), zap.Error(err))
		return nil, fmt.Errorf("%w: get issue %s: %w", ErrTrackerCommunication, task.IssueKey, err)
	}

	display := issue.Status.Label()
	return &DashboardStatus{
		IssueKey:      task.IssueKey,
		StatusDisplay: display,
		CanSubmit:     canSubmit(issue.Status),
	}, nil
}

func canSubmit(st tracker.Status) bool {
	for _, v := range []string{st.Display, st.Name} {
		if submittableStatuses[strings.ToLower(strings.TrimSpace(v))] {
			return true
		}
	}
	return false
}

// AssignedIssues lists the open issues of login in the configured queue
func (s *DashboardService) AssignedIssues(ctx context.Context, login string) ([]tracker.Issue, error) {
	query := fmt.Sprintf("assignee: %s AND queue: %s AND status:!closed", login, s.queue)
	issues, err := s.tracker.SearchIssues(ctx, query)
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []tracker.Issue{}
	}
	return issues, nil
}
