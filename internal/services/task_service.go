package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/database"
	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/model"
	"github.com/siriusuniversity/report-backend/util"
)

const (
	taskIssueType      = "task"
	taskPriorityNormal = "3"
	taskLinkText       = "Перейдите по ссылке для заполнения: "
	autoStatusComment  = "Статус установлен автоматически"
)

// BatchItem is one assignment of a batch
type BatchItem struct {
	Queue    string `json:"queue" validate:"required,queue_key"`
	Assignee string `json:"assignee" validate:"required"`
}

// BatchRequest creates one tracker issue per item, all with the same summary
type BatchRequest struct {
	Summary  string      `json:"summary" validate:"required"`
	FormType string      `json:"form_type" validate:"omitempty,oneof=basic extended"`
	Tasks    []BatchItem `json:"tasks" validate:"required,min=1,dive"`
}

// TaskService creates report assignments: a tracker issue plus a local Task row
type TaskService struct {
	tasks       database.TaskStore
	tracker     Tracker
	baseURL     string
	startStatus string
	log         *zap.Logger
}

// NewTaskService builds a TaskService. baseURL is the public address of
// this backend, used in the issue description.
func NewTaskService(tasks database.TaskStore, t Tracker, baseURL, startStatus string, log *zap.Logger) *TaskService {
	return &TaskService{
		tasks:       tasks,
		tracker:     t,
		baseURL:     strings.TrimRight(baseURL, "/"),
		startStatus: startStatus,
		log:         log,
	}
}

// CreateBatch handles items in order and stops at the first tracker
// failure. Issues created before the failure are kept and returned along
// with the error.
func (s *TaskService) CreateBatch(ctx context.Context, req BatchRequest) ([]string, error) {
	if err := util.Validate.Struct(req); err != nil {
		return nil, err
	}

	formType := model.FormType(req.FormType)
	if formType == "" {
		formType = model.FormTypeExtended
	}

	created := make([]string, 0, len(req.Tasks))
	for _, item := range req.Tasks {
		assignee := util.NormalizeLogin(strings.TrimSpace(item.Assignee))
		key, err := s.tracker.CreateIssue(ctx, tracker.IssueRequest{
			Queue:       item.Queue,
			Summary:     req.Summary,
			Description: taskLinkText + s.baseURL + "/dashboard/" + assignee,
			Type:        taskIssueType,
			Assignee:    assignee,
			Priority:    &tracker.Priority{ID: taskPriorityNormal},
		})
		if err != nil {
			s.log.Error("creating task issue failed",
				zap.String("queue", item.Queue), zap.String("assignee", assignee), zap.Error(err))
			return created, err
		}

		s.moveToStartStatus(ctx, key)

		task := &model.Task{
			IssueKey: key,
			QueueKey: item.Queue,
			Assignee: assignee,
			Summary:  req.Summary,
			FormType: formType,
		}
		if err := s.tasks.CreateTask(ctx, task); err != nil {
			return created, fmt.Errorf("save task %s: %w", key, err)
		}
		created = append(created, key)
		s.log.Info("task assigned", zap.String("issue", key), zap.String("assignee", assignee))
	}
	return created, nil
}

func (s *TaskService) moveToStartStatus(ctx context.Context, key string) {
	transitions, err := s.tracker.ListTransitions(ctx, key)
	if err != nil {
		s.log.Warn("listing transitions failed", zap.String("issue", key), zap.Error(err))
		return
	}
	tr := tracker.FindTransition(transitions, s.startStatus)
	if tr == nil {
		return
	}
	if err := s.tracker.ExecuteTransition(ctx, key, tr.ID, autoStatusComment); err != nil {
		s.log.Warn("start transition failed", zap.String("issue", key), zap.Error(err))
	}
}
