package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/database"
	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/internal/uploads"
	"github.com/siriusuniversity/report-backend/model"
)

// eventPublishTimeout bounds the best-effort event publish at the end of
// a submission
const eventPublishTimeout = 3 * time.Second

// Upload is a file supplied with a report. Open is called at most once.
type Upload struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// Publication is one entry of the publications section
type Publication struct {
	Title    string
	DOI      string
	Relation string
	File     *Upload
}

// Program is one entry of the education programs section
type Program struct {
	Name     string
	Kind     string
	Priority string
	File     *Upload
}

// Event is one entry of the events section
type Event struct {
	Type  string
	Topic string
	File  *Upload
}

// ReportInput is everything a user submitted. Nil counters were not
// supplied; they are stored as 0 and left out of the comment.
type ReportInput struct {
	Username string

	ProgramsSupported     *int
	ProjectsInProgram     *int
	NewScientistsEmployed *int
	PublicationsCount     *int
	ProgramsCount         *int
	EventsCount           *int

	Publications []Publication
	Programs     []Program
	Events       []Event

	Department  string
	Description string

	ReportFile *Upload
	// ExtraFiles are per-entry files without a matching entry. They are
	// attached to the issue like any other file.
	ExtraFiles []Upload
}

// SubmitResult describes a completed submission
type SubmitResult struct {
	Report   *model.Report
	IssueKey string
	IssueURL string
}

// ReportService mirrors submitted reports onto the assignee's tracker issue
type ReportService struct {
	store      database.Store
	tracker    Tracker
	files      *uploads.Dir
	events     EventPublisher
	webURL     string
	nextStatus string
	log        *zap.Logger

	publishTimeout time.Duration
}

// NewReportService wires the submission flow. events may be nil.
func NewReportService(store database.Store, t Tracker, files *uploads.Dir, events EventPublisher,
	webURL, nextStatus string, log *zap.Logger) *ReportService {
	return &ReportService{
		store:      store,
		tracker:    t,
		files:      files,
		events:     events,
		webURL:     strings.TrimRight(webURL, "/"),
		nextStatus: nextStatus,
		log:        log,

		publishTimeout: eventPublishTimeout,
	}
}

func valueOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

// Submit runs the whole flow. The report row is written before any tracker
// call and is kept whatever happens afterwards. Only a failed comment
// aborts the flow; attachments and the status transition are best effort.
func (s *ReportService) Submit(ctx context.Context, in ReportInput) (*SubmitResult, error) {
	log := s.log.With(zap.String("username", in.Username))

	report := &model.Report{
		Username:              in.Username,
		ProgramsSupported:     valueOrZero(in.ProgramsSupported),
		ProjectsInProgram:     valueOrZero(in.ProjectsInProgram),
		NewScientistsEmployed: valueOrZero(in.NewScientistsEmployed),
		PublicationsCount:     valueOrZero(in.PublicationsCount),
		ProgramsCount:         valueOrZero(in.ProgramsCount),
		EventsCount:           valueOrZero(in.EventsCount),
		Department:            in.Department,
		Description:           in.Description,
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}

	if in.ReportFile != nil {
		path, err := s.saveReportFile(in.ReportFile)
		if err != nil {
			log.Error("storing report file failed", zap.String("report", report.Key), zap.Error(err))
			return nil, err
		}
		report.FilePath = path
		if err := s.store.UpdateReportTracker(ctx, report); err != nil {
			return nil, fmt.Errorf("save report file path: %w", err)
		}
	}

	task, err := s.store.LatestTaskForAssignee(ctx, in.Username)
	if errors.Is(err, database.ErrNotFound) {
		log.Warn("report submitted without an assigned task", zap.String("report", report.Key))
		return nil, ErrNoAssignedTask
	}
	if err != nil {
		return nil, fmt.Errorf("find assigned task: %w", err)
	}
	issueKey := task.IssueKey
	log = log.With(zap.String("issue", issueKey))

	if err := s.tracker.AddComment(ctx, issueKey, BuildComment(in)); err != nil {
		log.Error("adding report comment failed", zap.Error(err))
		return nil, fmt.Errorf("%w: add comment to %s: %w", ErrTrackerCommunication, issueKey, err)
	}

	for _, f := range s.attachments(in, report.FilePath) {
		att, err := s.attach(ctx, issueKey, f)
		if err != nil {
			log.Warn("attachment upload failed", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		if report.AttachmentID == "" {
			report.AttachmentID = att.ID.String()
			report.AttachmentName = att.Name
		}
	}

	s.moveToNextStatus(ctx, issueKey, log)

	report.IssueKey = issueKey
	if err := s.store.UpdateReportTracker(ctx, report); err != nil {
		return nil, fmt.Errorf("link report to %s: %w", issueKey, err)
	}

	s.publish(ctx, *report, log)

	log.Info("report submitted", zap.String("report", report.Key), zap.String("attachment", report.AttachmentID))
	return &SubmitResult{
		Report:   report,
		IssueKey: issueKey,
		IssueURL: s.webURL + "/" + issueKey,
	}, nil
}

func (s *ReportService) publish(ctx context.Context, report model.Report, log *zap.Logger) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	if err := s.events.PublishReportSubmitted(ctx, report); err != nil {
		log.Warn("publishing report event failed", zap.Error(err))
	}
}

func (s *ReportService) saveReportFile(u *Upload) (string, error) {
	r, err := u.Open()
	if err != nil {
		return "", fmt.Errorf("open report file: %w", err)
	}
	defer r.Close()

	_, path, err := s.files.Save(u.Name, r)
	if err != nil {
		return "", err
	}
	return path, nil
}

// attachments lists every file to push, in order: the stored report file,
// then publication, program and event files, then the surplus ones.
func (s *ReportService) attachments(in ReportInput, reportFilePath string) []Upload {
	var files []Upload
	if reportFilePath != "" {
		name := in.ReportFile.Name
		if name == "" {
			name = filepath.Base(reportFilePath)
		}
		files = append(files, Upload{
			Name: filepath.Base(name),
			Open: func() (io.ReadCloser, error) { return os.Open(reportFilePath) },
		})
	}
	for _, p := range in.Publications {
		if p.File != nil {
			files = append(files, *p.File)
		}
	}
	for _, p := range in.Programs {
		if p.File != nil {
			files = append(files, *p.File)
		}
	}
	for _, e := range in.Events {
		if e.File != nil {
			files = append(files, *e.File)
		}
	}
	return append(files, in.ExtraFiles...)
}

func (s *ReportService) attach(ctx context.Context, issueKey string, f Upload) (*tracker.Attachment, error) {
	r, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return s.tracker.AddAttachment(ctx, issueKey, f.Name, r)
}

// moveToNextStatus is skipped silently when the workflow offers no
// matching transition
func (s *ReportService) moveToNextStatus(ctx context.Context, issueKey string, log *zap.Logger) {
	if s.nextStatus == "" {
		return
	}
	transitions, err := s.tracker.ListTransitions(ctx, issueKey)
	if err != nil {
		log.Warn("listing transitions failed", zap.Error(err))
		return
	}
	tr := tracker.FindTransition(transitions, s.nextStatus)
	if tr == nil {
		log.Debug("no matching transition", zap.String("status", s.nextStatus))
		return
	}
	if err := s.tracker.ExecuteTransition(ctx, issueKey, tr.ID, ""); err != nil {
		log.Warn("status transition failed", zap.String("transition", tr.ID), zap.Error(err))
	}
}

// List returns reports within filter, newest first
func (s *ReportService) List(ctx context.Context, filter model.ReportFilter) ([]model.Report, error) {
	return s.store.ListReports(ctx, filter)
}
