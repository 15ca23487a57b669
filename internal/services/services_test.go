package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/database"
	"github.com/siriusuniversity/report-backend/internal/tracker"
	"github.com/siriusuniversity/report-backend/internal/uploads"
	"github.com/siriusuniversity/report-backend/model"
)

type fakeTracker struct {
	calls       []string
	comments    map[string][]string
	attached    []string
	failAttach  map[string]bool
	transitions []tracker.Transition
	executed    []string
	issues      map[string]tracker.Issue
	nextKey     int
	failCreate  int // 1-based call number that fails, 0 = never
	created     []tracker.IssueRequest
	commentErr  error
	onComment   func()
	searched    string
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{
		comments:   map[string][]string{},
		failAttach: map[string]bool{},
		issues:     map[string]tracker.Issue{},
	}
}

func (f *fakeTracker) CreateIssue(_ context.Context, issue tracker.IssueRequest) (string, error) {
	f.calls = append(f.calls, "create")
	if f.failCreate == len(f.created)+1 {
		return "", &tracker.StatusError{Op: "create issue", StatusCode: 403}
	}
	f.created = append(f.created, issue)
	f.nextKey++
	return fmt.Sprintf("%s-%d", issue.Queue, f.nextKey), nil
}

func (f *fakeTracker) GetIssue(_ context.Context, key string) (*tracker.Issue, error) {
	f.calls = append(f.calls, "get")
	issue, ok := f.issues[key]
	if !ok {
		return nil, &tracker.StatusError{Op: "get issue", StatusCode: 404}
	}
	return &issue, nil
}

func (f *fakeTracker) ListTransitions(context.Context, string) ([]tracker.Transition, error) {
	f.calls = append(f.calls, "transitions")
	return f.transitions, nil
}

func (f *fakeTracker) ExecuteTransition(_ context.Context, key, id, comment string) error {
	f.calls = append(f.calls, "execute")
	f.executed = append(f.executed, key+":"+id+":"+comment)
	return nil
}

func (f *fakeTracker) AddComment(_ context.Context, key, text string) error {
	f.calls = append(f.calls, "comment")
	if f.onComment != nil {
		f.onComment()
	}
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments[key] = append(f.comments[key], text)
	return nil
}

func (f *fakeTracker) AddAttachment(_ context.Context, _, filename string, content io.Reader) (*tracker.Attachment, error) {
	f.calls = append(f.calls, "attach")
	f.attached = append(f.attached, filename)
	if _, err := io.ReadAll(content); err != nil {
		return nil, err
	}
	if f.failAttach[filename] {
		return nil, &tracker.StatusError{Op: "add attachment", StatusCode: 500}
	}
	return &tracker.Attachment{ID: tracker.ID(fmt.Sprint(len(f.attached))), Name: filename}, nil
}

func (f *fakeTracker) SearchIssues(_ context.Context, query string) ([]tracker.Issue, error) {
	f.calls = append(f.calls, "search")
	f.searched = query
	return nil, nil
}

type recordingPublisher struct {
	reports     []model.Report
	err         error
	hadDeadline bool
	block       bool
}

func (p *recordingPublisher) PublishReportSubmitted(ctx context.Context, r model.Report) error {
	p.reports = append(p.reports, r)
	_, p.hadDeadline = ctx.Deadline()
	if p.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return p.err
}

func newStore(t *testing.T) *database.SQLiteStore {
	t.Helper()
	store, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func assign(t *testing.T, store database.Store, login, issue string) {
	t.Helper()
	require.NoError(t, store.CreateTask(context.Background(), &model.Task{
		IssueKey: issue, QueueKey: "REP", Assignee: login, Summary: "weekly",
	}))
}

func memFile(name, content string) *Upload {
	return &Upload{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func intp(v int) *int { return &v }

func newReportService(t *testing.T, store database.Store, tr Tracker, pub EventPublisher) *ReportService {
	t.Helper()
	return NewReportService(store, tr, uploads.New(t.TempDir()), pub,
		"https://tracker.example/", "Нужна информация", zap.NewNop())
}

func TestSubmitWithoutTaskSkipsTracker(t *testing.T) {
	store := newStore(t)
	tr := newFakeTracker()
	svc := newReportService(t, store, tr, nil)

	_, err := svc.Submit(context.Background(), ReportInput{Username: "anna", ProgramsSupported: intp(2)})
	assert.ErrorIs(t, err, ErrNoAssignedTask)
	assert.Empty(t, tr.calls)

	// the report row survives
	reports, err := store.ListReports(context.Background(), model.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, 2, reports[0].ProgramsSupported)
	assert.Empty(t, reports[0].IssueKey)
}

func TestSubmitKeepsRowWhenFileCannotBeStored(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	assign(t, store, "anna", "REP-1")

	// a regular file where the upload directory should be
	blocker := filepath.Join(t.TempDir(), "uploads")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	tr := newFakeTracker()
	svc := NewReportService(store, tr, uploads.New(blocker), nil, "", "", zap.NewNop())

	_, err := svc.Submit(ctx, ReportInput{Username: "anna", Description: "kept", ReportFile: memFile("r.pdf", "x")})
	require.Error(t, err)
	assert.Empty(t, tr.calls)

	reports, err := store.ListReports(ctx, model.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "kept", reports[0].Description)
	assert.Empty(t, reports[0].FilePath)
}

func TestSubmitWithoutTaskKeepsStoredFile(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	svc := newReportService(t, store, newFakeTracker(), nil)

	_, err := svc.Submit(ctx, ReportInput{Username: "anna", ReportFile: memFile("r.pdf", "x")})
	assert.ErrorIs(t, err, ErrNoAssignedTask)

	reports, err := store.ListReports(ctx, model.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.FileExists(t, reports[0].FilePath)
}

func TestSubmitPersistsBeforeComment(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	assign(t, store, "anna", "REP-1")

	tr := newFakeTracker()
	tr.onComment = func() {
		reports, err := store.ListReports(ctx, model.ReportFilter{})
		require.NoError(t, err)
		assert.Len(t, reports, 1)
	}
	pub := &recordingPublisher{}
	svc := newReportService(t, store, tr, pub)

	res, err := svc.Submit(ctx, ReportInput{Username: "anna", Description: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "REP-1", res.IssueKey)
	assert.Equal(t, "https://tracker.example/REP-1", res.IssueURL)
	assert.Len(t, tr.comments["REP-1"], 1)

	reports, err := store.ListReports(ctx, model.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, "REP-1", reports[0].IssueKey)

	require.Len(t, pub.reports, 1)
	assert.Equal(t, res.Report.Key, pub.reports[0].Key)
}

func TestSubmitCommentFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	assign(t, store, "anna", "REP-1")

	tr := newFakeTracker()
	tr.commentErr = &tracker.StatusError{Op: "add comment", StatusCode: 503}
	svc := newReportService(t, store, tr, nil)

	_, err := svc.Submit(ctx, ReportInput{Username: "anna", ReportFile: memFile("r.pdf", "x")})
	assert.ErrorIs(t, err, ErrTrackerCommunication)
	_, isStatus := tracker.AsStatusError(err)
	assert.True(t, isStatus)
	assert.Empty(t, tr.attached)

	reports, err := store.ListReports(ctx, model.ReportFilter{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, reports[0].IssueKey)
}

func TestBuildCommentOrder(t *testing.T) {
	text := BuildComment(ReportInput{
		Username:          "anna",
		ProgramsSupported: intp(3),
		EventsCount:       intp(0),
		Department:        "Физика",
		Publications: []Publication{
			{Title: "Paper", DOI: "10.1/x", Relation: "author"},
			{},
		},
		Events:      []Event{{Type: "Семинар", Topic: "Квантовые точки"}},
		Description: "всё хорошо",
	})

	assert.Equal(t, "🔹 Новый отчёт от пользователя anna:\n"+
		"- Поддержано программ: 3\n"+
		"- Мероприятий: 0\n"+
		"- Подразделение: Физика\n"+
		"\n📚 Публикации:\n"+
		"  • Paper (DOI: 10.1/x) – author\n"+
		"\n📅 Мероприятия:\n"+
		"  • Семинар: Квантовые точки\n"+
		"- Описание: всё хорошо", text)
	assert.NotContains(t, text, "Образовательные программы")
}

func TestBuildCommentMinimal(t *testing.T) {
	assert.Equal(t, "🔹 Новый отчёт от пользователя ivan:", BuildComment(ReportInput{Username: "ivan"}))
}

func TestSubmitAttachmentsBestEffort(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	assign(t, store, "anna", "REP-7")

	tr := newFakeTracker()
	tr.failAttach["report.docx"] = true
	svc := newReportService(t, store, tr, nil)

	res, err := svc.Submit(ctx, ReportInput{
		Username:     "anna",
		ReportFile:   memFile("report.docx", "report"),
		Publications: []Publication{{Title: "P", File: memFile("paper.pdf", "paper")}},
		Events:       []Event{{Type: "T", Topic: "X", File: memFile("photo.jpg", "photo")}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"report.docx", "paper.pdf", "photo.jpg"}, tr.attached)
	// first successful upload is indexed
	assert.Equal(t, "2", res.Report.AttachmentID)
	assert.Equal(t, "paper.pdf", res.Report.AttachmentName)
	assert.NotEmpty(t, res.Report.FilePath)
	assert.FileExists(t, res.Report.FilePath)
}

func TestSubmitTwiceCreatesTwoReports(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	assign(t, store, "anna", "REP-2")

	tr := newFakeTracker()
	svc := newReportService(t, store, tr, nil)

	for i := 0; i < 2; i++ {
		_, err := svc.Submit(ctx, ReportInput{Username: "anna"})
		require.NoError(t, err)
	}

	reports, err := store.ListReports(ctx, model.ReportFilter{})
	require.NoError(t, err)
	assert.Len(t, reports, 2)
	assert.Len(t, tr.comments["REP-2"], 2)
	for _, r := range reports {
		assert.Equal(t, "REP-2", r.IssueKey)
	}
}

func TestSubmitTransition(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	assign(t, store, "anna", "REP-3")

	tr := newFakeTracker()
	tr.transitions = []tracker.Transition{{ID: "close", Display: "Закрыть"}}
	svc := newReportService(t, store, tr, nil)

	_, err := svc.Submit(ctx, ReportInput{Username: "anna"})
	require.NoError(t, err)
	assert.Empty(t, tr.executed)

	tr.transitions = append(tr.transitions, tracker.Transition{ID: "need-info", Display: "нужна ИНФОРМАЦИЯ"})
	_, err = svc.Submit(ctx, ReportInput{Username: "anna"})
	require.NoError(t, err)
	assert.Equal(t, []string{"REP-3:need-info:"}, tr.executed)
}

func TestSubmitPublishFailureIgnored(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	assign(t, store, "anna", "REP-4")

	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newReportService(t, store, newFakeTracker(), pub)

	_, err := svc.Submit(ctx, ReportInput{Username: "anna"})
	require.NoError(t, err)
	assert.Len(t, pub.reports, 1)
	assert.True(t, pub.hadDeadline)
}

func TestSubmitHangingBrokerDoesNotStall(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	assign(t, store, "anna", "REP-4")

	pub := &recordingPublisher{block: true}
	svc := newReportService(t, store, newFakeTracker(), pub)
	svc.publishTimeout = 20 * time.Millisecond

	start := time.Now()
	res, err := svc.Submit(ctx, ReportInput{Username: "anna"})
	require.NoError(t, err)
	assert.Equal(t, "REP-4", res.IssueKey)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Len(t, pub.reports, 1)
}

func TestCreateBatch(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	tr := newFakeTracker()
	tr.transitions = []tracker.Transition{{ID: "start", Display: "В работу"}}
	svc := NewTaskService(store, tr, "http://reports.example/", "в работу", zap.NewNop())

	keys, err := svc.CreateBatch(ctx, BatchRequest{
		Summary:  "Отчёт за неделю",
		FormType: "extended",
		Tasks: []BatchItem{
			{Queue: "REP", Assignee: "anna@sirius.ru"},
			{Queue: "REP", Assignee: " ivan "},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"REP-1", "REP-2"}, keys)

	require.Len(t, tr.created, 2)
	assert.Equal(t, "anna", tr.created[0].Assignee)
	assert.Equal(t, "ivan", tr.created[1].Assignee)
	assert.Equal(t, "Перейдите по ссылке для заполнения: http://reports.example/dashboard/anna", tr.created[0].Description)
	assert.Equal(t, "3", tr.created[0].Priority.ID)
	assert.Equal(t, []string{
		"REP-1:start:Статус установлен автоматически",
		"REP-2:start:Статус установлен автоматически",
	}, tr.executed)

	task, err := store.LatestTaskForAssignee(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "REP-1", task.IssueKey)
	assert.Equal(t, model.FormTypeExtended, task.FormType)
}

func TestCreateBatchStopsAtFailure(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	tr := newFakeTracker()
	tr.failCreate = 2
	svc := NewTaskService(store, tr, "http://reports.example", "", zap.NewNop())

	keys, err := svc.CreateBatch(ctx, BatchRequest{
		Summary: "s",
		Tasks: []BatchItem{
			{Queue: "REP", Assignee: "a"},
			{Queue: "REP", Assignee: "b"},
			{Queue: "REP", Assignee: "c"},
		},
	})
	se, ok := tracker.AsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, 403, se.StatusCode)
	assert.Equal(t, []string{"REP-1"}, keys)

	tasks, err := store.ListTasks(ctx, "")
	require.NoError(t, err)
	assert.Len(t, tasks, 1)
	assert.Empty(t, tr.executed)
}

func TestCreateBatchValidation(t *testing.T) {
	svc := NewTaskService(newStore(t), newFakeTracker(), "", "", zap.NewNop())

	for _, req := range []BatchRequest{
		{Tasks: []BatchItem{{Queue: "REP", Assignee: "a"}}},
		{Summary: "s"},
		{Summary: "s", Tasks: []BatchItem{{Queue: "rep", Assignee: "a"}}},
		{Summary: "s", Tasks: []BatchItem{{Queue: "REP"}}},
		{Summary: "s", FormType: "short", Tasks: []BatchItem{{Queue: "REP", Assignee: "a"}}},
	} {
		_, err := svc.CreateBatch(context.Background(), req)
		assert.Error(t, err, "%+v", req)
	}
}

func TestDashboardStatus(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	tr := newFakeTracker()
	svc := NewDashboardService(store, tr, "REP", zap.NewNop())

	st, err := svc.Status(ctx, "anna")
	require.NoError(t, err)
	assert.True(t, st.IssueNotFound)
	assert.Empty(t, tr.calls)

	assign(t, store, "anna", "REP-5")
	tr.issues["REP-5"] = tracker.Issue{Key: "REP-5", Status: tracker.Status{Key: "inProgress", Display: "В работе"}}
	st, err = svc.Status(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "REP-5", st.IssueKey)
	assert.Equal(t, "В работе", st.StatusDisplay)
	assert.True(t, st.CanSubmit)

	tr.issues["REP-5"] = tracker.Issue{Key: "REP-5", Status: tracker.Status{Name: "Needs info"}}
	st, err = svc.Status(ctx, "anna")
	require.NoError(t, err)
	assert.Equal(t, "Needs info", st.StatusDisplay)
	assert.False(t, st.CanSubmit)

	delete(tr.issues, "REP-5")
	_, err = svc.Status(ctx, "anna")
	assert.ErrorIs(t, err, ErrTrackerCommunication)
}

func TestAssignedIssuesQuery(t *testing.T) {
	tr := newFakeTracker()
	svc := NewDashboardService(newStore(t), tr, "REP", zap.NewNop())

	issues, err := svc.AssignedIssues(context.Background(), "anna")
	require.NoError(t, err)
	assert.NotNil(t, issues)
	assert.Equal(t, "assignee: anna AND queue: REP AND status:!closed", tr.searched)
}
