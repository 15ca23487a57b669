package tracker

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/internal/config"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(config.TrackerConfig{
		APIURL:  srv.URL + "/v3",
		Token:   "svc-token",
		OrgID:   "org-1",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestHeadersAndCreateIssue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OAuth svc-token", r.Header.Get("Authorization"))
		assert.Equal(t, "org-1", r.Header.Get("X-Org-ID"))
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v3/issues/", r.URL.Path)

		var body IssueRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "REP", body.Queue)
		assert.Equal(t, "ivan", body.Assignee)
		assert.Equal(t, "3", body.Priority.ID)

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"key":"REP-7","summary":"weekly"}`))
	})

	key, err := c.CreateIssue(t.Context(), IssueRequest{
		Queue: "REP", Summary: "weekly", Assignee: "ivan", Type: "task", Priority: &Priority{ID: "3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "REP-7", key)
}

func TestNon2xxIsStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"errorMessages":["no access"]}`))
	})

	err := c.AddComment(t.Context(), "REP-1", "hello")
	require.Error(t, err)
	se, ok := AsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusForbidden, se.StatusCode)
	assert.Equal(t, "add comment", se.Op)
	assert.Contains(t, se.Body, "no access")
}

func TestGetIssueAndTransitions(t *testing.T) {
	var executed string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v3/issues/REP-1":
			_, _ = w.Write([]byte(`{"key":"REP-1","status":{"key":"inProgress","display":"В работе"}}`))
		case r.Method == http.MethodGet && r.URL.Path == "/v3/issues/REP-1/transitions":
			_, _ = w.Write([]byte(`[{"id":"close","display":"Закрыть"},{"id":"need_info","display":"Нужна информация"}]`))
		case r.Method == http.MethodPost && r.URL.Path == "/v3/issues/REP-1/transitions/need_info/_execute":
			b, _ := io.ReadAll(r.Body)
			executed = string(b)
			_, _ = w.Write([]byte(`[]`))
		default:
			t.Errorf("unexpected call %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	issue, err := c.GetIssue(t.Context(), "REP-1")
	require.NoError(t, err)
	assert.Equal(t, "В работе", issue.Status.Label())

	transitions, err := c.ListTransitions(t.Context(), "REP-1")
	require.NoError(t, err)
	tr := FindTransition(transitions, "нужна ИНФОРМАЦИЯ")
	require.NotNil(t, tr)
	assert.Equal(t, "need_info", tr.ID)
	assert.Nil(t, FindTransition(transitions, "Решить"))

	require.NoError(t, c.ExecuteTransition(t.Context(), "REP-1", tr.ID, "auto"))
	assert.JSONEq(t, `{"comment":"auto"}`, executed)
}

func TestAddAttachment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		content, _ := io.ReadAll(f)
		assert.Equal(t, "report.pdf", hdr.Filename)
		assert.Equal(t, "pdf-bytes", string(content))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[{"id":1,"name":"old.txt"},{"id":42,"name":"report.pdf"}]`))
	})

	att, err := c.AddAttachment(t.Context(), "REP-1", "report.pdf", strings.NewReader("pdf-bytes"))
	require.NoError(t, err)
	assert.Equal(t, ID("42"), att.ID)
	assert.Equal(t, "report.pdf", att.Name)
}

func TestAddAttachmentSingleObject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"77"}`))
	})

	att, err := c.AddAttachment(t.Context(), "REP-1", "a.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.Equal(t, ID("77"), att.ID)
	assert.Equal(t, "a.txt", att.Name)
}

func TestSearchIssues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/issues/_search", r.URL.Path)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "assignee: ivan", body["query"])
		_, _ = w.Write([]byte(`[{"key":"REP-1","summary":"a"},{"key":"REP-2","summary":"b"}]`))
	})

	issues, err := c.SearchIssues(t.Context(), "assignee: ivan")
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, "REP-2", issues[1].Key)
}

func TestMyselfUsesCallerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "OAuth user-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"uid":1130000000,"login":"ivan.petrov@sirius.ru"}`))
	})

	u, err := c.Myself(t.Context(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "ivan.petrov@sirius.ru", u.Login)
	assert.Equal(t, ID("1130000000"), u.UID)
}

func TestQueueTeamFallsBackAndResolvesIDs(t *testing.T) {
	var expands []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/queues/REP":
			expand := r.URL.Query().Get("expand")
			expands = append(expands, expand)
			if expand == "teamUsers" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			_, _ = w.Write([]byte(`{"key":"REP","teamUsers":[
				{"id":"1001","display":"Яков Б"},
				{"login":"anna@sirius.ru","display":"анна"},
				{"display":""}
			]}`))
		case "/v3/users/1001":
			_, _ = w.Write([]byte(`{"login":"yakov"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	team, err := c.QueueTeam(t.Context(), "REP")
	require.NoError(t, err)
	assert.Equal(t, []string{"teamUsers", "all"}, expands)
	assert.Equal(t, []TeamMember{
		{Login: "anna", Display: "анна"},
		{Login: "yakov", Display: "Яков Б"},
	}, team)
}

func TestDownloadAttachment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/issues/REP-1/attachments/42/report.pdf", r.URL.Path)
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF"))
	})

	d, err := c.DownloadAttachment(t.Context(), "REP-1", "42", "report.pdf")
	require.NoError(t, err)
	defer d.Body.Close()
	b, _ := io.ReadAll(d.Body)
	assert.Equal(t, "%PDF", string(b))
	assert.Equal(t, "application/pdf", d.ContentType)
}

func TestIDUnmarshal(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":"x1","b":12,"c":null}`), &v))
	assert.Equal(t, ID("x1"), v.A)
	assert.Equal(t, ID("12"), v.B)
	assert.Equal(t, ID(""), v.C)
}
