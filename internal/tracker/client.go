// Package tracker is a small synchronous client for the Yandex Tracker v3
// REST API. Every call carries the organization header and the configured
// credential; any non-2xx answer is returned as a *StatusError and never
// retried.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/internal/config"
	"github.com/siriusuniversity/report-backend/util"
)

// StatusError is a non-2xx answer from the tracker
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("tracker %s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// AsStatusError unwraps err to a *StatusError if there is one
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Client talks to one tracker organization
type Client struct {
	baseURL string
	token   string
	scheme  string
	orgID   string
	http    *http.Client
	log     *zap.Logger
}

// New builds a client from configuration. The http.Client carries the
// configured timeout so no call can hang a request indefinitely.
func New(cfg config.TrackerConfig, log *zap.Logger) *Client {
	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = "OAuth"
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		token:   cfg.Token,
		scheme:  scheme,
		orgID:   cfg.OrgID,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", c.scheme+" "+token)
	req.Header.Set("X-Org-ID", c.orgID)
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// do sends req and decodes a 2xx JSON answer into out (if non-nil)
func (c *Client) do(req *http.Request, op string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("tracker %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.log.Debug("tracker call failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(b)))
		return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("tracker %s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, op, method, path, token string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("tracker %s: encode request: %w", op, err)
		}
		r = bytes.NewReader(b)
	}
	req, err := c.newRequest(ctx, method, path, token, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, op, out)
}

func issuePath(key string, rest ...string) string {
	p := "/issues/" + url.PathEscape(key)
	for _, s := range rest {
		p += "/" + url.PathEscape(s)
	}
	return p
}

// CreateIssue creates an issue and returns its key
func (c *Client) CreateIssue(ctx context.Context, issue IssueRequest) (string, error) {
	var created Issue
	if err := c.doJSON(ctx, "create issue", http.MethodPost, "/issues/", c.token, issue, &created); err != nil {
		return "", err
	}
	if created.Key == "" {
		return "", fmt.Errorf("tracker create issue: response without key")
	}
	return created.Key, nil
}

// GetIssue fetches one issue
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	var issue Issue
	if err := c.doJSON(ctx, "get issue", http.MethodGet, issuePath(key), c.token, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// ListTransitions returns the transitions currently available for an issue
func (c *Client) ListTransitions(ctx context.Context, key string) ([]Transition, error) {
	var transitions []Transition
	if err := c.doJSON(ctx, "list transitions", http.MethodGet, issuePath(key, "transitions"), c.token, nil, &transitions); err != nil {
		return nil, err
	}
	return transitions, nil
}

// ExecuteTransition moves the issue along a transition, with an optional comment
func (c *Client) ExecuteTransition(ctx context.Context, key, transitionID, comment string) error {
	var body any
	if comment != "" {
		body = map[string]string{"comment": comment}
	}
	return c.doJSON(ctx, "execute transition", http.MethodPost,
		issuePath(key, "transitions", transitionID, "_execute"), c.token, body, nil)
}

// AddComment posts a plain-text comment
func (c *Client) AddComment(ctx context.Context, key, text string) error {
	return c.doJSON(ctx, "add comment", http.MethodPost, issuePath(key, "comments"), c.token,
		map[string]string{"text": text}, nil)
}

// AddAttachment uploads a file to the issue. The API answers either with
// the attachment or with the list of the issue's attachments; in the
// latter case the last element is the new one.
func (c *Client) AddAttachment(ctx context.Context, key, filename string, content io.Reader) (*Attachment, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("tracker add attachment: read %s: %w", filename, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, issuePath(key, "attachments"), c.token, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var raw json.RawMessage
	if err := c.do(req, "add attachment", &raw); err != nil {
		return nil, err
	}

	raw = bytes.TrimSpace(raw)
	var att Attachment
	if len(raw) > 0 && raw[0] == '[' {
		var list []Attachment
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("tracker add attachment: decode response: %w", err)
		}
		if len(list) == 0 {
			return nil, fmt.Errorf("tracker add attachment: empty response")
		}
		att = list[len(list)-1]
	} else if err := json.Unmarshal(raw, &att); err != nil {
		return nil, fmt.Errorf("tracker add attachment: decode response: %w", err)
	}
	if att.Name == "" {
		att.Name = filename
	}
	return &att, nil
}

// SearchIssues runs a tracker query language expression
func (c *Client) SearchIssues(ctx context.Context, query string) ([]Issue, error) {
	var issues []Issue
	if err := c.doJSON(ctx, "search issues", http.MethodPost, "/issues/_search", c.token,
		map[string]string{"query": query}, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// ListQueues returns the queues visible to the service credential
func (c *Client) ListQueues(ctx context.Context) ([]Queue, error) {
	var queues []Queue
	if err := c.doJSON(ctx, "list queues", http.MethodGet, "/queues", c.token, nil, &queues); err != nil {
		return nil, err
	}
	return queues, nil
}

// GetUser fetches an account by uid or login
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	var u User
	if err := c.doJSON(ctx, "get user", http.MethodGet, "/users/"+url.PathEscape(id), c.token, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Myself resolves the account that owns accessToken. It is the only call
// made with a user's credential instead of the service one.
func (c *Client) Myself(ctx context.Context, accessToken string) (*User, error) {
	var u User
	if err := c.doJSON(ctx, "myself", http.MethodGet, "/myself", accessToken, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// TeamMember is one member of a queue team
type TeamMember struct {
	Login   string `json:"login"`
	Display string `json:"display"`
}

func (c *Client) getQueue(ctx context.Context, key, expand string) (*Queue, error) {
	var q Queue
	path := "/queues/" + url.PathEscape(key) + "?expand=" + url.QueryEscape(expand)
	if err := c.doJSON(ctx, "get queue", http.MethodGet, path, c.token, nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// QueueTeam lists the team of a queue with normalized logins, sorted by
// display name. Members known only by a numeric id are resolved through
// GetUser; if that fails the id is kept.
func (c *Client) QueueTeam(ctx context.Context, queueKey string) ([]TeamMember, error) {
	q, err := c.getQueue(ctx, queueKey, "teamUsers")
	if se, ok := AsStatusError(err); ok && (se.StatusCode == http.StatusBadRequest || se.StatusCode == http.StatusNotFound) {
		q, err = c.getQueue(ctx, queueKey, "all")
	}
	if err != nil {
		return nil, err
	}

	members := make([]TeamMember, 0, len(q.TeamUsers))
	for _, u := range q.TeamUsers {
		raw := firstNonEmpty(u.Login, u.UID.String(), u.ID.String(), u.Display)
		if raw == "" {
			continue
		}
		display := firstNonEmpty(u.Display, raw)

		if isDigits(raw) {
			detail, err := c.GetUser(ctx, raw)
			if err != nil {
				c.log.Warn("could not resolve team member", zap.String("queue", queueKey), zap.String("id", raw), zap.Error(err))
			} else if login := firstNonEmpty(detail.Login, detail.UID.String()); login != "" {
				raw = login
			}
		}

		members = append(members, TeamMember{Login: util.NormalizeLogin(raw), Display: display})
	}

	sort.SliceStable(members, func(i, j int) bool {
		return strings.ToLower(members[i].Display) < strings.ToLower(members[j].Display)
	})
	return members, nil
}

// Download is a streamed attachment body. The caller closes Body.
type Download struct {
	Body        io.ReadCloser
	ContentType string
}

// DownloadAttachment opens the content of an issue attachment
func (c *Client) DownloadAttachment(ctx context.Context, issueKey, attachmentID, filename string) (*Download, error) {
	req, err := c.newRequest(ctx, http.MethodGet, issuePath(issueKey, "attachments", attachmentID, filename), c.token, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Del("Accept")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tracker download attachment: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{Op: "download attachment", StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/octet-stream"
	}
	return &Download{Body: resp.Body, ContentType: ct}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
