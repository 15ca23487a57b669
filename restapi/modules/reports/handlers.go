// Package reports implements the REST API handler for report submission.
package reports

import (
	"context"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/siriusuniversity/report-backend/internal/services"
	"github.com/siriusuniversity/report-backend/restapi/modules/auth"
	"github.com/siriusuniversity/report-backend/util"
)

// Submitter runs the submission flow
type Submitter interface {
	Submit(ctx context.Context, in services.ReportInput) (*services.SubmitResult, error)
}

// SubmitResponse is returned after a successful submission
type SubmitResponse struct {
	Username string `json:"username"`
	IssueKey string `json:"issue_key"`
	IssueURL string `json:"issue_url"`
	ReportID string `json:"report_id"`
}

// Submit handles POST /submit (multipart form)
func Submit(svc Submitter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := auth.CurrentUser(c)
		if user == nil {
			return auth.ErrUnauthenticated
		}

		form, err := c.MultipartForm()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "expected multipart form")
		}

		if name := util.NormalizeLogin(strings.TrimSpace(first(form.Value, "username"))); name != "" && name != user.Login {
			return auth.ErrForbidden
		}

		in := parseForm(form)
		in.Username = user.Login

		res, err := svc.Submit(c.UserContext(), in)
		if err != nil {
			return err
		}

		return c.JSON(SubmitResponse{
			Username: user.Login,
			IssueKey: res.IssueKey,
			IssueURL: res.IssueURL,
			ReportID: res.Report.Key,
		})
	}
}

func parseForm(form *multipart.Form) services.ReportInput {
	in := services.ReportInput{
		ProgramsSupported:     intField(form.Value, "programs_supported"),
		ProjectsInProgram:     intField(form.Value, "projects_in_program"),
		NewScientistsEmployed: intField(form.Value, "new_scientists_employed"),
		PublicationsCount:     intField(form.Value, "publications_count"),
		ProgramsCount:         intField(form.Value, "programs_count"),
		EventsCount:           intField(form.Value, "events_count"),
		Department:            strings.TrimSpace(first(form.Value, "department")),
		Description:           strings.TrimSpace(first(form.Value, "description")),
	}
	if files := fileList(form.File, "report_file"); len(files) > 0 {
		in.ReportFile = &files[0]
	}

	titles, dois, relations := list(form.Value, "pub_title"), list(form.Value, "pub_doi"), list(form.Value, "pub_relation")
	pubFiles := fileList(form.File, "pub_file")
	for i := range longest(titles, dois, relations) {
		in.Publications = append(in.Publications, services.Publication{
			Title:    at(titles, i),
			DOI:      at(dois, i),
			Relation: at(relations, i),
			File:     fileAt(pubFiles, i),
		})
	}
	in.ExtraFiles = append(in.ExtraFiles, surplus(pubFiles, len(in.Publications))...)

	names, kinds, priorities := list(form.Value, "prog_name"), list(form.Value, "prog_kind"), list(form.Value, "prog_priority")
	progFiles := fileList(form.File, "prog_file")
	for i := range longest(names, kinds, priorities) {
		in.Programs = append(in.Programs, services.Program{
			Name:     at(names, i),
			Kind:     at(kinds, i),
			Priority: at(priorities, i),
			File:     fileAt(progFiles, i),
		})
	}
	in.ExtraFiles = append(in.ExtraFiles, surplus(progFiles, len(in.Programs))...)

	types, topics := list(form.Value, "event_type"), list(form.Value, "event_topic")
	eventFiles := fileList(form.File, "event_file")
	for i := range longest(types, topics) {
		in.Events = append(in.Events, services.Event{
			Type:  at(types, i),
			Topic: at(topics, i),
			File:  fileAt(eventFiles, i),
		})
	}
	in.ExtraFiles = append(in.ExtraFiles, surplus(eventFiles, len(in.Events))...)

	return in
}

// list accepts both "name" and "name[]" keys
func list(values map[string][]string, name string) []string {
	return append(append([]string(nil), values[name]...), values[name+"[]"]...)
}

func first(values map[string][]string, name string) string {
	if v := list(values, name); len(v) > 0 {
		return v[0]
	}
	return ""
}

// intField yields nil for absent or unparsable values
func intField(values map[string][]string, name string) *int {
	s := strings.TrimSpace(first(values, name))
	if s == "" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}

func at(values []string, i int) string {
	if i < len(values) {
		return strings.TrimSpace(values[i])
	}
	return ""
}

func longest(lists ...[]string) int {
	n := 0
	for _, l := range lists {
		n = max(n, len(l))
	}
	return n
}

func fileList(files map[string][]*multipart.FileHeader, name string) []services.Upload {
	var out []services.Upload
	for _, key := range []string{name, name + "[]"} {
		for _, fh := range files[key] {
			if fh.Filename == "" {
				continue
			}
			out = append(out, upload(fh))
		}
	}
	return out
}

func upload(fh *multipart.FileHeader) services.Upload {
	return services.Upload{
		Name: fh.Filename,
		Open: func() (io.ReadCloser, error) {
			f, err := fh.Open()
			if err != nil {
				return nil, err
			}
			return f, nil
		},
	}
}

func fileAt(files []services.Upload, i int) *services.Upload {
	if i < len(files) {
		return &files[i]
	}
	return nil
}

func surplus(files []services.Upload, used int) []services.Upload {
	if len(files) <= used {
		return nil
	}
	return files[used:]
}
