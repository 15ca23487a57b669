// Package reports defines the GraphQL types and queries over reports,
// task assignments and users.
package reports

import (
	"github.com/graphql-go/graphql"

	"github.com/siriusuniversity/report-backend/model"
)

func keyField() *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			switch v := p.Source.(type) {
			case model.Report:
				return v.Key, nil
			case *model.Task:
				return v.Key, nil
			case model.Task:
				return v.Key, nil
			case model.User:
				return v.Key, nil
			}
			return nil, nil
		},
	}
}

// ReportType is one submitted report
var ReportType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Report",
	Fields: graphql.Fields{
		"id":                      keyField(),
		"username":                &graphql.Field{Type: graphql.String},
		"programs_supported":      &graphql.Field{Type: graphql.Int},
		"projects_in_program":     &graphql.Field{Type: graphql.Int},
		"new_scientists_employed": &graphql.Field{Type: graphql.Int},
		"publications_count":      &graphql.Field{Type: graphql.Int},
		"programs_count":          &graphql.Field{Type: graphql.Int},
		"events_count":            &graphql.Field{Type: graphql.Int},
		"department":              &graphql.Field{Type: graphql.String},
		"description":             &graphql.Field{Type: graphql.String},
		"file_path":               &graphql.Field{Type: graphql.String},
		"issue_key":               &graphql.Field{Type: graphql.String},
		"attachment_id":           &graphql.Field{Type: graphql.String},
		"attachment_name":         &graphql.Field{Type: graphql.String},
		"created_at":              &graphql.Field{Type: graphql.DateTime},
	},
})

// TaskType is one task assignment
var TaskType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Task",
	Fields: graphql.Fields{
		"id":         keyField(),
		"issue_key":  &graphql.Field{Type: graphql.String},
		"queue_key":  &graphql.Field{Type: graphql.String},
		"assignee":   &graphql.Field{Type: graphql.String},
		"summary":    &graphql.Field{Type: graphql.String},
		"form_type":  &graphql.Field{Type: graphql.String},
		"created_at": &graphql.Field{Type: graphql.DateTime},
	},
})

// UserType is one known user. is_admin is the stored flag as of the
// user's last request.
var UserType = graphql.NewObject(graphql.ObjectConfig{
	Name: "User",
	Fields: graphql.Fields{
		"id":         keyField(),
		"login":      &graphql.Field{Type: graphql.String},
		"is_admin":   &graphql.Field{Type: graphql.Boolean},
		"created_at": &graphql.Field{Type: graphql.DateTime},
	},
})
