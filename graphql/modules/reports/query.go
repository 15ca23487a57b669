package reports

import (
	"github.com/graphql-go/graphql"

	"github.com/siriusuniversity/report-backend/database"
)

// GetQueryFields returns the report queries to be mounted in the root schema
func GetQueryFields(store database.Store) graphql.Fields {
	return graphql.Fields{
		"reports": &graphql.Field{
			Type: graphql.NewList(ReportType),
			Args: graphql.FieldConfigArgument{
				"from": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				"to":   &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				from, _ := p.Args["from"].(string)
				to, _ := p.Args["to"].(string)
				return ResolveReports(p.Context, store, from, to)
			},
		},
		"tasks": &graphql.Field{
			Type: graphql.NewList(TaskType),
			Args: graphql.FieldConfigArgument{
				"assignee": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				assignee, _ := p.Args["assignee"].(string)
				return ResolveTasks(p.Context, store, assignee)
			},
		},
		"latestTask": &graphql.Field{
			Type: TaskType,
			Args: graphql.FieldConfigArgument{
				"assignee": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
			},
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				assignee, _ := p.Args["assignee"].(string)
				task, err := ResolveLatestTask(p.Context, store, assignee)
				if task == nil || err != nil {
					return nil, err
				}
				return task, nil
			},
		},
		"users": &graphql.Field{
			Type: graphql.NewList(UserType),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return ResolveUsers(p.Context, store)
			},
		},
	}
}
