// Package graphql builds the read-only admin GraphQL schema.
package graphql

import (
	"github.com/graphql-go/graphql"

	"github.com/siriusuniversity/report-backend/database"
	"github.com/siriusuniversity/report-backend/graphql/modules/reports"
)

// CreateSchema mounts every module's query fields under Query
func CreateSchema(store database.Store) (graphql.Schema, error) {
	fields := graphql.Fields{}
	for name, field := range reports.GetQueryFields(store) {
		fields[name] = field
	}

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: fields,
		}),
	})
}
