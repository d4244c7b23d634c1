package search

import (
	"strings"

	"github.com/segmentio/tableview/pkg/schema"
)

// Filter returns the tables whose name contains query, ignoring case, in
// their original relative order. An empty query matches every table.
func Filter(tables []schema.TableName, query string) []schema.TableName {
	out := make([]schema.TableName, 0, len(tables))
	if query == "" {
		return append(out, tables...)
	}
	q := strings.ToLower(query)
	for _, t := range tables {
		if strings.Contains(strings.ToLower(t.Name), q) {
			out = append(out, t)
		}
	}
	return out
}
