package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segmentio/tableview/pkg/schema"
)

func TestFilter(t *testing.T) {
	tables := schema.TableNames("Users", "orders", "user_roles", "audit_log", "USERS_archive")

	for _, test := range []struct {
		name  string
		query string
		want  []string
	}{
		{"empty query", "", []string{"Users", "orders", "user_roles", "audit_log", "USERS_archive"}},
		{"case insensitive", "us", []string{"Users", "user_roles", "USERS_archive"}},
		{"upper query", "ORD", []string{"orders"}},
		{"middle of name", "_lo", []string{"audit_log"}},
		{"no match", "zzz", []string{}},
	} {
		t.Run(test.name, func(t *testing.T) {
			got := Filter(tables, test.query)
			require.Equal(t, test.want, schema.StringifyTableNames(got))
		})
	}
}

func TestFilterUsersOrders(t *testing.T) {
	got := Filter(schema.TableNames("Users", "orders"), "us")
	require.Equal(t, schema.TableNames("Users"), got)
}

func TestFilterDoesNotAlias(t *testing.T) {
	tables := schema.TableNames("a", "b")
	got := Filter(tables, "")
	got[0] = schema.TableName{Name: "changed"}
	require.Equal(t, "a", tables[0].Name)

	require.Equal(t, []schema.TableName{}, Filter(nil, "x"))
}
