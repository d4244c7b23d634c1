package scanfunc

import (
	"testing"

	"github.com/segmentio/errors-go"
	"github.com/stretchr/testify/require"

	"github.com/segmentio/tableview/pkg/errs"
	"github.com/segmentio/tableview/pkg/schema"
	"github.com/segmentio/tableview/pkg/tests"
)

func TestPlaceholderScan(t *testing.T) {
	for _, test := range []struct {
		name string
		typ  string
		src  interface{}
		want interface{}
	}{
		{"varchar bytes", "VARCHAR", []byte("abc"), "abc"},
		{"text bytes", "TEXT", []byte("abc"), "abc"},
		{"blob bytes", "BLOB", []byte{0xde, 0xad}, []byte{0xde, 0xad}},
		{"mediumblob bytes", "MEDIUMBLOB", []byte{0xbe}, []byte{0xbe}},
		{"varbinary bytes", "VARBINARY", []byte{0x01}, []byte{0x01}},
		{"int", "INTEGER", int64(7), int64(7)},
		{"null", "TEXT", nil, nil},
	} {
		t.Run(test.name, func(t *testing.T) {
			p := &Placeholder{Col: schema.DBColumnMeta{Name: "c", Type: test.typ}}
			require.NoError(t, p.Scan(test.src))
			require.Equal(t, test.want, p.Val)
		})
	}
}

func TestScanRowSet(t *testing.T) {
	db, _, teardown := tests.WithSqliteDB(t,
		"CREATE TABLE people (zid INTEGER, name VARCHAR(20), data BLOB, score REAL)",
		"INSERT INTO people VALUES (2, 'b', x'beef', 1.5)",
		"INSERT INTO people VALUES (1, 'a', NULL, NULL)",
	)
	defer teardown()

	rows, err := db.Query("SELECT * FROM people ORDER BY rowid")
	require.NoError(t, err)
	defer rows.Close()

	rs, err := ScanRowSet(rows, 0)
	require.NoError(t, err)
	require.Len(t, rs, 2)
	require.Equal(t, []string{"zid", "name", "data", "score"}, rs.Columns())

	require.Equal(t, "2", rs[0].Text("zid"))
	require.Equal(t, "b", rs[0].Text("name"))
	data, _ := rs[0].Get("data")
	require.Equal(t, []byte{0xbe, 0xef}, data)
	require.Equal(t, "1.5", rs[0].Text("score"))

	require.Equal(t, "1", rs[1].Text("zid"))
	require.Equal(t, "", rs[1].Text("data"))
}

func TestScanRowSetEmpty(t *testing.T) {
	db, _, teardown := tests.WithSqliteDB(t, "CREATE TABLE empty_table (id INTEGER)")
	defer teardown()

	rows, err := db.Query("SELECT * FROM empty_table")
	require.NoError(t, err)
	defer rows.Close()

	rs, err := ScanRowSet(rows, 0)
	require.NoError(t, err)
	require.NotNil(t, rs)
	require.Len(t, rs, 0)
	require.Equal(t, []string{}, rs.Columns())
}

func TestScanRowSetMaxRows(t *testing.T) {
	db, _, teardown := tests.WithSqliteDB(t,
		"CREATE TABLE nums (n INTEGER)",
		"INSERT INTO nums VALUES (1), (2), (3)",
	)
	defer teardown()

	scan := func(max int) (schema.RowSet, error) {
		rows, err := db.Query("SELECT * FROM nums")
		require.NoError(t, err)
		defer rows.Close()
		return ScanRowSet(rows, max)
	}

	rs, err := scan(3)
	require.NoError(t, err)
	require.Len(t, rs, 3)

	_, err = scan(2)
	require.Error(t, err)
	require.True(t, errors.Is(errs.ErrTypeLimitExceeded, err))
}
