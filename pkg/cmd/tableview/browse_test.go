package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segmentio/tableview/pkg/browser"
	"github.com/segmentio/tableview/pkg/store"
	"github.com/segmentio/tableview/pkg/tests"
)

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// take returns what was written so far and resets the buffer.
func (b *lockedBuffer) take() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := b.buf.String()
	b.buf.Reset()
	return s
}

func newTestShell(t *testing.T) (*shell, *lockedBuffer, func()) {
	_, dsn, teardown := tests.WithSqliteDB(t,
		"CREATE TABLE users (id INTEGER, name TEXT, email TEXT)",
		"INSERT INTO users VALUES (1, 'a', 'a@example.com'), (2, 'b', NULL)",
		"CREATE TABLE orders (id INTEGER)",
		"CREATE TABLE user_roles (role TEXT)",
	)
	st, err := store.Open(store.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	b := browser.New(st)
	require.NoError(t, b.LoadCatalog(context.Background()))

	out := &lockedBuffer{}
	return newShell(b, out), out, func() {
		st.Close()
		teardown()
	}
}

// run executes a line and waits for any selection it started.
func run(sh *shell, line string) bool {
	quit := sh.exec(context.Background(), line)
	sh.wait()
	return quit
}

func TestShellTablesAndSearch(t *testing.T) {
	sh, out, teardown := newTestShell(t)
	defer teardown()

	run(sh, "tables")
	require.Equal(t, "  users\n  orders\n  user_roles\n", out.take())

	run(sh, "search USER")
	require.Equal(t, "  users\n  user_roles\n", out.take())

	run(sh, "search zzz")
	require.Equal(t, "no tables\n", out.take())

	run(sh, "search")
	require.Equal(t, "  users\n  orders\n  user_roles\n", out.take())
}

func TestShellSelectToggleShow(t *testing.T) {
	sh, out, teardown := newTestShell(t)
	defer teardown()

	require.Equal(t, "tableview> ", sh.prompt())
	run(sh, "select users")
	require.Equal(t, "loaded users: 2 rows, 3 columns\n", out.take())
	require.Equal(t, "tableview:users> ", sh.prompt())

	run(sh, "tables")
	require.Equal(t, "* users\n  orders\n  user_roles\n", out.take())

	run(sh, "toggle email nope")
	require.Equal(t, "no column \"nope\"\n[x] id\n[x] name\n[ ] email\n", out.take())

	run(sh, "show")
	table := out.take()
	require.Contains(t, table, " id ")
	require.Contains(t, table, " name ")
	require.NotContains(t, table, "email")
	require.Contains(t, table, "| a ")

	run(sh, "show 1")
	require.Contains(t, out.take(), "1 of 2 rows")

	run(sh, "select")
	require.Equal(t, "selection cleared\n", out.take())
	run(sh, "columns")
	require.Equal(t, "error: no table loaded\n", out.take())
}

func TestShellSelectKeepsInnerSpacing(t *testing.T) {
	_, dsn, teardown := tests.WithSqliteDB(t,
		`CREATE TABLE "odd  name" (v TEXT)`,
		`INSERT INTO "odd  name" VALUES ('x'), ('y')`,
	)
	defer teardown()
	st, err := store.Open(store.Config{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	defer st.Close()
	b := browser.New(st)
	require.NoError(t, b.LoadCatalog(context.Background()))
	out := &lockedBuffer{}
	sh := newShell(b, out)

	run(sh, "search   odd  na ")
	require.Equal(t, "  odd  name\n", out.take())

	run(sh, "select  odd  name")
	require.Equal(t, "loaded odd  name: 2 rows, 1 columns\n", out.take())
	require.Equal(t, "odd  name", b.Snapshot().Table)

	run(sh, "show 0")
	table := out.take()
	require.Contains(t, table, "| x ")
	require.Contains(t, table, "| y ")
	require.NotContains(t, table, " of ")
}

func TestShellSelectUnknown(t *testing.T) {
	sh, out, teardown := newTestShell(t)
	defer teardown()

	run(sh, "select nope")
	require.Contains(t, out.take(), "error: query failed for table \"nope\"")
	require.Equal(t, "tableview> ", sh.prompt())
}

func TestShellExport(t *testing.T) {
	sh, out, teardown := newTestShell(t)
	defer teardown()
	dir, td := tests.WithTmpDir(t)
	defer td()

	run(sh, "export")
	require.Equal(t, "error: no table loaded\n", out.take())

	run(sh, "select users")
	out.take()
	run(sh, "toggle email")
	out.take()

	run(sh, "export -")
	require.Equal(t, "id,name\n1,a\n2,b\n", out.take())

	run(sh, "export -format text -")
	require.Equal(t, "id\tname\n1\ta\n2\tb\n", out.take())

	path := filepath.Join(dir, "u.csv")
	run(sh, "export "+path)
	require.Equal(t, "exported users.csv (15 bytes)\n", out.take())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "id,name\n1,a\n2,b", string(b))

	run(sh, "export -format xml -")
	require.True(t, strings.HasPrefix(out.take(), "error: "))
	run(sh, "export -bogus")
	require.True(t, strings.HasPrefix(out.take(), "error: usage: export"))
}

func TestShellMisc(t *testing.T) {
	sh, out, teardown := newTestShell(t)
	defer teardown()

	require.False(t, run(sh, ""))
	require.False(t, run(sh, "help"))
	require.Contains(t, out.take(), "commands:")
	require.False(t, run(sh, "frobnicate"))
	require.Equal(t, "error: unknown command \"frobnicate\", type help for commands\n", out.take())
	require.True(t, run(sh, "exit"))
	require.True(t, run(sh, "quit"))
}
