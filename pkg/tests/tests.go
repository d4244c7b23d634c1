package tests

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/segmentio/tableview/pkg/utils"
)

// MySQLDSNEnv names the environment variable holding the DSN of the MySQL
// instance used by integration tests, e.g. from docker-compose.
const MySQLDSNEnv = "TABLEVIEW_TEST_MYSQL_DSN"

func WithTmpDir(t testing.TB) (dir string, teardown func()) {
	tmpDir, err := os.MkdirTemp("", "tableview")
	if err != nil {
		t.Fatal(err)
	}
	return tmpDir, func() {
		os.RemoveAll(tmpDir)
	}
}

func WithTmpFile(t testing.TB, name string) (file *os.File, teardown func()) {
	var teardowns utils.Teardowns
	dir, teardown := WithTmpDir(t)
	teardowns.Add(teardown)

	path := filepath.Join(dir, name)
	var err error
	file, err = os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	teardowns.Add(func() { file.Close() })
	return file, teardowns.Teardown
}

// WithSqliteDB creates a SQLite database in a temp dir and runs each of the
// statements against it. It returns the DSN so that callers can open their
// own connections to the same file.
func WithSqliteDB(t testing.TB, statements ...string) (db *sql.DB, dsn string, teardown func()) {
	var teardowns utils.Teardowns
	dir, td := WithTmpDir(t)
	teardowns.Add(td)

	dsn = filepath.Join(dir, "store.db")
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		teardowns.Teardown()
		t.Fatalf("Couldn't open SQLite db, error %v", err)
	}
	teardowns.Add(func() { db.Close() })

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			teardowns.Teardown()
			t.Fatalf("Unexpected error executing %q: %+v", stmt, err)
		}
	}
	return db, dsn, teardowns.Teardown
}

// CheckMySQL skips the test unless a reachable MySQL DSN is configured.
func CheckMySQL(t *testing.T) string {
	dsn := os.Getenv(MySQLDSNEnv)
	if dsn == "" {
		t.Skipf("%s not set, skipping MySQL test", MySQLDSNEnv)
	}
	db, err := sql.Open("mysql", dsn)
	if err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
		defer cancel()
		_, err = db.ExecContext(ctx, "SELECT 1")
		db.Close()
		if err == nil {
			return dsn
		}
	}
	t.Fatalf(`
		*** Tests require MySQL to be up ***
		Error: %v"
		\n\nHINT: Have you ran 'docker-compose up'?\n\n
	`, err)
	return ""
}
