package store

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/segmentio/tableview/pkg/schema"
	"github.com/segmentio/tableview/pkg/sqlgen"
)

// sqlite_master is enumerated in rowid order, which is creation order.
// internal tables such as sqlite_sequence are not user data.
const sqliteListTablesSQL = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite\_%' ESCAPE '\'`

type SqliteStore struct {
	Db      *sql.DB
	MaxRows int
}

func (m *SqliteStore) ListTables(ctx context.Context) ([]schema.TableName, error) {
	return listTables(ctx, m.Db, sqliteListTablesSQL)
}

func (m *SqliteStore) FetchRows(ctx context.Context, table schema.TableName) (schema.RowSet, error) {
	return fetchRows(ctx, m.Db, sqlgen.DriverSQLite, table, m.MaxRows)
}

func (m *SqliteStore) Ping(ctx context.Context) error {
	return m.Db.PingContext(ctx)
}

func (m *SqliteStore) Close() error {
	return m.Db.Close()
}
