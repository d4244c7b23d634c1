package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/segmentio/tableview/pkg/schema"
	"github.com/segmentio/tableview/pkg/sqlgen"
)

type MySQLStore struct {
	Db      *sql.DB
	MaxRows int
}

func (m *MySQLStore) ListTables(ctx context.Context) ([]schema.TableName, error) {
	return listTables(ctx, m.Db, "SHOW TABLES")
}

func (m *MySQLStore) FetchRows(ctx context.Context, table schema.TableName) (schema.RowSet, error) {
	return fetchRows(ctx, m.Db, sqlgen.DriverMySQL, table, m.MaxRows)
}

func (m *MySQLStore) Ping(ctx context.Context) error {
	return m.Db.PingContext(ctx)
}

func (m *MySQLStore) Close() error {
	return m.Db.Close()
}

// SetMySQLDSNParameters fills in connection defaults that the DSN does not
// specify itself.
func SetMySQLDSNParameters(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Collation == "" {
		cfg.Collation = "utf8mb4_unicode_ci"
	}
	return cfg.FormatDSN(), nil
}
