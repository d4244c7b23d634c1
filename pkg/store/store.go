package store

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/segmentio/errors-go"
	"github.com/segmentio/events/v2"
	"github.com/segmentio/stats/v4"

	"github.com/segmentio/tableview/pkg/errs"
	"github.com/segmentio/tableview/pkg/scanfunc"
	"github.com/segmentio/tableview/pkg/schema"
	"github.com/segmentio/tableview/pkg/sqlgen"
)

type (
	// Store is the query-execution layer: it lists the tables of a
	// relational database and fetches all rows of one of them.
	Store interface {
		ListTables(ctx context.Context) ([]schema.TableName, error)
		FetchRows(ctx context.Context, table schema.TableName) (schema.RowSet, error)
		Ping(ctx context.Context) error
		io.Closer
	}
	Config struct {
		Driver string
		DSN    string
		// MaxRows limits the size of a single fetch. Zero means unlimited.
		MaxRows int
	}
)

// Open opens the database described by config. Connections are made lazily,
// so an unreachable database surfaces on the first call.
func Open(config Config) (Store, error) {
	driver := sqlgen.NormalizeDriverName(config.Driver)
	switch driver {
	case sqlgen.DriverMySQL:
		dsn, err := SetMySQLDSNParameters(config.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "mysql dsn")
		}
		db, err := sql.Open(driver, dsn)
		if err != nil {
			return nil, errors.Wrap(err, "open mysql")
		}
		return &MySQLStore{Db: db, MaxRows: config.MaxRows}, nil
	case sqlgen.DriverSQLite:
		db, err := sql.Open(driver, config.DSN)
		if err != nil {
			return nil, errors.Wrap(err, "open sqlite")
		}
		return &SqliteStore{Db: db, MaxRows: config.MaxRows}, nil
	default:
		return nil, errors.Errorf("unsupported driver %q", config.Driver)
	}
}

// listTables runs a statement whose first column holds table names.
func listTables(ctx context.Context, db *sql.DB, query string) ([]schema.TableName, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		errs.Incr("list-tables-errors")
		return nil, errs.CatalogUnavailable(errors.Wrap(err, "query table names"))
	}
	defer rows.Close()

	res := []schema.TableName{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			errs.Incr("list-tables-errors")
			return nil, errs.CatalogUnavailable(errors.Wrap(err, "scan table name"))
		}
		res = append(res, schema.TableName{Name: name})
	}
	if err := rows.Err(); err != nil {
		errs.Incr("list-tables-errors")
		return nil, errs.CatalogUnavailable(errors.Wrap(err, "iterate table names"))
	}
	stats.Set("catalog-size", len(res))
	return res, nil
}

func fetchRows(ctx context.Context, db *sql.DB, driver string, table schema.TableName, maxRows int) (schema.RowSet, error) {
	if table.IsZero() {
		return nil, errs.MissingParameter("Table name is required")
	}
	qs, err := sqlgen.SelectAllDML(driver, table.Name)
	if err != nil {
		return nil, errs.QueryFailed(table.Name, err)
	}

	start := time.Now()
	events.Debug("fetching rows: %{query}s", qs)
	rows, err := db.QueryContext(ctx, qs)
	if err != nil {
		errs.Incr("fetch-rows-errors", stats.T("table", table.Name))
		return nil, errs.QueryFailed(table.Name, err)
	}
	defer rows.Close()

	rs, err := scanfunc.ScanRowSet(rows, maxRows)
	switch {
	case err == nil:
	case errors.Is(errs.ErrTypeLimitExceeded, err):
		errs.Incr("fetch-rows-limit-exceeded", stats.T("table", table.Name))
		return nil, err
	default:
		errs.Incr("fetch-rows-errors", stats.T("table", table.Name))
		return nil, errs.QueryFailed(table.Name, err)
	}
	stats.Observe("fetch-rows-count", len(rs), stats.T("table", table.Name))
	stats.Observe("fetch-rows-time", time.Since(start), stats.T("table", table.Name))
	return rs, nil
}
