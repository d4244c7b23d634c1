package scanfunc

import (
	"database/sql"
	"strings"

	"github.com/segmentio/errors-go"

	"github.com/segmentio/tableview/pkg/errs"
	"github.com/segmentio/tableview/pkg/schema"
)

type (
	// Placeholder implements sql.Scanner. instances of this are used
	// as placeholder values that rows.Scan will recognize and supply
	// each column value to them.
	Placeholder struct {
		Col schema.DBColumnMeta
		Val interface{}
	}
	// ScanFunc deserializes the current row into a record
	ScanFunc func(rows *sql.Rows) (schema.Record, error)
)

func (s *Placeholder) Scan(src interface{}) error {
	switch src := src.(type) {
	case []byte:
		colType := strings.ToUpper(s.Col.Type)
		switch {
		case strings.HasPrefix(colType, "BLOB"),
			strings.HasSuffix(colType, "BLOB"),
			strings.HasPrefix(colType, "VARBINARY"),
			strings.HasPrefix(colType, "BINARY"):
			// copy, the driver may reuse the buffer on the next Scan
			b := make([]byte, len(src))
			copy(b, src)
			s.Val = b
		default:
			// mysql returns a []byte for string columns, and so does
			// sqlite for some of them. there are many string types but
			// only a few binary ones, so strings are the default.
			s.Val = string(src)
		}
	default:
		s.Val = src
	}
	return nil
}

// New returns a ScanFunc that reads rows shaped like cols into records whose
// keys are in column order.
func New(cols []schema.DBColumnMeta) ScanFunc {
	return func(rows *sql.Rows) (schema.Record, error) {
		targets := make([]interface{}, 0, len(cols))

		// populate the targets with zero value types
		for _, col := range cols {
			targets = append(targets, &Placeholder{Col: col})
		}
		if err := rows.Scan(targets...); err != nil {
			return schema.Record{}, err
		}
		rec := schema.NewRecord()
		for i, target := range targets {
			rec.Set(cols[i].Name, target.(*Placeholder).Val)
		}
		return rec, nil
	}
}

// ScanRowSet drains rows into a RowSet. If maxRows is positive and the
// result would hold more than maxRows records, an error typed
// limit-exceeded is returned.
func ScanRowSet(rows *sql.Rows, maxRows int) (schema.RowSet, error) {
	cols, err := schema.DBColumnMetaFromRows(rows)
	if err != nil {
		return nil, errors.Wrap(err, "column types")
	}
	scan := New(cols)
	res := schema.RowSet{}
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan")
		}
		res = append(res, rec)
		if maxRows > 0 && len(res) > maxRows {
			err = errors.Errorf("max row count (%d) exceeded", maxRows)
			return nil, errors.WithTypes(err, errs.ErrTypeLimitExceeded)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
