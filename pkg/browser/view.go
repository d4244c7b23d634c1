package browser

import "github.com/segmentio/tableview/pkg/schema"

type State int

const (
	NoTableSelected State = iota
	TableLoading
	TableLoaded
)

func (s State) String() string {
	switch s {
	case NoTableSelected:
		return "no-table-selected"
	case TableLoading:
		return "table-loading"
	case TableLoaded:
		return "table-loaded"
	default:
		return "unknown"
	}
}

type Column struct {
	Name     string
	Included bool
}

// View is a read-only snapshot of a Browser.
type View struct {
	State     State
	Table     string
	Search    string
	Tables    []schema.TableName
	Columns   []Column
	Effective []string
	Rows      schema.RowSet
	Notice    error
}
