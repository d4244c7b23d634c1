package schema

import (
	"github.com/segmentio/tableview/pkg/errs"
)

// TableName identifies a table in the store. It is opaque: the only
// requirement is that it is not empty. Quoting for use in SQL is the
// job of the sqlgen package.
type TableName struct {
	Name string
}

var TableNameZero = TableName{}

func NewTableName(name string) (TableName, error) {
	if name == "" {
		return TableNameZero, errs.MissingParameter("Table name is required")
	}
	return TableName{name}, nil
}

func (tn TableName) String() string {
	return tn.Name
}

func (tn TableName) IsZero() bool {
	return tn.Name == ""
}

// TableNames wraps each of the raw names.
func TableNames(names ...string) []TableName {
	out := make([]TableName, len(names))
	for i, name := range names {
		out[i] = TableName{name}
	}
	return out
}

func StringifyTableNames(tns []TableName) []string {
	out := make([]string, len(tns))
	for i, tn := range tns {
		out[i] = tn.Name
	}
	return out
}
