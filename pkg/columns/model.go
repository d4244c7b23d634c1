// Package columns tracks which columns of a row set are selected for
// display and export.
package columns

import (
	"strings"

	"github.com/segmentio/tableview/pkg/schema"
)

// Model holds the column set of one row set together with the subset the
// user included. The column set never changes order; every view of the
// included columns is a subsequence of it.
type Model struct {
	columns  []string
	included map[string]bool
}

// Derive returns the column set of rs. See schema.RowSet.Columns for the
// first-record policy.
func Derive(rs schema.RowSet) []string {
	return rs.Columns()
}

// New returns a model for rs with every column included.
func New(rs schema.RowSet) *Model {
	m := &Model{}
	m.Reset(rs)
	return m
}

// Reset discards the current state and derives it fresh from rs. Selections
// never carry over between row sets.
func (m *Model) Reset(rs schema.RowSet) {
	m.columns = Derive(rs)
	m.included = make(map[string]bool, len(m.columns))
	m.IncludeAll()
}

// Columns returns the full column set in original order.
func (m *Model) Columns() []string {
	out := make([]string, len(m.columns))
	copy(out, m.columns)
	return out
}

func (m *Model) Has(column string) bool {
	_, ok := m.included[column]
	return ok
}

func (m *Model) Included(column string) bool {
	return m.included[column]
}

// Toggle flips the inclusion of column. Unknown columns are ignored and
// reported with a false return.
func (m *Model) Toggle(column string) bool {
	if !m.Has(column) {
		return false
	}
	m.included[column] = !m.included[column]
	return true
}

func (m *Model) IncludeAll() {
	for _, c := range m.columns {
		m.included[c] = true
	}
}

// Only includes exactly the named columns that exist in the column set and
// excludes the rest. Unknown names are ignored; the argument order has no
// effect on Effective.
func (m *Model) Only(columns ...string) {
	for _, c := range m.columns {
		m.included[c] = false
	}
	for _, c := range columns {
		if m.Has(c) {
			m.included[c] = true
		}
	}
}

// Effective returns the included columns in the column set's order.
func (m *Model) Effective() []string {
	out := make([]string, 0, len(m.columns))
	for _, c := range m.columns {
		if m.included[c] {
			out = append(out, c)
		}
	}
	return out
}

// ParseList splits a comma separated column list. Names are trimmed of
// surrounding space and blank entries are dropped.
func ParseList(s string) []string {
	var cols []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			cols = append(cols, c)
		}
	}
	return cols
}
