package main

import (
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/segmentio/tableview/pkg/schema"
)

// renderRows draws at most limit rows of rs as a table of the given
// columns. It returns the number of rows drawn.
func renderRows(out io.Writer, rs schema.RowSet, columns []string, limit int) int {
	table := tablewriter.NewWriter(out)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader(columns)

	n := 0
	for _, rec := range rs {
		if limit > 0 && n >= limit {
			break
		}
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = rec.Text(c)
		}
		table.Append(row)
		n++
	}
	table.Render()
	return n
}
