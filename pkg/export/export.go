// Package export serializes a row set, restricted to a list of columns, into
// comma or tab delimited text.
//
// By default cell values are written verbatim: a value that contains the
// delimiter or a newline produces a line that cannot be split back
// unambiguously. Options.Quote switches to RFC 4180 quoting, which keeps
// such values intact at the cost of quote characters in the output. A quoted
// line holding a single empty field is written as "" so it is not read back
// as a blank line.
package export

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"io"
	"strings"

	"github.com/segmentio/errors-go"

	"github.com/segmentio/tableview/pkg/errs"
	"github.com/segmentio/tableview/pkg/schema"
)

type (
	Options struct {
		// Quote enables RFC 4180 quoting of fields.
		Quote bool
		// RequireColumns makes an export with no columns fail with
		// an EmptyExportError instead of producing an empty payload.
		RequireColumns bool
	}
	// Payload is a finished export, ready to be handed to a destination.
	Payload struct {
		Filename    string
		ContentType string
		Data        []byte
	}
)

// Export renders rs restricted to columns, in the given column order. The
// first line is the header; each record follows on its own line in row set
// order. Lines are separated by a newline and there is no trailing newline.
func Export(table string, rs schema.RowSet, columns []string, format Format, opts Options) (Payload, error) {
	buf := new(bytes.Buffer)
	if err := Write(buf, rs, columns, format, opts); err != nil {
		return Payload{}, err
	}
	return Payload{
		Filename:    format.Filename(table),
		ContentType: format.ContentType(),
		Data:        buf.Bytes(),
	}, nil
}

// Write streams the export to w. See Export.
func Write(w io.Writer, rs schema.RowSet, columns []string, format Format, opts Options) error {
	if len(columns) == 0 {
		if opts.RequireColumns {
			return errs.EmptyExport("no columns selected for export")
		}
		return nil
	}
	var lw lineWriter
	if opts.Quote {
		lw = newQuotedWriter(w, format.Delimiter())
	} else {
		lw = newRawWriter(w, format.Delimiter())
	}

	if err := lw.WriteLine(columns); err != nil {
		return errors.Wrap(err, "write header")
	}
	fields := make([]string, len(columns))
	for i, rec := range rs {
		for j, col := range columns {
			fields[j] = rec.Text(col)
		}
		if err := lw.WriteLine(fields); err != nil {
			return errors.Wrapf(err, "write row %d", i)
		}
	}
	if err := lw.Flush(); err != nil {
		return errors.Wrap(err, "flush")
	}
	return nil
}

type lineWriter interface {
	WriteLine(fields []string) error
	Flush() error
}

// rawWriter joins fields with the delimiter and nothing else.
type rawWriter struct {
	w     *bufio.Writer
	delim string
	lines int
}

func newRawWriter(w io.Writer, delim rune) *rawWriter {
	return &rawWriter{w: bufio.NewWriter(w), delim: string(delim)}
}

func (r *rawWriter) WriteLine(fields []string) error {
	if r.lines > 0 {
		if err := r.w.WriteByte('\n'); err != nil {
			return err
		}
	}
	r.lines++
	_, err := r.w.WriteString(strings.Join(fields, r.delim))
	return err
}

func (r *rawWriter) Flush() error {
	return r.w.Flush()
}

// quotedWriter uses encoding/csv for the quoting rules. csv.Writer ends every
// record with a newline, so each record is held back until the next one
// arrives and the final newline is dropped.
type quotedWriter struct {
	out   *bufio.Writer
	buf   bytes.Buffer
	csv   *csv.Writer
	lines int
}

func newQuotedWriter(w io.Writer, delim rune) *quotedWriter {
	q := &quotedWriter{out: bufio.NewWriter(w)}
	q.csv = csv.NewWriter(&q.buf)
	q.csv.Comma = delim
	return q
}

func (q *quotedWriter) WriteLine(fields []string) error {
	q.buf.Reset()
	if err := q.csv.Write(fields); err != nil {
		return err
	}
	q.csv.Flush()
	if err := q.csv.Error(); err != nil {
		return err
	}
	line := bytes.TrimSuffix(q.buf.Bytes(), []byte{'\n'})
	// a lone empty field would be a blank line, which readers skip
	if len(fields) == 1 && fields[0] == "" {
		line = []byte(`""`)
	}
	if q.lines > 0 {
		if err := q.out.WriteByte('\n'); err != nil {
			return err
		}
	}
	q.lines++
	_, err := q.out.Write(line)
	return err
}

func (q *quotedWriter) Flush() error {
	return q.out.Flush()
}
