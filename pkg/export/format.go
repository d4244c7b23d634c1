package export

import (
	"strings"

	"github.com/segmentio/tableview/pkg/errs"
)

// Format is a flat-text export format.
type Format int

const (
	CSV Format = iota
	Text
)

// ParseFormat accepts the format names used on the command line and in the
// HTTP API.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "text", "txt", "tsv":
		return Text, nil
	default:
		return CSV, errs.BadRequest("unknown export format %q", s)
	}
}

func (f Format) String() string {
	switch f {
	case Text:
		return "text"
	default:
		return "csv"
	}
}

// Delimiter separates the fields of a line.
func (f Format) Delimiter() rune {
	switch f {
	case Text:
		return '\t'
	default:
		return ','
	}
}

func (f Format) Extension() string {
	switch f {
	case Text:
		return ".txt"
	default:
		return ".csv"
	}
}

func (f Format) ContentType() string {
	switch f {
	case Text:
		return "text/plain"
	default:
		return "text/csv"
	}
}

// Filename is the suggested name of an export of table.
func (f Format) Filename(table string) string {
	return table + f.Extension()
}
