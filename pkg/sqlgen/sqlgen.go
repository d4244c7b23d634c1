package sqlgen

import (
	"bytes"
	"strings"

	"github.com/segmentio/errors-go"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"
)

var ErrIdentifierEmpty = errors.New("Identifier must not be empty")
var ErrIdentifierNUL = errors.New("Identifier must not contain NUL bytes")

// NormalizeDriverName maps the driver aliases accepted in configuration onto
// the names the drivers are registered under.
func NormalizeDriverName(driver string) string {
	switch strings.ToLower(driver) {
	case "sqlite", "sqlite3":
		return DriverSQLite
	case "mysql":
		return DriverMySQL
	default:
		return driver
	}
}

// QuoteIdentifier returns name quoted as a single SQL identifier for the
// given driver. The whole name is always treated as one identifier, so it
// is safe to splice into a statement: MySQL uses backticks and SQLite uses
// ANSI double quotes, with embedded quote characters doubled.
func QuoteIdentifier(driver string, name string) (string, error) {
	if name == "" {
		return "", ErrIdentifierEmpty
	}
	if strings.ContainsRune(name, '\x00') {
		return "", ErrIdentifierNUL
	}
	switch NormalizeDriverName(driver) {
	case DriverMySQL:
		return quoteWith(name, '`'), nil
	case DriverSQLite:
		return quoteWith(name, '"'), nil
	default:
		return "", errors.Errorf("unsupported driver %q", driver)
	}
}

// SelectAllDML builds the statement that fetches every row of a table.
func SelectAllDML(driver string, table string) (string, error) {
	qt, err := QuoteIdentifier(driver, table)
	if err != nil {
		return "", errors.Wrapf(err, "quote table %q", table)
	}
	return "SELECT * FROM " + qt, nil
}

func quoteWith(name string, q byte) string {
	buf := bytes.NewBuffer(make([]byte, 0, len(name)+2))
	buf.WriteByte(q)
	buf.WriteString(strings.Replace(name, string(q), string([]byte{q, q}), -1))
	buf.WriteByte(q)
	return buf.String()
}
