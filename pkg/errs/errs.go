package errs

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"github.com/segmentio/stats/v4"
)

const (
	defaultErrName = "errors"
)

const (
	// these error types are handy when using errors-go
	ErrTypeLimitExceeded = "limit-exceeded"
)

func IsCanceled(err error) bool {
	return err != nil && errors.Is(err, context.Canceled)
}

// IncrDefault increments the default error metric
func IncrDefault(tags ...stats.Tag) {
	Incr(defaultErrName, tags...)
}

// Incr increments an error metric, along with the default error metric
func Incr(name string, tags ...stats.Tag) {
	stats.Incr(name, tags...)
	if name == defaultErrName {
		// don't increment the default error twice
		return
	}
	// add a tag to indicate the name of the original error. We can then
	// view that tag in datadog to figure out what the error was.
	newTags := make([]stats.Tag, len(tags), len(tags)+1)
	copy(newTags, tags)
	newTags = append(newTags, stats.T("error", name))
	stats.Incr(defaultErrName, newTags...)
}

// These are here because there's a need for a set of errors that have roughly
// REST/HTTP compatibility, but aren't directly coupled to that interface. The
// store and the browser generate these errors while still making sense in
// any context.
type baseError struct {
	Err string
}

type BadRequestError baseError

func (e BadRequestError) Error() string {
	return e.Err
}

func BadRequest(format string, args ...interface{}) error {
	return &BadRequestError{
		Err: fmt.Sprintf(format, args...),
	}
}

type NotFoundError baseError

func (e NotFoundError) Error() string {
	return e.Err
}

func NotFound(format string, args ...interface{}) error {
	return &NotFoundError{
		Err: fmt.Sprintf(format, args...),
	}
}

// MissingParameterError is returned when a required request parameter, such
// as the table name, is absent or empty.
type MissingParameterError baseError

func (e MissingParameterError) Error() string {
	return e.Err
}

func MissingParameter(format string, args ...interface{}) error {
	return &MissingParameterError{
		Err: fmt.Sprintf(format, args...),
	}
}

// EmptyExportError is returned when an export is requested with zero
// selected columns and the caller opted into treating that as an error.
type EmptyExportError baseError

func (e EmptyExportError) Error() string {
	return e.Err
}

func EmptyExport(format string, args ...interface{}) error {
	return &EmptyExportError{
		Err: fmt.Sprintf(format, args...),
	}
}

// CatalogUnavailableError means the table listing could not be produced,
// either because the store is unreachable or the listing query failed.
type CatalogUnavailableError struct {
	Cause error
}

func (e CatalogUnavailableError) Error() string {
	if e.Cause == nil {
		return "catalog unavailable"
	}
	return "catalog unavailable: " + e.Cause.Error()
}

func (e CatalogUnavailableError) Unwrap() error {
	return e.Cause
}

func CatalogUnavailable(cause error) error {
	return &CatalogUnavailableError{Cause: cause}
}

// QueryFailedError means the store rejected the row query for Table.
type QueryFailedError struct {
	Table string
	Cause error
}

func (e QueryFailedError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("query failed for table %q", e.Table)
	}
	return fmt.Sprintf("query failed for table %q: %s", e.Table, e.Cause)
}

func (e QueryFailedError) Unwrap() error {
	return e.Cause
}

func QueryFailed(table string, cause error) error {
	return &QueryFailedError{Table: table, Cause: cause}
}

// StatusCode maps an error onto the HTTP status that best describes it.
func StatusCode(err error) int {
	var (
		missing  *MissingParameterError
		bad      *BadRequestError
		empty    *EmptyExportError
		notFound *NotFoundError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &missing), errors.As(err, &bad), errors.As(err, &empty):
		return http.StatusBadRequest
	case errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
