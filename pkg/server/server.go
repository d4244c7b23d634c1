package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	pkgerrors "github.com/pkg/errors"
	"github.com/segmentio/errors-go"
	"github.com/segmentio/events/v2"
	"github.com/segmentio/stats/v4"
	"github.com/segmentio/stats/v4/httpstats"

	"github.com/segmentio/tableview/pkg/columns"
	"github.com/segmentio/tableview/pkg/errs"
	"github.com/segmentio/tableview/pkg/export"
	"github.com/segmentio/tableview/pkg/schema"
	"github.com/segmentio/tableview/pkg/utils"
)

const RequestIDHeader = "X-Request-Id"

// client facing messages, the cause is only logged
const (
	msgFetchTables   = "Failed to fetch tables"
	msgTableRequired = "Table name is required"
	msgFetchData     = "Error fetching data"
)

type (
	Server struct {
		bindAddr       string
		store          Store
		handler        http.Handler
		requestTimeout time.Duration
	}
	Config struct {
		BindAddr    string
		Store       Store
		Application string
		// RequestTimeout bounds each request. Zero means no limit.
		RequestTimeout time.Duration
	}
	Store interface {
		ListTables(ctx context.Context) ([]schema.TableName, error)
		FetchRows(ctx context.Context, table schema.TableName) (schema.RowSet, error)
		Ping(ctx context.Context) error
	}
	errorBody struct {
		Error string `json:"error"`
	}
)

// apiError is returned by handlers to control the JSON error body.
type apiError struct {
	status  int
	message string
	cause   error
}

func (e *apiError) Error() string {
	if e.cause == nil {
		return e.message
	}
	return e.message + ": " + e.cause.Error()
}

func (e *apiError) Unwrap() error { return e.cause }

func New(config Config) (*Server, error) {
	if config.Store == nil {
		return nil, errors.New("a store is required")
	}
	server := &Server{
		bindAddr:       config.BindAddr,
		store:          config.Store,
		requestTimeout: config.RequestTimeout,
	}
	router := mux.NewRouter()
	router.Use(requestID, apiLatency)
	if server.requestTimeout > 0 {
		router.Use(server.timeout)
	}
	router.HandleFunc("/tables", handleErr(server.listTables)).Methods("GET")
	router.HandleFunc("/data", handleErr(server.fetchData)).Methods("GET")
	router.HandleFunc("/export", handleErr(server.export)).Methods("GET")
	router.HandleFunc("/healthcheck", handleErr(server.healthcheck)).Methods("GET")
	router.HandleFunc("/ping", handleErr(server.ping)).Methods("GET")
	// middleware only runs for matched routes
	router.NotFoundHandler = requestID(http.NotFoundHandler())

	application := orUnknown(config.Application)
	stats.DefaultEngine.Tags = append(stats.DefaultEngine.Tags, stats.T("application", application))
	stats.DefaultEngine.Tags = stats.SortTags(stats.DefaultEngine.Tags) // tags must be sorted

	server.handler = server.statsHandler(router)
	return server, nil
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:        s.bindAddr,
		Handler:     s,
		ReadTimeout: 5 * time.Second,
		ErrorLog:    log.New(os.Stderr, "SRV ERR:", log.LstdFlags),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
	events.Log("Serving table API on %{addr}s", s.bindAddr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Wrap(err, "listen and serve")
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func handleErr(fn func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		var (
			status  int
			message string
			ae      *apiError
		)
		switch {
		case errors.Is(errs.ErrTypeLimitExceeded, err):
			status, message = http.StatusRequestedRangeNotSatisfiable, err.Error()
		case pkgerrors.As(err, &ae):
			status, message = ae.status, ae.message
		default:
			status, message = errs.StatusCode(err), err.Error()
		}
		if status >= 500 {
			errs.Incr("api-errors", stats.T("path", r.URL.Path))
		}
		events.Log("%{method}s %{path}s failed (%{status}d): %{error}v", r.Method, r.URL.Path, status, err)
		writeJSON(w, status, errorBody{Error: message})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func (s *Server) statsHandler(delegate http.Handler) http.Handler {
	return httpstats.NewHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := orUnknown(r.UserAgent())
		stats.Incr("requests-by-user-agent", stats.T("user-agent", ua))
		delegate.ServeHTTP(w, r)
	}))
}

// requestID tags every response with an id, reusing the caller's if set.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func apiLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()
		sw := &utils.StatusWriter{ResponseWriter: w}
		defer func() {
			status := sw.Status
			if status == 0 {
				status = http.StatusOK
			}
			stats.Observe("api-latency", time.Since(now),
				stats.T("path", r.URL.Path),
				stats.T("method", r.Method),
				stats.T("code", strconv.Itoa(status)))
		}()
		next.ServeHTTP(sw, r)
	})
}

func (s *Server) timeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) listTables(w http.ResponseWriter, r *http.Request) error {
	tables, err := s.store.ListTables(r.Context())
	if err != nil {
		return &apiError{status: http.StatusInternalServerError, message: msgFetchTables, cause: err}
	}
	return writeJSON(w, http.StatusOK, schema.StringifyTableNames(tables))
}

func (s *Server) fetchData(w http.ResponseWriter, r *http.Request) error {
	rows, _, err := s.fetch(r)
	if err != nil {
		return err
	}
	stats.Observe("data-num-rows", len(rows))
	return writeJSON(w, http.StatusOK, rows)
}

// export renders a table. The optional columns parameter is a comma
// separated list applied to the derived column set; unknown names are
// ignored and the column set's order is kept.
func (s *Server) export(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		return err
	}
	quote, err := parseBool(q.Get("quote"))
	if err != nil {
		return err
	}
	rows, table, err := s.fetch(r)
	if err != nil {
		return err
	}
	model := columns.New(rows)
	if cols := q.Get("columns"); cols != "" {
		model.Only(columns.ParseList(cols)...)
	}
	payload, err := export.Export(table.Name, rows, model.Effective(), format, export.Options{Quote: quote})
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", payload.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", payload.Filename))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(payload.Data)
	return err
}

func (s *Server) fetch(r *http.Request) (schema.RowSet, schema.TableName, error) {
	table, err := schema.NewTableName(r.URL.Query().Get("table"))
	if err != nil {
		return nil, table, &apiError{status: http.StatusBadRequest, message: msgTableRequired, cause: err}
	}
	rows, err := s.store.FetchRows(r.Context(), table)
	switch {
	case err == nil:
		return rows, table, nil
	case errors.Is(errs.ErrTypeLimitExceeded, err):
		return nil, table, err
	default:
		return nil, table, &apiError{status: http.StatusInternalServerError, message: msgFetchData, cause: err}
	}
}

func (s *Server) healthcheck(w http.ResponseWriter, r *http.Request) error {
	if err := s.store.Ping(r.Context()); err != nil {
		return &apiError{status: http.StatusServiceUnavailable, message: "store unavailable", cause: err}
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) error {
	// for now, just hit the healthcheck. we can change this later.
	return s.healthcheck(w, r)
}

func parseBool(v string) (bool, error) {
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, errs.BadRequest("invalid boolean %q", v)
	}
	return b, nil
}

func orUnknown(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
