package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/segmentio/tableview/pkg/schema"
	"github.com/segmentio/tableview/pkg/store"
	"github.com/segmentio/tableview/pkg/tests"
)

func newTestServer(t *testing.T, maxRows int) (*Server, func()) {
	_, dsn, teardown := tests.WithSqliteDB(t,
		"CREATE TABLE users (zid INTEGER, name TEXT, email TEXT)",
		"INSERT INTO users VALUES (1, 'a', 'a@example.com'), (2, 'b, jr', NULL)",
		"CREATE TABLE orders (id INTEGER)",
	)
	st, err := store.Open(store.Config{Driver: "sqlite", DSN: dsn, MaxRows: maxRows})
	require.NoError(t, err)
	srv, err := New(Config{Store: st})
	require.NoError(t, err)
	return srv, func() {
		st.Close()
		teardown()
	}
}

func get(srv http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func requireErrorBody(t *testing.T, w *httptest.ResponseRecorder, status int, msg string) {
	require.Equal(t, status, w.Code, w.Body.String())
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, map[string]string{"error": msg}, body)
}

func TestListTables(t *testing.T) {
	srv, teardown := newTestServer(t, 0)
	defer teardown()

	w := get(srv, "/tables")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "application/json", w.Header().Get("Content-Type"))
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))
	require.JSONEq(t, `["users", "orders"]`, w.Body.String())
}

func TestListTablesFailure(t *testing.T) {
	srv, teardown := newTestServer(t, 0)
	teardown()

	requireErrorBody(t, get(srv, "/tables"), http.StatusInternalServerError, "Failed to fetch tables")
}

func TestFetchData(t *testing.T) {
	srv, teardown := newTestServer(t, 0)
	defer teardown()

	w := get(srv, "/data?table=users")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	// key order is the column order, not alphabetical
	require.Equal(t,
		`[{"zid":1,"name":"a","email":"a@example.com"},{"zid":2,"name":"b, jr","email":null}]`+"\n",
		w.Body.String())

	var rs schema.RowSet
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rs))
	require.Equal(t, []string{"zid", "name", "email"}, rs.Columns())

	w = get(srv, "/data?table=orders")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "[]\n", w.Body.String())
}

func TestFetchDataErrors(t *testing.T) {
	srv, teardown := newTestServer(t, 1)
	defer teardown()

	requireErrorBody(t, get(srv, "/data"), http.StatusBadRequest, "Table name is required")
	requireErrorBody(t, get(srv, "/data?table="), http.StatusBadRequest, "Table name is required")
	requireErrorBody(t, get(srv, "/data?table=missing"), http.StatusInternalServerError, "Error fetching data")

	w := get(srv, "/data?table=users")
	require.Equal(t, http.StatusRequestedRangeNotSatisfiable, w.Code, w.Body.String())
}

func TestExport(t *testing.T) {
	srv, teardown := newTestServer(t, 0)
	defer teardown()

	w := get(srv, "/export?table=users&columns=name,zid")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Equal(t, `attachment; filename="users.csv"`, w.Header().Get("Content-Disposition"))
	// column set order wins over parameter order
	require.Equal(t, "zid,name\n1,a\n2,b, jr", w.Body.String())

	w = get(srv, "/export?table=users&format=text&columns=name,bogus")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "text/plain", w.Header().Get("Content-Type"))
	require.Equal(t, "name\na\nb, jr", w.Body.String())

	w = get(srv, "/export?table=users&columns=name&quote=true")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "name\na\n\"b, jr\"", w.Body.String())

	w = get(srv, "/export?table=users&columns=zid,%20name,%20")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, "zid,name\n1,a\n2,b, jr", w.Body.String())
}

func TestExportErrors(t *testing.T) {
	srv, teardown := newTestServer(t, 0)
	defer teardown()

	require.Equal(t, http.StatusBadRequest, get(srv, "/export?table=users&format=xlsx").Code)
	require.Equal(t, http.StatusBadRequest, get(srv, "/export?table=users&quote=maybe").Code)
	requireErrorBody(t, get(srv, "/export"), http.StatusBadRequest, "Table name is required")
}

func TestHealthcheck(t *testing.T) {
	srv, teardown := newTestServer(t, 0)
	defer teardown()

	require.Equal(t, http.StatusOK, get(srv, "/healthcheck").Code)
	require.Equal(t, http.StatusOK, get(srv, "/ping").Code)
}

func TestRequestID(t *testing.T) {
	srv, teardown := newTestServer(t, 0)
	defer teardown()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/tables", nil)
	r.Header.Set(RequestIDHeader, "abc-123")
	srv.ServeHTTP(w, r)
	require.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))

	first := get(srv, "/tables").Header().Get(RequestIDHeader)
	second := get(srv, "/tables").Header().Get(RequestIDHeader)
	require.NotEqual(t, first, second)
}

func TestNotFoundRoute(t *testing.T) {
	srv, teardown := newTestServer(t, 0)
	defer teardown()

	w := get(srv, "/nope")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.NotEmpty(t, w.Header().Get(RequestIDHeader))
}

func TestRequestTimeout(t *testing.T) {
	srv, err := New(Config{Store: blockingStore{}, RequestTimeout: 1})
	require.NoError(t, err)
	requireErrorBody(t, get(srv, "/tables"), http.StatusInternalServerError, "Failed to fetch tables")
}

type blockingStore struct{}

func (blockingStore) ListTables(ctx context.Context) ([]schema.TableName, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStore) FetchRows(ctx context.Context, table schema.TableName) (schema.RowSet, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (blockingStore) Ping(ctx context.Context) error { return nil }
