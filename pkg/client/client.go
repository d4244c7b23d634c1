package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	errorsgo "github.com/segmentio/errors-go"
	"github.com/segmentio/stats/v4/httpstats"

	"github.com/segmentio/tableview/pkg/errs"
	"github.com/segmentio/tableview/pkg/schema"
)

const DefaultTimeout = 30 * time.Second

// Client talks to a tableview server. It satisfies the same ListTables and
// FetchRows contract as a store.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

type Config struct {
	URL     string
	Timeout time.Duration
}

func New(config Config) (*Client, error) {
	u, err := url.Parse(strings.TrimSuffix(config.URL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse server url")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.Errorf("unsupported server url %q", config.URL)
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: u,
		http: &http.Client{
			Timeout:   timeout,
			Transport: httpstats.NewTransport(http.DefaultTransport),
		},
	}, nil
}

func (c *Client) ListTables(ctx context.Context) ([]schema.TableName, error) {
	var names []string
	if err := c.getJSON(ctx, "/tables", nil, &names); err != nil {
		var cu *errs.CatalogUnavailableError
		if errors.As(err, &cu) {
			return nil, err
		}
		return nil, errs.CatalogUnavailable(err)
	}
	return schema.TableNames(names...), nil
}

func (c *Client) FetchRows(ctx context.Context, table schema.TableName) (schema.RowSet, error) {
	if table.IsZero() {
		return nil, errs.MissingParameter("Table name is required")
	}
	rs := schema.RowSet{}
	err := c.getJSON(ctx, "/data", url.Values{"table": {table.Name}}, &rs)
	switch {
	case err == nil:
		return rs, nil
	case errorsgo.Is(errs.ErrTypeLimitExceeded, err):
		return nil, err
	default:
		var mp *errs.MissingParameterError
		if errors.As(err, &mp) {
			return nil, err
		}
		return nil, errs.QueryFailed(table.Name, err)
	}
}

// Ping checks that the server and its store are up.
func (c *Client) Ping(ctx context.Context) error {
	res, err := c.get(ctx, "/ping", nil)
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out interface{}) error {
	res, err := c.get(ctx, path, query)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s response", path)
	}
	return nil
}

// get returns the response if the status is 200, otherwise an error built
// from the status and the server's JSON error body.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	u := *c.baseURL
	u.Path += path
	u.RawQuery = query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, errors.Wrap(err, "build request")
	}
	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "GET %s", path)
	}
	if res.StatusCode == http.StatusOK {
		return res, nil
	}
	defer res.Body.Close()
	return nil, statusError(res)
}

func statusError(res *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(res.Body, 64*1024))
	var body struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(b))
	if json.Unmarshal(b, &body) == nil && body.Error != "" {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	switch res.StatusCode {
	case http.StatusBadRequest:
		if strings.Contains(msg, "required") {
			return errs.MissingParameter("%s", msg)
		}
		return errs.BadRequest("%s", msg)
	case http.StatusNotFound:
		return errs.NotFound("%s", msg)
	case http.StatusRequestedRangeNotSatisfiable:
		return errorsgo.WithTypes(errorsgo.New(msg), errs.ErrTypeLimitExceeded)
	default:
		return errors.Errorf("server responded %d: %s", res.StatusCode, msg)
	}
}
