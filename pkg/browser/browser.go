package browser

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	errorsgo "github.com/segmentio/errors-go"
	"github.com/segmentio/events/v2"

	"github.com/segmentio/tableview/pkg/columns"
	"github.com/segmentio/tableview/pkg/errs"
	"github.com/segmentio/tableview/pkg/export"
	"github.com/segmentio/tableview/pkg/schema"
	"github.com/segmentio/tableview/pkg/search"
)

var (
	// ErrNoTableLoaded is returned by operations that need a loaded table.
	ErrNoTableLoaded = errors.New("no table loaded")
	// ErrSuperseded is returned by a SelectTable whose response arrived
	// after a newer selection was made. The response was discarded.
	ErrSuperseded = errors.New("selection superseded")
)

// Source provides the catalog and table rows. Both the store and the HTTP
// client implement it.
type Source interface {
	ListTables(ctx context.Context) ([]schema.TableName, error)
	FetchRows(ctx context.Context, table schema.TableName) (schema.RowSet, error)
}

// Browser is the interaction state machine behind the browse shell:
//
//	NoTableSelected -> TableLoading -> TableLoaded
//
// Every selection bumps a generation counter. A fetch only applies its
// result if the counter still matches when it returns, so the last
// selection always wins regardless of response order. mu is never held
// across a call to the Source.
type Browser struct {
	src Source

	mu            sync.Mutex
	catalog       []schema.TableName
	catalogLoaded bool
	search        string
	state         State
	table         schema.TableName
	rows          schema.RowSet
	columns       *columns.Model
	notice        error
	generation    uint64
	cancel        context.CancelFunc
}

func New(src Source) *Browser {
	return &Browser{
		src:     src,
		catalog: []schema.TableName{},
		state:   NoTableSelected,
	}
}

// LoadCatalog fetches the table list. On failure the catalog is left empty
// and the error is kept as the notice.
func (b *Browser) LoadCatalog(ctx context.Context) error {
	tables, err := b.src.ListTables(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		var cu *errs.CatalogUnavailableError
		if !errors.As(err, &cu) {
			err = errs.CatalogUnavailable(err)
		}
		errs.Incr("browser-catalog-errors")
		events.Log("Failed to load table catalog: %{error}v", err)
		b.catalog = []schema.TableName{}
		b.catalogLoaded = false
		b.notice = err
		return err
	}
	b.catalog = tables
	b.catalogLoaded = true
	b.notice = nil
	events.Debug("Loaded %d tables", len(tables))
	return nil
}

func (b *Browser) SetSearch(query string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.search = query
}

// Tables returns the catalog narrowed by the current search.
func (b *Browser) Tables() []schema.TableName {
	b.mu.Lock()
	defer b.mu.Unlock()
	return search.Filter(b.catalog, b.search)
}

// SelectTable makes name the selected table and loads its rows. An empty
// name deselects. Any fetch still in flight is canceled and its result
// will be discarded.
func (b *Browser) SelectTable(ctx context.Context, name string) error {
	b.mu.Lock()
	b.generation++
	gen := b.generation
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	if name == "" {
		b.clear()
		b.notice = nil
		b.mu.Unlock()
		return nil
	}
	table := schema.TableName{Name: name}
	if b.catalogLoaded && !containsTable(b.catalog, table) {
		err := errs.QueryFailed(name, errs.NotFound("table %q is not in the catalog", name))
		b.clear()
		b.notice = err
		b.mu.Unlock()
		return err
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.clear()
	b.state = TableLoading
	b.table = table
	b.notice = nil
	b.mu.Unlock()

	rows, err := b.src.FetchRows(fetchCtx, table)
	cancel()

	b.mu.Lock()
	defer b.mu.Unlock()
	if gen != b.generation {
		events.Debug("Discarding stale response for %{table}s", name)
		return ErrSuperseded
	}
	b.cancel = nil
	if err != nil {
		err = asQueryFailed(name, err)
		errs.Incr("browser-select-errors")
		events.Log("Failed to load %{table}s: %{error}v", name, err)
		b.clear()
		b.notice = err
		return err
	}
	b.rows = rows
	b.columns = columns.New(rows)
	b.state = TableLoaded
	return nil
}

// Toggle flips the inclusion of column in the export. It reports whether
// the column exists.
func (b *Browser) Toggle(column string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != TableLoaded {
		return false, ErrNoTableLoaded
	}
	return b.columns.Toggle(column), nil
}

// IncludeAll and Only reshape the inclusion set of the loaded table.
func (b *Browser) IncludeAll() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != TableLoaded {
		return ErrNoTableLoaded
	}
	b.columns.IncludeAll()
	return nil
}

func (b *Browser) Only(names ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != TableLoaded {
		return ErrNoTableLoaded
	}
	b.columns.Only(names...)
	return nil
}

// Export renders the loaded table using the effective columns.
func (b *Browser) Export(format export.Format, opts export.Options) (export.Payload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != TableLoaded {
		return export.Payload{}, ErrNoTableLoaded
	}
	return export.Export(b.table.Name, b.rows, b.columns.Effective(), format, opts)
}

// Snapshot returns a copy of the state for display.
func (b *Browser) Snapshot() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := View{
		State:     b.state,
		Table:     b.table.Name,
		Search:    b.search,
		Tables:    search.Filter(b.catalog, b.search),
		Columns:   []Column{},
		Effective: []string{},
		Rows:      b.rows,
		Notice:    b.notice,
	}
	if b.columns != nil {
		for _, name := range b.columns.Columns() {
			v.Columns = append(v.Columns, Column{Name: name, Included: b.columns.Included(name)})
		}
		v.Effective = b.columns.Effective()
	}
	return v
}

// clear drops the selection. Callers hold mu.
func (b *Browser) clear() {
	b.state = NoTableSelected
	b.table = schema.TableName{}
	b.rows = nil
	b.columns = nil
}

func containsTable(tables []schema.TableName, table schema.TableName) bool {
	for _, t := range tables {
		if t == table {
			return true
		}
	}
	return false
}

// asQueryFailed keeps typed fetch errors and wraps everything else.
func asQueryFailed(table string, err error) error {
	var qf *errs.QueryFailedError
	if errors.As(err, &qf) || errorsgo.Is(errs.ErrTypeLimitExceeded, err) {
		return err
	}
	return errs.QueryFailed(table, err)
}
