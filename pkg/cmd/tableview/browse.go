package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/segmentio/errors-go"

	"github.com/segmentio/tableview/pkg/browser"
	"github.com/segmentio/tableview/pkg/destination"
	"github.com/segmentio/tableview/pkg/export"
	"github.com/segmentio/tableview/pkg/schema"
)

const defaultShowLimit = 20

const browseHelp = `commands:
  tables                 list tables matching the search
  search [text]          filter tables by name, no text clears the filter
  select [table]         load a table, no table clears the selection
  columns                list columns of the loaded table
  toggle <column>...     include or exclude columns from the export
  show [n]               print the first n rows (default 20, 0 prints all)
  export [-format csv|text] [-quote] [dest]
                         export the included columns, dest as for the export command
  help                   print this help
  exit                   leave the shell`

func browse(ctx context.Context, args []string) error {
	config := browseConfig{Store: defaultStoreConfig()}
	if home, err := os.UserHomeDir(); err == nil {
		config.HistoryFile = filepath.Join(home, ".tableview_history")
	}
	loadConfig(&config, "browse", args)
	if config.Debug {
		enableDebug()
	}
	src, err := openSource(config.Store, config.Server, config.Timeout)
	if err != nil {
		return err
	}
	defer src.Close()

	sh := newShell(browser.New(src), os.Stdout)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          sh.prompt(),
		HistoryFile:     config.HistoryFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    sh.completer(),
	})
	if err != nil {
		return errors.Wrap(err, "start shell")
	}
	defer rl.Close()
	sh.out = rl.Stdout()

	if err := sh.b.LoadCatalog(ctx); err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
	} else {
		fmt.Fprintf(sh.out, "%d tables, type help for commands\n", len(sh.b.Tables()))
	}
	for {
		line, err := rl.Readline()
		if err != nil { // Ctrl+C or Ctrl+D
			break
		}
		if sh.exec(ctx, line) {
			break
		}
		rl.SetPrompt(sh.prompt())
	}
	sh.wait()
	return nil
}

// shell runs browse commands against a Browser. Selections load in the
// background so a slow table never blocks the prompt.
type shell struct {
	b        *browser.Browser
	out      io.Writer
	mu       sync.Mutex // serializes writes to out
	inflight sync.WaitGroup
}

func newShell(b *browser.Browser, out io.Writer) *shell {
	return &shell{b: b, out: out}
}

func (sh *shell) printf(format string, args ...interface{}) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	fmt.Fprintf(sh.out, format, args...)
}

func (sh *shell) prompt() string {
	v := sh.b.Snapshot()
	switch v.State {
	case browser.TableLoaded:
		return "tableview:" + v.Table + "> "
	case browser.TableLoading:
		return "tableview:" + v.Table + "...> "
	default:
		return "tableview> "
	}
}

// exec runs one command line and reports whether the shell should exit.
func (sh *shell) exec(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	cmd, args := fields[0], fields[1:]
	// search and select take the rest of the line, inner spacing included
	rest := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), cmd))
	var err error
	switch cmd {
	case "exit", "quit":
		return true
	case "help":
		sh.printf("%s\n", browseHelp)
	case "tables":
		sh.listTables()
	case "search":
		sh.b.SetSearch(rest)
		sh.listTables()
	case "select":
		sh.selectTable(ctx, rest)
	case "columns":
		err = sh.listColumns()
	case "toggle":
		err = sh.toggle(args)
	case "show":
		err = sh.show(args)
	case "export":
		err = sh.export(ctx, args)
	default:
		err = errors.Errorf("unknown command %q, type help for commands", cmd)
	}
	if err != nil {
		sh.printf("error: %v\n", err)
	}
	return false
}

func (sh *shell) wait() {
	sh.inflight.Wait()
}

func (sh *shell) listTables() {
	v := sh.b.Snapshot()
	for _, t := range v.Tables {
		marker := "  "
		if t.Name == v.Table {
			marker = "* "
		}
		sh.printf("%s%s\n", marker, t.Name)
	}
	if len(v.Tables) == 0 {
		sh.printf("no tables\n")
	}
}

func (sh *shell) selectTable(ctx context.Context, name string) {
	sh.inflight.Add(1)
	go func() {
		defer sh.inflight.Done()
		err := sh.b.SelectTable(ctx, name)
		switch {
		case err == browser.ErrSuperseded:
		case err != nil:
			sh.printf("error: %v\n", err)
		case name == "":
			sh.printf("selection cleared\n")
		default:
			v := sh.b.Snapshot()
			if v.Table == name {
				sh.printf("loaded %s: %d rows, %d columns\n", name, len(v.Rows), len(v.Columns))
			}
		}
	}()
}

func (sh *shell) listColumns() error {
	v := sh.b.Snapshot()
	if v.State != browser.TableLoaded {
		return browser.ErrNoTableLoaded
	}
	for _, c := range v.Columns {
		mark := " "
		if c.Included {
			mark = "x"
		}
		sh.printf("[%s] %s\n", mark, c.Name)
	}
	return nil
}

func (sh *shell) toggle(names []string) error {
	if len(names) == 0 {
		return errors.New("usage: toggle <column>...")
	}
	for _, name := range names {
		ok, err := sh.b.Toggle(name)
		if err != nil {
			return err
		}
		if !ok {
			sh.printf("no column %q\n", name)
		}
	}
	return sh.listColumns()
}

func (sh *shell) show(args []string) error {
	limit := defaultShowLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return errors.Errorf("invalid row count %q", args[0])
		}
		limit = n
	}
	v := sh.b.Snapshot()
	if v.State != browser.TableLoaded {
		return browser.ErrNoTableLoaded
	}
	sh.mu.Lock()
	n := renderRows(sh.out, v.Rows, v.Effective, limit)
	sh.mu.Unlock()
	if n < len(v.Rows) {
		sh.printf("%d of %d rows\n", n, len(v.Rows))
	}
	return nil
}

func (sh *shell) export(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	format := fs.String("format", "csv", "")
	quote := fs.Bool("quote", false, "")
	if err := fs.Parse(args); err != nil {
		return errors.Wrap(err, "usage: export [-format csv|text] [-quote] [dest]")
	}
	f, err := export.ParseFormat(*format)
	if err != nil {
		return err
	}
	dest, err := destination.FromURL(fs.Arg(0))
	if err != nil {
		return err
	}
	payload, err := sh.b.Export(f, export.Options{Quote: *quote})
	if err != nil {
		return err
	}
	if w, ok := dest.(*destination.Writer); ok {
		// stdout shares the terminal with the prompt
		w.W = sh.out
		sh.mu.Lock()
		defer sh.mu.Unlock()
		if err := w.Deliver(ctx, payload); err != nil {
			return err
		}
		fmt.Fprintln(sh.out)
		return nil
	}
	if err := dest.Deliver(ctx, payload); err != nil {
		return err
	}
	sh.printf("exported %s (%d bytes)\n", payload.Filename, len(payload.Data))
	return nil
}

func (sh *shell) completer() *readline.PrefixCompleter {
	tableNames := func(string) []string {
		return schema.StringifyTableNames(sh.b.Tables())
	}
	columnNames := func(string) []string {
		var names []string
		for _, c := range sh.b.Snapshot().Columns {
			names = append(names, c.Name)
		}
		return names
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("tables"),
		readline.PcItem("search"),
		readline.PcItem("select", readline.PcItemDynamic(tableNames)),
		readline.PcItem("columns"),
		readline.PcItem("toggle", readline.PcItemDynamic(columnNames)),
		readline.PcItem("show"),
		readline.PcItem("export", readline.PcItem("-format"), readline.PcItem("-quote")),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}
