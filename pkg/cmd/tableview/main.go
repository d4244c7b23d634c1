package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/segmentio/conf"
	"github.com/segmentio/errors-go"
	"github.com/segmentio/events/v2"
	_ "github.com/segmentio/events/v2/sigevents"
	"github.com/segmentio/stats/v4"
	"github.com/segmentio/stats/v4/datadog"
	"github.com/segmentio/stats/v4/procstats"
	"github.com/segmentio/stats/v4/prometheus"

	"github.com/segmentio/tableview/pkg/browser"
	"github.com/segmentio/tableview/pkg/client"
	"github.com/segmentio/tableview/pkg/store"
	"github.com/segmentio/tableview/pkg/utils"
	"github.com/segmentio/tableview/pkg/version"
)

type dogstatsdConfig struct {
	Address    string        `conf:"address" help:"Address of the dogstatsd agent that will receive metrics"`
	BufferSize int           `conf:"buffer-size" help:"Size of the statsd metrics buffer" validate:"min=0"`
	FlushEvery time.Duration `conf:"flush-every" help:"Flush AT LEAST this frequently"`
}

type storeConfig struct {
	Driver  string `conf:"driver" help:"Database driver (mysql or sqlite)"`
	DSN     string `conf:"dsn" help:"Database DSN (e.g. path to file if sqlite)"`
	MaxRows int    `conf:"max-rows" help:"Maximum number of rows a single fetch may return, 0 for no limit"`
}

type serveConfig struct {
	BindAddr       string          `conf:"bind-addr" help:"The address and port to bind on"`
	Store          storeConfig     `conf:"store" help:"Database configuration"`
	Application    string          `conf:"application" help:"The name of the application that will be using the server"`
	RequestTimeout time.Duration   `conf:"request-timeout" help:"Timeout on request handling"`
	MetricsBind    string          `conf:"metrics-bind" help:"address to serve Prometheus metrics"`
	HealthInterval time.Duration   `conf:"health-interval" help:"How often the store is pinged for the store-up gauge"`
	Debug          bool            `conf:"debug" help:"Turns on debug logging"`
	Dogstatsd      dogstatsdConfig `conf:"dogstatsd" help:"dogstatsd Configuration"`
}

type tablesConfig struct {
	Store   storeConfig   `conf:"store" help:"Database configuration"`
	Server  string        `conf:"server" help:"URL of a tableview server to read from instead of a database"`
	Timeout time.Duration `conf:"timeout" help:"Timeout of requests to the server"`
	Search  string        `conf:"search" help:"Only list tables whose name contains this, ignoring case"`
	Debug   bool          `conf:"debug" help:"Turns on debug logging"`
}

type exportConfig struct {
	Store          storeConfig   `conf:"store" help:"Database configuration"`
	Server         string        `conf:"server" help:"URL of a tableview server to read from instead of a database"`
	Timeout        time.Duration `conf:"timeout" help:"Timeout of requests to the server"`
	Table          string        `conf:"table" help:"The table to export" validate:"nonzero"`
	Columns        string        `conf:"columns" help:"Comma separated columns to export, all columns if empty"`
	Format         string        `conf:"format" help:"Export format (csv or text)"`
	Quote          bool          `conf:"quote" help:"Quote fields containing delimiters, quotes or newlines"`
	RequireColumns bool          `conf:"require-columns" help:"Fail instead of writing an empty export when no column is selected"`
	Out            string        `conf:"out" help:"Destination: - for stdout, a path, file://path or s3://bucket/key. Defaults to <table>.<ext>"`
	Debug          bool          `conf:"debug" help:"Turns on debug logging"`
}

type browseConfig struct {
	Store       storeConfig   `conf:"store" help:"Database configuration"`
	Server      string        `conf:"server" help:"URL of a tableview server to read from instead of a database"`
	Timeout     time.Duration `conf:"timeout" help:"Timeout of requests to the server"`
	HistoryFile string        `conf:"history-file" help:"Where to keep the shell history"`
	Debug       bool          `conf:"debug" help:"Turns on debug logging"`
}

// source is what the read commands need from a store or a server.
type source interface {
	browser.Source
	Ping(ctx context.Context) error
	io.Closer
}

func loadConfig(config interface{}, name string, args []string, help ...string) {
	var usage string

	if len(help) != 0 {
		usage = strings.Join(help, " ")
	}

	conf.LoadWith(config, conf.Loader{
		Name:  "tableview " + name,
		Args:  args,
		Usage: usage,
		Sources: []conf.Source{
			conf.NewEnvSource("TABLEVIEW", os.Environ()...),
		},
	})
}

func main() {
	ld := conf.Loader{
		Name: "tableview",
		Args: os.Args[1:],
		Commands: []conf.Command{
			{Name: "version", Help: "Get the tableview version"},
			{Name: "serve", Help: "Serve the table API over a database"},
			{Name: "tables", Help: "List the tables of a database or server"},
			{Name: "export", Help: "Export a table as CSV or text"},
			{Name: "browse", Help: "Browse tables interactively"},
		},
	}

	ctx, cancel := events.WithSignals(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	events.DefaultLogger.EnableDebug = false

	var err error
	switch cmd, args := conf.LoadWith(nil, ld); cmd {
	case "version":
		fmt.Println(version.Get())
	case "serve":
		err = serve(ctx, args)
	case "tables":
		err = tables(ctx, args)
	case "export":
		err = exportTable(ctx, args)
	case "browse":
		err = browse(ctx, args)
	default:
		panic("inconceivable")
	}
	if err != nil {
		events.Log("Fatal error: %{error}+v", err)
		os.Exit(1)
	}
}

func enableDebug() {
	events.DefaultLogger.EnableDebug = true
	events.DefaultLogger.EnableSource = true
}

func defaultDogstatsdConfig() dogstatsdConfig {
	return dogstatsdConfig{
		BufferSize: 1024,
		FlushEvery: 5 * time.Second,
	}
}

func defaultStoreConfig() storeConfig {
	return storeConfig{Driver: "mysql"}
}

type dogstatsdOpts struct {
	config            dogstatsdConfig
	statsPrefix       string
	defaultTags       []stats.Tag
	prometheusHandler *prometheus.Handler
}

func configureDogstatsd(ctx context.Context, opts dogstatsdOpts) (dd *datadog.Client, teardown func()) {
	config := opts.config
	if opts.statsPrefix == "" {
		panic("configureDogstatsd: Invalid statsPrefix passed. Stop.")
	}

	if config.Address != "" {
		dd = datadog.NewClientWith(datadog.ClientConfig{
			Address:    config.Address,
			BufferSize: config.BufferSize,
		})
		stats.Register(dd)

		events.Log("Setup dogstatsd with addr:%{addr}s, buffersize:%{buffersize}d, prefix:%{pfx}s, version:%{version}s",
			config.Address, config.BufferSize, opts.statsPrefix, version.Get())
	}

	if opts.prometheusHandler != nil {
		stats.Register(opts.prometheusHandler)
	}

	if stats.DefaultEngine.Handler != stats.Discard {
		stats.DefaultEngine.Prefix = fmt.Sprintf("tableview.%s", opts.statsPrefix)
		stats.DefaultEngine.Tags = append(stats.DefaultEngine.Tags, stats.Tag{Name: "version", Value: version.Get()})
		stats.DefaultEngine.Tags = append(stats.DefaultEngine.Tags, opts.defaultTags...)
		stats.DefaultEngine.Tags = stats.SortTags(stats.DefaultEngine.Tags) // tags must be sorted

		c := procstats.StartCollector(procstats.NewGoMetrics())

		go utils.CtxLoop(ctx, config.FlushEvery, stats.Flush)
		return dd, func() {
			c.Close()
			stats.Flush()
		}
	}
	// nothing to be done for teardown here
	return dd, func() {}
}

// openSource connects to the server when one is given and to the database
// otherwise.
func openSource(sc storeConfig, server string, timeout time.Duration) (source, error) {
	if server != "" {
		c, err := client.New(client.Config{URL: server, Timeout: timeout})
		if err != nil {
			return nil, errors.Wrap(err, "create client")
		}
		return c, nil
	}
	if sc.DSN == "" {
		return nil, errors.New("either -server or -store.dsn is required")
	}
	s, err := store.Open(store.Config{Driver: sc.Driver, DSN: sc.DSN, MaxRows: sc.MaxRows})
	if err != nil {
		return nil, errors.Wrap(err, "open store")
	}
	return s, nil
}
