package main

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/segmentio/errors-go"
	"github.com/segmentio/events/v2"
	"github.com/segmentio/stats/v4"
	"github.com/segmentio/stats/v4/prometheus"

	"github.com/segmentio/tableview/pkg/errs"
	"github.com/segmentio/tableview/pkg/server"
	"github.com/segmentio/tableview/pkg/store"
	"github.com/segmentio/tableview/pkg/utils"
)

func serve(ctx context.Context, args []string) error {
	config := serveConfig{
		BindAddr:       "0.0.0.0:1331",
		Store:          defaultStoreConfig(),
		RequestTimeout: 30 * time.Second,
		HealthInterval: 10 * time.Second,
		Dogstatsd:      defaultDogstatsdConfig(),
	}
	loadConfig(&config, "serve", args)
	if config.Debug {
		enableDebug()
	}
	if config.Store.DSN == "" {
		return errors.New("-store.dsn is required")
	}

	var promHandler *prometheus.Handler
	if config.MetricsBind != "" {
		promHandler = &prometheus.Handler{}
	}
	_, teardown := configureDogstatsd(ctx, dogstatsdOpts{
		config:            config.Dogstatsd,
		statsPrefix:       "server",
		prometheusHandler: promHandler,
	})
	defer teardown()

	st, err := store.Open(store.Config{
		Driver:  config.Store.Driver,
		DSN:     config.Store.DSN,
		MaxRows: config.Store.MaxRows,
	})
	if err != nil {
		errs.IncrDefault(stats.T("op", "startup"))
		return errors.Wrap(err, "open store")
	}
	defer st.Close()

	srv, err := server.New(server.Config{
		BindAddr:       config.BindAddr,
		Store:          st,
		Application:    config.Application,
		RequestTimeout: config.RequestTimeout,
	})
	if err != nil {
		errs.IncrDefault(stats.T("op", "startup"))
		return errors.Wrap(err, "create server")
	}

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return srv.Start(grpCtx)
	})
	if promHandler != nil {
		grp.Go(func() error {
			return serveMetrics(grpCtx, config.MetricsBind, promHandler)
		})
	}
	if config.HealthInterval > 0 {
		grp.Go(func() error {
			utils.CtxFireLoop(grpCtx, config.HealthInterval, func() {
				pingStore(grpCtx, st)
			})
			return nil
		})
	}
	err = grp.Wait()
	if err != nil {
		errs.Incr("server.shutdown")
		return err
	}
	events.Log("Server stopped")
	return nil
}

func serveMetrics(ctx context.Context, bind string, handler http.Handler) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: bind, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()
	events.Log("Serving Prometheus metrics on %s", bind)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return errors.Wrap(err, "serve metrics")
}

// pingStore reports store reachability as a gauge.
func pingStore(ctx context.Context, st store.Store) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	up := 1
	if err := st.Ping(ctx); err != nil {
		if !errs.IsCanceled(err) {
			events.Log("Store ping failed: %{error}v", err)
		}
		up = 0
	}
	stats.Set("store-up", up)
}
