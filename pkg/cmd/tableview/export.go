package main

import (
	"context"

	"github.com/segmentio/errors-go"
	"github.com/segmentio/events/v2"

	"github.com/segmentio/tableview/pkg/browser"
	"github.com/segmentio/tableview/pkg/columns"
	"github.com/segmentio/tableview/pkg/destination"
	"github.com/segmentio/tableview/pkg/export"
)

func exportTable(ctx context.Context, args []string) error {
	config := exportConfig{Store: defaultStoreConfig(), Format: "csv"}
	loadConfig(&config, "export", args)
	if config.Debug {
		enableDebug()
	}
	format, err := export.ParseFormat(config.Format)
	if err != nil {
		return err
	}
	dest, err := destination.FromURL(config.Out)
	if err != nil {
		return errors.Wrap(err, "destination")
	}
	src, err := openSource(config.Store, config.Server, config.Timeout)
	if err != nil {
		return err
	}
	defer src.Close()

	b := browser.New(src)
	if err := b.LoadCatalog(ctx); err != nil {
		// the fetch below reports a missing table just as well
		events.Debug("Exporting without a catalog: %{error}v", err)
	}
	if err := b.SelectTable(ctx, config.Table); err != nil {
		return err
	}
	if config.Columns != "" {
		if err := b.Only(columns.ParseList(config.Columns)...); err != nil {
			return err
		}
	}
	payload, err := b.Export(format, export.Options{
		Quote:          config.Quote,
		RequireColumns: config.RequireColumns,
	})
	if err != nil {
		return err
	}
	return dest.Deliver(ctx, payload)
}
