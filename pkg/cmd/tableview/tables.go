package main

import (
	"context"
	"fmt"

	"github.com/segmentio/tableview/pkg/search"
)

func tables(ctx context.Context, args []string) error {
	config := tablesConfig{Store: defaultStoreConfig()}
	loadConfig(&config, "tables", args)
	if config.Debug {
		enableDebug()
	}
	src, err := openSource(config.Store, config.Server, config.Timeout)
	if err != nil {
		return err
	}
	defer src.Close()

	names, err := src.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, t := range search.Filter(names, config.Search) {
		fmt.Println(t.Name)
	}
	return nil
}
