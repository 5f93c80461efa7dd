package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/youreka-ca/grant-directory/internal/db"
	"github.com/youreka-ca/grant-directory/internal/ingest"
	"github.com/youreka-ca/grant-directory/internal/log"
)

func main() {
	sourceID := flag.String("source", "", "source id to scrape (default: all sources)")
	configPath := flag.String("config", "", "path to a sources.yaml overriding the embedded config")
	flag.Parse()

	logger := log.Default()
	ctx := context.Background()

	pool, err := db.Connect(ctx)
	if err != nil {
		log.Error(logger, "database connection failed", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.ApplyMigrations(ctx, pool); err != nil {
		log.Error(logger, "migration failed", err)
		os.Exit(1)
	}

	reg, err := ingest.LoadRegistry(*configPath)
	if err != nil {
		log.Error(logger, "loading sources config failed", err)
		os.Exit(1)
	}

	store := db.NewStore(pool)
	pipeline := ingest.NewPipeline(store, store, logger)

	results := make(map[string]ingest.RunStats)
	failed := false

	if *sourceID != "" {
		cfg, ok := reg.Source(*sourceID)
		if !ok {
			log.Error(logger, "unknown source", fmt.Errorf("no source %q in config", *sourceID))
			os.Exit(1)
		}
		adapter, fetcher, err := ingest.BuildAdapter(cfg)
		if err != nil {
			log.Error(logger, "building adapter failed", err)
			os.Exit(1)
		}
		stats, err := pipeline.RunSource(ctx, adapter, fetcher)
		results[cfg.ID] = stats
		if err != nil {
			log.Error(logger, "run failed", err, "source", cfg.ID)
			failed = true
		}
	} else {
		results, err = pipeline.RunAll(ctx, reg)
		if err != nil {
			log.Error(logger, "one or more runs failed", err)
			failed = true
		}
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Created", "Duplicates", "Expired", "Errors"})
	for id, stats := range results {
		t.AppendRow(table.Row{id, stats.Created, stats.Duplicates, stats.Expired, stats.Errors})
	}
	t.Render()

	if failed {
		os.Exit(1)
	}
}
