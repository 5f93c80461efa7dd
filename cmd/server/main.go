package main

import (
	"context"
	"os"

	"github.com/youreka-ca/grant-directory/internal/api"
	"github.com/youreka-ca/grant-directory/internal/csvio"
	"github.com/youreka-ca/grant-directory/internal/db"
	"github.com/youreka-ca/grant-directory/internal/ingest"
	"github.com/youreka-ca/grant-directory/internal/log"
)

func main() {
	logger := log.Default()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

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

	store := db.NewStore(pool)
	seedPath := os.Getenv("SEED_CSV")
	if seedPath == "" {
		seedPath = "data/grants.csv"
	}
	if err := csvio.SeedIfEmpty(ctx, store, seedPath, logger); err != nil {
		log.Error(logger, "seeding failed", err)
		os.Exit(1)
	}

	reg, err := ingest.LoadRegistry(os.Getenv("SOURCES_CONFIG"))
	if err != nil {
		log.Error(logger, "loading sources config failed", err)
		os.Exit(1)
	}

	srv := api.NewServer(pool, reg, logger)
	log.Info(logger, "server starting", "port", port)
	if err := srv.Start(port); err != nil {
		log.Error(logger, "server stopped", err)
		os.Exit(1)
	}
}
