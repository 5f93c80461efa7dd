package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/youreka-ca/grant-directory/internal/csvio"
	"github.com/youreka-ca/grant-directory/internal/db"
)

func main() {
	out := flag.String("out", "data/grants.csv", "output CSV path")
	flag.Parse()

	ctx := context.Background()
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	grants, err := db.NewStore(pool).ListGrants(ctx, db.GrantFilters{})
	if err != nil {
		log.Fatal(err)
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		log.Fatal(err)
	}
	f, err := os.Create(*out)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	if err := csvio.Export(f, grants); err != nil {
		log.Fatal(err)
	}
	log.Printf("Exported %d grants to %s", len(grants), *out)
}
