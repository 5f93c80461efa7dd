package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/youreka-ca/grant-directory/internal/log"
)

// RunRecorder persists run summaries for the operator tooling. Optional; a
// nil recorder disables run bookkeeping.
type RunRecorder interface {
	StartRun(ctx context.Context, sourceID string) (uuid.UUID, error)
	FinishRun(ctx context.Context, id uuid.UUID, stats RunStats, failed bool) error
}

// BuildAdapter constructs the adapter a source config names, along with the
// fetcher it is configured to use.
func BuildAdapter(cfg SourceConfig) (Adapter, Fetcher, error) {
	fetcher := cfg.NewFetcher()
	switch cfg.Adapter {
	case "canada_esdc":
		return NewCanadaESDCAdapter(cfg, fetcher), fetcher, nil
	case "ontario":
		return NewOntarioAdapter(cfg, fetcher), fetcher, nil
	case "otf":
		return NewOTFAdapter(cfg, fetcher), fetcher, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q for source %s", cfg.Adapter, cfg.ID)
	}
}

// Pipeline runs adapters end to end: enumerate candidate pages, fetch and
// extract each one, normalize, deduplicate, persist. Runs are sequential; the
// pipeline is not safe for concurrent use against the same storage.
type Pipeline struct {
	Store  Storage
	Runs   RunRecorder
	Logger log.Logger
	Now    func() time.Time
}

func NewPipeline(store Storage, runs RunRecorder, logger log.Logger) *Pipeline {
	return &Pipeline{Store: store, Runs: runs, Logger: logger, Now: time.Now}
}

type pageOutcome int

const (
	outcomeCreated pageOutcome = iota
	outcomeDuplicate
	outcomeExpired
)

// RunSource runs one adapter to completion. A listing fetch failure aborts
// the run; a single page's failure is logged, counted, and skipped. Whatever
// was successfully built stays committed even when later pages fail.
func (p *Pipeline) RunSource(ctx context.Context, adapter Adapter, fetcher Fetcher) (RunStats, error) {
	var stats RunStats

	runID, recording := p.startRun(ctx, adapter.ID())

	pages, err := adapter.ListCandidatePages(ctx)
	if err != nil {
		p.finishRun(ctx, runID, recording, stats, true)
		return stats, fmt.Errorf("list candidate pages for %s: %w", adapter.ID(), err)
	}
	log.Info(p.Logger, "listing fetched", "source", adapter.ID(), "pages", len(pages))

	for _, page := range pages {
		outcome, err := p.processPage(ctx, adapter, fetcher, page)
		if err != nil {
			stats.Errors++
			log.Error(p.Logger, "page skipped", err, "source", adapter.ID(), "url", page.URL)
			continue
		}
		switch outcome {
		case outcomeCreated:
			stats.Created++
		case outcomeDuplicate:
			stats.Duplicates++
		case outcomeExpired:
			stats.Expired++
		}
	}

	log.Info(p.Logger, "run complete",
		"source", adapter.ID(),
		"created", stats.Created,
		"duplicates", stats.Duplicates,
		"expired", stats.Expired,
		"errors", stats.Errors,
	)
	p.finishRun(ctx, runID, recording, stats, false)
	return stats, nil
}

func (p *Pipeline) processPage(ctx context.Context, adapter Adapter, fetcher Fetcher, page Page) (pageOutcome, error) {
	doc, err := fetchDocument(ctx, fetcher, page.URL)
	if err != nil {
		return 0, err
	}

	candidate, err := adapter.Extract(ctx, doc, page.URL)
	if err != nil {
		return 0, fmt.Errorf("extract %s: %w", page.URL, err)
	}

	externalID := ComputeExternalID(candidate)
	exists, err := p.Store.GrantExistsByExternalID(ctx, externalID)
	if err != nil {
		return 0, err
	}
	if exists {
		return outcomeDuplicate, nil
	}

	if IsExpired(ResolveDeadline(candidate), p.Now()) {
		return outcomeExpired, nil
	}

	// Organization resolution and grant insert commit together per page; a
	// failure here leaves no partial rows for this page behind.
	err = p.Store.InTx(ctx, func(tx Storage) error {
		org, err := ResolveOrganization(ctx, tx, adapter.OrganizationDefaults())
		if err != nil {
			return err
		}
		return tx.CreateGrant(ctx, BuildGrant(candidate, org))
	})
	if err != nil {
		return 0, fmt.Errorf("persist %s: %w", externalID, err)
	}
	return outcomeCreated, nil
}

// RunAll runs every source in the registry in order, collecting per-source
// stats. One source's failure does not stop the others; failures are
// aggregated into the returned error.
func (p *Pipeline) RunAll(ctx context.Context, reg *Registry) (map[string]RunStats, error) {
	results := make(map[string]RunStats, len(reg.Sources))
	var errs *multierror.Error

	for _, cfg := range reg.Sources {
		adapter, fetcher, err := BuildAdapter(cfg)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		stats, err := p.RunSource(ctx, adapter, fetcher)
		results[cfg.ID] = stats
		if err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return results, errs.ErrorOrNil()
}

// startRun opens a run record when a recorder is configured. Bookkeeping
// failures are logged and never fail the run itself.
func (p *Pipeline) startRun(ctx context.Context, sourceID string) (uuid.UUID, bool) {
	if p.Runs == nil {
		return uuid.Nil, false
	}
	id, err := p.Runs.StartRun(ctx, sourceID)
	if err != nil {
		log.Warn(p.Logger, "run bookkeeping failed", "source", sourceID, "error", err)
		return uuid.Nil, false
	}
	return id, true
}

func (p *Pipeline) finishRun(ctx context.Context, id uuid.UUID, recording bool, stats RunStats, failed bool) {
	if !recording {
		return
	}
	if err := p.Runs.FinishRun(ctx, id, stats, failed); err != nil {
		log.Warn(p.Logger, "run bookkeeping failed", "run_id", id, "error", err)
	}
}
