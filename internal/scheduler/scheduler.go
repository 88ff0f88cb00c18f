// Package scheduler runs one scrape-and-persist pass over every tracked
// site/brand target and hands the resulting file changes to gitops.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"brandtrack-backend/internal/brands"
	"brandtrack-backend/internal/config"
	"brandtrack-backend/internal/gitops"
	"brandtrack-backend/internal/scraper"
	"brandtrack-backend/internal/stats"
)

// ScrapeFunc collects listing prices for one target.
type ScrapeFunc func(ctx context.Context, site config.SiteConfig, keyword string) ([]int, error)

// Mirror is an optional secondary sink for daily rows (the Postgres store).
type Mirror interface {
	UpsertDaily(ctx context.Context, d stats.Daily) error
}

type Job struct {
	cfg    *config.Config
	sites  map[string]config.SiteConfig
	scrape ScrapeFunc
	store  *stats.Store
	mirror Mirror
	git    *gitops.Repo
	retry  RetryConfig
}

// New assembles a job. mirror and git may be nil, which disables the
// corresponding step.
func New(cfg *config.Config, sites map[string]config.SiteConfig, scrape ScrapeFunc, store *stats.Store, mirror Mirror, git *gitops.Repo) *Job {
	return &Job{
		cfg:    cfg,
		sites:  sites,
		scrape: scrape,
		store:  store,
		mirror: mirror,
		git:    git,
		retry: RetryConfig{
			Attempts:       3,
			InitialBackoff: 1 * time.Second,
		},
	}
}

// Run performs one full pass: every manifest target is scraped through the
// worker pool, aggregated and written, then the data changes are committed.
// A target that yields no prices is skipped with a warning; the run itself
// only fails on a hard error.
func (j *Job) Run(ctx context.Context) error {
	manifest, err := brands.Load(j.cfg.BrandsFile)
	if err != nil {
		return err
	}

	targets := manifest.Targets()
	slog.Info("Starting scrape run", "targets", len(targets), "workers", j.cfg.WorkerCount)

	tasks := make(chan brands.Target, len(targets))
	for _, t := range targets {
		tasks <- t
	}
	close(tasks)

	var written int64
	poolErr := StartWorkerPool(ctx, tasks, j.cfg.WorkerCount, func(ctx context.Context, t brands.Target) error {
		if err := j.processTarget(ctx, t); err != nil {
			if errors.Is(err, stats.ErrNoPrices) {
				slog.Warn("No prices found for target", "site", t.Site, "brand", t.Brand)
				return nil
			}
			slog.Error("Target failed", "site", t.Site, "brand", t.Brand, "error", err)
			return err
		}
		atomic.AddInt64(&written, 1)
		return nil
	})

	slog.Info("Scrape run finished", "targets", len(targets), "written", written)

	if j.git != nil {
		if err := j.git.CommitAndPush(ctx); err != nil {
			return fmt.Errorf("persist data changes: %w", err)
		}
	}
	return poolErr
}

func (j *Job) processTarget(ctx context.Context, t brands.Target) error {
	site, ok := j.sites[t.Site]
	if !ok {
		slog.Warn("Manifest references unconfigured site, skipping", "site", t.Site, "brand", t.Brand)
		return nil
	}

	var prices []int
	err := Retry(ctx, j.retry, func() error {
		var scrapeErr error
		prices, scrapeErr = j.scrape(ctx, site, t.Brand)
		if errors.Is(scrapeErr, scraper.ErrNoPrices) {
			// An empty search result is an answer, not a transient failure:
			// don't burn retries on it. Compute turns the empty slice into
			// the skip below.
			prices = nil
			return nil
		}
		if scrapeErr != nil {
			slog.Warn("Scrape attempt failed", "site", t.Site, "brand", t.Brand, "error", scrapeErr)
		}
		return scrapeErr
	})
	if err != nil {
		return err
	}

	daily, err := stats.Compute(t.Site, t.Brand, prices, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := j.store.Save(daily); err != nil {
		return err
	}
	slog.Info("Saved daily stats", "site", t.Site, "brand", t.Brand,
		"count", daily.Count, "average", daily.AveragePrice)

	if j.mirror != nil {
		if err := j.mirror.UpsertDaily(ctx, daily); err != nil {
			// The CSV under version control is the source of truth; a mirror
			// failure must not fail the run.
			slog.Error("Failed to mirror daily stats", "site", t.Site, "brand", t.Brand, "error", err)
		}
	}
	return nil
}
