package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"brandtrack-backend/internal/config"
	"brandtrack-backend/internal/gitops"
	"brandtrack-backend/internal/scheduler"
	"brandtrack-backend/internal/scraper"
	"brandtrack-backend/internal/stats"
	"brandtrack-backend/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	now := flag.Bool("now", false, "run one scrape immediately before starting the schedule")
	flag.Parse()

	cfg := config.Load()

	sites, err := config.LoadSites(cfg.SitesFile)
	if err != nil {
		slog.Error("Failed to load site configuration", "error", err)
		os.Exit(1)
	}

	st, err := stats.NewStore(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to open data directory", "error", err)
		os.Exit(1)
	}

	var mirror scheduler.Mirror
	if cfg.DatabaseURL != "" {
		pg, err := store.Open(cfg.DatabaseURL)
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pg.Close()
		mirror = pg
	}

	var repo *gitops.Repo
	if cfg.CommitEnabled {
		repo, err = gitops.Open(gitops.Options{
			Dir:           cfg.RepoDir,
			DataDir:       cfg.DataDir,
			ManifestFile:  cfg.BrandsFile,
			RemoteName:    cfg.RemoteName,
			BotName:       cfg.BotName,
			BotEmail:      cfg.BotEmail,
			MessagePrefix: cfg.MessagePrefix,
			Push:          cfg.PushEnabled,
		})
		if err != nil {
			slog.Warn("Not a git repository, data changes stay uncommitted", "error", err)
			repo = nil
		}
	}

	sc := scraper.New()
	job := scheduler.New(cfg, sites, sc.ScrapeBrand, st, mirror, repo)

	// Overlap guard: a scrape that runs long must not stack on the next
	// tick, it is simply skipped.
	var running sync.Mutex
	runOnce := func() {
		if !running.TryLock() {
			slog.Warn("Previous run still in progress, skipping this tick")
			return
		}
		defer running.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
		defer cancel()

		if err := job.Run(ctx); err != nil {
			slog.Error("Scheduled run failed, waiting for the next tick", "error", err)
		}
	}

	if *now {
		runOnce()
	}

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.CronSpec, runOnce); err != nil {
		slog.Error("Invalid cron spec", "spec", cfg.CronSpec, "error", err)
		os.Exit(1)
	}
	c.Start()
	slog.Info("Scheduler started", "spec", cfg.CronSpec)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	slog.Info("Shutting down gracefully...")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	sc.Stop()
}
