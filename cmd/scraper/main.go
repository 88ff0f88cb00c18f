package main

import (
	"context"
	"log/slog"
	"os"

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
		slog.Info("Connected to database")
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
	if err := sc.Start(); err != nil {
		slog.Warn("Failed to start Playwright scraper, will use HTTP only", "error", err)
	}

	job := scheduler.New(cfg, sites, sc.ScrapeBrand, st, mirror, repo)

	// The whole run is bounded; a stuck scrape must not outlive the job.
	ctx, cancel := context.WithTimeout(context.Background(), cfg.JobTimeout)
	defer cancel()

	runErr := job.Run(ctx)

	sc.Stop()

	if runErr != nil {
		slog.Error("Scraper job failed", "error", runErr)
		os.Exit(1)
	}
	slog.Info("Scraper job finished")
}
