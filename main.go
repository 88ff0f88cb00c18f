package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"brandtrack-backend/internal/config"
	"brandtrack-backend/internal/gitops"
	"brandtrack-backend/internal/scraper"
	"brandtrack-backend/internal/server"
	"brandtrack-backend/internal/stats"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	pull := flag.Bool("pull", false, "pull the latest data from the remote before serving")
	mintToken := flag.Bool("token", false, "print a dashboard API token and exit")
	flag.Parse()

	cfg := config.Load()

	if *mintToken {
		if cfg.JWTSecret == "" {
			slog.Error("DASHBOARD_SECRET is not set")
			os.Exit(1)
		}
		token, err := server.MintToken(cfg.JWTSecret, 24*time.Hour)
		if err != nil {
			slog.Error("Failed to mint token", "error", err)
			os.Exit(1)
		}
		fmt.Println(token)
		return
	}

	// A wrong repo dir must abort here, never fall through to serving
	// whatever directory we happen to be in.
	if cfg.RepoDir != "" && cfg.RepoDir != "." {
		if err := os.Chdir(cfg.RepoDir); err != nil {
			slog.Error("Project directory is missing", "dir", cfg.RepoDir, "error", err)
			os.Exit(1)
		}
	}

	if *pull {
		repo, err := gitops.Open(gitops.Options{
			Dir:        ".",
			RemoteName: cfg.RemoteName,
		})
		if err != nil {
			slog.Warn("Not a git repository, serving local data as-is", "error", err)
		} else {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			if err := repo.Pull(ctx); err != nil {
				slog.Warn("Pull failed, serving possibly stale data", "error", err)
			} else {
				slog.Info("Repository synchronized with remote")
			}
			cancel()
		}
	}

	sites, err := config.LoadSites(cfg.SitesFile)
	if err != nil {
		slog.Error("Failed to load site configuration", "error", err)
		os.Exit(1)
	}

	store, err := stats.NewStore(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to open data directory", "error", err)
		os.Exit(1)
	}

	sc := scraper.New()
	defer sc.Stop()

	srv := server.New(cfg, sites, store, sc.ScrapeBrand)

	addr := fmt.Sprintf(":%d", cfg.AppPort)
	slog.Info("Dashboard API starting", "addr", addr)
	if err := http.ListenAndServe(addr, srv.Router()); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
