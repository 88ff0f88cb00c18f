// Applies the daily_stats schema to the configured Postgres mirror.
package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	_ "github.com/lib/pq"

	"brandtrack-backend/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	if err := run(cfg); err != nil {
		slog.Error("Migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Migration completed")
}

func run(cfg *config.Config) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database connection: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	path, err := findMigration()
	if err != nil {
		return err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read migration file: %w", err)
	}

	slog.Info("Running migration", "file", path)
	if _, err := db.Exec(string(content)); err != nil {
		return fmt.Errorf("apply migration %s: %w", path, err)
	}
	return nil
}

// findMigration resolves the schema file whether the binary runs from the
// repository root or from inside cmd/migrate.
func findMigration() (string, error) {
	candidates := []string{
		"migrations/001_init.sql",
		"../../migrations/001_init.sql",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	cwd, _ := os.Getwd()
	return "", fmt.Errorf("migration file not found from %s", cwd)
}
