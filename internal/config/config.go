package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DataDir    string
	BrandsFile string
	SitesFile  string
	RepoDir    string

	CronSpec    string
	JobTimeout  time.Duration
	WorkerCount int

	CommitEnabled bool
	PushEnabled   bool
	RemoteName    string
	BotName       string
	BotEmail      string
	MessagePrefix string

	DatabaseURL string
	AppPort     int
	LogLevel    string
	JWTSecret   string
}

// Load reads .env (if present) and assembles the configuration from the
// environment with defaults suitable for running inside the repository root.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on system environment variables")
	}

	return &Config{
		DataDir:    getEnvAsString("DATA_DIR", "data"),
		BrandsFile: getEnvAsString("BRANDS_FILE", "brands.json"),
		SitesFile:  getEnvAsString("SITES_FILE", "sites.yaml"),
		RepoDir:    getEnvAsString("REPO_DIR", "."),

		CronSpec:    getEnvAsString("CRON_SPEC", "0 21 * * *"),
		JobTimeout:  time.Duration(getEnvAsInt("JOB_TIMEOUT_MINUTES", 350)) * time.Minute,
		WorkerCount: getEnvAsInt("WORKER_COUNT", 2),

		CommitEnabled: getEnvAsBool("GIT_COMMIT", true),
		PushEnabled:   getEnvAsBool("GIT_PUSH", false),
		RemoteName:    getEnvAsString("GIT_REMOTE", "origin"),
		BotName:       getEnvAsString("GIT_BOT_NAME", "github-actions[bot]"),
		BotEmail:      getEnvAsString("GIT_BOT_EMAIL", "github-actions[bot]@users.noreply.github.com"),
		MessagePrefix: getEnvAsString("GIT_MESSAGE_PREFIX", "Automated data update by GitHub Actions"),

		DatabaseURL: getEnvAsString("DATABASE_URL", ""),
		AppPort:     getEnvAsInt("APP_PORT", 8080),
		LogLevel:    getEnvAsString("LOG_LEVEL", "info"),
		JWTSecret:   getEnvAsString("DASHBOARD_SECRET", ""),
	}
}

func getEnvAsString(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true"
}
