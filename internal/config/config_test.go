package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "brands.json", cfg.BrandsFile)
	assert.Equal(t, "0 21 * * *", cfg.CronSpec)
	assert.Equal(t, 350*time.Minute, cfg.JobTimeout)
	assert.Equal(t, "github-actions[bot]", cfg.BotName)
	assert.Equal(t, "Automated data update by GitHub Actions", cfg.MessagePrefix)
	assert.True(t, cfg.CommitEnabled)
	assert.False(t, cfg.PushEnabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/prices")
	t.Setenv("JOB_TIMEOUT_MINUTES", "10")
	t.Setenv("GIT_PUSH", "true")
	t.Setenv("WORKER_COUNT", "7")

	cfg := Load()

	assert.Equal(t, "/tmp/prices", cfg.DataDir)
	assert.Equal(t, 10*time.Minute, cfg.JobTimeout)
	assert.True(t, cfg.PushEnabled)
	assert.Equal(t, 7, cfg.WorkerCount)
}

func TestLoadSites_MissingFileUsesDefaults(t *testing.T) {
	sites, err := LoadSites(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	require.Contains(t, sites, "mercari")
	require.Contains(t, sites, "rakuma")
	assert.Equal(t, 30, sites["mercari"].MaxItems)
	assert.NotEmpty(t, sites["mercari"].ItemSelectors)
}

func TestLoadSites_FromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	raw := `
shop:
  url_template: "https://example.com/search?q={keyword}"
  item_selectors: [".cell"]
  price_selectors: [".price"]
  wait_after_load: { min: 1, max: 2 }
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	sites, err := LoadSites(path)
	require.NoError(t, err)
	require.Contains(t, sites, "shop")

	shop := sites["shop"]
	assert.Equal(t, "shop", shop.Name)
	assert.Equal(t, 20, shop.MaxItems, "max_items should default")
	assert.NotEmpty(t, shop.UserAgent, "user agent should default")
	assert.Equal(t, "https://example.com/search?q=FRAY+I.D", shop.SearchURL("FRAY I.D"))
}

func TestLoadSites_BadTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yaml")
	require.NoError(t, os.WriteFile(path, []byte("shop:\n  url_template: \"https://example.com\"\n"), 0o644))

	_, err := LoadSites(path)
	assert.Error(t, err)
}

func TestRanges(t *testing.T) {
	r := Range{Min: 1, Max: 2}
	for i := 0; i < 20; i++ {
		d := r.Duration()
		assert.GreaterOrEqual(t, d, 1*time.Second)
		assert.LessOrEqual(t, d, 2*time.Second)
	}

	ir := IntRange{Min: 3, Max: 5}
	for i := 0; i < 20; i++ {
		n := ir.Pick()
		assert.GreaterOrEqual(t, n, 3)
		assert.LessOrEqual(t, n, 5)
	}
	assert.Equal(t, 4, IntRange{Min: 4}.Pick())
}
