package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brandtrack-backend/internal/brands"
	"brandtrack-backend/internal/config"
	"brandtrack-backend/internal/scraper"
	"brandtrack-backend/internal/stats"
)

func jobFixture(t *testing.T, scrape ScrapeFunc) (*Job, *stats.Store) {
	t.Helper()
	dir := t.TempDir()

	manifest := brands.Manifest{
		"mercari": {"ストリート": {"Supreme", "Stussy"}},
	}
	require.NoError(t, brands.Save(filepath.Join(dir, "brands.json"), manifest))

	cfg := &config.Config{
		DataDir:     filepath.Join(dir, "data"),
		BrandsFile:  filepath.Join(dir, "brands.json"),
		WorkerCount: 2,
	}
	st, err := stats.NewStore(cfg.DataDir)
	require.NoError(t, err)

	job := New(cfg, config.DefaultSites(), scrape, st, nil, nil)
	job.retry = RetryConfig{Attempts: 2, InitialBackoff: time.Millisecond}
	return job, st
}

func TestJobRun_WritesDailyStats(t *testing.T) {
	var mu sync.Mutex
	scraped := map[string][]int{}

	job, st := jobFixture(t, func(ctx context.Context, site config.SiteConfig, keyword string) ([]int, error) {
		mu.Lock()
		defer mu.Unlock()
		prices := []int{1000, 2000}
		scraped[keyword] = prices
		return prices, nil
	})

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, scraped, 2)

	rows, err := st.Load("mercari", "Supreme")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Count)
	assert.Equal(t, 1500.0, rows[0].AveragePrice)

	rows, err = st.Load("mercari", "Stussy")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestJobRun_NoPricesIsSkipNotFailure(t *testing.T) {
	calls := 0
	var mu sync.Mutex

	// The error shape ScrapeBrand actually returns when every selector
	// comes up empty.
	job, st := jobFixture(t, func(ctx context.Context, site config.SiteConfig, keyword string) ([]int, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, fmt.Errorf("%w with any selector: %s", scraper.ErrNoPrices, site.SearchURL(keyword))
	})

	require.NoError(t, job.Run(context.Background()))

	// One call per target, no retries for an empty result.
	assert.Equal(t, 2, calls)

	rows, err := st.Load("mercari", "Supreme")
	require.NoError(t, err)
	assert.Empty(t, rows)
	rows, err = st.Load("mercari", "Stussy")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestJobRun_ScrapeErrorFailsRun(t *testing.T) {
	boom := errors.New("site down")
	calls := 0
	var mu sync.Mutex

	job, _ := jobFixture(t, func(ctx context.Context, site config.SiteConfig, keyword string) ([]int, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, boom
	})

	err := job.Run(context.Background())
	assert.ErrorIs(t, err, boom)
	// Two targets, two attempts each.
	assert.Equal(t, 4, calls)
}

func TestJobRun_UnknownSiteIsSkipped(t *testing.T) {
	dir := t.TempDir()
	manifest := brands.Manifest{"closeddown": {"cat": {"Supreme"}}}
	require.NoError(t, brands.Save(filepath.Join(dir, "brands.json"), manifest))

	cfg := &config.Config{
		DataDir:     filepath.Join(dir, "data"),
		BrandsFile:  filepath.Join(dir, "brands.json"),
		WorkerCount: 1,
	}
	st, err := stats.NewStore(cfg.DataDir)
	require.NoError(t, err)

	job := New(cfg, config.DefaultSites(), func(ctx context.Context, site config.SiteConfig, keyword string) ([]int, error) {
		t.Error("scrape must not be called for an unconfigured site")
		return nil, nil
	}, st, nil, nil)

	require.NoError(t, job.Run(context.Background()))

	entries, err := os.ReadDir(cfg.DataDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestJobRun_MirrorFailureDoesNotFailRun(t *testing.T) {
	job, _ := jobFixture(t, func(ctx context.Context, site config.SiteConfig, keyword string) ([]int, error) {
		return []int{500}, nil
	})
	job.mirror = failingMirror{}

	require.NoError(t, job.Run(context.Background()))
}

type failingMirror struct{}

func (failingMirror) UpsertDaily(ctx context.Context, d stats.Daily) error {
	return errors.New("database offline")
}
