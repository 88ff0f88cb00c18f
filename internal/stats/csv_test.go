package stats

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestStore_SaveAndLoad(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(Daily{
		Date: day("2026-08-29"), Site: "mercari", Keyword: "Supreme",
		Count: 3, AveragePrice: 2333.33, MinPrice: 1000, MaxPrice: 4000,
	}))
	require.NoError(t, store.Save(Daily{
		Date: day("2026-08-30"), Site: "mercari", Keyword: "Supreme",
		Count: 2, AveragePrice: 1500, MinPrice: 1000, MaxPrice: 2000,
	}))

	rows, err := store.Load("mercari", "Supreme")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, day("2026-08-29"), rows[0].Date)
	assert.Equal(t, 2333.33, rows[0].AveragePrice)
	assert.Equal(t, 1500.0, rows[1].AveragePrice)
}

func TestStore_SameDayUpsert(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	d := Daily{
		Date: day("2026-08-30"), Site: "mercari", Keyword: "Supreme",
		Count: 2, AveragePrice: 1500, MinPrice: 1000, MaxPrice: 2000,
	}
	require.NoError(t, store.Save(d))

	// A rerun on the same day replaces the row, it never duplicates it.
	d.Count = 5
	d.AveragePrice = 1800.5
	require.NoError(t, store.Save(d))

	rows, err := store.Load("mercari", "Supreme")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 5, rows[0].Count)
	assert.Equal(t, 1800.5, rows[0].AveragePrice)
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	rows, err := store.Load("mercari", "Nobody")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_SanitizedFileName(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(Daily{
		Date: day("2026-08-30"), Site: "mercari", Keyword: `A/B:C`,
		Count: 1, AveragePrice: 100, MinPrice: 100, MaxPrice: 100,
	}))

	assert.Equal(t, filepath.Join(dir, "mercari_A_B_C.csv"), store.Path("mercari", "A/B:C"))
	_, err = os.Stat(store.Path("mercari", "A/B:C"))
	require.NoError(t, err)
}

func TestStore_FileFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	require.NoError(t, err)

	require.NoError(t, store.Save(Daily{
		Date: day("2026-08-30"), Site: "mercari", Keyword: "Supreme",
		Count: 2, AveragePrice: 1500, MinPrice: 1000, MaxPrice: 2000,
	}))

	raw, err := os.ReadFile(store.Path("mercari", "Supreme"))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "date,site,keyword,count,average_price,min_price,max_price", lines[0])
	assert.Equal(t, "2026-08-30,mercari,Supreme,2,1500.00,1000,2000", lines[1])
}
