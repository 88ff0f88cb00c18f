package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"brandtrack-backend/internal/brands"
)

const dateLayout = "2006-01-02"

var csvHeader = []string{"date", "site", "keyword", "count", "average_price", "min_price", "max_price"}

// Store reads and writes the per-target daily CSV files.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the CSV file for a site/brand pair.
func (s *Store) Path(site, keyword string) string {
	name := fmt.Sprintf("%s_%s.csv", brands.Sanitize(site), brands.Sanitize(keyword))
	return filepath.Join(s.dir, name)
}

// Load returns all rows for a target sorted by date. A missing file means no
// data yet, not an error.
func (s *Store) Load(site, keyword string) ([]Daily, error) {
	f, err := os.Open(s.Path(site, keyword))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open stats file: %w", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read stats file: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var rows []Daily
	for i, rec := range records {
		if i == 0 {
			// Header row.
			continue
		}
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("stats row %d: %w", i, err)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

// Save upserts a daily row: an existing row for the same date, site and
// keyword is replaced, anything else is appended.
func (s *Store) Save(d Daily) error {
	rows, err := s.Load(d.Site, d.Keyword)
	if err != nil {
		return err
	}

	replaced := false
	for i, row := range rows {
		if sameDay(row.Date, d.Date) && row.Site == d.Site && row.Keyword == d.Keyword {
			rows[i] = d
			replaced = true
			break
		}
	}
	if !replaced {
		rows = append(rows, d)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	return s.write(d.Site, d.Keyword, rows)
}

func (s *Store) write(site, keyword string, rows []Daily) error {
	path := s.Path(site, keyword)
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create stats file: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	for _, row := range rows {
		rec := []string{
			row.Date.Format(dateLayout),
			row.Site,
			row.Keyword,
			strconv.Itoa(row.Count),
			strconv.FormatFloat(row.AveragePrice, 'f', 2, 64),
			strconv.Itoa(row.MinPrice),
			strconv.Itoa(row.MaxPrice),
		}
		if err := w.Write(rec); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func parseRow(rec []string) (Daily, error) {
	if len(rec) != len(csvHeader) {
		return Daily{}, fmt.Errorf("expected %d columns, got %d", len(csvHeader), len(rec))
	}

	date, err := time.Parse(dateLayout, rec[0])
	if err != nil {
		return Daily{}, fmt.Errorf("bad date %q: %w", rec[0], err)
	}
	count, err := strconv.Atoi(rec[3])
	if err != nil {
		return Daily{}, fmt.Errorf("bad count %q: %w", rec[3], err)
	}
	avg, err := strconv.ParseFloat(rec[4], 64)
	if err != nil {
		return Daily{}, fmt.Errorf("bad average %q: %w", rec[4], err)
	}
	min, err := strconv.Atoi(rec[5])
	if err != nil {
		return Daily{}, fmt.Errorf("bad min %q: %w", rec[5], err)
	}
	max, err := strconv.Atoi(rec[6])
	if err != nil {
		return Daily{}, fmt.Errorf("bad max %q: %w", rec[6], err)
	}

	return Daily{
		Date:         date,
		Site:         rec[1],
		Keyword:      rec[2],
		Count:        count,
		AveragePrice: avg,
		MinPrice:     min,
		MaxPrice:     max,
	}, nil
}

func sameDay(a, b time.Time) bool {
	return a.Format(dateLayout) == b.Format(dateLayout)
}
