// Package brands manages the tracked-brand manifest (brands.json): which
// brand keywords are scraped on which site, grouped by display category.
package brands

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

// Manifest maps site -> category -> brand keywords. Categories are a display
// grouping only; scraping flattens everything to (site, brand) targets.
type Manifest map[string]map[string][]string

// Uncategorized is the catch-all bucket for brands added without a category.
const Uncategorized = "未分類"

var sanitizeRe = regexp.MustCompile(`[\\/*?:"<>|]`)

// Sanitize makes a site or brand name safe for use in a data file name.
func Sanitize(s string) string {
	return sanitizeRe.ReplaceAllString(s, "_")
}

// Target is one unit of scraping work.
type Target struct {
	Site  string `json:"site"`
	Brand string `json:"brand"`
}

// Default returns the starter manifest written on first run.
func Default() Manifest {
	return Manifest{
		"mercari": {
			"ストリート":      {"Supreme", "Stussy", "A BATHING APE"},
			"モード系":       {"Yohji Yamamoto", "COMME des GARCONS", "ISSEY MIYAKE"},
			Uncategorized: {},
		},
		"rakuma": {
			"レディースアパレル":  {"SNIDEL", "FRAY I.D"},
			Uncategorized: {},
		},
	}
}

// Load reads the manifest. A missing file is seeded with the default set so
// the dashboard and the scrape job have something to work with.
func Load(path string) (Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			m := Default()
			if err := Save(path, m); err != nil {
				return nil, err
			}
			return m, nil
		}
		return nil, fmt.Errorf("read brands manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse brands manifest: %w", err)
	}
	return m, nil
}

// Save writes the manifest atomically with the 2-space indentation the
// dashboard's manifest files use.
func Save(path string, m Manifest) error {
	raw, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode brands manifest: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write brands manifest: %w", err)
	}
	if err := os.Rename(tmp, filepath.Clean(path)); err != nil {
		return fmt.Errorf("replace brands manifest: %w", err)
	}
	return nil
}

// Add inserts a brand under site/category. The brand must not already be
// tracked on that site, in any category.
func (m Manifest) Add(site, category, brand string) error {
	if site == "" || brand == "" {
		return fmt.Errorf("site and brand are required")
	}
	if category == "" {
		category = Uncategorized
	}

	for cat, names := range m[site] {
		for _, name := range names {
			if name == brand {
				return fmt.Errorf("brand %q already tracked on %s under %s", brand, site, cat)
			}
		}
	}

	if m[site] == nil {
		m[site] = map[string][]string{}
	}
	m[site][category] = append(m[site][category], brand)
	return nil
}

// Targets flattens the manifest into a stable, sorted list of scrape targets.
func (m Manifest) Targets() []Target {
	var targets []Target
	seen := map[Target]bool{}
	for site, categories := range m {
		for _, names := range categories {
			for _, brand := range names {
				t := Target{Site: site, Brand: brand}
				if !seen[t] {
					seen[t] = true
					targets = append(targets, t)
				}
			}
		}
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].Site != targets[j].Site {
			return targets[i].Site < targets[j].Site
		}
		return targets[i].Brand < targets[j].Brand
	})
	return targets
}

// Sites returns the site names in the manifest, sorted.
func (m Manifest) Sites() []string {
	sites := make([]string, 0, len(m))
	for site := range m {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites
}
