package config

import (
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v2"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36"

// Range is an inclusive interval of seconds to wait, sampled per use so page
// interactions don't look machine-regular.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Duration picks a random duration inside the range.
func (r Range) Duration() time.Duration {
	s := r.Min
	if r.Max > r.Min {
		s += rand.Float64() * (r.Max - r.Min)
	}
	return time.Duration(s * float64(time.Second))
}

type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Pick returns a random value inside the range.
func (r IntRange) Pick() int {
	if r.Max <= r.Min {
		return r.Min
	}
	return r.Min + rand.Intn(r.Max-r.Min+1)
}

// SiteConfig describes how to scrape one marketplace: where to search and
// which selectors locate item cells and the price inside them. Selectors are
// cascades; the first one that matches anything wins.
type SiteConfig struct {
	Name           string   `yaml:"-"`
	URLTemplate    string   `yaml:"url_template"`
	ItemSelectors  []string `yaml:"item_selectors"`
	PriceSelectors []string `yaml:"price_selectors"`
	PriceXPath     string   `yaml:"price_xpath,omitempty"`
	MaxItems       int      `yaml:"max_items"`
	WaitAfterLoad  Range    `yaml:"wait_after_load"`
	ScrollCount    IntRange `yaml:"scroll_count"`
	ScrollHeight   IntRange `yaml:"scroll_height"`
	ScrollWait     Range    `yaml:"scroll_wait"`
	UserAgent      string   `yaml:"user_agent,omitempty"`
}

// SearchURL expands the template for a brand keyword.
func (c SiteConfig) SearchURL(keyword string) string {
	return strings.ReplaceAll(c.URLTemplate, "{keyword}", url.QueryEscape(keyword))
}

// LoadSites reads the per-site scraping configuration. A missing file is not
// an error: the built-in site set is returned so a fresh checkout works.
func LoadSites(path string) (map[string]SiteConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSites(), nil
		}
		return nil, fmt.Errorf("read sites file: %w", err)
	}

	sites := map[string]SiteConfig{}
	if err := yaml.Unmarshal(raw, &sites); err != nil {
		return nil, fmt.Errorf("parse sites file: %w", err)
	}

	for name, site := range sites {
		site.Name = name
		if site.URLTemplate == "" || !strings.Contains(site.URLTemplate, "{keyword}") {
			return nil, fmt.Errorf("site %q: url_template must contain {keyword}", name)
		}
		if site.MaxItems <= 0 {
			site.MaxItems = 20
		}
		if site.UserAgent == "" {
			site.UserAgent = defaultUserAgent
		}
		sites[name] = site
	}
	return sites, nil
}

// DefaultSites mirrors the site set the tracker launched with.
func DefaultSites() map[string]SiteConfig {
	return map[string]SiteConfig{
		"mercari": {
			Name:        "mercari",
			URLTemplate: "https://jp.mercari.com/search?keyword={keyword}&status=on_sale&order=desc&sort=created_time",
			ItemSelectors: []string{
				`li[data-testid="item-cell"]`,
				`div[data-testid="item-cell"]`,
				"mer-item-thumbnail",
				".merListItem",
			},
			PriceSelectors: []string{
				`[data-testid="price"]`,
				`[class*="Price"]`,
				".merPrice",
				`span[class*="price"]`,
			},
			MaxItems:      30,
			WaitAfterLoad: Range{Min: 3, Max: 5},
			ScrollCount:   IntRange{Min: 2, Max: 4},
			ScrollHeight:  IntRange{Min: 400, Max: 800},
			ScrollWait:    Range{Min: 0.8, Max: 1.8},
			UserAgent:     defaultUserAgent,
		},
		"rakuma": {
			Name:        "rakuma",
			URLTemplate: "https://fril.jp/s?query={keyword}&sort=created_at&order=desc",
			ItemSelectors: []string{
				".item-box",
			},
			PriceSelectors: []string{
				".price",
				".item-price__value",
			},
			MaxItems:      25,
			WaitAfterLoad: Range{Min: 2, Max: 4},
			ScrollCount:   IntRange{Min: 2, Max: 3},
			ScrollHeight:  IntRange{Min: 500, Max: 700},
			ScrollWait:    Range{Min: 1.0, Max: 2.0},
			UserAgent:     defaultUserAgent,
		},
	}
}
