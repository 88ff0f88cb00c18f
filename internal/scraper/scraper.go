// Package scraper collects listing prices for a brand keyword from a
// marketplace search page. It tries a plain HTTP fetch first (fast), and
// falls back to a headless Chromium via Playwright for pages that only
// render their listings client-side.
package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"github.com/playwright-community/playwright-go"

	"brandtrack-backend/internal/config"
)

// ErrNoPrices signals that the page rendered fine but no listing carried a
// price. An empty search result is an answer, not a transient failure, so
// callers skip the target instead of retrying or failing the run.
var ErrNoPrices = errors.New("no priced items found")

type Scraper struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	mu      sync.Mutex
	started bool
}

func New() *Scraper {
	return &Scraper{}
}

// Start initializes the Playwright browser. Lazy start on first fallback is
// also fine; calling this at startup just surfaces install problems early.
func (s *Scraper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if err := playwright.Install(); err != nil {
		return fmt.Errorf("could not install playwright: %w", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("could not start playwright: %w", err)
	}
	s.pw = pw

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("could not launch browser: %w", err)
	}
	s.browser = browser
	s.started = true

	slog.Info("Playwright browser started")
	return nil
}

// Stop closes the Playwright browser and cleans up resources.
func (s *Scraper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.browser != nil {
		s.browser.Close()
	}
	if s.pw != nil {
		s.pw.Stop()
	}
	s.started = false
	slog.Info("Playwright browser stopped")
}

// ScrapeBrand returns the listing prices found for a brand keyword on one
// site, capped at the site's max item count.
func (s *Scraper) ScrapeBrand(ctx context.Context, site config.SiteConfig, keyword string) ([]int, error) {
	urlStr := site.SearchURL(keyword)

	prices, err := s.scrapeHTTP(ctx, site, urlStr)
	if err != nil {
		slog.Info("HTTP scrape failed, trying headless browser", "site", site.Name, "keyword", keyword, "error", err)
	} else if len(prices) == 0 {
		slog.Info("No priced items via HTTP, trying headless browser", "site", site.Name, "keyword", keyword)
	} else {
		return prices, nil
	}

	return s.scrapeBrowser(ctx, site, urlStr)
}

// scrapeHTTP parses the fetched page with goquery (CSS) or htmlquery (XPath)
// without executing any JavaScript.
func (s *Scraper) scrapeHTTP(ctx context.Context, site config.SiteConfig, urlStr string) ([]int, error) {
	body, err := fetchPage(ctx, urlStr, site.UserAgent)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	var prices []int
	for _, containerSel := range site.ItemSelectors {
		items := doc.Find(containerSel)
		if items.Length() == 0 {
			continue
		}
		items.EachWithBreak(func(_ int, item *goquery.Selection) bool {
			if len(prices) >= site.MaxItems {
				return false
			}
			if p, ok := priceFromSelection(item, site.PriceSelectors); ok {
				prices = append(prices, p)
			}
			return true
		})
		if len(prices) > 0 {
			break
		}
	}

	if len(prices) == 0 && site.PriceXPath != "" {
		xdoc, err := htmlquery.Parse(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		for _, node := range htmlquery.Find(xdoc, site.PriceXPath) {
			if len(prices) >= site.MaxItems {
				break
			}
			if p, ok := ExtractPrice(strings.TrimSpace(htmlquery.InnerText(node))); ok {
				prices = append(prices, p)
			}
		}
	}

	return prices, nil
}

func priceFromSelection(item *goquery.Selection, priceSelectors []string) (int, bool) {
	for _, sel := range priceSelectors {
		inner := item.Find(sel).First()
		if inner.Length() == 0 {
			continue
		}
		if p, ok := ExtractPrice(strings.TrimSpace(inner.Text())); ok {
			return p, true
		}
	}
	// No dedicated price element matched; the whole cell text often still
	// carries a yen amount.
	return ExtractPrice(strings.TrimSpace(item.Text()))
}

// scrapeBrowser renders the page in headless Chromium with stealth settings
// and walks the same selector cascade over the live DOM.
func (s *Scraper) scrapeBrowser(ctx context.Context, site config.SiteConfig, urlStr string) ([]int, error) {
	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		if err := s.Start(); err != nil {
			return nil, fmt.Errorf("failed to start playwright: %w", err)
		}
	}
	s.mu.Lock()
	browser := s.browser
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	browserCtx, err := browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(site.UserAgent),
		Viewport: &playwright.Size{
			Width:  1920,
			Height: 1080,
		},
		Locale:            playwright.String("ja-JP"),
		TimezoneId:        playwright.String("Asia/Tokyo"),
		JavaScriptEnabled: playwright.Bool(true),
		ExtraHttpHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/apng,*/*;q=0.8",
			"Accept-Language": "ja,en-US;q=0.9,en;q=0.8",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("could not create context: %w", err)
	}
	defer browserCtx.Close()

	page, err := browserCtx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}
	defer page.Close()

	// Hide the usual automation tells before any site script runs.
	err = page.AddInitScript(playwright.Script{
		Content: playwright.String(`
			Object.defineProperty(navigator, 'webdriver', {
				get: () => undefined
			});
			window.chrome = { runtime: {}, loadTimes: function() {}, csi: function() {}, app: {} };
			Object.defineProperty(navigator, 'languages', {
				get: () => ['ja', 'en-US', 'en']
			});
		`),
	})
	if err != nil {
		slog.Warn("Could not add stealth script", "error", err)
	}

	if _, err := page.Goto(urlStr, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(30000),
	}); err != nil {
		return nil, fmt.Errorf("could not navigate to page: %w", err)
	}

	time.Sleep(site.WaitAfterLoad.Duration())

	// Listings load as the page scrolls; nudge it a few times like a reader
	// would.
	for i := 0; i < site.ScrollCount.Pick(); i++ {
		if _, err := page.Evaluate(fmt.Sprintf("window.scrollBy(0, %d)", site.ScrollHeight.Pick())); err != nil {
			slog.Warn("Scroll failed", "error", err)
			break
		}
		time.Sleep(site.ScrollWait.Duration())
	}

	var prices []int
	for _, containerSel := range site.ItemSelectors {
		if err := page.Locator(containerSel).First().WaitFor(playwright.LocatorWaitForOptions{
			State:   playwright.WaitForSelectorStateVisible,
			Timeout: playwright.Float(15000),
		}); err != nil {
			continue
		}

		items, err := page.Locator(containerSel).All()
		if err != nil {
			continue
		}

		for _, item := range items {
			if len(prices) >= site.MaxItems {
				break
			}
			if p, ok := priceFromLocator(item, site.PriceSelectors); ok {
				prices = append(prices, p)
			}
		}
		if len(prices) > 0 {
			break
		}
	}

	if len(prices) == 0 {
		return nil, fmt.Errorf("%w with any selector: %s", ErrNoPrices, urlStr)
	}
	return prices, nil
}

func priceFromLocator(item playwright.Locator, priceSelectors []string) (int, bool) {
	for _, sel := range priceSelectors {
		inner := item.Locator(sel).First()
		count, err := inner.Count()
		if err != nil || count == 0 {
			continue
		}
		text, err := inner.TextContent()
		if err != nil {
			continue
		}
		if p, ok := ExtractPrice(strings.TrimSpace(text)); ok {
			return p, true
		}
	}
	text, err := item.TextContent()
	if err != nil {
		return 0, false
	}
	return ExtractPrice(strings.TrimSpace(text))
}
