// Package stats turns raw listing prices into the daily per-target
// statistics the dashboard charts, and persists them as one CSV file per
// site/brand pair under the data directory.
package stats

import (
	"errors"
	"math"
	"time"
)

// ErrNoPrices is returned when a scrape produced nothing to aggregate.
var ErrNoPrices = errors.New("no prices to aggregate")

// Daily is one row of aggregated prices for a site/brand on a date.
type Daily struct {
	Date         time.Time `json:"date"`
	Site         string    `json:"site"`
	Keyword      string    `json:"keyword"`
	Count        int       `json:"count"`
	AveragePrice float64   `json:"average_price"`
	MinPrice     int       `json:"min_price"`
	MaxPrice     int       `json:"max_price"`
}

// Compute aggregates one day's prices for a target. The average is rounded
// to two decimals, matching the stored format.
func Compute(site, keyword string, prices []int, date time.Time) (Daily, error) {
	if len(prices) == 0 {
		return Daily{}, ErrNoPrices
	}

	sum := 0
	min := prices[0]
	max := prices[0]
	for _, p := range prices {
		sum += p
		if p < min {
			min = p
		}
		if p > max {
			max = p
		}
	}

	avg := float64(sum) / float64(len(prices))
	return Daily{
		Date:         date.Truncate(24 * time.Hour),
		Site:         site,
		Keyword:      keyword,
		Count:        len(prices),
		AveragePrice: math.Round(avg*100) / 100,
		MinPrice:     min,
		MaxPrice:     max,
	}, nil
}

// MovingAverage computes a trailing mean over the given window. Early points
// average over however many values exist so far (min period of one), the way
// the dashboard draws its MA lines from day one.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		n := i + 1
		if n > window {
			n = window
		}
		out[i] = math.Round(sum/float64(n)*100) / 100
	}
	return out
}
