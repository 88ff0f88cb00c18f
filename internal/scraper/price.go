package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yenRe      = regexp.MustCompile(`¥\s*([0-9,]+)`)
	digitsRe   = regexp.MustCompile(`^[0-9,]+$`)
	nonDigitRe = regexp.MustCompile(`[^0-9]`)
)

// ExtractPrice pulls an integer yen amount out of item text. A yen-prefixed
// number wins; otherwise the text must be nothing but digits and commas.
func ExtractPrice(text string) (int, bool) {
	if text == "" {
		return 0, false
	}

	if m := yenRe.FindStringSubmatch(text); len(m) > 1 {
		if p, ok := parseDigits(m[1]); ok {
			return p, true
		}
	}

	trimmed := strings.TrimSpace(text)
	if digitsRe.MatchString(trimmed) {
		return parseDigits(trimmed)
	}
	return 0, false
}

func parseDigits(s string) (int, bool) {
	digits := nonDigitRe.ReplaceAllString(s, "")
	if digits == "" {
		return 0, false
	}
	p, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return p, true
}
