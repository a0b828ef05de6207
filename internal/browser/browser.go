// Package browser fetches rendered search-result pages. The search
// engine assembles its markup client side, so a plain HTTP GET returns
// a shell; pages go through a real headless browser instead.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrBotChallenge signals that the engine served a verification page
// instead of results. The scan must stop immediately; retrying only
// escalates the block.
var ErrBotChallenge = errors.New("bot challenge detected")

// PageData is one rendered page.
type PageData struct {
	URL  string
	HTML string
}

// Fetcher loads one rendered results page. Implementations must tear
// down whatever tab or session they opened before returning, on every
// path including errors.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (PageData, error)
	Close() error
}

// SearchURL builds the results URL for a zero-based page index.
func SearchURL(keyword, locale string, page, perPage int) string {
	q := url.Values{}
	q.Set("q", keyword)
	q.Set("num", fmt.Sprint(perPage))
	if page > 0 {
		q.Set("start", fmt.Sprint(page*perPage))
	}
	if locale != "" {
		q.Set("hl", locale)
	}
	return "https://www.google.com/search?" + q.Encode()
}

// IsBotChallenge inspects rendered HTML for the engine's verification
// interstitials.
func IsBotChallenge(htmlText string) bool {
	lower := strings.ToLower(htmlText)
	if strings.Contains(lower, "recaptcha") || strings.Contains(lower, "unusual traffic") {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlText))
	if err != nil {
		// Unparseable page: fall back to the substring check only.
		return strings.Contains(lower, "captcha")
	}
	if doc.Find(`iframe[src*="recaptcha"]`).Length() > 0 || doc.Find("#captcha").Length() > 0 {
		return true
	}
	return strings.Contains(lower, "captcha")
}
