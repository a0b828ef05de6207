// Package extract holds the DOM-cascade heuristics that pull organic
// results and question phrases out of a rendered search-results page.
// Everything operates on a parsed document, so the cascades are plain
// functions that tests can drive with HTML fixtures.
package extract

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"serprank/internal/models"
)

const (
	maxTitleLen   = 200
	maxSnippetLen = 300

	// Heading-ascension fallback walks at most this many ancestors.
	maxAscendDepth = 8
)

// Ordered list of container selectors known to match the engine's
// current result markup. First selector yielding a non-empty filtered
// set wins. Treated as a versioned strategy list: append new variants
// here when the markup drifts.
var containerSelectors = []string{
	"div.MjjYud",
	"div.g",
	"div.tF2Cxc",
	"div.Gx5Zad.xpd",
	"div[data-sokoban-container]",
	"div.hlcw0c",
	"div.yuRUbf",
	"div[jscontroller]",
}

var snippetSelectors = []string{
	".VwiC3b",
	".yXK7lf, .lyLwlc, .IsZvec, .aCOpRe, .yDYNvb",
}

const (
	knowledgePanelSel = ".kno-kp, .kp-blk"
	adMarkerSel       = "[data-text-ad]"
	contentAreaSel    = "#search, #rso, #center_col, #rcnt"
)

// URL substrings marking engine-internal links that never count as
// organic results.
var internalURLMarkers = []string{
	"google.com/search",
	"accounts.google",
	"support.google",
	"policies.google",
	"webcache.google",
	"translate.google",
}

// SelectorCount records how many raw matches one selector produced.
type SelectorCount struct {
	Selector string `json:"selector"`
	Count    int    `json:"count"`
}

// Debug describes which cascade stage produced the containers.
type Debug struct {
	SelectorsChecked []SelectorCount `json:"selectorsChecked,omitempty"`
	WorkingSelector  string          `json:"workingSelector,omitempty"`
	Stage            string          `json:"stage,omitempty"`
	ContainersFound  int             `json:"containersFound"`
}

// Results locates result containers through a three-stage cascade and
// extracts a title/link/snippet triple from each. pageURL is the
// address the document was fetched from; relative hrefs resolve
// against it. Zero results is a valid outcome, not an error.
func Results(doc *goquery.Document, pageURL string) ([]models.SearchResult, Debug) {
	base, _ := url.Parse(pageURL)

	containers, debug := findContainers(doc)
	debug.ContainersFound = len(containers)

	var results []models.SearchResult
	for _, c := range containers {
		if r, ok := extractResult(c, base); ok {
			results = append(results, r)
		}
	}
	return results, debug
}

// findContainers runs the cascade: known selectors, then heading
// ascension, then a content-area pattern scan. Later stages run only
// when the previous produced nothing.
func findContainers(doc *goquery.Document) ([]*goquery.Selection, Debug) {
	var debug Debug

	for _, selector := range containerSelectors {
		found := doc.Find(selector)
		debug.SelectorsChecked = append(debug.SelectorsChecked, SelectorCount{selector, found.Length()})
		if found.Length() == 0 {
			continue
		}
		var filtered []*goquery.Selection
		found.Each(func(_ int, el *goquery.Selection) {
			if isResultContainer(el) {
				filtered = append(filtered, el)
			}
		})
		if len(filtered) > 0 {
			debug.WorkingSelector = selector
			debug.Stage = "selectors"
			return filtered, debug
		}
	}

	if containers := ascendFromHeadings(doc); len(containers) > 0 {
		debug.Stage = "heading-ascension"
		return containers, debug
	}

	if containers := scanContentArea(doc); len(containers) > 0 {
		debug.Stage = "content-area"
		return containers, debug
	}
	return nil, debug
}

func isResultContainer(el *goquery.Selection) bool {
	if el.Find("h3").Length() == 0 || el.Find("a[href]").Length() == 0 {
		return false
	}
	if el.Closest(knowledgePanelSel).Length() > 0 {
		return false
	}
	if el.Find(adMarkerSel).Length() > 0 || el.Closest(adMarkerSel).Length() > 0 {
		return false
	}
	return true
}

// ascendFromHeadings collects every h3 and walks up the ancestor chain
// until something holds a valid external link, skipping ads and
// knowledge panels. Ancestors are deduplicated by node identity.
func ascendFromHeadings(doc *goquery.Document) []*goquery.Selection {
	seen := map[*html.Node]bool{}
	var containers []*goquery.Selection

	doc.Find("h3").Each(func(_ int, h3 *goquery.Selection) {
		parent := h3.Parent()
		for depth := 0; depth < maxAscendDepth && parent.Length() > 0; depth++ {
			if hasExternalLink(parent) {
				if parent.Closest(adMarkerSel).Length() == 0 && parent.Closest(knowledgePanelSel).Length() == 0 {
					node := parent.Get(0)
					if !seen[node] {
						seen[node] = true
						containers = append(containers, parent)
					}
				}
				return
			}
			parent = parent.Parent()
		}
	})
	return containers
}

// scanContentArea keeps divs inside the main-content landmarks that
// carry a heading, an external link and substantial text. A div whose
// parent holds the same heading is skipped so nested wrappers do not
// double-count one result.
func scanContentArea(doc *goquery.Document) []*goquery.Selection {
	area := doc.Find(contentAreaSel)
	if area.Length() == 0 {
		return nil
	}

	var candidates []*goquery.Selection
	owners := map[*html.Node]*html.Node{} // first h3 node -> outermost candidate holding it

	area.Find("div").Each(func(_ int, div *goquery.Selection) {
		h3 := div.Find("h3").First()
		if h3.Length() == 0 || !hasExternalLink(div) {
			return
		}
		if len(strings.TrimSpace(div.Text())) <= 100 {
			return
		}
		if div.Closest(adMarkerSel).Length() > 0 {
			return
		}
		h3Node := h3.Get(0)
		if _, taken := owners[h3Node]; taken {
			// An ancestor already claimed this heading; goquery
			// visits outer divs first in document order.
			return
		}
		owners[h3Node] = div.Get(0)
		candidates = append(candidates, div)
	})
	return candidates
}

func hasExternalLink(el *goquery.Selection) bool {
	found := false
	el.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if isExternalURL(href) {
			found = true
			return false
		}
		return true
	})
	return found
}

func isExternalURL(u string) bool {
	if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
		return false
	}
	for _, marker := range internalURLMarkers {
		if strings.Contains(u, marker) {
			return false
		}
	}
	return true
}

// extractResult resolves title, link and snippet independently within
// one container. Position is left zero; the orchestrator assigns it at
// insertion time.
func extractResult(c *goquery.Selection, base *url.URL) (models.SearchResult, bool) {
	title, titleSel := findTitle(c)
	link := findLink(c, titleSel, base)
	if title == "" || link == "" {
		return models.SearchResult{}, false
	}
	link = unwrapRedirect(link)
	if !isExternalURL(link) || len(title) <= 3 || len(title) >= 300 {
		return models.SearchResult{}, false
	}

	return models.SearchResult{
		Title:   truncate(title, maxTitleLen),
		URL:     link,
		Domain:  DomainOf(link),
		Snippet: truncate(findSnippet(c, title), maxSnippetLen),
	}, true
}

func findTitle(c *goquery.Selection) (string, *goquery.Selection) {
	for _, sel := range []string{"h3", `[role="heading"]`, ".LC20lb, .DKV0Md"} {
		el := c.Find(sel).First()
		if el.Length() > 0 {
			if t := strings.TrimSpace(el.Text()); t != "" {
				return t, el
			}
		}
	}
	return "", nil
}

// findLink prefers the title's nearest enclosing anchor, then the first
// external anchor in the container.
func findLink(c *goquery.Selection, titleSel *goquery.Selection, base *url.URL) string {
	if titleSel != nil {
		if a := titleSel.Closest("a[href]"); a.Length() > 0 {
			if href, ok := a.Attr("href"); ok {
				return resolveHref(base, href)
			}
		}
	}
	link := ""
	c.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		resolved := resolveHref(base, href)
		if isExternalURL(resolved) || strings.Contains(resolved, "google.com/url?") {
			link = resolved
			return false
		}
		return true
	})
	return link
}

// findSnippet tries known snippet classes, then the longest plausible
// leaf text between 50 and 500 characters that is not the title.
func findSnippet(c *goquery.Selection, title string) string {
	for _, sel := range snippetSelectors {
		el := c.Find(sel).First()
		if el.Length() > 0 {
			if t := strings.TrimSpace(el.Text()); t != "" {
				return t
			}
		}
	}

	best := ""
	c.Find("div, span").Each(func(_ int, el *goquery.Selection) {
		if el.Find("h3").Length() > 0 {
			return
		}
		if el.Children().Length() >= 2 {
			return
		}
		t := strings.TrimSpace(el.Text())
		if len(t) >= 50 && len(t) <= 500 && t != title && len(t) > len(best) {
			best = t
		}
	})
	return best
}

func resolveHref(base *url.URL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	if base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// unwrapRedirect resolves the engine's /url? redirect wrapper to the
// real destination carried in the q or url parameter.
func unwrapRedirect(link string) string {
	if !strings.Contains(link, "google.com/url?") {
		return link
	}
	u, err := url.Parse(link)
	if err != nil {
		return link
	}
	q := u.Query()
	if real := q.Get("q"); real != "" {
		return real
	}
	if real := q.Get("url"); real != "" {
		return real
	}
	return link
}

var hostRe = regexp.MustCompile(`https?://(?:www\.)?([^/]+)`)

// DomainOf extracts the registrable host from a URL, dropping any www
// prefix, with a regex fallback when parsing fails.
func DomainOf(link string) string {
	if u, err := url.Parse(link); err == nil && u.Hostname() != "" {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	if m := hostRe.FindStringSubmatch(link); m != nil {
		return m[1]
	}
	return link
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
