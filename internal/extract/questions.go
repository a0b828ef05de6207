package extract

import (
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Hard cap on questions surfaced per page fetch.
const maxQuestionsPerPage = 30

// Selectors historically observed around "people also ask" widgets.
// Class names rotate; the list is append-only.
var questionSelectors = []string{
	`div[jsname="Cpkphb"]`,
	`div[jsname="N760b"]`,
	"div.related-question-pair",
	"div.cbphWd",
	"div.JolIg",
	`div[data-q]`,
	`div[data-sgrd="true"] div[jsname]`,
	"div.wQiwMc",
	"div.iDjcJe",
	`div[role="button"] span`,
	"g-accordion-expander",
	"div.dnXCYb",
	"div.JCzEY",
	"span.CSkcDe",
}

var sectionMarkers = []string{
	"people also ask",
	"related questions",
	"people also search",
}

var questionPrefixes = []string{
	"people also ask",
	"related questions",
	"question:",
	"q:",
}

// Substrings that mark script or markup fragments masquerading as
// prose. Any hit disqualifies the candidate.
var codeMarkers = []string{
	"function(",
	"){",
	"var ",
	"new image",
	".call(",
	".src=",
	"setattribute",
	"classname",
	"getelementbyid",
	"queryselector",
	`\x`,
	`\u`,
	"==",
	"!=",
}

var urlMarkers = []string{"://", "www.", ".com", ".org", ".net", "http"}

// Short function words used as an is-this-English probe on longer
// candidates.
var commonWords = []string{
	"the", "is", "are", "was", "were", "what", "when", "where", "why",
	"how", "who", "which", "can", "do", "does", "did", "will", "would",
	"should", "could", "to", "of", "in", "on", "for", "a", "an",
}

var (
	leadBulletRe   = regexp.MustCompile(`^[\s›•\-*…>]+`)
	leadNumberRe   = regexp.MustCompile(`^\d+[.)]\s*`)
	datePrefixRe   = regexp.MustCompile(`^[A-Z][a-z]{2} \d{1,2}, \d{4}\s*[:\-–]?\s*`)
	slashDateRe    = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{2,4}\s*[:\-–]?\s*`)
	multiSpaceRe   = regexp.MustCompile(`\s+`)
	multiMarkRe    = regexp.MustCompile(`\?+`)
	upperRunRe     = regexp.MustCompile(`[A-Z]{10,}`)
	lowerRunRe     = regexp.MustCompile(`[a-z]{50,}`)
	startsLetterRe = regexp.MustCompile(`^[A-Za-z]`)
	specialCharRe  = regexp.MustCompile(`[^a-zA-Z0-9\s?'\-]`)
	sentenceRe     = regexp.MustCompile(`\b[A-Z][^.!?]*\?`)
)

// Questions runs every extraction strategy, unions the raw candidates
// and pushes them through the cleaning pipeline. The strategies overlap
// on purpose: the widget markup is unstable and any one of them can
// come up empty after a markup rotation.
func Questions(doc *goquery.Document) []string {
	var raw []string
	raw = append(raw, fromKnownSelectors(doc)...)
	raw = append(raw, fromHeadings(doc)...)
	raw = append(raw, fromSection(doc)...)
	raw = append(raw, fromExpandables(doc)...)
	raw = append(raw, fromContentScan(doc)...)
	raw = append(raw, fromSentenceRegex(doc)...)

	cleaned := Clean(raw)
	if len(cleaned) > maxQuestionsPerPage {
		cleaned = cleaned[:maxQuestionsPerPage]
	}
	return cleaned
}

// Strategy 1: the known widget selectors. When an element wraps a
// shorter heading child, the child text is preferred over the block.
func fromKnownSelectors(doc *goquery.Document) []string {
	var out []string
	for _, sel := range questionSelectors {
		doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
			text := squashSpace(el.Text())
			if heading := el.Find(`h3, [role="heading"]`).First(); heading.Length() > 0 {
				if ht := squashSpace(heading.Text()); len(ht) > 10 && len(ht) < len(text) {
					text = ht
				}
			}
			if !strings.Contains(text, "?") || len(text) <= 10 || len(text) > 2000 {
				return
			}
			out = append(out, splitOnMarks(text, 2, 100, 10, 1000)...)
		})
	}
	return out
}

// Strategy 2: any heading-like or clickable element whose visible text
// or aria-label reads as a question.
func fromHeadings(doc *goquery.Document) []string {
	var out []string
	sel := `h1, h2, h3, h4, h5, h6, [role="heading"], [role="button"], button, a, summary, [aria-label]`
	doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
		text := squashSpace(el.Text())
		if label, ok := el.Attr("aria-label"); ok && !strings.Contains(text, "?") {
			text = squashSpace(label)
		}
		if !strings.Contains(text, "?") || len(text) <= 10 || len(text) > 1000 {
			return
		}
		if strings.Contains(strings.ToLower(text), "google.com") {
			return
		}
		out = append(out, splitOnMarks(text, 2, 100, 12, 500)...)
	})
	return out
}

// Strategy 3: locate the questions section by its label, then harvest
// shallow descendants. Falls back to a raw body-text window around the
// label when no labelled container exists.
func fromSection(doc *goquery.Document) []string {
	section := findQuestionSection(doc)
	if section == nil {
		return fromSectionText(doc)
	}

	var out []string
	section.Find("*").Each(func(_ int, el *goquery.Selection) {
		if el.ChildrenFiltered("div, section, article").Length() > 2 {
			return
		}
		text := squashSpace(el.Text())
		if !strings.Contains(text, "?") || len(text) <= 10 || len(text) > 2000 {
			return
		}
		out = append(out, splitOnMarks(text, 2, 100, 10, 800)...)
	})
	return out
}

func findQuestionSection(doc *goquery.Document) *goquery.Selection {
	var section *goquery.Selection
	doc.Find("div, section, main, article, aside").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		probe := strings.ToLower(squashSpace(el.Text()))
		if label, ok := el.Attr("aria-label"); ok {
			probe += " " + strings.ToLower(label)
		}
		for _, marker := range sectionMarkers {
			if strings.Contains(probe, marker) {
				section = el
				return false
			}
		}
		return true
	})
	return section
}

func fromSectionText(doc *goquery.Document) []string {
	body := squashSpace(doc.Find("body").Text())
	idx := strings.Index(strings.ToLower(body), "people also ask")
	if idx < 0 {
		return nil
	}
	window := body[idx:]
	if len(window) > 2000 {
		window = window[:2000]
	}

	var out []string
	for _, part := range strings.Split(window, "?") {
		part = strings.TrimSpace(part)
		if len(part) < 10 {
			continue
		}
		q := part + "?"
		if wc := len(strings.Fields(q)); wc < 2 || wc > 100 {
			continue
		}
		if len(q) >= 12 && len(q) <= 500 {
			out = append(out, q)
		}
	}
	return out
}

// Strategy 4: collapsed or expandable widgets, where the question text
// often lives in an aria-label or title attribute rather than the DOM.
func fromExpandables(doc *goquery.Document) []string {
	var out []string
	sel := `[aria-expanded], [role="button"], button, summary, details, [onclick], [jsaction]`
	doc.Find(sel).Each(func(_ int, el *goquery.Selection) {
		text := squashSpace(el.Text())
		if label, ok := el.Attr("aria-label"); ok {
			text += " " + squashSpace(label)
		}
		if title, ok := el.Attr("title"); ok {
			text += " " + squashSpace(title)
		}
		if !strings.Contains(text, "?") || len(text) <= 10 {
			return
		}
		out = append(out, splitOnMarks(text, 2, 100, 10, 600)...)
	})
	return out
}

// Strategy 5: brute scan of the main content area for small elements
// whose own text is a question. Element fan-out is capped so large
// wrappers that merely contain questions are skipped.
func fromContentScan(doc *goquery.Document) []string {
	var out []string
	seen := map[string]bool{}

	doc.Find("#center_col, #rso, #search, #rcnt, main, article").Each(func(_ int, area *goquery.Selection) {
		area.Find("*").Each(func(_ int, el *goquery.Selection) {
			if elementChildren(el) > 3 {
				return
			}
			text := squashSpace(el.Text())
			if len(text) <= 10 || len(text) > 500 || !strings.Contains(text, "?") {
				return
			}
			if seen[text] {
				return
			}
			seen[text] = true
			lower := strings.ToLower(text)
			if strings.Contains(lower, "google.com") || strings.Contains(lower, "support.google") {
				return
			}
			out = append(out, splitOnMarks(text, 2, 100, 10, 500)...)
		})
	})
	return out
}

func elementChildren(el *goquery.Selection) int {
	n := 0
	for c := el.Get(0).FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			n++
		}
	}
	return n
}

// Strategy 6: regex over the whole body text for capitalized sentences
// ending in a question mark.
func fromSentenceRegex(doc *goquery.Document) []string {
	body := squashSpace(doc.Find("body").Text())

	var out []string
	for _, q := range sentenceRe.FindAllString(body, -1) {
		q = strings.TrimSpace(q)
		if wc := len(strings.Fields(q)); wc < 2 || wc > 100 {
			continue
		}
		if len(q) < 10 || len(q) > 500 {
			continue
		}
		lower := strings.ToLower(q)
		if strings.Contains(lower, "google.com") || strings.Contains(q, "©") {
			continue
		}
		out = append(out, q)
	}
	return out
}

// splitOnMarks breaks a blob on question marks and keeps each re-marked
// piece that fits the word and length windows. Running text around a
// widget frequently glues several questions into one node.
func splitOnMarks(text string, minWords, maxWords, minLen, maxLen int) []string {
	var out []string
	parts := strings.Split(text, "?")
	for i, part := range parts {
		if i == len(parts)-1 {
			break
		}
		q := stripPrefixes(strings.TrimSpace(part)) + "?"
		if wc := len(strings.Fields(q)); wc < minWords || wc > maxWords {
			continue
		}
		if len(q) < minLen || len(q) > maxLen {
			continue
		}
		out = append(out, q)
	}
	return out
}

func stripPrefixes(q string) string {
	lower := strings.ToLower(q)
	for _, p := range questionPrefixes {
		if strings.HasPrefix(lower, p) {
			q = strings.TrimSpace(q[len(p):])
			lower = strings.ToLower(q)
		}
	}
	return q
}

// Clean normalizes, filters, deduplicates and orders raw question
// candidates. The filters are aggressive because the raw union drags in
// script fragments, navigation labels and concatenated widget text.
func Clean(raw []string) []string {
	var kept []string
	seen := map[string]bool{}

	for _, q := range raw {
		q = normalizeQuestion(q)
		if q == "" || seen[q] {
			continue
		}
		if !plausibleQuestion(q) {
			continue
		}
		seen[q] = true
		kept = append(kept, q)
	}

	// Drop strict substrings of meaningfully longer retained questions.
	var out []string
	for _, q := range kept {
		redundant := false
		for _, other := range kept {
			if other != q && strings.Contains(other, q) && len(other) > len(q)+5 {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, q)
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return len(out[i]) < len(out[j]) })
	return out
}

func normalizeQuestion(q string) string {
	q = squashSpace(q)
	q = multiMarkRe.ReplaceAllString(q, "?")
	q = leadBulletRe.ReplaceAllString(q, "")
	q = leadNumberRe.ReplaceAllString(q, "")
	q = datePrefixRe.ReplaceAllString(q, "")
	q = slashDateRe.ReplaceAllString(q, "")
	q = strings.TrimLeft(q, ": ")
	q = stripPrefixes(q)
	if len(q) < 10 {
		return ""
	}
	return q
}

func plausibleQuestion(q string) bool {
	if !strings.Contains(q, "?") {
		return false
	}
	if len(q) < 10 || len(q) > 300 {
		return false
	}
	words := strings.Fields(q)
	if len(words) < 2 || len(words) > 100 {
		return false
	}
	if !startsLetterRe.MatchString(q) {
		return false
	}

	lower := strings.ToLower(q)
	for _, marker := range codeMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	for _, marker := range urlMarkers {
		if strings.Contains(lower, marker) {
			return false
		}
	}
	if strings.ContainsAny(q, "{}") {
		return false
	}
	if strings.Count(q, "(") > 2 || strings.Count(q, `\`) > 2 {
		return false
	}
	if len(specialCharRe.FindAllString(q, -1)) > 5 {
		return false
	}
	if upperRunRe.MatchString(q) || lowerRunRe.MatchString(q) {
		return false
	}

	// Longer candidates must read as English, not identifier soup.
	if len(words) > 5 {
		hasCommon := false
		for _, w := range words {
			w = strings.Trim(strings.ToLower(w), "?'")
			for _, c := range commonWords {
				if w == c {
					hasCommon = true
					break
				}
			}
			if hasCommon {
				break
			}
		}
		if !hasCommon {
			return false
		}
	}
	return true
}

func squashSpace(s string) string {
	return strings.TrimSpace(multiSpaceRe.ReplaceAllString(s, " "))
}
