package match

import (
	"regexp"
	"strings"

	"serprank/internal/models"
)

// Match finds the first result, in rank order, whose domain matches the
// target under any of six strategies. It returns the 1-based position
// and URL of that result, or ok=false when nothing matches.
func Match(results []models.SearchResult, target string) (position int, url string, ok bool) {
	input := Normalize(target)
	if input == "" {
		return 0, "", false
	}
	for i, r := range results {
		if matches(r, input) {
			return i + 1, r.URL, true
		}
	}
	return 0, "", false
}

var schemeWWWRe = regexp.MustCompile(`^(https?://)?(www\.)?`)

// Normalize lowercases a user-supplied domain and strips scheme, www
// prefix, trailing slash, query and fragment.
func Normalize(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = schemeWWWRe.ReplaceAllString(d, "")
	if i := strings.IndexByte(d, '?'); i >= 0 {
		d = d[:i]
	}
	if i := strings.IndexByte(d, '#'); i >= 0 {
		d = d[:i]
	}
	return strings.TrimSpace(strings.TrimSuffix(d, "/"))
}

// Common TLD suffixes stripped for the fuzzy base-name comparison.
var tldRe = regexp.MustCompile(`\.(com|net|org|co\.uk|io|dev|app)$`)

func matches(r models.SearchResult, input string) bool {
	resultDomain := strings.TrimPrefix(strings.ToLower(r.Domain), "www.")
	resultURL := strings.ToLower(r.URL)

	// 1: exact domain match.
	if resultDomain == input {
		return true
	}
	// 2: result contains input (blog.example.com vs example.com).
	if strings.Contains(resultDomain, input) {
		return true
	}
	// 3: input contains result (the reverse).
	if strings.Contains(input, resultDomain) {
		return true
	}
	// 4: same root domain, guarded against short roots and compound
	// ccTLD fragments like .co.uk where the last two labels lie.
	inputRoot := rootDomain(input)
	if inputRoot == rootDomain(resultDomain) && len(inputRoot) > 3 && !strings.Contains(inputRoot, ".co.") {
		return true
	}
	// 5: raw URL contains the normalized input anywhere.
	if strings.Contains(resultURL, input) {
		return true
	}
	// 6: equal after stripping a common TLD from both sides.
	inputBase := tldRe.ReplaceAllString(input, "")
	resultBase := tldRe.ReplaceAllString(resultDomain, "")
	return inputBase != "" && resultBase != "" && inputBase == resultBase
}

// rootDomain returns the last two dot-separated labels, a coarse
// ownership signal.
func rootDomain(d string) string {
	parts := strings.Split(d, ".")
	if len(parts) >= 2 {
		return strings.Join(parts[len(parts)-2:], ".")
	}
	return d
}
